package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by who is at fault and how it maps onto HTTP.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindMalformedRequest
	KindUpstream
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMalformedRequest:
		return "malformed_request"
	case KindUpstream:
		return "upstream"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error wraps an operation, a human-facing message and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is what the client sees in the error envelope.
func (e *Error) Message() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func Malformed(op, msg string, err error) error {
	return &Error{Kind: KindMalformedRequest, Op: op, Msg: msg, Err: err}
}

func Upstream(op, msg string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Msg: msg, Err: err}
}

func Configuration(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: msg}
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Status maps an error onto the HTTP status returned to the client.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindMalformedRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message placed into {success:false,error:...}.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
