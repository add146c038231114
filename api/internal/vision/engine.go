package vision

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Image is one photo handed to the model, in the order the client sent it.
type Image struct {
	Data      []byte
	MediaType string
	Label     string
}

// Request carries the composed prompts and the images.
type Request struct {
	System string
	User   string
	Images []Image
}

// Engine is a vision-capable text generation backend.
type Engine interface {
	Name() string
	GetModel() string
	Configured() bool
	Generate(ctx context.Context, in Request) (string, error)
}

type Engines struct {
	byName      map[string]Engine
	defaultName string
}

// NewEngines registers engines under their Name(); defaultName is used for empty selections.
func NewEngines(defaultName string, engines ...Engine) *Engines {
	e := &Engines{byName: map[string]Engine{}, defaultName: strings.ToLower(strings.TrimSpace(defaultName))}
	for _, eng := range engines {
		if eng != nil {
			e.byName[eng.Name()] = eng
		}
	}
	return e
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		name = e.defaultName
	case "claude":
		name = "anthropic"
	case "google":
		name = "gemini"
	}
	if eng, ok := e.byName[name]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("unknown engine %q; use one of %s", name, strings.Join(e.Names(), ", "))
}

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byName))
	for n := range e.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Status reports credential presence per engine, for /health.
func (e *Engines) Status() map[string]bool {
	out := make(map[string]bool, len(e.byName))
	for n, eng := range e.byName {
		out[n] = eng.Configured()
	}
	return out
}
