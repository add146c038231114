package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/util"
)

const (
	DefaultMaterial        = "S355"
	DefaultAcceptanceClass = "C"

	// MaxBodyBytes caps what is buffered in memory per request.
	MaxBodyBytes = 40 << 20
)

// Image is one uploaded photograph in arrival order.
type Image struct {
	Data      []byte
	MediaType string
	Filename  string
}

// Request is the per-call inspection input. It is never persisted.
type Request struct {
	Images          []Image
	Material        string
	AcceptanceClass string
	WallThickness   string
}

// jsonImage: элемент images[] в JSON-теле
type jsonImage struct {
	Data      string `json:"data"`
	MediaType string `json:"mediaType"`
	Filename  string `json:"filename,omitempty"`
}

// UnmarshalJSON also accepts a bare base64 / data-URL string.
func (j *jsonImage) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '"' {
		return json.Unmarshal(t, &j.Data)
	}
	type plain jsonImage
	return json.Unmarshal(b, (*plain)(j))
}

type jsonBody struct {
	Images []jsonImage `json:"images"`

	Werkstoff        string          `json:"werkstoff"`
	Material         string          `json:"material"`
	Bewertungsgruppe string          `json:"bewertungsgruppe"`
	AcceptanceClass  string          `json:"acceptanceClass"`
	Wandstaerke      json.RawMessage `json:"wandstaerke"`
	WallThickness    json.RawMessage `json:"wallThickness"`
}

// Parse extracts images and inspection metadata from r. Zero images and unsupported content
// types are validation errors; undecodable bodies are malformed-request errors.
func Parse(r *http.Request) (Request, error) {
	const op = "ingest"

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return Request{}, apperr.Validation(op, "Ungültiger Content-Type")
	}

	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer body.Close()

	var req Request
	switch mediaType {
	case "multipart/form-data":
		req, err = parseMultipart(body, params["boundary"])
	case "application/json":
		req, err = parseJSON(body)
	default:
		return Request{}, apperr.Validation(op, "Ungültiger Content-Type")
	}
	if err != nil {
		return Request{}, err
	}
	if len(req.Images) == 0 {
		return Request{}, apperr.Validation(op, "Keine Bilder hochgeladen")
	}
	applyDefaults(&req)
	return req, nil
}

// parseMultipart стримит части формы в память, без временных файлов на диске.
func parseMultipart(body io.Reader, boundary string) (Request, error) {
	const op = "ingest.multipart"
	if boundary == "" {
		return Request{}, apperr.Malformed(op, "Multipart-Boundary fehlt", nil)
	}

	var req Request
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Request{}, apperr.Malformed(op, "Multipart-Daten fehlerhaft", err)
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return Request{}, apperr.Malformed(op, "Multipart-Daten fehlerhaft", err)
		}

		if part.FileName() == "" {
			setField(&req, part.FormName(), string(data))
			continue
		}
		if len(data) == 0 {
			continue
		}
		req.Images = append(req.Images, Image{
			Data:      data,
			MediaType: util.PickMIME(part.Header.Get("Content-Type"), "", data),
			Filename:  part.FileName(),
		})
	}
	return req, nil
}

func parseJSON(body io.Reader) (Request, error) {
	const op = "ingest.json"

	var in jsonBody
	dec := json.NewDecoder(body)
	if err := dec.Decode(&in); err != nil {
		return Request{}, apperr.Malformed(op, "Ungültiges JSON", err)
	}

	req := Request{
		Material:        firstNonEmpty(in.Werkstoff, in.Material),
		AcceptanceClass: firstNonEmpty(in.Bewertungsgruppe, in.AcceptanceClass),
	}
	wall, err := rawScalar(in.Wandstaerke)
	if err != nil {
		return Request{}, apperr.Malformed(op, "wandstaerke ungültig", err)
	}
	if wall == "" {
		if wall, err = rawScalar(in.WallThickness); err != nil {
			return Request{}, apperr.Malformed(op, "wallThickness ungültig", err)
		}
	}
	req.WallThickness = wall

	for i, img := range in.Images {
		data, hint, err := util.DecodeBase64MaybeDataURL(img.Data)
		if err != nil {
			return Request{}, apperr.Malformed(op, fmt.Sprintf("Bild %d: ungültiges Base64", i+1), err)
		}
		if len(data) == 0 {
			return Request{}, apperr.Malformed(op, fmt.Sprintf("Bild %d: leer", i+1), nil)
		}
		req.Images = append(req.Images, Image{
			Data:      data,
			MediaType: util.PickMIME(img.MediaType, hint, data),
			Filename:  img.Filename,
		})
	}
	return req, nil
}

func setField(req *Request, name, value string) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(name) {
	case "werkstoff", "material":
		req.Material = value
	case "bewertungsgruppe", "acceptanceclass":
		req.AcceptanceClass = value
	case "wandstaerke", "wanddicke", "wallthickness":
		req.WallThickness = value
	}
}

func applyDefaults(req *Request) {
	req.Material = strings.TrimSpace(req.Material)
	if req.Material == "" {
		req.Material = DefaultMaterial
	}
	req.AcceptanceClass = strings.ToUpper(strings.TrimSpace(req.AcceptanceClass))
	if req.AcceptanceClass == "" {
		req.AcceptanceClass = DefaultAcceptanceClass
	}
	req.WallThickness = strings.TrimSpace(req.WallThickness)
}

// rawScalar accepts a JSON string or number and returns its text.
func rawScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
