package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/vision"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) Configured() bool { return e.APIKey != "" }

// Generate отправляет системную инструкцию, фото по порядку и текст запроса. Без ретраев:
// на повтор у клиента всё равно не хватит таймаута.
func (e *Engine) Generate(ctx context.Context, in vision.Request) (string, error) {
	const op = "gemini.generate"
	if e.APIKey == "" {
		return "", apperr.Configuration(op, "GEMINI_API_KEY ist nicht gesetzt")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", apperr.Upstream(op, "Gemini-Client nicht verfügbar", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", apperr.Configuration(op, "Gemini-Modell fehlt")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}
	if strings.TrimSpace(in.System) != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(in.System)}}
	}

	started := time.Now()
	resp, err := m.GenerateContent(ctx, parts(in)...)
	if err != nil {
		err = apperr.Upstream(op, "Gemini-Anfrage fehlgeschlagen", err)
		metrics.ObserveUpstream(e.Name(), started, err)
		return "", err
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		err = apperr.Upstream(op, "Gemini-Antwort leer", fmt.Errorf("candidates=%d", len(resp.Candidates)))
	}
	metrics.ObserveUpstream(e.Name(), started, err)
	return txt, err
}

// parts: картинки в исходном порядке, затем текст.
func parts(in vision.Request) []genai.Part {
	out := make([]genai.Part, 0, len(in.Images)+1)
	for _, img := range in.Images {
		out = append(out, &genai.Blob{MIMEType: img.MediaType, Data: img.Data})
	}
	return append(out, genai.Text(in.User))
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
