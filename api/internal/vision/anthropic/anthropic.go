package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/util"
	"gutachten-api/api/internal/vision"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

type Engine struct {
	APIKey    string
	Model     string
	MaxTokens int
	baseURL   string
	httpc     *http.Client
}

func New(key, model, baseURL string, maxTokens int) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// Vision-ответы с несколькими фото приходят медленно, ждём заголовки дольше
		ResponseHeaderTimeout: 150 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   20,
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Engine{
		APIKey:    strings.TrimSpace(key),
		Model:     strings.TrimSpace(model),
		MaxTokens: maxTokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpc:     &http.Client{Timeout: 0, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "anthropic" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) Configured() bool { return e.APIKey != "" }

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the images (in order) followed by the user text and returns the model text.
func (e *Engine) Generate(ctx context.Context, in vision.Request) (string, error) {
	const op = "anthropic.generate"
	if e.APIKey == "" {
		return "", apperr.Configuration(op, "ANTHROPIC_API_KEY ist nicht gesetzt")
	}

	blocks := make([]contentBlock, 0, len(in.Images)+1)
	for _, img := range in.Images {
		if !isSupportedMIME(img.MediaType) {
			return "", apperr.Validation(op, fmt.Sprintf("Bildformat %s wird nicht unterstützt", img.MediaType))
		}
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: img.MediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: in.User})

	payload, err := json.Marshal(messagesRequest{
		Model:     e.Model,
		MaxTokens: e.MaxTokens,
		System:    in.System,
		Messages:  []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	started := time.Now()
	text, err := e.do(req)
	metrics.ObserveUpstream(e.Name(), started, err)
	return text, err
}

func (e *Engine) do(req *http.Request) (string, error) {
	const op = "anthropic.generate"

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", apperr.Upstream(op, "Claude-Anfrage fehlgeschlagen", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Upstream(op, "Claude-Antwort nicht lesbar", err)
	}
	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			return "", apperr.Upstream(op, "Claude-Fehler", fmt.Errorf("%d %s: %s", resp.StatusCode, env.Error.Type, env.Error.Message))
		}
		return "", apperr.Upstream(op, "Claude-Fehler", fmt.Errorf("%d: %s", resp.StatusCode, strings.TrimSpace(util.TruncateBytes(raw, 1024))))
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return "", apperr.Upstream(op, "Claude-Antwort ungültig", err)
	}
	var b strings.Builder
	for _, c := range mr.Content {
		if c.Type != "text" || strings.TrimSpace(c.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Text)
	}
	if b.Len() == 0 {
		return "", apperr.Upstream(op, "Claude-Antwort leer", fmt.Errorf("stop_reason=%s body=%s", mr.StopReason, util.TruncateBytes(raw, 256)))
	}
	return b.String(), nil
}

func isSupportedMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
