package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/imagestore"
	"gutachten-api/api/internal/inspection"
	"gutachten-api/api/internal/notify"
	"gutachten-api/api/internal/records"
	"gutachten-api/api/internal/reference"
	"gutachten-api/api/internal/vision"
)

// ImageStore is the object-store collaborator as seen by the handlers.
type ImageStore interface {
	imagestore.Uploader
	Configured() bool
}

type Deps struct {
	Inspection *inspection.Service
	Engines    *vision.Engines
	Tables     *reference.Tables
	Images     ImageStore
	Records    records.Store
	Notifier   notify.Notifier
	Logger     *slog.Logger
	Metrics    http.Handler

	Version        string
	RequestTimeout time.Duration
}

type Handle struct {
	insp     *inspection.Service
	engs     *vision.Engines
	tables   *reference.Tables
	images   ImageStore
	store    records.Store
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  http.Handler

	version string
	timeout time.Duration
	now     func() time.Time

	// фоновые уведомления, которых ждёт Wait
	background sync.WaitGroup
}

func New(d Deps) *Handle {
	h := &Handle{
		insp:     d.Inspection,
		engs:     d.Engines,
		tables:   d.Tables,
		images:   d.Images,
		store:    d.Records,
		notifier: d.Notifier,
		logger:   d.Logger,
		metrics:  d.Metrics,
		version:  d.Version,
		timeout:  d.RequestTimeout,
		now:      time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.notifier == nil {
		h.notifier = notify.Nop{}
	}
	if h.metrics == nil {
		h.metrics = promhttp.Handler()
	}
	if h.timeout <= 0 {
		h.timeout = 180 * time.Second
	}
	return h
}

// Wait blocks until background notifications finish or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Routes: exact paths only; everything else is a JSON 404.
func (h *Handle) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/grenzwerte", h.Grenzwerte)
	mux.HandleFunc("/upload-images", h.UploadImages)
	mux.HandleFunc("/save-gutachten", h.SaveGutachten)
	mux.HandleFunc("/gutachten", h.ListGutachten)
	mux.HandleFunc("/update-status", h.UpdateStatus)
	mux.HandleFunc("/dashboard-stats", h.DashboardStats)
	mux.Handle("/metrics", h.metrics)
	mux.HandleFunc("/", h.NotFound)
	return mux
}

func (h *Handle) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Not found"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError turns any error into {success:false,error} with the status of its kind.
func (h *Handle) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.Status(err)
	if code >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "kind", apperr.KindOf(err).String(), "err", err)
	} else {
		h.logger.Debug("request rejected", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, map[string]any{"success": false, "error": apperr.PublicMessage(err)})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method+", OPTIONS")
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "error": "Method not allowed"})
	return false
}

// requestContext: X-Request-Timeout (seconds) или ?timeoutSec, иначе REQUEST_TIMEOUT.
func (h *Handle) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Malformed(op, "Ungültiges JSON", err)
	}
	return nil
}
