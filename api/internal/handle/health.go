package handle

import (
	"net/http"
	"time"
)

// Health reports which collaborators have credentials; it never calls them.
func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	resp := map[string]any{
		"status":     "ok",
		"version":    h.version,
		"anthropic":  false,
		"gemini":     false,
		"cloudinary": h.images != nil && h.images.Configured(),
		"notion":     false,
		"postgres":   false,
		"telegram":   h.notifier.Enabled(),
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	}
	if h.engs != nil {
		for name, ok := range h.engs.Status() {
			resp[name] = ok
		}
	}
	if h.store != nil {
		resp[h.store.Name()] = h.store.Configured()
		resp["recordStore"] = h.store.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}
