package handle

import "net/http"

// Grenzwerte returns the reference tables as loaded at startup.
func (h *Handle) Grenzwerte(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.tables)
}
