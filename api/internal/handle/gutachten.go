package handle

import (
	"context"
	"net/http"
	"strings"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/records"
)

type saveResp struct {
	Success bool   `json:"success"`
	PageID  string `json:"pageId"`
	URL     string `json:"url"`
	Nummer  string `json:"gutachtenNr"`
}

// SaveGutachten: POST /save-gutachten
func (h *Handle) SaveGutachten(w http.ResponseWriter, r *http.Request) {
	const op = "handle.save_gutachten"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var in records.CreateInput
	if err := decodeJSON(r, op, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := records.NewGutachten(in, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	saved, err := h.store.Create(ctx, g)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	g.ID, g.URL = saved.ID, saved.URL

	// уведомление не должно задерживать ответ
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		h.notifier.NotifySaved(context.WithoutCancel(r.Context()), g, saved)
	}()

	writeJSON(w, http.StatusOK, saveResp{Success: true, PageID: saved.ID, URL: saved.URL, Nummer: g.Nummer})
}

// ListGutachten: GET /gutachten, newest first.
func (h *Handle) ListGutachten(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	list, err := h.store.List(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "gutachten": list})
}

type statusReq struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UpdateStatus: PATCH /update-status {id, status}
func (h *Handle) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handle.update_status"
	if !allowMethod(w, r, http.MethodPatch) {
		return
	}
	var in statusReq
	if err := decodeJSON(r, op, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.ID, in.Status = strings.TrimSpace(in.ID), strings.TrimSpace(in.Status)
	if in.ID == "" || in.Status == "" {
		h.writeError(w, r, apperr.Validation(op, "ID und Status erforderlich"))
		return
	}
	if !records.ValidStatus(in.Status) {
		h.writeError(w, r, apperr.Validation(op, "Unbekannter Status "+in.Status))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.store.UpdateStatus(ctx, in.ID, in.Status); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DashboardStats: GET /dashboard-stats
func (h *Handle) DashboardStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	list, err := h.store.List(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": records.Aggregate(list)})
}
