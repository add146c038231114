package handle

import (
	"net/http"

	"gutachten-api/api/internal/ingest"
	"gutachten-api/api/internal/report"
)

type analysisMeta struct {
	Engine           string `json:"engine"`
	Model            string `json:"model"`
	ImageCount       int    `json:"imageCount"`
	Werkstoff        string `json:"werkstoff"`
	Werkstoffgruppe  string `json:"werkstoffgruppe"`
	Bewertungsgruppe string `json:"bewertungsgruppe"`
	Wandstaerke      string `json:"wandstaerke,omitempty"`
}

type analyzeResp struct {
	Success  bool          `json:"success"`
	Analysis report.Report `json:"analysis"`
	Meta     analysisMeta  `json:"meta"`
}

// Analyze: POST /analyze[?engine=anthropic|gemini]
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	req, err := ingest.Parse(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.insp.Analyze(ctx, r.URL.Query().Get("engine"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResp{
		Success:  true,
		Analysis: res.Report,
		Meta: analysisMeta{
			Engine:           res.Engine,
			Model:            res.Model,
			ImageCount:       len(req.Images),
			Werkstoff:        req.Material,
			Werkstoffgruppe:  h.tables.ResolveGroup(req.Material),
			Bewertungsgruppe: req.AcceptanceClass,
			Wandstaerke:      req.WallThickness,
		},
	})
}
