package handle

import (
	"net/http"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/imagestore"
	"gutachten-api/api/internal/ingest"
)

type uploadResp struct {
	Success   bool     `json:"success"`
	ImageURLs []string `json:"imageUrls"`
	PublicIDs []string `json:"publicIds"`
}

// UploadImages accepts the same bodies as /analyze and returns URLs in input order.
func (h *Handle) UploadImages(w http.ResponseWriter, r *http.Request) {
	const op = "handle.upload_images"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	req, err := ingest.Parse(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.images == nil || !h.images.Configured() {
		h.writeError(w, r, apperr.Configuration(op, "Cloudinary-Zugangsdaten fehlen"))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	uploaded, err := imagestore.UploadAll(ctx, h.images, req.Images)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := uploadResp{
		Success:   true,
		ImageURLs: make([]string, len(uploaded)),
		PublicIDs: make([]string, len(uploaded)),
	}
	for i, u := range uploaded {
		resp.ImageURLs[i] = u.URL
		resp.PublicIDs[i] = u.PublicID
	}
	writeJSON(w, http.StatusOK, resp)
}
