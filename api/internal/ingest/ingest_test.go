package ingest

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gutachten-api/api/internal/apperr"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 9, 9}
)

func multipartRequest(t *testing.T, fields map[string]string, files ...[]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="img`+string(rune('a'+i))+`.bin"`)
		h.Set("Content-Type", "application/octet-stream")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(f)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestParseMultipartKeepsOrderAndMetadata(t *testing.T) {
	r := multipartRequest(t, map[string]string{
		"werkstoff":        "S460M",
		"bewertungsgruppe": "b",
		"wandstaerke":      "12",
	}, jpegBytes, pngBytes)

	req, err := Parse(r)
	require.NoError(t, err)
	require.Len(t, req.Images, 2)
	require.Equal(t, jpegBytes, req.Images[0].Data)
	require.Equal(t, "image/jpeg", req.Images[0].MediaType)
	require.Equal(t, "image/png", req.Images[1].MediaType)
	require.Equal(t, "S460M", req.Material)
	require.Equal(t, "B", req.AcceptanceClass)
	require.Equal(t, "12", req.WallThickness)
}

func TestParseMultipartDefaults(t *testing.T) {
	req, err := Parse(multipartRequest(t, nil, jpegBytes))
	require.NoError(t, err)
	require.Equal(t, DefaultMaterial, req.Material)
	require.Equal(t, DefaultAcceptanceClass, req.AcceptanceClass)
	require.Empty(t, req.WallThickness)
}

func TestParseZeroImagesIsValidationError(t *testing.T) {
	_, err := Parse(multipartRequest(t, map[string]string{"werkstoff": "S355"}))
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = Parse(jsonRequest(`{"images":[],"werkstoff":"S355"}`))
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, "Keine Bilder hochgeladen", apperr.PublicMessage(err))
}

func TestParseJSON(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngBytes)
	body := `{"images":[{"data":"` + b64 + `","mediaType":"image/png"},"data:image/jpeg;base64,` +
		base64.StdEncoding.EncodeToString(jpegBytes) + `"],"material":"1.4301","acceptanceClass":"d","wallThickness":8.5}`

	req, err := Parse(jsonRequest(body))
	require.NoError(t, err)
	require.Len(t, req.Images, 2)
	require.Equal(t, pngBytes, req.Images[0].Data)
	require.Equal(t, "image/png", req.Images[0].MediaType)
	require.Equal(t, "image/jpeg", req.Images[1].MediaType)
	require.Equal(t, "1.4301", req.Material)
	require.Equal(t, "D", req.AcceptanceClass)
	require.Equal(t, "8.5", req.WallThickness)
}

func TestParseJSONMediaTypeDefaultsToJPEG(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("not an image header"))
	req, err := Parse(jsonRequest(`{"images":[{"data":"` + b64 + `"}]}`))
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", req.Images[0].MediaType)
}

func TestParseMalformedBodies(t *testing.T) {
	cases := map[string]*http.Request{
		"bad json":   jsonRequest(`{"images":[`),
		"bad base64": jsonRequest(`{"images":[{"data":"@@@"}]}`),
		"bad wall":   jsonRequest(`{"images":["AAAA"],"wandstaerke":true}`),
	}
	broken := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("--xyz\r\nbroken"))
	broken.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	cases["bad multipart"] = broken

	for name, r := range cases {
		_, err := Parse(r)
		require.True(t, apperr.Is(err, apperr.KindMalformedRequest), "%s: %v", name, err)
	}
}

func TestParseUnsupportedContentType(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("x"))
	r.Header.Set("Content-Type", "text/plain")
	_, err := Parse(r)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	r = httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("x"))
	_, err = Parse(r)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}
