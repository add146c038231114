package imagestore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/ingest"
)

func TestCloudinaryUploadSignsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasPrefix(r.URL.Path, "/v1_1/demo/"), r.URL.Path)
		require.True(t, strings.HasSuffix(r.URL.Path, "/upload"), r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, DefaultFolder, r.FormValue("folder"))
		require.Equal(t, "key", r.FormValue("api_key"))
		require.NotEmpty(t, r.FormValue("timestamp"))
		require.Regexp(t, `^[0-9a-f]{40}$`, r.FormValue("signature"))

		_, inFiles := r.MultipartForm.File["file"]
		_, inValues := r.MultipartForm.Value["file"]
		require.True(t, inFiles || inValues, "file part missing")

		_, _ = w.Write([]byte(`{"secure_url":"https://res.example/a.png","public_id":"schweissapp-gutachten/a"}`))
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "key", "secret", "", srv.URL)
	require.True(t, c.Configured())

	got, err := c.Upload(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://res.example/a.png", got.URL)
	require.Equal(t, "schweissapp-gutachten/a", got.PublicID)
}

func TestCloudinaryUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	_, err := NewCloudinary("demo", "key", "secret", "", srv.URL).Upload(context.Background(), []byte{1}, "image/jpeg")
	require.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestCloudinaryTruncatedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"secure_url":"https://res.exa`))
	}))
	defer srv.Close()

	_, err := NewCloudinary("demo", "key", "secret", "", srv.URL).Upload(context.Background(), []byte{1}, "image/jpeg")
	require.True(t, apperr.Is(err, apperr.KindUpstream))
	require.NotContains(t, apperr.PublicMessage(err), "keine secure_url")
}

func TestCloudinaryMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"public_id":"x"}`))
	}))
	defer srv.Close()

	_, err := NewCloudinary("demo", "key", "secret", "", srv.URL).Upload(context.Background(), []byte{1}, "image/jpeg")
	require.True(t, apperr.Is(err, apperr.KindUpstream))
	require.Contains(t, apperr.PublicMessage(err), "keine secure_url")
}

func TestCloudinaryNotConfigured(t *testing.T) {
	c := NewCloudinary("demo", "", "", "", "")
	require.False(t, c.Configured())
	_, err := c.Upload(context.Background(), []byte{1}, "image/jpeg")
	require.True(t, apperr.Is(err, apperr.KindConfiguration))
}

type slowUploader struct{ calls atomic.Int32 }

func (s *slowUploader) Upload(_ context.Context, data []byte, _ string) (Uploaded, error) {
	s.calls.Add(1)
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	return Uploaded{URL: fmt.Sprintf("https://img/%d", data[0])}, nil
}

func TestUploadAllPreservesOrder(t *testing.T) {
	for _, n := range []int{0, 1, 4, 9} {
		images := make([]ingest.Image, n)
		for i := range images {
			images[i] = ingest.Image{Data: []byte{byte(i)}, MediaType: "image/jpeg"}
		}
		up := &slowUploader{}
		got, err := UploadAll(context.Background(), up, images)
		require.NoError(t, err)
		require.Len(t, got, n)
		require.EqualValues(t, n, up.calls.Load())
		for i, u := range got {
			require.Equal(t, fmt.Sprintf("https://img/%d", i), u.URL)
		}
	}
}

type failingUploader struct{}

func (failingUploader) Upload(_ context.Context, data []byte, _ string) (Uploaded, error) {
	if data[0] == 2 {
		return Uploaded{}, errors.New("quota")
	}
	return Uploaded{URL: "ok"}, nil
}

func TestUploadAllFailsBatch(t *testing.T) {
	images := []ingest.Image{{Data: []byte{0}}, {Data: []byte{1}}, {Data: []byte{2}}}
	got, err := UploadAll(context.Background(), failingUploader{}, images)
	require.EqualError(t, err, "quota")
	require.Nil(t, got)
}
