package imagestore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.cloudinary.com"
	DefaultFolder  = "schweissapp-gutachten"
)

// Uploaded is the public location of one stored image.
type Uploaded struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Cloudinary uploads images through the signed upload API.
type Cloudinary struct {
	CloudName string
	Folder    string

	cld *cloudinary.Cloudinary
	err error
}

func NewCloudinary(cloud, key, secret, folder, baseURL string) *Cloudinary {
	cloud, key, secret = strings.TrimSpace(cloud), strings.TrimSpace(key), strings.TrimSpace(secret)
	if strings.TrimSpace(folder) == "" {
		folder = DefaultFolder
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Cloudinary{CloudName: cloud, Folder: folder}
	if cloud == "" || key == "" || secret == "" {
		return c
	}

	cfg, err := config.NewFromParams(cloud, key, secret)
	if err != nil {
		c.err = err
		return c
	}
	cfg.API.UploadPrefix = strings.TrimRight(baseURL, "/")
	c.cld, c.err = cloudinary.NewFromConfiguration(*cfg)
	return c
}

func (c *Cloudinary) Configured() bool {
	return c.cld != nil && c.err == nil
}

// Upload stores one image and returns its https URL. Cloudinary erkennt das Format selbst.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, _ string) (Uploaded, error) {
	const op = "cloudinary.upload"
	if c.err != nil {
		return Uploaded{}, apperr.Configuration(op, "Cloudinary-Konfiguration ungültig: "+c.err.Error())
	}
	if c.cld == nil {
		return Uploaded{}, apperr.Configuration(op, "Cloudinary-Zugangsdaten fehlen")
	}

	started := time.Now()
	out, err := c.upload(ctx, data)
	metrics.ObserveUpstream("cloudinary", started, err)
	return out, err
}

func (c *Cloudinary) upload(ctx context.Context, data []byte) (Uploaded, error) {
	const op = "cloudinary.upload"
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{Folder: c.Folder})
	if err != nil {
		return Uploaded{}, apperr.Upstream(op, "Bild-Upload fehlgeschlagen", err)
	}
	if res.Error.Message != "" {
		return Uploaded{}, apperr.Upstream(op, "Bild-Upload fehlgeschlagen", errors.New(res.Error.Message))
	}
	if res.SecureURL == "" {
		return Uploaded{}, apperr.Upstream(op, "Bild-Upload fehlgeschlagen", errors.New("keine secure_url in der Antwort"))
	}
	return Uploaded{URL: res.SecureURL, PublicID: res.PublicID}, nil
}
