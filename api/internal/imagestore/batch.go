package imagestore

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gutachten-api/api/internal/ingest"
)

// Uploader stores a single image.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mediaType string) (Uploaded, error)
}

// MaxParallel bounds concurrent uploads of one batch.
const MaxParallel = 4

// UploadAll uploads every image concurrently; results keep the input order.
// The first failure cancels the rest and fails the batch.
func UploadAll(ctx context.Context, up Uploader, images []ingest.Image) ([]Uploaded, error) {
	out := make([]Uploaded, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallel)
	for i, img := range images {
		g.Go(func() error {
			u, err := up.Upload(gctx, img.Data, img.MediaType)
			if err != nil {
				return err
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
