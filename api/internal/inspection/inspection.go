package inspection

import (
	"context"
	"log/slog"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/ingest"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/prompt"
	"gutachten-api/api/internal/report"
	"gutachten-api/api/internal/vision"
)

// Service runs Ingestor output through Composer, a vision engine and the Extractor.
type Service struct {
	composer  *prompt.Composer
	extractor *report.Extractor
	engines   *vision.Engines
	logger    *slog.Logger

	// Structured selects the JSON response format in the prompt.
	Structured bool
}

func New(composer *prompt.Composer, extractor *report.Extractor, engines *vision.Engines, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		composer:   composer,
		extractor:  extractor,
		engines:    engines,
		logger:     logger,
		Structured: true,
	}
}

// Result is the report plus what produced it.
type Result struct {
	Report report.Report
	Engine string
	Model  string
}

func (s *Service) Analyze(ctx context.Context, engineName string, req ingest.Request) (Result, error) {
	const op = "inspection.analyze"
	if len(req.Images) == 0 {
		return Result{}, apperr.Validation(op, "Keine Bilder hochgeladen")
	}
	eng, err := s.engines.GetEngine(engineName)
	if err != nil {
		return Result{}, apperr.Validation(op, err.Error())
	}

	p := s.composer.Compose(prompt.Input{
		ImageCount:      len(req.Images),
		Material:        req.Material,
		AcceptanceClass: req.AcceptanceClass,
		WallThickness:   req.WallThickness,
		Structured:      s.Structured,
	})

	images := make([]vision.Image, len(req.Images))
	for i, img := range req.Images {
		images[i] = vision.Image{Data: img.Data, MediaType: img.MediaType, Label: p.Labels[i]}
	}

	raw, err := eng.Generate(ctx, vision.Request{System: p.System, User: p.User, Images: images})
	if err != nil {
		s.logger.Error("vision call failed", "engine", eng.Name(), "model", eng.GetModel(), "images", len(images), "err", err)
		return Result{}, err
	}

	rep := s.extractor.Extract(raw)
	metrics.ObserveReport(string(rep.Status))
	if rep.NeedsReview {
		s.logger.Warn("unstructured model response", "engine", eng.Name(), "chars", len(raw))
	}
	return Result{Report: rep, Engine: eng.Name(), Model: eng.GetModel()}, nil
}
