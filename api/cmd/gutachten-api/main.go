package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gutachten-api/api/internal/config"
	"gutachten-api/api/internal/handle"
	"gutachten-api/api/internal/httpserver"
	"gutachten-api/api/internal/imagestore"
	"gutachten-api/api/internal/inspection"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/notify"
	"gutachten-api/api/internal/prompt"
	"gutachten-api/api/internal/records"
	"gutachten-api/api/internal/records/notion"
	"gutachten-api/api/internal/records/postgres"
	"gutachten-api/api/internal/reference"
	"gutachten-api/api/internal/report"
	"gutachten-api/api/internal/util"
	"gutachten-api/api/internal/vision"
	"gutachten-api/api/internal/vision/anthropic"
	"gutachten-api/api/internal/vision/gemini"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.LogLevel, cfg.LogJSON)
	logger.Info("starting gutachten-api", slog.String("port", cfg.Port), slog.String("version", cfg.Version))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	tables, err := reference.Load(cfg.Reference)
	if err != nil {
		logger.Error("failed to load reference tables", slog.String("path", cfg.Reference), slog.Any("error", err))
		os.Exit(1)
	}

	engines := vision.NewEngines(cfg.VisionEngine,
		anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, cfg.AnthropicMaxTokens),
		gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	)
	for name, ok := range engines.Status() {
		if !ok {
			logger.Warn("vision engine has no credentials", slog.String("engine", name))
		}
	}

	var store records.Store
	switch cfg.RecordStore {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("sql.Open", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		pg := postgres.New(db)
		migrateCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = pg.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("postgres migrate", slog.Any("error", err))
			os.Exit(1)
		}
		store = pg
	default:
		store = notion.New(cfg.NotionToken, cfg.NotionDatabaseID, cfg.NotionBaseURL)
	}

	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	if err != nil {
		// без уведомлений сервис работает дальше
		logger.Warn("telegram notifier unavailable", slog.Any("error", err))
		notifier = notify.Nop{}
	}

	h := handle.New(handle.Deps{
		Inspection: inspection.New(prompt.NewComposer(tables), report.NewExtractor(tables), engines, logger),
		Engines:    engines,
		Tables:     tables,
		Images: imagestore.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret,
			cfg.CloudinaryFolder, cfg.CloudinaryBaseURL),
		Records:        store,
		Notifier:       notifier,
		Logger:         logger,
		Metrics:        promhttp.Handler(),
		Version:        cfg.Version,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := httpserver.New(":"+cfg.Port, h.Routes(), cfg.RequestTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", slog.String("address", server.Addr), slog.String("records", store.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	if err := h.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications dropped", slog.Any("error", err))
	}
	logger.Info("gutachten-api stopped")
}
