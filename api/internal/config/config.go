package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogJSON   bool
	Version   string
	Reference string

	RequestTimeout time.Duration

	VisionEngine       string
	AnthropicAPIKey    string
	AnthropicModel     string
	AnthropicBaseURL   string
	AnthropicMaxTokens int
	GeminiAPIKey       string
	GeminiModel        string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	CloudinaryBaseURL   string

	RecordStore      string
	NotionToken      string
	NotionDatabaseID string
	NotionBaseURL    string
	DatabaseURL      string

	TelegramBotToken string
	TelegramChatID   string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the process environment; a .env file in the working directory is merged in
// without overriding variables that are already set. Credentials are optional here:
// a missing one only disables the collaborator that needs it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8888"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogJSON:   strings.EqualFold(getEnv("LOG_FORMAT", "text"), "json"),
		Version:   getEnv("APP_VERSION", "dev"),
		Reference: getEnv("REFERENCE_FILE", ""),

		VisionEngine:     strings.ToLower(getEnv("VISION_ENGINE", "anthropic")),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "schweissapp-gutachten"),
		CloudinaryBaseURL:   getEnv("CLOUDINARY_BASE_URL", ""),

		RecordStore:      strings.ToLower(getEnv("RECORD_STORE", "notion")),
		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
		NotionBaseURL:    getEnv("NOTION_BASE_URL", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}

	var err error
	if cfg.AnthropicMaxTokens, err = strconv.Atoi(getEnv("ANTHROPIC_MAX_TOKENS", "4000")); err != nil || cfg.AnthropicMaxTokens <= 0 {
		return nil, fmt.Errorf("ANTHROPIC_MAX_TOKENS: must be a positive integer")
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "180s")); err != nil || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: must be a positive duration")
	}
	switch cfg.VisionEngine {
	case "anthropic", "gemini":
	default:
		return nil, fmt.Errorf("VISION_ENGINE: unknown engine %q", cfg.VisionEngine)
	}
	switch cfg.RecordStore {
	case "notion":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("RECORD_STORE=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("RECORD_STORE: unknown store %q", cfg.RecordStore)
	}
	return cfg, nil
}
