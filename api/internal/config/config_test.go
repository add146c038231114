package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "VISION_ENGINE", "RECORD_STORE", "REQUEST_TIMEOUT", "ANTHROPIC_MAX_TOKENS", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8888", cfg.Port)
	require.Equal(t, "anthropic", cfg.VisionEngine)
	require.Equal(t, "notion", cfg.RecordStore)
	require.Equal(t, 180*time.Second, cfg.RequestTimeout)
	require.Equal(t, 4000, cfg.AnthropicMaxTokens)
	require.Equal(t, "schweissapp-gutachten", cfg.CloudinaryFolder)
	require.False(t, cfg.LogJSON)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VISION_ENGINE", "Gemini")
	t.Setenv("RECORD_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/gutachten")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "gemini", cfg.VisionEngine)
	require.Equal(t, "postgres", cfg.RecordStore)
	require.Equal(t, 45*time.Second, cfg.RequestTimeout)
	require.True(t, cfg.LogJSON)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"engine":   {"VISION_ENGINE": "llama"},
		"store":    {"RECORD_STORE": "mongo"},
		"postgres": {"RECORD_STORE": "postgres", "DATABASE_URL": ""},
		"timeout":  {"REQUEST_TIMEOUT": "soon"},
		"tokens":   {"ANTHROPIC_MAX_TOKENS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
