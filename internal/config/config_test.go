package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "LLM_PROVIDER", "MODEL_NAME",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "ANTHROPIC_API_KEY", "REDIS_URL", "DATA_DIR", "CASE_ID",
	"TURN_TIMEOUT", "MAX_TOKENS", "SESSION_TTL", "BANNED_TERMS", "CONTENT_RATING",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "gallery_murder", cfg.CaseID)
	assert.Equal(t, 60*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 300, cfg.MaxTokens)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"fuck", "shit", "damn"}, cfg.BannedTerms)
	assert.Equal(t, "PG13", cfg.ContentRating)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TURN_TIMEOUT", "5s")
	t.Setenv("MAX_TOKENS", "128")
	t.Setenv("BANNED_TERMS", " heck , , darn ")
	t.Setenv("CONTENT_RATING", "r")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 128, cfg.MaxTokens)
	assert.Equal(t, []string{"heck", "darn"}, cfg.BannedTerms)
	assert.Equal(t, "R", cfg.ContentRating)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timeout", "TURN_TIMEOUT", "sixty"},
		{"bad ttl", "SESSION_TTL", "1 day"},
		{"bad max tokens", "MAX_TOKENS", "many"},
		{"zero max tokens", "MAX_TOKENS", "0"},
		{"unknown provider", "LLM_PROVIDER", "venice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
