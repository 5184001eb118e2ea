package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	ModelName       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string // any OpenAI-compatible endpoint
	AnthropicAPIKey string
	MaxTokens       int
	TurnTimeout     time.Duration

	RedisURL   string
	SessionTTL time.Duration
	DataDir    string
	CaseID     string

	BannedTerms []string
	// ContentRating G, PG or PG13 softens profanity in replies.
	ContentRating string
}

var supportedProviders = []string{"openai", "anthropic", "offline"}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		ModelName:       os.Getenv("MODEL_NAME"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		CaseID:          getEnv("CASE_ID", "gallery_murder"),
		BannedTerms:     splitList(getEnv("BANNED_TERMS", "fuck,shit,damn")),
		ContentRating:   strings.ToUpper(getEnv("CONTENT_RATING", "PG13")),
	}

	var err error
	if cfg.MaxTokens, err = strconv.Atoi(getEnv("MAX_TOKENS", "300")); err != nil || cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("invalid MAX_TOKENS %q", os.Getenv("MAX_TOKENS"))
	}
	if cfg.TurnTimeout, err = time.ParseDuration(getEnv("TURN_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("invalid TURN_TIMEOUT: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	if !isSupportedProvider(cfg.LLMProvider) {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q (supported: %s)",
			cfg.LLMProvider, strings.Join(supportedProviders, ", "))
	}
	return cfg, nil
}

func isSupportedProvider(p string) bool {
	for _, s := range supportedProviders {
		if p == s {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
