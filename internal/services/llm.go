package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/interrogation-engine/internal/config"
	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares the provider on startup
	InitModel(ctx context.Context, modelName string) error

	// Complete sends one composed prompt and returns the raw reply
	Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error)
}

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// DefaultMaxTokens caps the length of a character reply.
const DefaultMaxTokens = 300

// NewLLMService builds the provider named in the configuration.
func NewLLMService(cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when using the %s provider", ProviderOpenAI)
		}
		if cfg.OpenAIBaseURL != "" {
			oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
			oc.BaseURL = cfg.OpenAIBaseURL
			return newOpenAIService(oc, cfg.ModelName, cfg.MaxTokens, logger), nil
		}
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.MaxTokens, logger), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when using the %s provider", ProviderAnthropic)
		}
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.MaxTokens, logger), nil
	case ProviderOffline:
		return NewOfflineService(), nil
	}
	return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
}
