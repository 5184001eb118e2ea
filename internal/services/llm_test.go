package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/interrogation-engine/internal/config"
	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
)

var (
	_ LLMService              = (*OpenAIService)(nil)
	_ LLMService              = (*AnthropicService)(nil)
	_ LLMService              = (*OfflineService)(nil)
	_ LLMService              = (*MockLLMAPI)(nil)
	_ interrogation.Completer = LLMService(nil)
)

func TestNewLLMService(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		cfg     config.Config
		want    LLMService
		wantErr bool
	}{
		{"openai", config.Config{LLMProvider: "openai", OpenAIAPIKey: "k"}, &OpenAIService{}, false},
		{"openai compatible endpoint", config.Config{LLMProvider: "openai", OpenAIAPIKey: "k", OpenAIBaseURL: "http://localhost:11434/v1"}, &OpenAIService{}, false},
		{"openai without key", config.Config{LLMProvider: "openai"}, nil, true},
		{"anthropic", config.Config{LLMProvider: "ANTHROPIC", AnthropicAPIKey: "k"}, &AnthropicService{}, false},
		{"anthropic without key", config.Config{LLMProvider: "anthropic"}, nil, true},
		{"offline", config.Config{LLMProvider: "offline"}, &OfflineService{}, false},
		{"unknown", config.Config{LLMProvider: "ollama"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(&tt.cfg, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, svc)
		})
	}
}

func TestMockLLMAPI(t *testing.T) {
	mock := NewMockLLMAPI()
	ctx := context.Background()

	completion, err := mock.Complete(ctx, chat.CompletionRequest{Prompt: "one", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, MockReply, completion.Content)

	mock.SetCompleteResponse("custom")
	completion, err = mock.Complete(ctx, chat.CompletionRequest{Prompt: "two"})
	require.NoError(t, err)
	assert.Equal(t, "custom", completion.Content)

	boom := errors.New("boom")
	mock.SetCompleteError(boom)
	_, err = mock.Complete(ctx, chat.CompletionRequest{Prompt: "three"})
	assert.ErrorIs(t, err, boom)

	mock.SetInitModelError(boom)
	assert.ErrorIs(t, mock.InitModel(ctx, "gpt"), boom)

	initCalls, completeCalls := mock.GetCalls()
	assert.Equal(t, []string{"gpt"}, initCalls)
	require.Len(t, completeCalls, 3)
	assert.Equal(t, "one", completeCalls[0].Prompt)
	assert.Equal(t, 0.7, completeCalls[0].Temperature)

	mock.Reset()
	initCalls, completeCalls = mock.GetCalls()
	assert.Empty(t, initCalls)
	assert.Empty(t, completeCalls)
}
