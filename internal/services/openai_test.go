package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return newOpenAIService(cfg, "", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenAIService_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest
	service := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-3.5-turbo-0125",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "message: \"Hi.\""}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	})

	completion, err := service.Complete(context.Background(), chat.CompletionRequest{
		Prompt:        "the prompt",
		CharacterName: "Marcus",
		Temperature:   0.8,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, 0.8, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "the prompt", got.Messages[0].Content)

	assert.Equal(t, &chat.Completion{
		Content:      `message: "Hi."`,
		Model:        "gpt-3.5-turbo-0125",
		FinishReason: "stop",
		Usage:        chat.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}, completion)
}

func TestOpenAIService_CompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := service.Complete(context.Background(), chat.CompletionRequest{Prompt: "p"})
			assert.Error(t, err)
		})
	}
}
