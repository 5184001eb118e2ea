package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIService implements LLMService for the OpenAI chat completions API
type OpenAIService struct {
	client    *openai.Client
	modelName string
	maxTokens int
	logger    *slog.Logger
}

func NewOpenAIService(apiKey, modelName string, maxTokens int, logger *slog.Logger) *OpenAIService {
	return newOpenAIService(openai.DefaultConfig(apiKey), modelName, maxTokens, logger)
}

func newOpenAIService(cfg openai.ClientConfig, modelName string, maxTokens int, logger *slog.Logger) *OpenAIService {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Complete sends the prompt as a single user message.
func (o *OpenAIService) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.modelName,
		MaxTokens:   o.maxTokens,
		Temperature: float32(req.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			o.logger.Error("OpenAI API error",
				"status", apiErr.HTTPStatusCode,
				"type", apiErr.Type,
				"character", req.CharacterName)
		}
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	choice := resp.Choices[0]
	o.logger.Debug("OpenAI completion",
		"character", req.CharacterName,
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens)

	return &chat.Completion{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: chat.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
