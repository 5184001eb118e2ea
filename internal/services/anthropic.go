package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicModel = "claude-3-haiku-20240307"
)

// AnthropicService implements LLMService for Anthropic Claude
type AnthropicService struct {
	apiKey     string
	modelName  string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey, modelName string, maxTokens int, logger *slog.Logger) *AnthropicService {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		maxTokens: maxTokens,
		baseURL:   anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Complete sends the composed prompt as a single user turn.
func (a *AnthropicService) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	temperature := req.Temperature
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   a.maxTokens,
		Temperature: &temperature,
		Messages: []AnthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required Anthropic headers
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("Anthropic request failed", "status", resp.StatusCode, "character", req.CharacterName)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	// Extract text content from the response
	var responseText string
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	a.logger.Debug("Anthropic completion",
		"character", req.CharacterName,
		"model", anthropicResp.Model,
		"output_tokens", anthropicResp.Usage.OutputTokens)

	return &chat.Completion{
		Content:      responseText,
		Model:        anthropicResp.Model,
		FinishReason: anthropicResp.StopReason,
		Usage: chat.Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}
