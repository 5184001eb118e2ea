package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

// MockReply is the canned reply MockLLMAPI returns by default.
const MockReply = `emotion: "normal"
message: "Mock response"
context: "Mock context"
state: "CONTINUE"`

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	CompleteFunc  func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error)

	// Track calls for testing
	InitModelCalls []string
	CompleteCalls  []chat.CompletionRequest

	mu sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		CompleteCalls:  make([]chat.CompletionRequest, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

// Complete mocks a completion. The lock is released before CompleteFunc
// runs so that a blocking func does not stall GetCalls.
func (m *MockLLMAPI) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &chat.Completion{Content: MockReply, Model: "mock"}, nil
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.CompleteCalls = make([]chat.CompletionRequest, 0)
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetCompleteError sets up the mock to return an error on Complete
func (m *MockLLMAPI) SetCompleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
		return nil, err
	}
}

// SetCompleteResponse sets up the mock to return content on every Complete
func (m *MockLLMAPI) SetCompleteResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
		return &chat.Completion{Content: content, Model: "mock"}, nil
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]string, []chat.CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	completeCalls := make([]chat.CompletionRequest, len(m.CompleteCalls))
	copy(completeCalls, m.CompleteCalls)

	return initCalls, completeCalls
}
