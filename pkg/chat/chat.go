package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType says who authored a conversation message.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"      // Detective
	MessageTypeCharacter MessageType = "character" // Suspect
)

// Message is one entry in a character's conversation log. Context is only
// ever set on character messages.
type Message struct {
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	CharacterID string      `json:"character_id"`
	Context     string      `json:"context,omitempty"`
}

// Usage is the token accounting reported by a completion provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is what the dialogue engine sends to a language model.
type CompletionRequest struct {
	Prompt        string  `json:"prompt"`
	CharacterName string  `json:"character_name"`
	Temperature   float64 `json:"temperature"`
}

// Completion is the raw reply of a language model plus its metadata.
type Completion struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// CreateSessionRequest starts a new interrogation session for a case.
type CreateSessionRequest struct {
	CaseID string `json:"case_id"`
}

func (r *CreateSessionRequest) Validate() error {
	if r.CaseID == "" {
		return fmt.Errorf("case_id cannot be empty")
	}
	return nil
}

// SelectCharacterRequest switches the suspect being interrogated.
type SelectCharacterRequest struct {
	CharacterID string `json:"character_id"`
}

func (r *SelectCharacterRequest) Validate() error {
	if r.CharacterID == "" {
		return fmt.Errorf("character_id cannot be empty")
	}
	return nil
}

// QuestionRequest is a question asked by the detective to the active suspect.
type QuestionRequest struct {
	Question string `json:"question"`
}

func (r *QuestionRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}

// QuestionResponse is what the API returns after a completed turn.
type QuestionResponse struct {
	SessionID     uuid.UUID `json:"session_id"`
	Question      string    `json:"question"`
	CharacterID   string    `json:"character_id"`
	CharacterName string    `json:"character_name"`
	Message       string    `json:"message"`
	Emotion       string    `json:"emotion"`
	State         string    `json:"state"`
	Confessed     bool      `json:"confessed"`
	Warnings      []string  `json:"warnings,omitempty"`
}
