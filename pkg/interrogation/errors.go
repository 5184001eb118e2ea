package interrogation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/interrogation-engine/pkg/question"
)

var (
	ErrNoCharacterSelected = errors.New("no character selected")
	ErrTurnInProgress      = errors.New("a turn is already in progress")
	ErrInterrogationEnded  = errors.New("interrogation of this character has ended")
	ErrUnknownCharacter    = errors.New("unknown character")
)

// ValidationError reports a question the normalizer rejected. No completion
// was requested and nothing was stored.
type ValidationError struct {
	Question *question.Processed
}

func (e *ValidationError) Error() string {
	if e.Question == nil || len(e.Question.Errors) == 0 {
		return "invalid question"
	}
	return fmt.Sprintf("invalid question: %s", e.Question.Errors[0])
}

// CompletionError wraps a failure of the language model collaborator.
type CompletionError struct {
	CharacterID string
	Err         error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion for %s failed: %v", e.CharacterID, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the completion ran out of time.
func (e *CompletionError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
