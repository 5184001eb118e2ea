package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/prompts"
)

const offlineModel = "offline"

var offlineDeflections = []string{
	"I've already told you everything I know, Detective.",
	"I'm not sure what you want me to say. I was where I said I was.",
	"Look, I don't remember every detail. It was a long night.",
	"Why don't you ask the others? I'm not the only one who was there.",
	"That's a strange question. What exactly are you implying?",
}

const offlineConfession = "All right. All right! I did it. I couldn't let her ruin me. I never meant for it to go this far."

// OfflineService implements LLMService without a network. It answers in
// the four-field reply format using only what the composed prompt tells it,
// so a session can be played end to end without an API key.
type OfflineService struct {
	mu    sync.Mutex
	calls int
}

func NewOfflineService() *OfflineService {
	return &OfflineService{}
}

func (s *OfflineService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Complete picks a reply from the situational notes in the prompt. A
// pressured culprit near the end of their rope confesses; a question that
// triggers key testimony is answered with it; anything else gets a stock
// deflection chosen by question.
func (s *OfflineService) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	emotion, state := "normal", "CONTINUE"
	switch {
	case strings.Contains(req.Prompt, prompts.PressureNote):
		emotion = "scared"
	case strings.Contains(req.Prompt, prompts.FatigueNote):
		emotion = "angry"
	}

	var message, summary string
	if strings.Contains(req.Prompt, prompts.ConfessionNote) && strings.Contains(req.Prompt, prompts.PressureNote) {
		message = offlineConfession
		summary = "The suspect broke down under the weight of the evidence and confessed."
		state = "END"
	} else if testimony, ok := keyTestimony(req.Prompt); ok {
		message = testimony
		summary = "The suspect shared an important detail."
	} else {
		question := currentQuestion(req.Prompt)
		h := fnv.New32a()
		_, _ = h.Write([]byte(question))
		message = offlineDeflections[h.Sum32()%uint32(len(offlineDeflections))]
		summary = "The suspect answered without revealing anything new."
	}

	content := fmt.Sprintf("emotion: %q\nmessage: %q\ncontext: %q\nstate: %q", emotion, message, summary, state)
	return &chat.Completion{
		Content:      content,
		Model:        offlineModel,
		FinishReason: "stop",
	}, nil
}

// Calls returns how many completions were served.
func (s *OfflineService) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func currentQuestion(prompt string) string {
	prefix, _, _ := strings.Cut(prompts.QuestionTemplate, "%s")
	_, rest, ok := strings.Cut(prompt, prefix)
	if !ok {
		return prompt
	}
	q, _, _ := strings.Cut(rest, "\"\n")
	return q
}

func keyTestimony(prompt string) (string, bool) {
	prefix, _, _ := strings.Cut(prompts.TestimonyTemplate, "%s")
	_, rest, ok := strings.Cut(prompt, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimSpace(rest), "\""), true
}
