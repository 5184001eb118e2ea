// Package interrogation drives the turn-taking state machine of an
// interrogation session: one question at a time, from normalization through
// the language model to the parsed reply and the conversation store.
package interrogation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/conversation"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
	"github.com/jwebster45206/interrogation-engine/pkg/prompts"
	"github.com/jwebster45206/interrogation-engine/pkg/question"
	"github.com/jwebster45206/interrogation-engine/pkg/response"
)

// State is the session-wide turn state.
type State string

const (
	StateIdle       State = "IDLE"       // no character selected
	StateReady      State = "READY"      // awaiting a question
	StateProcessing State = "PROCESSING" // one turn in flight
	StateEnded      State = "ENDED"      // the active character confessed
)

// DefaultTurnTimeout bounds a single completion call.
const DefaultTurnTimeout = 60 * time.Second

// Completer is the language model collaborator.
type Completer interface {
	Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error)
}

// Orchestrator owns one interrogation session. It is safe for concurrent
// use; at most one turn is in flight at any time and concurrent questions
// are rejected rather than queued.
type Orchestrator struct {
	mu         sync.Mutex
	kase       *profile.Case
	llm        Completer
	store      *conversation.Store
	normalizer *question.Normalizer
	logger     *slog.Logger
	timeout    time.Duration
	now        func() time.Time
	filter     func(string) string

	state  State
	active *profile.Character
	ended  map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNormalizer replaces the default question normalizer.
func WithNormalizer(n *question.Normalizer) Option {
	return func(o *Orchestrator) { o.normalizer = n }
}

// WithTimeout bounds each completion call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithReplyFilter rewrites every character message before it is stored.
func WithReplyFilter(f func(string) string) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithStore uses an existing conversation store.
func WithStore(s *conversation.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithClock sets the clock used to stamp user messages.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator for a case in the IDLE state.
func New(c *profile.Case, llm Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		kase:       c,
		llm:        llm,
		normalizer: question.New(),
		logger:     slog.Default(),
		timeout:    DefaultTurnTimeout,
		now:        time.Now,
		state:      StateIdle,
		ended:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = conversation.NewWithClock(o.now)
	}
	o.store.SetCase(c.ID)
	return o
}

// Case returns the case being played.
func (o *Orchestrator) Case() *profile.Case {
	return o.kase
}

// State returns the current turn state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ActiveCharacter returns the selected character, or nil.
func (o *Orchestrator) ActiveCharacter() *profile.Character {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Ended reports whether the character has confessed.
func (o *Orchestrator) Ended(characterID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ended[characterID]
}

// History returns a character's conversation so far.
func (o *Orchestrator) History(characterID string) []chat.Message {
	return o.store.History(characterID)
}

// SelectCharacter makes a character the target of further questions. A
// character that already confessed is selected in the ENDED state.
func (o *Orchestrator) SelectCharacter(id string) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateProcessing {
		return o.state, ErrTurnInProgress
	}
	c, ok := o.kase.Character(id)
	if !ok {
		return o.state, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}

	o.active = c
	o.store.SetActiveCharacter(id)
	if o.ended[id] {
		o.state = StateEnded
	} else {
		o.state = StateReady
	}
	o.logger.Debug("Character selected", "character_id", id, "state", o.state)
	return o.state, nil
}

// Turn is the outcome of one question-then-answer cycle.
type Turn struct {
	Question    question.Processed
	Character   *profile.Character
	Reply       *response.Reply
	Temperature float64
	// Downgraded is set when a character that cannot confess replied END.
	Downgraded bool
	State      State
}

// Confessed reports whether the turn ended the character's interrogation.
func (t *Turn) Confessed() bool {
	return t.Reply != nil && t.Reply.Confession()
}

// Ask runs one turn for the active character. Validation failures return a
// *ValidationError and completion failures a *CompletionError; in both cases
// the store is untouched and the orchestrator stays usable.
func (o *Orchestrator) Ask(ctx context.Context, raw string) (*Turn, error) {
	o.mu.Lock()
	switch {
	case o.state == StateProcessing:
		o.mu.Unlock()
		o.logger.Info("Question rejected, turn in progress")
		return nil, ErrTurnInProgress
	case o.active == nil:
		o.mu.Unlock()
		return nil, ErrNoCharacterSelected
	case o.ended[o.active.ID]:
		id := o.active.ID
		o.mu.Unlock()
		o.logger.Info("Question rejected, interrogation ended", "character_id", id)
		return nil, ErrInterrogationEnded
	}

	character := o.active
	processed := o.normalizer.Process(raw)
	if !processed.Valid {
		o.mu.Unlock()
		o.logger.Info("Question rejected", "character_id", character.ID, "errors", processed.Errors)
		return nil, &ValidationError{Question: &processed}
	}

	history := o.store.History(character.ID)
	totalQuestions := o.store.TotalQuestions()
	duration := o.store.SessionDuration()
	o.state = StateProcessing
	o.mu.Unlock()

	askedAt := o.now()
	pending := append(history, chat.Message{
		Type:        chat.MessageTypeUser,
		Content:     processed.Cleaned,
		Timestamp:   askedAt,
		CharacterID: character.ID,
	})

	o.logger.Debug("Turn started", "character_id", character.ID, "question", processed.Cleaned)

	reply, temperature, err := o.complete(ctx, character, processed.Cleaned, pending, prompts.SessionContext{
		TotalQuestions: totalQuestions + 1,
		Duration:       duration,
		PressureLevel:  prompts.Pressure(pending),
	})
	if err != nil {
		o.mu.Lock()
		o.state = StateReady
		o.mu.Unlock()
		o.logger.Error("Turn failed", "character_id", character.ID, "error", err)
		return nil, err
	}

	turn := &Turn{
		Question:    processed,
		Character:   character,
		Reply:       reply,
		Temperature: temperature,
	}
	if reply.State == response.StateEnd && !character.IsCulprit() {
		reply.State = response.StateContinue
		turn.Downgraded = true
		o.logger.Warn("Ignoring END from a character that cannot confess",
			"character_id", character.ID, "role", character.Role)
	}
	if o.filter != nil {
		reply.Message = o.filter(reply.Message)
	}

	o.mu.Lock()
	o.store.AddMessage(character.ID, chat.MessageTypeUser, processed.Cleaned, conversation.At(askedAt))
	o.store.AddMessage(character.ID, chat.MessageTypeCharacter, reply.Message,
		conversation.At(reply.Timestamp), conversation.WithSummary(reply.Context))
	if reply.Confession() {
		o.ended[character.ID] = true
		o.state = StateEnded
	} else {
		o.state = StateReady
	}
	turn.State = o.state
	o.mu.Unlock()

	if turn.Confessed() {
		o.logger.Info("Character confessed", "character_id", character.ID)
	}
	o.logger.Debug("Turn finished", "character_id", character.ID,
		"emotion", reply.Emotion, "state", reply.State)
	return turn, nil
}

func (o *Orchestrator) complete(ctx context.Context, c *profile.Character, q string, history []chat.Message, session prompts.SessionContext) (*response.Reply, float64, error) {
	prompt, err := prompts.GeneratePrompt(c, o.kase.Victim, q, history, session)
	if err != nil {
		return nil, 0, fmt.Errorf("error composing prompt: %w", err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	temperature := Temperature(c)
	completion, err := o.llm.Complete(ctx, chat.CompletionRequest{
		Prompt:        prompt,
		CharacterName: c.Name,
		Temperature:   temperature,
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, temperature, &CompletionError{CharacterID: c.ID, Err: err}
	}
	return response.Process(completion, c), temperature, nil
}

// Temperature picks the sampling temperature for a character. The culprit
// rule is checked before the nervousness rule.
func Temperature(c *profile.Character) float64 {
	if c.IsCulprit() {
		return 0.8
	}
	if c.Nervousness() > 0.5 {
		return 0.9
	}
	return 0.7
}

// Reset clears every conversation, counter and confession. The active
// character stays selected.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateProcessing {
		return ErrTurnInProgress
	}
	o.store.Reset()
	o.ended = make(map[string]bool)
	if o.active != nil {
		o.state = StateReady
	} else {
		o.state = StateIdle
	}
	o.logger.Info("Session reset", "case_id", o.kase.ID)
	return nil
}
