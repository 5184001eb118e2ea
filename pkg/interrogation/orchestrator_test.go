package interrogation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
	"github.com/jwebster45206/interrogation-engine/pkg/response"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	continueReply = `emotion: "scared" message: "I told you, I was in the gallery." context: "Defensive, repeated earlier alibi." state: "CONTINUE"`
	confessReply  = `emotion: "scared" message: "Fine. I did it." context: "Broke down and confessed." state: "END"`
)

// fakeLLM answers with a fixed reply and records requests.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []chat.CompletionRequest
	// when set, Complete signals started and waits for release or ctx
	started chan struct{}
	release chan struct{}
}

func (f *fakeLLM) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &chat.Completion{Content: reply, Model: "fake-model", FinishReason: "stop"}, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeLLM) setReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

func intensity(name string, v float64) profile.Trait {
	return profile.Trait{Name: name, Kind: profile.TraitIntensity, Intensity: v}
}

func testCase() *profile.Case {
	return &profile.Case{
		ID:     "gallery_murder",
		Victim: "Victoria Sterling",
		Characters: []profile.Character{
			{ID: "elena", Name: "Elena Rossi", Role: profile.RoleInnocent,
				Personality: profile.Personality{intensity("helpfulness", 0.8)}},
			{ID: "hartwell", Name: "Director Hartwell", Role: profile.RoleCulprit,
				Personality: profile.Personality{intensity("nervousness", 0.7)}},
			{ID: "marcus", Name: "Marcus Webb", Role: profile.RoleRedHerring,
				Personality: profile.Personality{intensity("nervousness", 0.6)}},
		},
	}
}

func newTestOrchestrator(llm Completer, opts ...Option) *Orchestrator {
	return New(testCase(), llm, opts...)
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	llm := &fakeLLM{reply: continueReply}
	o := newTestOrchestrator(llm)
	assert.Equal(t, StateIdle, o.State())

	state, err := o.SelectCharacter("hartwell")
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	turn, err := o.Ask(context.Background(), "where were you")
	require.NoError(t, err)

	assert.Equal(t, "Where were you?", turn.Question.Cleaned)
	assert.True(t, turn.Question.Valid)
	assert.Equal(t, 0.8, turn.Temperature)
	assert.Equal(t, response.Fields{
		Emotion: response.EmotionScared,
		Message: "I told you, I was in the gallery.",
		Context: "Defensive, repeated earlier alibi.",
		State:   response.StateContinue,
	}, turn.Reply.Fields)
	assert.Equal(t, StateReady, turn.State)
	assert.Equal(t, StateReady, o.State())
	assert.False(t, turn.Confessed())

	history := o.History("hartwell")
	require.Len(t, history, 2)
	assert.Equal(t, chat.MessageTypeUser, history[0].Type)
	assert.Equal(t, "Where were you?", history[0].Content)
	assert.Equal(t, chat.MessageTypeCharacter, history[1].Type)
	assert.Equal(t, "Defensive, repeated earlier alibi.", history[1].Context)

	require.Equal(t, 1, llm.calls())
	req := llm.requests[0]
	assert.Equal(t, "Director Hartwell", req.CharacterName)
	assert.Equal(t, 0.8, req.Temperature)
	assert.Contains(t, req.Prompt, `CURRENT QUESTION FROM DETECTIVE: "Where were you?"`)
	assert.Contains(t, req.Prompt, "murder investigation of Victoria Sterling")
}

func TestOrchestrator_AskWithoutCharacter(t *testing.T) {
	llm := &fakeLLM{reply: continueReply}
	o := newTestOrchestrator(llm)

	_, err := o.Ask(context.Background(), "Where were you?")
	assert.ErrorIs(t, err, ErrNoCharacterSelected)
	assert.Equal(t, StateIdle, o.State())
	assert.Zero(t, llm.calls())
}

func TestOrchestrator_SelectUnknownCharacter(t *testing.T) {
	o := newTestOrchestrator(&fakeLLM{})
	_, err := o.SelectCharacter("nobody")
	assert.ErrorIs(t, err, ErrUnknownCharacter)
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestrator_InvalidQuestion(t *testing.T) {
	llm := &fakeLLM{reply: continueReply}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("elena")
	require.NoError(t, err)

	_, err = o.Ask(context.Background(), "  hi ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Question.Valid)
	assert.NotEmpty(t, verr.Question.Errors)
	assert.Equal(t, StateReady, o.State())
	assert.Zero(t, llm.calls())
	assert.Empty(t, o.History("elena"))
	assert.Zero(t, o.Stats().TotalQuestions)
}

func TestOrchestrator_RejectsWhileInFlight(t *testing.T) {
	llm := &fakeLLM{
		reply:   continueReply,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("elena")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = o.Ask(context.Background(), "Where were you at nine?")
	}()
	<-llm.started

	assert.Equal(t, StateProcessing, o.State())
	_, err = o.Ask(context.Background(), "Who else was there?")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	_, err = o.SelectCharacter("marcus")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	assert.ErrorIs(t, o.Reset(), ErrTurnInProgress)
	assert.Empty(t, o.History("elena"))
	assert.Zero(t, o.Stats().TotalQuestions)

	close(llm.release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, StateReady, o.State())
	assert.Len(t, o.History("elena"), 2)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, "elena", o.ActiveCharacter().ID)
}

func TestOrchestrator_ConfessionEndsCharacterOnly(t *testing.T) {
	llm := &fakeLLM{reply: confessReply}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("hartwell")
	require.NoError(t, err)

	turn, err := o.Ask(context.Background(), "The camera saw you leave the office.")
	require.NoError(t, err)
	assert.True(t, turn.Confessed())
	assert.Equal(t, StateEnded, turn.State)
	assert.Equal(t, StateEnded, o.State())
	assert.True(t, o.Ended("hartwell"))
	assert.Len(t, o.History("hartwell"), 2)

	_, err = o.Ask(context.Background(), "Why did you do it?")
	assert.ErrorIs(t, err, ErrInterrogationEnded)
	assert.Equal(t, 1, llm.calls())
	assert.Len(t, o.History("hartwell"), 2)

	llm.setReply(continueReply)
	state, err := o.SelectCharacter("elena")
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
	_, err = o.Ask(context.Background(), "What did you see?")
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls())
	assert.Equal(t, StateReady, o.State())

	state, err = o.SelectCharacter("hartwell")
	require.NoError(t, err)
	assert.Equal(t, StateEnded, state)
}

func TestOrchestrator_DowngradesEndFromNonCulprit(t *testing.T) {
	for _, id := range []string{"elena", "marcus"} {
		t.Run(id, func(t *testing.T) {
			o := newTestOrchestrator(&fakeLLM{reply: confessReply})
			_, err := o.SelectCharacter(id)
			require.NoError(t, err)

			turn, err := o.Ask(context.Background(), "Did you kill her?")
			require.NoError(t, err)

			assert.True(t, turn.Downgraded)
			assert.False(t, turn.Confessed())
			assert.Equal(t, response.StateContinue, turn.Reply.State)
			assert.Equal(t, StateReady, o.State())
			assert.False(t, o.Ended(id))
		})
	}
}

func TestOrchestrator_CompletionFailure(t *testing.T) {
	providerErr := errors.New("connection refused")
	llm := &fakeLLM{err: providerErr}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("marcus")
	require.NoError(t, err)

	_, err = o.Ask(context.Background(), "Where were you?")

	var cerr *CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, providerErr)
	assert.Equal(t, "marcus", cerr.CharacterID)
	assert.False(t, cerr.Timeout())
	assert.Equal(t, StateReady, o.State())
	assert.Empty(t, o.History("marcus"))
	assert.Zero(t, o.Stats().TotalQuestions)
}

func TestOrchestrator_CompletionTimeout(t *testing.T) {
	llm := &fakeLLM{
		reply:   continueReply,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(llm, WithTimeout(20*time.Millisecond))
	_, err := o.SelectCharacter("elena")
	require.NoError(t, err)

	_, err = o.Ask(context.Background(), "Where were you?")

	var cerr *CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateReady, o.State())
	assert.Empty(t, o.History("elena"))
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		name     string
		char     profile.Character
		expected float64
	}{
		{"nervous culprit", profile.Character{Role: profile.RoleCulprit, Personality: profile.Personality{intensity("nervousness", 0.9)}}, 0.8},
		{"calm culprit", profile.Character{Role: profile.RoleCulprit}, 0.8},
		{"nervous innocent", profile.Character{Role: profile.RoleInnocent, Personality: profile.Personality{intensity("nervousness", 0.51)}}, 0.9},
		{"borderline nervousness", profile.Character{Role: profile.RoleRedHerring, Personality: profile.Personality{intensity("nervousness", 0.5)}}, 0.7},
		{"default", profile.Character{Role: profile.RoleInnocent}, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Temperature(&tt.char))
		})
	}
}

func TestOrchestrator_HistoryFeedsPrompt(t *testing.T) {
	llm := &fakeLLM{reply: continueReply}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("elena")
	require.NoError(t, err)

	_, err = o.Ask(context.Background(), "Where were you?")
	require.NoError(t, err)
	_, err = o.Ask(context.Background(), "Who did you see?")
	require.NoError(t, err)

	require.Equal(t, 2, llm.calls())
	assert.NotContains(t, llm.requests[0].Prompt, "PREVIOUS CONVERSATION CONTEXT:")
	assert.Contains(t, llm.requests[1].Prompt, "Previous: Defensive, repeated earlier alibi.")
}

func TestOrchestrator_ResetKeepsActiveCharacter(t *testing.T) {
	o := newTestOrchestrator(&fakeLLM{reply: confessReply})
	_, err := o.SelectCharacter("hartwell")
	require.NoError(t, err)
	_, err = o.Ask(context.Background(), "Where were you?")
	require.NoError(t, err)
	require.Equal(t, StateEnded, o.State())

	require.NoError(t, o.Reset())

	assert.Equal(t, StateReady, o.State())
	assert.Equal(t, "hartwell", o.ActiveCharacter().ID)
	assert.False(t, o.Ended("hartwell"))
	assert.Empty(t, o.History("hartwell"))
	assert.Zero(t, o.Stats().TotalQuestions)
}

func TestOrchestrator_StatsAndSnapshot(t *testing.T) {
	llm := &fakeLLM{reply: continueReply}
	o := newTestOrchestrator(llm)
	_, err := o.SelectCharacter("elena")
	require.NoError(t, err)
	_, err = o.Ask(context.Background(), "Where were you?")
	require.NoError(t, err)
	_, err = o.SelectCharacter("marcus")
	require.NoError(t, err)
	_, err = o.SelectCharacter("hartwell")
	require.NoError(t, err)
	llm.setReply(confessReply)
	_, err = o.Ask(context.Background(), "We found your fingerprints.")
	require.NoError(t, err)

	stats := o.Stats()
	assert.Equal(t, StateEnded, stats.State)
	assert.Equal(t, "gallery_murder", stats.CaseID)
	assert.Equal(t, "hartwell", stats.ActiveCharacter)
	assert.Equal(t, 2, stats.TotalQuestions)
	assert.Equal(t, []string{"elena", "hartwell"}, stats.CharactersSpokenTo)
	assert.Equal(t, []string{"hartwell"}, stats.Confessed)

	snap := o.Snapshot()
	restored := newTestOrchestrator(&fakeLLM{})
	require.NoError(t, restored.Restore(snap))

	assert.Equal(t, StateEnded, restored.State())
	assert.Equal(t, "hartwell", restored.ActiveCharacter().ID)
	assert.True(t, restored.Ended("hartwell"))
	assert.Equal(t, o.History("elena"), restored.History("elena"))
	assert.Equal(t, 2, restored.Stats().TotalQuestions)
}

func TestOrchestrator_RestoreRejectsForeignSnapshot(t *testing.T) {
	o := newTestOrchestrator(&fakeLLM{})

	snap := o.Snapshot()
	snap.CaseID = "other_case"
	assert.Error(t, o.Restore(snap))

	snap = o.Snapshot()
	snap.ActiveCharacter = "nobody"
	assert.ErrorIs(t, o.Restore(snap), ErrUnknownCharacter)
}

func TestOrchestrator_ReplyFilter(t *testing.T) {
	llm := &fakeLLM{reply: `emotion: "angry" message: "Get out of my damn face." context: "Lost his temper." state: "CONTINUE"`}
	o := newTestOrchestrator(llm, WithReplyFilter(strings.ToUpper))
	_, err := o.SelectCharacter("marcus")
	require.NoError(t, err)

	turn, err := o.Ask(context.Background(), "Why did you threaten her?")
	require.NoError(t, err)

	assert.Equal(t, "GET OUT OF MY DAMN FACE.", turn.Reply.Message)
	history := o.History("marcus")
	require.Len(t, history, 2)
	assert.Equal(t, "GET OUT OF MY DAMN FACE.", history[1].Content)
	assert.Equal(t, "Lost his temper.", history[1].Context, "summaries are not filtered")
}
