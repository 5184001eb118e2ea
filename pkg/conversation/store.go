// Package conversation keeps the per-character message logs and session
// counters of an interrogation. It is the only record of what has been said.
package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

// Store is an append-only, per-character message log.
type Store struct {
	mu             sync.RWMutex
	now            func() time.Time
	activeID       string
	caseID         string
	histories      map[string][]chat.Message
	totalQuestions int
	startedAt      time.Time
}

// New creates an empty store whose session clock starts now.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store that reads time from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:       now,
		histories: make(map[string][]chat.Message),
		startedAt: now(),
	}
}

// SetActiveCharacter records the character being interrogated, creating an
// empty history the first time an id is seen.
func (s *Store) SetActiveCharacter(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
	if _, ok := s.histories[id]; !ok {
		s.histories[id] = []chat.Message{}
	}
}

// ActiveCharacter returns the id last passed to SetActiveCharacter.
func (s *Store) ActiveCharacter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetCase records the case being played.
func (s *Store) SetCase(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caseID = id
}

// Case returns the case being played.
func (s *Store) Case() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caseID
}

// MessageOption customises a message passed to AddMessage.
type MessageOption func(*chat.Message)

// At sets the message timestamp instead of the store clock.
func At(t time.Time) MessageOption {
	return func(m *chat.Message) { m.Timestamp = t }
}

// WithSummary attaches a running conversation summary. It only has an
// effect on character messages.
func WithSummary(summary string) MessageOption {
	return func(m *chat.Message) { m.Context = summary }
}

// AddMessage appends a message to a character's log. Every user message
// counts as one question.
func (s *Store) AddMessage(characterID string, msgType chat.MessageType, content string, opts ...MessageOption) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := chat.Message{
		Type:        msgType,
		Content:     content,
		Timestamp:   s.now(),
		CharacterID: characterID,
	}
	for _, opt := range opts {
		opt(&msg)
	}
	if msgType != chat.MessageTypeCharacter {
		msg.Context = ""
	}

	s.histories[characterID] = append(s.histories[characterID], msg)
	if msgType == chat.MessageTypeUser {
		s.totalQuestions++
	}
	return msg
}

// History returns a copy of a character's messages in submission order.
// An empty id means the active character.
func (s *Store) History(characterID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if characterID == "" {
		characterID = s.activeID
	}
	if characterID == "" {
		return []chat.Message{}
	}
	history := s.histories[characterID]
	out := make([]chat.Message, len(history))
	copy(out, history)
	return out
}

// Recent returns at most count of a character's latest messages.
func (s *Store) Recent(characterID string, count int) []chat.Message {
	history := s.History(characterID)
	if count >= 0 && len(history) > count {
		history = history[len(history)-count:]
	}
	return history
}

// Characters returns the ids of every character with a history, sorted.
func (s *Store) Characters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalQuestions returns the number of user messages added this session.
func (s *Store) TotalQuestions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalQuestions
}

// SessionDuration returns the time elapsed since the session started.
func (s *Store) SessionDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Sub(s.startedAt)
}

// StartedAt returns when the session clock last started.
func (s *Store) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Reset drops every history and counter and restarts the session clock.
// The active character and case are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = make(map[string][]chat.Message)
	s.totalQuestions = 0
	s.startedAt = s.now()
}

// Clear empties one character's history without touching the counters.
// An empty id means the active character.
func (s *Store) Clear(characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if characterID == "" {
		characterID = s.activeID
	}
	if _, ok := s.histories[characterID]; ok && characterID != "" {
		s.histories[characterID] = []chat.Message{}
	}
}

// Snapshot is the persisted form of a store.
type Snapshot struct {
	ActiveCharacter string                    `json:"active_character,omitempty"`
	CaseID          string                    `json:"case_id,omitempty"`
	Histories       map[string][]chat.Message `json:"histories"`
	TotalQuestions  int                       `json:"total_questions"`
	StartedAt       time.Time                 `json:"started_at"`
}

// Snapshot returns a deep copy of the store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	histories := make(map[string][]chat.Message, len(s.histories))
	for id, msgs := range s.histories {
		cp := make([]chat.Message, len(msgs))
		copy(cp, msgs)
		histories[id] = cp
	}
	return Snapshot{
		ActiveCharacter: s.activeID,
		CaseID:          s.caseID,
		Histories:       histories,
		TotalQuestions:  s.totalQuestions,
		StartedAt:       s.startedAt,
	}
}

// Restore replaces the store state with snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = snap.ActiveCharacter
	s.caseID = snap.CaseID
	s.histories = make(map[string][]chat.Message, len(snap.Histories))
	for id, msgs := range snap.Histories {
		cp := make([]chat.Message, len(msgs))
		copy(cp, msgs)
		s.histories[id] = cp
	}
	s.totalQuestions = snap.TotalQuestions
	s.startedAt = snap.StartedAt
}
