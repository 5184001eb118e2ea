// Package sessions keeps the live interrogation sessions of a server. Each
// session is an Orchestrator keyed by UUID whose state is written through to
// storage after every change, so a restarted server picks up where it left
// off.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/question"
	"github.com/jwebster45206/interrogation-engine/pkg/storage"
	"github.com/jwebster45206/interrogation-engine/pkg/textfilter"
)

// ErrSessionNotFound is returned for ids that are neither live nor stored.
var ErrSessionNotFound = errors.New("session not found")

// Session is one live interrogation.
type Session struct {
	ID uuid.UUID
	*interrogation.Orchestrator
}

// Options tune the orchestrators the manager creates.
type Options struct {
	BannedTerms []string
	TurnTimeout time.Duration
	// ReplyFilter, when set, softens character replies.
	ReplyFilter *textfilter.Filter
}

// Manager owns the live sessions of a process.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	storage  storage.Storage
	llm      interrogation.Completer
	opts     Options
	logger   *slog.Logger
}

func NewManager(store storage.Storage, llm interrogation.Completer, opts Options, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		storage:  store,
		llm:      llm,
		opts:     opts,
		logger:   logger,
	}
}

// Create starts a session for a case and persists it.
func (m *Manager) Create(ctx context.Context, caseID string) (*Session, error) {
	s, err := m.build(ctx, uuid.New(), caseID)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("Session created", "session_id", s.ID, "case_id", caseID)
	return s, nil
}

// Get returns a live session, restoring it from storage when this process
// has not seen it yet.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	snap, err := m.storage.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s, err = m.build(ctx, id, snap.CaseID)
	if err != nil {
		return nil, err
	}
	if err := s.Restore(*snap); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it concurrently.
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = s
	m.logger.Debug("Session restored", "session_id", id, "case_id", snap.CaseID)
	return s, nil
}

// Save writes the session's current state to storage.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	snap := s.Snapshot()
	if err := m.storage.SaveSession(ctx, s.ID, &snap); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete forgets a session in memory and in storage.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.storage.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) build(ctx context.Context, id uuid.UUID, caseID string) (*Session, error) {
	kase, err := m.storage.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	normalizer := question.New()
	if len(m.opts.BannedTerms) > 0 {
		normalizer = normalizer.WithBannedTerms(m.opts.BannedTerms)
	}
	opts := []interrogation.Option{
		interrogation.WithNormalizer(normalizer),
		interrogation.WithLogger(m.logger.With("session_id", id.String())),
	}
	if m.opts.TurnTimeout > 0 {
		opts = append(opts, interrogation.WithTimeout(m.opts.TurnTimeout))
	}
	if m.opts.ReplyFilter != nil {
		opts = append(opts, interrogation.WithReplyFilter(m.opts.ReplyFilter.Clean))
	}

	return &Session{
		ID:           id,
		Orchestrator: interrogation.New(kase, m.llm, opts...),
	}, nil
}
