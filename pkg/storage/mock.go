package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*interrogation.Snapshot
	cases     map[string]*profile.Case
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*interrogation.Snapshot),
		cases:    make(map[string]*profile.Case),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail when saving sessions
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session snapshot
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *interrogation.Snapshot) error {
	if snap == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *snap
	m.sessions[id] = &cp
	return nil
}

// LoadSession mocks loading a session snapshot
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*interrogation.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	cp := *snap
	return &cp, nil
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListCases mocks listing case ids
func (m *MockStorage) ListCases(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.cases))
	for id := range m.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetCase mocks getting a case by id
func (m *MockStorage) GetCase(ctx context.Context, id string) (*profile.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, exists := m.cases[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return c, nil
}

// AddCase adds a case to the mock storage (for testing)
func (m *MockStorage) AddCase(c *profile.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[c.ID] = c
}
