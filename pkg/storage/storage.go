package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// ErrCaseNotFound is returned when no case file matches an id.
var ErrCaseNotFound = errors.New("case not found")

// Storage defines a unified interface for all storage operations.
// Session persistence is Redis-backed; cases are loaded from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations. LoadSession returns nil, nil when the session
	// does not exist or has expired.
	SaveSession(ctx context.Context, id uuid.UUID, snap *interrogation.Snapshot) error
	LoadSession(ctx context.Context, id uuid.UUID) (*interrogation.Snapshot, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Case operations
	ListCases(ctx context.Context) ([]string, error)
	GetCase(ctx context.Context, id string) (*profile.Case, error)
}
