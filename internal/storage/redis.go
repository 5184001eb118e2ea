package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

const sessionKeyPrefix = "session:"

// DefaultSessionTTL is how long an idle session survives in Redis.
const DefaultSessionTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for sessions
// and the filesystem for case files.
type RedisStorage struct {
	*CaseDir
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// bare host:port or a redis:// URL.
func NewRedisStorage(redisURL, dataDir string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		CaseDir: NewCaseDir(dataDir, logger),
		client:  redis.NewClient(opts),
		logger:  logger,
		ttl:     ttl,
	}, nil
}

func redisOptions(redisURL string) (*redis.Options, error) {
	if strings.Contains(redisURL, "://") {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: redisURL}, nil
}

// Client returns the underlying Redis client for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations (Redis-backed)

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *interrogation.Snapshot) error {
	if snap == nil {
		return errors.New("session cannot be nil")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", id, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+id.String(), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*interrogation.Snapshot, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Session not found", "session_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var snap interrogation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
