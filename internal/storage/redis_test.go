package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/conversation"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T, dataDir string) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := NewRedisStorage("redis://"+mr.Addr(), dataDir, time.Hour, testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func testSnapshot() *interrogation.Snapshot {
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	return &interrogation.Snapshot{
		Snapshot: conversation.Snapshot{
			ActiveCharacter: "hartwell",
			CaseID:          "gallery_murder",
			Histories: map[string][]chat.Message{
				"hartwell": {
					{Type: chat.MessageTypeUser, Content: "Where were you?", Timestamp: ts, CharacterID: "hartwell"},
					{Type: chat.MessageTypeCharacter, Content: "Fine. I did it.", Timestamp: ts, CharacterID: "hartwell", Context: "Confessed."},
				},
				"elena": {},
			},
			TotalQuestions: 1,
			StartedAt:      ts,
		},
		Ended: []string{"hartwell"},
	}
}

func TestRedisStorage_SaveLoadDeleteSession(t *testing.T) {
	store, mr := setupTestRedis(t, t.TempDir())
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.SaveSession(ctx, id, testSnapshot()))
	assert.True(t, mr.Exists("session:"+id.String()))
	assert.Equal(t, time.Hour, mr.TTL("session:"+id.String()))

	loaded, err := store.LoadSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, testSnapshot(), loaded)

	require.NoError(t, store.DeleteSession(ctx, id))
	loaded, err = store.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_SessionExpires(t *testing.T) {
	store, mr := setupTestRedis(t, t.TempDir())
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.SaveSession(ctx, id, testSnapshot()))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadCorruptSession(t *testing.T) {
	store, mr := setupTestRedis(t, t.TempDir())
	id := uuid.New()
	require.NoError(t, mr.Set("session:"+id.String(), "{not json"))

	_, err := store.LoadSession(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_SaveNilSession(t *testing.T) {
	store, _ := setupTestRedis(t, t.TempDir())
	assert.Error(t, store.SaveSession(context.Background(), uuid.New(), nil))
}

func TestRedisStorage_PingFailsWhenServerDown(t *testing.T) {
	store, mr := setupTestRedis(t, t.TempDir())
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		url      string
		wantAddr string
		wantErr  bool
	}{
		{url: "localhost:6379", wantAddr: "localhost:6379"},
		{url: "redis://cache:6380/2", wantAddr: "cache:6380"},
		{url: "http://nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			opts, err := redisOptions(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
		})
	}
}
