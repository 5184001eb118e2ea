package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeCharacterSelected  EventType = "character.selected"
	EventTypeTurnCompleted      EventType = "turn.completed"
	EventTypeTurnFailed         EventType = "turn.failed"
	EventTypeInterrogationEnded EventType = "interrogation.ended"
	EventTypeSessionReset       EventType = "session.reset"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel returns the pub/sub channel carrying a session's events.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("interrogation-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishCharacterSelected publishes a character.selected event
func (b *Broadcaster) PublishCharacterSelected(ctx context.Context, sessionID uuid.UUID, characterID string, state interrogation.State) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeCharacterSelected,
		Data: map[string]interface{}{
			"character_id": characterID,
			"state":        state,
		},
	})
}

// PublishTurn publishes turn.completed, followed by interrogation.ended
// when the reply was a confession.
func (b *Broadcaster) PublishTurn(ctx context.Context, sessionID uuid.UUID, turn *interrogation.Turn) error {
	err := b.publish(ctx, sessionID, Event{
		Type: EventTypeTurnCompleted,
		Data: map[string]interface{}{
			"character_id": turn.Character.ID,
			"question":     turn.Question.Cleaned,
			"message":      turn.Reply.Message,
			"emotion":      turn.Reply.Emotion,
			"state":        turn.Reply.State,
		},
	})
	if err != nil || !turn.Confessed() {
		return err
	}
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeInterrogationEnded,
		Data: map[string]interface{}{
			"character_id": turn.Character.ID,
			"name":         turn.Character.Name,
		},
	})
}

// PublishTurnFailed publishes a turn.failed event
func (b *Broadcaster) PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, characterID string, errorMsg string) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeTurnFailed,
		Data: map[string]interface{}{
			"character_id": characterID,
			"error":        errorMsg,
		},
	})
}

// PublishSessionReset publishes a session.reset event
func (b *Broadcaster) PublishSessionReset(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, Event{Type: EventTypeSessionReset})
}

// Subscribe opens a subscription to a session's channel. The caller must
// close it.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

// publish publishes an event to the session-specific channel
func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)
	event.SessionID = sessionID.String()

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}
