package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/internal/services"
	"github.com/jwebster45206/interrogation-engine/internal/sessions"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

const confessionReply = `emotion: "scared"
message: "I did it. I killed her."
context: "Hartwell confessed."
state: "END"`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func testCase() *profile.Case {
	return &profile.Case{
		ID:     "gallery_murder",
		Title:  "Murder at the Gallery",
		Victim: "Victoria Sterling",
		Characters: []profile.Character{
			{
				ID:         "elena",
				Name:       "Elena Rodriguez",
				Role:       profile.RoleInnocent,
				Background: profile.Background{Occupation: "Gallery curator", Relationship: "Employee"},
			},
			{
				ID:         "hartwell",
				Name:       "James Hartwell",
				Role:       profile.RoleCulprit,
				Background: profile.Background{Occupation: "Art collector", Relationship: "Business partner"},
			},
		},
	}
}

type recordedEvent struct {
	kind        string
	characterID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) record(kind, characterID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: kind, characterID: characterID})
}

func (p *recordingPublisher) PublishCharacterSelected(ctx context.Context, id uuid.UUID, characterID string, state interrogation.State) error {
	p.record("selected", characterID)
	return nil
}

func (p *recordingPublisher) PublishTurn(ctx context.Context, id uuid.UUID, turn *interrogation.Turn) error {
	p.record("turn", turn.Character.ID)
	return nil
}

func (p *recordingPublisher) PublishTurnFailed(ctx context.Context, id uuid.UUID, characterID string, msg string) error {
	p.record("failed", characterID)
	return nil
}

func (p *recordingPublisher) PublishSessionReset(ctx context.Context, id uuid.UUID) error {
	p.record("reset", "")
	return nil
}

func (p *recordingPublisher) recorded() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]recordedEvent, len(p.events))
	copy(out, p.events)
	return out
}

type testServer struct {
	handler   http.Handler
	storage   *storage.MockStorage
	llm       *services.MockLLMAPI
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddCase(testCase())
	llm := services.NewMockLLMAPI()
	publisher := &recordingPublisher{}
	logger := testLogger()

	manager := sessions.NewManager(store, llm, sessions.Options{}, logger)
	mux := http.NewServeMux()
	mux.Handle("/health", NewHealthHandler(store, manager, "mock", logger))
	mux.Handle("/v1/cases", NewCasesHandler(store, logger))
	mux.Handle("/v1/cases/", NewCasesHandler(store, logger))
	sessionsHandler := NewSessionsHandler(manager, publisher, logger)
	mux.Handle("/v1/sessions", sessionsHandler)
	mux.Handle("/v1/sessions/", sessionsHandler)

	return &testServer{handler: mux, storage: store, llm: llm, publisher: publisher}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
}

// createSession creates a session and returns its id.
func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/sessions", map[string]string{"case_id": "gallery_murder"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", w.Code, w.Body.String())
	}
	var resp SessionResponse
	decode(t, w, &resp)
	return resp.ID.String()
}
