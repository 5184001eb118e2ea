package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/internal/sessions"
	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
)

// EventPublisher receives session events. *events.Broadcaster implements it.
type EventPublisher interface {
	PublishCharacterSelected(ctx context.Context, sessionID uuid.UUID, characterID string, state interrogation.State) error
	PublishTurn(ctx context.Context, sessionID uuid.UUID, turn *interrogation.Turn) error
	PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, characterID string, errorMsg string) error
	PublishSessionReset(ctx context.Context, sessionID uuid.UUID) error
}

type SessionResponse struct {
	ID uuid.UUID `json:"id"`
	interrogation.Stats
	Histories map[string][]chat.Message `json:"histories"`
}

type SelectCharacterResponse struct {
	SessionID   uuid.UUID           `json:"session_id"`
	CharacterID string              `json:"character_id"`
	State       interrogation.State `json:"state"`
}

type SessionsHandler struct {
	manager   *sessions.Manager
	publisher EventPublisher
	logger    *slog.Logger
}

// NewSessionsHandler creates the sessions handler. publisher may be nil.
func NewSessionsHandler(manager *sessions.Manager, publisher EventPublisher, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		manager:   manager,
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP handles HTTP requests for interrogation sessions
// Routes:
// POST   /v1/sessions                 - Create a session for a case
// GET    /v1/sessions/{id}            - Session stats and conversations
// DELETE /v1/sessions/{id}            - Delete a session
// POST   /v1/sessions/{id}/character  - Select the suspect to question
// POST   /v1/sessions/{id}/questions  - Ask the active suspect a question
// POST   /v1/sessions/{id}/reset      - Clear all conversations
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	} else if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, sessionID)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, sessionID)
	case action == "character" && r.Method == http.MethodPost:
		h.handleSelect(w, r, sessionID)
	case action == "questions" && r.Method == http.MethodPost:
		h.handleQuestion(w, r, sessionID)
	case action == "reset" && r.Method == http.MethodPost:
		h.handleReset(w, r, sessionID)
	case action == "" || action == "character" || action == "questions" || action == "reset":
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req chat.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.manager.Create(r.Context(), req.CaseID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, sessionResponse(s))
}

func (h *SessionsHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sessionResponse(s))
}

func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.manager.Delete(r.Context(), id); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) handleSelect(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req chat.SelectCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	state, err := s.SelectCharacter(req.CharacterID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	h.save(r.Context(), s)
	if h.publisher != nil {
		if err := h.publisher.PublishCharacterSelected(r.Context(), id, req.CharacterID, state); err != nil {
			h.logger.Warn("Failed to publish event", "session_id", id, "error", err)
		}
	}

	writeJSON(w, h.logger, http.StatusOK, SelectCharacterResponse{
		SessionID:   id,
		CharacterID: req.CharacterID,
		State:       state,
	})
}

func (h *SessionsHandler) handleQuestion(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req chat.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	turn, err := s.Ask(r.Context(), req.Question)
	if err != nil {
		var cerr *interrogation.CompletionError
		if h.publisher != nil && errors.As(err, &cerr) {
			if perr := h.publisher.PublishTurnFailed(r.Context(), id, cerr.CharacterID, err.Error()); perr != nil {
				h.logger.Warn("Failed to publish event", "session_id", id, "error", perr)
			}
		}
		writeEngineError(w, h.logger, err)
		return
	}

	h.save(r.Context(), s)
	if h.publisher != nil {
		if err := h.publisher.PublishTurn(r.Context(), id, turn); err != nil {
			h.logger.Warn("Failed to publish event", "session_id", id, "error", err)
		}
	}

	writeJSON(w, h.logger, http.StatusOK, chat.QuestionResponse{
		SessionID:     id,
		Question:      turn.Question.Cleaned,
		CharacterID:   turn.Character.ID,
		CharacterName: turn.Character.Name,
		Message:       turn.Reply.Message,
		Emotion:       string(turn.Reply.Emotion),
		State:         string(turn.Reply.State),
		Confessed:     turn.Confessed(),
		Warnings:      turn.Question.Warnings,
	})
}

func (h *SessionsHandler) handleReset(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	if err := s.Reset(); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	h.save(r.Context(), s)
	if h.publisher != nil {
		if err := h.publisher.PublishSessionReset(r.Context(), id); err != nil {
			h.logger.Warn("Failed to publish event", "session_id", id, "error", err)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, sessionResponse(s))
}

// save persists the session. The in-memory session stays authoritative,
// so a failed write is logged rather than failing the request.
func (h *SessionsHandler) save(ctx context.Context, s *sessions.Session) {
	if err := h.manager.Save(ctx, s); err != nil {
		h.logger.Error("Failed to persist session", "session_id", s.ID, "error", err)
	}
}

func sessionResponse(s *sessions.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Stats:     s.Stats(),
		Histories: s.Snapshot().Histories,
	}
}
