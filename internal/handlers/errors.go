package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/interrogation-engine/internal/sessions"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/question"
	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

type ErrorResponse struct {
	Error    string              `json:"error"`
	Question *question.Processed `json:"question,omitempty"`
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *interrogation.ValidationError
	var cerr *interrogation.CompletionError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, interrogation.ErrTurnInProgress),
		errors.Is(err, interrogation.ErrInterrogationEnded),
		errors.Is(err, interrogation.ErrNoCharacterSelected):
		return http.StatusConflict
	case errors.Is(err, interrogation.ErrUnknownCharacter),
		errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, storage.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.As(err, &cerr):
		if cerr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, ErrorResponse{Error: msg})
}

// writeEngineError reports err with the status statusFor picks. Internal
// errors are not echoed to the client.
func writeEngineError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var verr *interrogation.ValidationError
	if errors.As(err, &verr) {
		resp.Question = verr.Question
	}
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		resp.Error = "Internal server error"
	}
	writeJSON(w, log, status, resp)
}
