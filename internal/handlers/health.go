package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

// HealthResponse reports each dependency the API needs to run turns.
type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Provider   string         `json:"provider,omitempty"`
	Sessions   int            `json:"live_sessions"`
	Components map[string]any `json:"components"`
}

// SessionCounter is satisfied by the session manager.
type SessionCounter interface {
	Len() int
}

type HealthHandler struct {
	storage  storage.Storage
	sessions SessionCounter
	provider string
	logger   *slog.Logger
}

// NewHealthHandler checks storage on every request. sessions may be nil.
func NewHealthHandler(storage storage.Storage, sessions SessionCounter, provider string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		sessions: sessions,
		provider: provider,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Service:    "interrogation-engine",
		Provider:   h.provider,
		Components: map[string]any{"storage": "healthy"},
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}

	start := time.Now()
	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		resp.Components["storage"] = "unhealthy"
		resp.Status = "degraded"
		writeJSON(w, h.logger, http.StatusServiceUnavailable, resp)
		return
	}
	h.logger.Debug("Health check passed", "storage_latency", time.Since(start))
	writeJSON(w, h.logger, http.StatusOK, resp)
}
