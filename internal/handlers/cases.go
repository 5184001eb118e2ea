package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

// CharacterSummary is what a player may know about a suspect before
// questioning them. Roles are never exposed.
type CharacterSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Occupation   string `json:"occupation"`
	Relationship string `json:"relationship"`
}

type CaseResponse struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Victim     string             `json:"victim"`
	Characters []CharacterSummary `json:"characters"`
}

type CasesHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewCasesHandler(storage storage.Storage, logger *slog.Logger) *CasesHandler {
	return &CasesHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles
// GET /v1/cases       - list case ids
// GET /v1/cases/{id}  - case summary
func (h *CasesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/cases"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid case ID")
		return
	}
	h.get(w, r, id)
}

func (h *CasesHandler) list(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListCases(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cases", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list cases")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, ids)
}

func (h *CasesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	kase, err := h.storage.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrCaseNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Case not found")
			return
		}
		h.logger.Error("Failed to load case", "error", err, "case_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load case")
		return
	}

	resp := CaseResponse{
		ID:         kase.ID,
		Title:      kase.Title,
		Victim:     kase.Victim,
		Characters: make([]CharacterSummary, 0, len(kase.Characters)),
	}
	for _, c := range kase.Characters {
		resp.Characters = append(resp.Characters, CharacterSummary{
			ID:           c.ID,
			Name:         c.Name,
			Occupation:   c.Background.Occupation,
			Relationship: c.Background.Relationship,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
