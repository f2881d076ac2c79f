// Package handlers implements the HTTP handlers for the Laila service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lailabot/laila/internal/chat"
	"github.com/lailabot/laila/pkg/models"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Chat *chat.Service
}

// New creates a new Handlers instance.
func New(svc *chat.Service) *Handlers {
	return &Handlers{Chat: svc}
}

// PostChat handles one chat exchange.
func (h *Handlers) PostChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Chat.Respond(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("chat pipeline failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// memorySearchRequest is the body of the diagnostic similarity search.
type memorySearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchMemories exposes the retrieval path for operators.
func (h *Handlers) SearchMemories(w http.ResponseWriter, r *http.Request) {
	var req memorySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hits, err := h.Chat.SearchMemories(r.Context(), req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chat.ErrMemoryDisabled):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if hits == nil {
		hits = []models.MemoryHit{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"hits": hits, "count": len(hits)})
}

// ── Response helpers ─────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
