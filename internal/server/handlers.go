package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
	"github.com/varekai/pagepilot/internal/turn"
)

type handlers struct {
	turns TurnService
	log   *zap.Logger
}

func newHandlers(turns TurnService, logger *zap.Logger) *handlers {
	return &handlers{turns: turns, log: logger.Named("handlers")}
}

func (h *handlers) registerRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/turn", h.handleTurn)
	})
}

func (h *handlers) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.log.Error("Failed to write health response", zap.Error(err))
	}
}

// turnRequest is the wire shape of one turn submission. Omit session_id to
// start a new session; title is required only then.
type turnRequest struct {
	SessionID *uuid.UUID        `json:"session_id,omitempty"`
	Title     string            `json:"title,omitempty"`
	Page      schemas.PageState `json:"page_state"`
}

type turnResponse struct {
	SessionID uuid.UUID       `json:"session_id"`
	Actions   []action.Action `json:"actions"`
	Complete  bool            `json:"complete"`
}

func (h *handlers) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := h.turns.Process(r.Context(), turn.Request{
		SessionID: req.SessionID,
		Title:     req.Title,
		Page:      req.Page,
	})
	if err != nil {
		h.respondWithTurnError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, turnResponse{
		SessionID: res.Session.ID,
		Actions:   res.Actions,
		Complete:  res.Complete,
	})
}

// respondWithTurnError maps pipeline failure categories onto status codes.
// Model backend failures surface as 502 so callers can tell them from our
// own faults.
func (h *handlers) respondWithTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, turn.ErrInvalidRequest):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, turn.ErrSessionNotFound):
		h.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, turn.ErrInvalidState):
		h.respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, turn.ErrModelCall):
		h.log.Error("Turn failed at the model backend", zap.Error(err))
		h.respondWithError(w, http.StatusBadGateway, "model backend failed")
	default:
		h.log.Error("Turn failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "internal error processing turn")
	}
}

func (h *handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func (h *handlers) respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
