package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessladder/internal/api/request"
	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/ladder"
)

// MaxListLimit bounds the limit parameter of the match list
const MaxListLimit = 1000

// MatchHandler handles match-related endpoints
type MatchHandler struct {
	controller *ladder.Controller
	logger     *slog.Logger
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(controller *ladder.Controller, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		controller: controller,
		logger:     logger,
	}
}

// List handles GET /api/v1/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			WriteError(w, NewInvalidRequestError("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	matches, err := h.controller.ListRecentMatches(r.Context(), limit)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}
	players, err := h.controller.ListPlayers(r.Context())
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchListFromModel(matches, players))
}

// Record handles POST /api/v1/matches
func (h *MatchHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req request.RecordMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	lreq := ladder.RecordMatchRequest{
		PlayerA: model.PlayerID(req.PlayerAID),
		PlayerB: model.PlayerID(req.PlayerBID),
		Outcome: req.Result,
	}
	if req.PlayedAt != nil {
		lreq.PlayedAt = *req.PlayedAt
	}

	recorded, err := h.controller.RecordMatch(r.Context(), lreq)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.Created(w, response.RecordedMatchFromResult(recorded))
}

// Update handles PUT /api/v1/matches/{id}
func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	var req request.UpdateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	match, err := h.controller.UpdateMatchOutcome(r.Context(), id, req.Result)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(match, nil))
}

// Delete handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	if err := h.controller.DeleteMatch(r.Context(), id); err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.NoContent(w)
}
