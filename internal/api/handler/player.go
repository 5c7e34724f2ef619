package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessladder/internal/api/request"
	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/history"
	"github.com/mcoot/chessladder/internal/services/ladder"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	controller *ladder.Controller
	history    *history.Service
	logger     *slog.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(controller *ladder.Controller, history *history.Service, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		controller: controller,
		history:    history,
		logger:     logger,
	}
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	player, err := h.controller.RegisterPlayer(r.Context(), req.Name)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.Created(w, response.PlayerFromModel(player))
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.controller.ListPlayers(r.Context())
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerList{Players: response.PlayersFromModel(players)})
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	hist, err := h.history.Get(r.Context(), id)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerHistoryFromHistory(hist))
}

// Delete handles DELETE /api/v1/players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	deleted, err := h.controller.DeletePlayer(r.Context(), id)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DeletePlayer{DeletedMatches: deleted})
}
