package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/services/ladder"
)

// LadderHandler handles whole-ladder maintenance endpoints
type LadderHandler struct {
	controller *ladder.Controller
	logger     *slog.Logger
}

// NewLadderHandler creates a new ladder handler
func NewLadderHandler(controller *ladder.Controller, logger *slog.Logger) *LadderHandler {
	return &LadderHandler{
		controller: controller,
		logger:     logger,
	}
}

// Recalculate handles POST /api/v1/ladder/recalculate
func (h *LadderHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	result, err := h.controller.Recalculate(r.Context())
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RecalculateFromResult(result))
}

// Verify handles GET /api/v1/ladder/verify
func (h *LadderHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.controller.Verify(r.Context())
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.VerifyFromResult(result))
}
