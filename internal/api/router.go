package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessladder/internal/api/handler"
	"github.com/mcoot/chessladder/internal/api/middleware"
	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/services/funfacts"
	"github.com/mcoot/chessladder/internal/services/history"
	"github.com/mcoot/chessladder/internal/services/ladder"
	"github.com/mcoot/chessladder/internal/services/scoreboard"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	LadderController  *ladder.Controller
	ScoreboardService *scoreboard.Service
	HistoryService    *history.Service
	FunFactsService   *funfacts.Service

	// Events serves the change stream; nil disables the route
	Events http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.LadderController, cfg.HistoryService, cfg.Logger)
	matchHandler := handler.NewMatchHandler(cfg.LadderController, cfg.Logger)
	viewHandler := handler.NewViewHandler(cfg.ScoreboardService, cfg.FunFactsService, cfg.Logger)
	ladderHandler := handler.NewLadderHandler(cfg.LadderController, cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Players
	api.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Delete).Methods(http.MethodDelete)

	// Matches
	api.HandleFunc("/matches", matchHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/matches", matchHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}", matchHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/matches/{id}", matchHandler.Delete).Methods(http.MethodDelete)

	// Views
	api.HandleFunc("/scoreboard", viewHandler.Scoreboard).Methods(http.MethodGet)
	api.HandleFunc("/fun-facts", viewHandler.FunFact).Methods(http.MethodGet)

	// Maintenance
	api.HandleFunc("/ladder/recalculate", ladderHandler.Recalculate).Methods(http.MethodPost)
	api.HandleFunc("/ladder/verify", ladderHandler.Verify).Methods(http.MethodGet)

	if cfg.Events != nil {
		api.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
