package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/services/funfacts"
	"github.com/mcoot/chessladder/internal/services/scoreboard"
)

// ViewHandler handles the read-only ladder views
type ViewHandler struct {
	scoreboard *scoreboard.Service
	funFacts   *funfacts.Service
	logger     *slog.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(scoreboard *scoreboard.Service, funFacts *funfacts.Service, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{
		scoreboard: scoreboard,
		funFacts:   funFacts,
		logger:     logger,
	}
}

// Scoreboard handles GET /api/v1/scoreboard
func (h *ViewHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	board, err := h.scoreboard.Get(r.Context(), q)
	if err != nil {
		writeLoggedError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoreboardFromModel(board))
}

func (h *ViewHandler) parseQuery(r *http.Request) (scoreboard.Query, error) {
	values := r.URL.Query()
	period, err := scoreboard.ParsePeriod(values.Get("period"))
	if err != nil {
		return scoreboard.Query{}, err
	}
	q := scoreboard.Query{Period: period}

	loc := h.scoreboard.Location()
	for _, field := range []struct {
		name string
		dst  *time.Time
	}{
		{"date", &q.Date},
		{"from", &q.From},
		{"to", &q.To},
	} {
		raw := values.Get(field.name)
		if raw == "" {
			continue
		}
		t, err := ParseTime(raw, loc)
		if err != nil {
			return scoreboard.Query{}, NewInvalidRequestError(field.name + " must be YYYY-MM-DD or RFC 3339")
		}
		*field.dst = t
	}
	return q, nil
}

// ParseTime accepts an RFC 3339 timestamp or a calendar date, which is
// taken as local midnight in loc
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}

// FunFact handles GET /api/v1/fun-facts
func (h *ViewHandler) FunFact(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.FunFactFromModel(h.funFacts.Get(r.Context())))
}
