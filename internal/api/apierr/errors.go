package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/ladder"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidOutcome      = "INVALID_OUTCOME"
	CodeSelfMatch           = "SELF_MATCH"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeRecalculationFailed = "RECALCULATION_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Validation
	case errors.Is(err, model.ErrInvalidOutcome):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidOutcome, "Result must be one of A_WON, B_WON, DRAW"}}
	case errors.Is(err, model.ErrSelfMatch):
		return &httpError{http.StatusBadRequest, APIError{CodeSelfMatch, "A player cannot play against themselves"}}
	case errors.Is(err, model.ErrMissingPlayer):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "player_a_id and player_b_id are required"}}
	case errors.Is(err, model.ErrInvalidName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Name must be 1-64 characters"}}
	case errors.Is(err, model.ErrInvalidPeriod):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	// Not found
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}

	case errors.Is(err, ladder.ErrRecalculation):
		return &httpError{http.StatusInternalServerError, APIError{CodeRecalculationFailed, "Rating recalculation failed; no changes were saved"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
