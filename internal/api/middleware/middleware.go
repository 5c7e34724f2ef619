// Package middleware adapts the shared HTTP middleware to the JSON API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/chessladder/internal/api/apierr"
	"github.com/mcoot/chessladder/internal/middleware"
)

// Recovery turns a panicking handler into an INTERNAL_ERROR response
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// Logging logs each API request and records its metrics under the route template
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "api")))
}
