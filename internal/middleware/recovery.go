// Package middleware holds HTTP middleware shared by the API and the server binary.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mcoot/chessladder/internal/metrics"
)

// PanicHandler writes the response after a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery turns handler panics into a logged error and handler's response.
// A nil handler writes a plain 500.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	if handler == nil {
		handler = func(w http.ResponseWriter, _ *http.Request, _ any) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					metrics.HTTPPanicsTotal.Inc()
					logger.Error("panic recovered",
						slog.Any("error", err),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
