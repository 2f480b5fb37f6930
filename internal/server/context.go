package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/store"
	"github.com/lazypower/warmth/internal/warmth"
)

// requestLogger puts a request-scoped logger into the request context and
// logs each request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.Default().With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logging.With(r.Context(), logger)))

		logger.Debug("request",
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// writeError maps domain errors onto HTTP. Internal faults get a generic
// message; their detail only goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.From(r.Context())

	switch {
	case errors.Is(err, warmth.ErrInvalidMode),
		errors.Is(err, warmth.ErrInvalidWindow),
		errors.Is(err, warmth.ErrInvalidAnchor),
		errors.Is(err, warmth.ErrInvalidInteraction):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.Is(err, warmth.ErrContactNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})

	case errors.Is(err, store.ErrContactExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "contact already exists"})

	case errors.Is(err, warmth.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "warmth temporarily unavailable, try again"})

	default:
		logger.Error("request failed", logging.ErrAttr(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
