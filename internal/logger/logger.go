// Package logger provides structured logging functionality for gitchat.
// It uses Go's slog package for logging with configurable levels and
// formats, plus an HTTP middleware that logs request handling.
package logger

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// NewLogger creates a new slog Logger with the specified level and format.
// Format "json" produces JSON output, anything else produces text.
func NewLogger(levelStr, format string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware returns an HTTP middleware that logs each request with a
// generated request ID, method, path, response status, and duration.
func Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			requestID := uuid.New().String()

			logEntry := log.With(
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			logEntry.Debug("Processing request")

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logEntry.Info("Finished request",
				"status", rec.status,
				"duration", time.Since(startTime))
		})
	}
}
