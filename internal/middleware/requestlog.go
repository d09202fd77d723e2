package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request through log, so access logs follow
// the process logger's level and format.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return chiMiddleware.RequestLogger(&slogFormatter{log: log.With("component", "http")})
}

type slogFormatter struct {
	log *slog.Logger
}

func (f *slogFormatter) NewLogEntry(r *http.Request) chiMiddleware.LogEntry {
	return &slogEntry{log: f.log.With(
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)}
}

type slogEntry struct {
	log *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	e.log.Log(context.Background(), level, "request completed",
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("request panicked", "panic", v, "stack", string(stack))
}
