package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"autogen-chat/internal/middleware"
)

// Routes mounts the chat endpoint, a /health heartbeat and, when ui is not
// nil, the browser UI as the catch-all.
func (h *Handler) Routes(ui http.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(h.baseLog))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins))

	r.Post("/chat", h.ServeHTTP)

	if ui != nil {
		r.Handle("/*", ui)
	}
	return r
}
