package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter configures the chi router for the local trigger API. The
// server binds to loopback only; there is no auth layer because the
// surface is never exposed off-host.
func NewRouter(handler *TriggerHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Liveness probe for helper scripts waiting on startup.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/new_chat", handler.HandleNewChat)
	r.Get("/chat-history", handler.HandleChatHistory)
	r.Post("/external-message", handler.HandleExternalMessage)

	return r
}
