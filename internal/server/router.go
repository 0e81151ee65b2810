package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remardo/mkk-portal/internal/api"
	"github.com/remardo/mkk-portal/internal/api/handlers"
	"github.com/remardo/mkk-portal/internal/api/middleware"
)

type RouterConfig struct {
	SessionValidator middleware.SessionValidator
	AssistantHandler *handlers.AssistantHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.SessionValidator))

		r.Post("/assistant/chat", cfg.AssistantHandler.Chat)

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", cfg.KnowledgeHandler.List)
			r.Get("/search", cfg.KnowledgeHandler.Search)
			r.Get("/{id}", cfg.KnowledgeHandler.Get)
		})
	})

	return r
}
