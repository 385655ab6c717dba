// Package api exposes the local HTTP surface: health, config, stored
// utterances and the overlay WebSocket endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/internal/overlay"
	"github.com/rvasily/squadvoice/internal/storage/sqlite"
	"github.com/rvasily/squadvoice/pkg/logger"
)

// Router is the API router.
type Router struct {
	handler    *Handler
	middleware *Middleware
	hub        *overlay.Hub
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router.
func NewRouter(coordinator Coordinator, storage *sqlite.UtteranceStorage, hub *overlay.Hub, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(coordinator, storage, cfg, log),
		middleware: NewMiddleware(log),
		hub:        hub,
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes.
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/config", r.handler.GetConfig)

		router.Get("/utterances", r.handler.GetUtterances)
		router.Get("/utterances/channel/{id}", r.handler.GetUtterancesByChannel)
		router.Get("/utterances/time-range", r.handler.GetUtterancesByTimeRange)

		// Overlay WebSocket route
		router.Handle("/overlay/ws", r.hub.Handler())
	})

	return router
}
