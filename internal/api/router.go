package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"example.com/activitystats/internal/auth"
	"example.com/activitystats/internal/observability"
)

// RouterConfig carries the cross-cutting HTTP concerns.
type RouterConfig struct {
	Auth           auth.Middleware
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires every endpoint behind CORS, request logging and bearer auth.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthz)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Wrap)

		r.Route("/v1/owners/{ownerID}/stats", func(r chi.Router) {
			r.With(auth.RequireScope(auth.ScopeStatsRead, auth.ScopeStatsWrite)).Group(func(r chi.Router) {
				r.Get("/", h.computeStats)
				r.Get("/range", h.computeRange)
				r.Get("/history", h.statsHistory)
				r.Get("/all-time", h.allTimeStats)
			})
			r.With(auth.RequireScope(auth.ScopeStatsWrite)).Post("/refresh", h.refreshStats)
		})

		r.With(auth.RequireScope(auth.ScopeStatsRead, auth.ScopeStatsWrite)).Group(func(r chi.Router) {
			r.Get("/v1/leaderboards/{dimension}", h.leaderboard)
			r.Get("/v1/community/feed", h.communityFeed)
		})
	})

	return r
}
