package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/middleware"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

// RouterConfig holds the settings the router needs.
type RouterConfig struct {
	JWTSecret           string
	RateLimitRequests   int
	IPRateLimitRequests int
	RateLimitWindow     time.Duration
	AllowedOrigins      []string
}

// Handlers groups the endpoint handlers. Stream may be nil when live events are disabled.
type Handlers struct {
	Health       *HealthHandler
	Interactions *InteractionHandler
	Stream       *StreamHandler
}

// NewRouter wires middleware and routes.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IPRateLimitRequests > 0 {
		r.Use(middleware.RateLimit(cfg.IPRateLimitRequests, cfg.RateLimitWindow))
	}

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/interactions/received", h.Interactions.ListReceived)
			r.Get("/interactions/sent", h.Interactions.ListSent)
			r.Get("/threads/{counterpartId}", h.Interactions.Thread)
			r.Get("/reviews", h.Interactions.Reviews)
			if h.Stream != nil {
				r.Get("/events", h.Stream.Stream)
			}
		})

		r.Post("/messages", h.Interactions.SendMessage)
		r.Post("/invitations", h.Interactions.SendInvitation)
		r.Post("/reviews", h.Interactions.AddReview)
		r.Put("/interactions/{interactionId}/status", h.Interactions.SetStatus)
	})

	return r
}
