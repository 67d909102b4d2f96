package http

import (
	"net/http"

	"github.com/atinyakov/shoebox/internal/metrics"
	"github.com/atinyakov/shoebox/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries what NewRouter needs besides the handlers.
type RouterConfig struct {
	// JWTSecret verifies bearer tokens. Empty disables bearer auth.
	JWTSecret []byte
	// AllowedOrigins enables CORS for browser clients. Empty disables it.
	AllowedOrigins []string
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// NewRouter constructs the card server's HTTP handler.
//
// Routes:
//
//	GET    /health          → Health
//	GET    /metrics         → Prometheus exposition
//	GET    /api/me          → Me
//	GET    /api/cards       → cards.List
//	POST   /api/cards       → cards.Create
//	PUT    /api/cards       → cards.Upsert
//	PATCH  /api/cards/{id}  → cards.Update
//	DELETE /api/cards/{id}  → cards.Delete
//
// Everything under /api requires authentication and JSON bodies.
func NewRouter(cards *CardHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := cfg.Metrics
	if collector == nil {
		collector = metrics.NewCollector("shoebox")
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(collector.Middleware)

	r.Get("/health", Health)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.JWTSecret))
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/me", Me)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cards.List)
			r.Post("/", cards.Create)
			r.Put("/", cards.Upsert)
			r.Patch("/{id}", cards.Update)
			r.Delete("/{id}", cards.Delete)
		})
	})

	return r
}
