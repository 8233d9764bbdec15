// Package router assembles the HTTP surface: public chat and booking
// endpoints, admin provider views and the operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/alpenlodge/concierge/internal/chat"
	"github.com/alpenlodge/concierge/internal/http/handlers"
	httpmiddleware "github.com/alpenlodge/concierge/internal/http/middleware"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	ChatHandler         *chat.Handler
	AvailabilityHandler *handlers.AvailabilityHandler
	FinalizeHandler     *handlers.FinalizeHandler
	AdminSmoobu         *handlers.AdminSmoobuHandler
	Debug               *handlers.DebugHandler

	RateLimiter    *httpmiddleware.RateLimiter
	AdminToken     string
	AdminJWTSecret string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Admin-Token"},
			AllowCredentials: true,
		}).Handler)
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Chat widget endpoints.
	if cfg.ChatHandler != nil {
		r.Route("/api/concierge", func(r chi.Router) {
			r.Post("/", cfg.ChatHandler.ServeHTTP)
			r.Get("/history", cfg.ChatHandler.HistoryHandler)
		})
	}

	// Booking page endpoints, rate limited per client IP.
	r.Group(func(limited chi.Router) {
		if cfg.RateLimiter != nil {
			limited.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.AvailabilityHandler != nil {
			limited.Post("/api/smoobu/availability", cfg.AvailabilityHandler.ServeHTTP)
		}
		if cfg.FinalizeHandler != nil {
			limited.Post("/api/booking/finalize", cfg.FinalizeHandler.ServeHTTP)
		}
	})

	// Operator views behind admin auth.
	if cfg.AdminSmoobu != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminAuth(cfg.AdminToken, cfg.AdminJWTSecret))
			admin.Get("/api/smoobu/bookings", cfg.AdminSmoobu.Bookings)
			admin.Get("/api/smoobu/raw/*", cfg.AdminSmoobu.Raw)
		})
	}

	if cfg.Debug != nil {
		r.Get("/api/debug/version", cfg.Debug.VersionInfo)
		r.Get("/api/debug/knowledge", cfg.Debug.KnowledgeInfo)
	}

	return r
}
