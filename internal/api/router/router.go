// Package router wires the HTTP surface: public booking endpoints plus a
// JWT-protected admin group.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aurelie-dev/salon-booking/internal/http/handlers"
	httpmiddleware "github.com/aurelie-dev/salon-booking/internal/http/middleware"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Health       *handlers.HealthHandler
	Services     *handlers.ServicesHandler
	Availability *handlers.AvailabilityHandler
	Appointments *handlers.AppointmentsHandler
	Policy       *handlers.PolicyHandler
	Stats        *handlers.StatsHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// PublicRateLimit is requests/sec per client IP on the public API;
	// zero disables rate limiting.
	PublicRateLimit float64
	PublicRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.PublicRateLimit > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.PublicRateLimit, cfg.PublicRateBurst))
		}
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/api", func(api chi.Router) {
			if cfg.Services != nil {
				api.Get("/services", cfg.Services.ListPublic)
			}
			if cfg.Availability != nil {
				api.Get("/availability", cfg.Availability.GetSlots)
			}
			if cfg.Appointments != nil {
				api.Post("/appointments", cfg.Appointments.Book)
				api.Post("/appointments/cancel/{token}", cfg.Appointments.CancelByToken)
			}
		})
	})

	// Admin routes, protected by an HMAC-signed JWT
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.Services != nil {
				admin.Get("/services", cfg.Services.ListAll)
				admin.Post("/services", cfg.Services.Create)
				admin.Put("/services/{id}", cfg.Services.Update)
				admin.Delete("/services/{id}", cfg.Services.Deactivate)
			}
			if cfg.Appointments != nil {
				admin.Get("/appointments", cfg.Appointments.AdminList)
				admin.Post("/appointments/{id}/cancel", cfg.Appointments.AdminCancel)
			}
			if cfg.Policy != nil {
				admin.Get("/policy", cfg.Policy.GetPolicy)
				admin.Put("/policy", cfg.Policy.UpdatePolicy)
				admin.Get("/blocked-dates", cfg.Policy.ListBlockedDates)
				admin.Post("/blocked-dates", cfg.Policy.AddBlockedDate)
				admin.Delete("/blocked-dates/{date}", cfg.Policy.RemoveBlockedDate)
			}
			if cfg.Stats != nil {
				admin.Get("/stats", cfg.Stats.GetStats)
			}
		})
	}

	return r
}
