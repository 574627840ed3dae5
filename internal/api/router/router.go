package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/clinicops/internal/confirmation"
	httpmiddleware "github.com/wolfman30/clinicops/internal/http/middleware"
	"github.com/wolfman30/clinicops/internal/schedule"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// HealthCheck reports whether one dependency is ready.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Schedule           *schedule.Handler
	Confirmations      *confirmation.Handler
	MetricsHandler     http.Handler
	ReadinessChecks    map[string]HealthCheck
	AdminJWT           httpmiddleware.JWTConfig
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints (health checks, metrics)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.ReadinessChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1/clinics/{clinicID}", func(clinic chi.Router) {
		clinic.Use(requireClinicScope)
		if cfg.RateLimiter != nil {
			clinic.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if cfg.Schedule != nil {
			clinic.Route("/professionals/{professionalID}", func(prof chi.Router) {
				prof.Use(requireClinicScope)
				cfg.Schedule.RegisterRoutes(prof)
				prof.Group(func(admin chi.Router) {
					admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWT))
					cfg.Schedule.RegisterAdminRoutes(admin)
				})
			})
		}

		// Reminder scheduling is called by the booking backend with a service token.
		if cfg.Confirmations != nil {
			clinic.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWT))
				cfg.Confirmations.RegisterRoutes(admin)
			})
		}
	})

	return r
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
