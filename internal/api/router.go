package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Availability AvailabilityAPI
	Catalog      CatalogAPI
	Booking      BookingAPI
	Metrics      *BookingMetrics
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Public catalog surface; callers may be anonymous and only ever see
	// active records.
	r.Get("/services", listServicesHandler(cfg.Catalog))
	r.Get("/providers", listProvidersHandler(cfg.Availability))

	// Everything else requires the identity the fronting layer injects.
	r.Group(func(r chi.Router) {
		r.Use(CallerMiddleware)

		// Appointment endpoints
		r.Post("/appointments", bookAppointmentHandler(cfg.Booking, cfg.Metrics))
		r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
		r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Metrics, "CONFIRMED", cfg.Booking.Confirm))
		r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Metrics, "CANCELLED", cfg.Booking.Cancel))
		r.Post("/appointments/{id}/complete", transitionHandler(cfg.Metrics, "COMPLETED", cfg.Booking.Complete))

		// Admin availability endpoints
		r.Post("/admin/availability", createSlotHandler(cfg.Availability))
		r.Get("/admin/availability", listSlotsHandler(cfg.Availability))
		r.Put("/admin/availability/{id}", updateSlotHandler(cfg.Availability))
		r.Post("/admin/availability/{id}/deactivate", deactivateSlotHandler(cfg.Availability))
		r.Delete("/admin/availability/{id}", deleteSlotHandler(cfg.Availability))

		// Admin service catalog endpoints
		r.Post("/admin/services", createServiceHandler(cfg.Catalog))
		r.Put("/admin/services/{id}", updateServiceHandler(cfg.Catalog))
		r.Delete("/admin/services/{id}", removeServiceHandler(cfg.Catalog))
		r.Get("/admin/services", listServicesHandler(cfg.Catalog))
	})

	return r
}
