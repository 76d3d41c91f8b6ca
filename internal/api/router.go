package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Appointments AppointmentService
	Requests     RequestService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(ActorMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)
			r.Post("/", createAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/accept", acceptAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/reject", rejectAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/check-in", checkInAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/attend", attendAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/refer", referAppointmentHandler(cfg.Appointments))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments))
		})
	})

	r.Route("/requests", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireActor)
			r.Post("/", submitRequestHandler(cfg.Requests))
			r.Get("/{id}", getRequestHandler(cfg.Requests))
			r.Delete("/{id}", withdrawRequestHandler(cfg.Requests))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Get("/", listRequestsHandler(cfg.Requests))
			r.Post("/{id}/resolve", resolveRequestHandler(cfg.Requests))
		})
	})

	return r
}
