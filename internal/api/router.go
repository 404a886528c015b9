package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Appointments     AppointmentService
	Notifications    NotificationStore
	Patients         PatientStore
	Sessions         SessionStore
	NotifyMaxRetries int
	PgPool           *pgxpool.Pool
	Redis            *redis.Client
	Logger           zerolog.Logger
	Env              string
	Version          string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(ActorMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Appointments))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Appointments))

	// Notification endpoints
	r.Get("/notifications", listNotificationsHandler(cfg.Notifications, cfg.NotifyMaxRetries))
	r.Post("/notifications/{id}/resend", resendNotificationHandler(cfg.Notifications, cfg.NotifyMaxRetries))
	r.Post("/notifications/{id}/mark", markNotificationHandler(cfg.Notifications, cfg.NotifyMaxRetries))

	// Patient read endpoints
	r.Get("/patients", listPatientsHandler(cfg.Patients))
	r.Get("/patients/{id}", getPatientHandler(cfg.Patients))

	// Session token lifecycle
	r.Post("/auth/sessions", createSessionHandler(cfg.Sessions))
	r.Get("/auth/sessions/{token}", validateSessionHandler(cfg.Sessions))
	r.Delete("/auth/sessions/{token}", revokeSessionHandler(cfg.Sessions))

	return r
}
