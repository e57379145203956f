package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/armand124/MedicPlannerAI/internal/appointment"
)

type RouterConfig struct {
	Coordinator *appointment.Coordinator
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Logger      *zap.Logger
	Env         string
	Version     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking and calendar endpoints
	r.Post("/planner", planBookingHandler(cfg.Coordinator))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Coordinator))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Coordinator))
	r.Get("/doctors/{id}/appointments", doctorAppointmentsHandler(cfg.Coordinator))
	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Coordinator))

	return r
}
