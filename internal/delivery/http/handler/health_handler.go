package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"hirelane/internal/pkg/response"
)

// Pinger is any dependency whose liveness is reported on /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis Pinger
}

func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

// Health reports 503 only when the database is down. Redis is optional.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	data := map[string]any{
		"database_healthy": ping(ctx, h.db),
		"redis_healthy":    ping(ctx, h.redis),
		"server_time":      time.Now().UTC(),
	}
	if !data["database_healthy"].(bool) {
		return response.Error(c, fiber.StatusServiceUnavailable, "degraded", data)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

func ping(ctx context.Context, p Pinger) bool {
	if p == nil {
		return false
	}
	return p.Ping(ctx) == nil
}
