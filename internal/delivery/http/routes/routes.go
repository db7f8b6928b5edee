package routes

import (
	"github.com/gofiber/fiber/v3"

	"hirelane/internal/delivery/http/handler"
	"hirelane/internal/delivery/http/middleware"
	v1 "hirelane/internal/delivery/http/routes/v1"
)

type Registry struct {
	health   *handler.HealthHandler
	auth     *middleware.AuthMiddleware
	handlers v1.Handlers
}

func NewRegistry(health *handler.HealthHandler, auth *middleware.AuthMiddleware, handlers v1.Handlers) *Registry {
	return &Registry{health: health, auth: auth, handlers: handlers}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health == nil {
		return
	}
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1"), r.auth, r.handlers)
}
