package v1

import (
	"github.com/gofiber/fiber/v3"

	"hirelane/internal/delivery/http/handler"
	"hirelane/internal/delivery/http/middleware"
)

type Handlers struct {
	Jobs          *handler.JobsHandler
	Applications  *handler.ApplicationsHandler
	Offers        *handler.OffersHandler
	Notifications *handler.NotificationsHandler
	Payments      *handler.PaymentsHandler
}

func Register(r fiber.Router, auth *middleware.AuthMiddleware, h Handlers) {
	if r == nil {
		return
	}

	if h.Payments != nil {
		h.Payments.RegisterWebhookRoutes(r.Group("/webhooks"))
	}
	if h.Jobs != nil {
		h.Jobs.RegisterPublicRoutes(r.Group("/public/jobs"))
	}

	protected := r.Group("", auth.Middleware())

	jobsGroup := protected.Group("/jobs")
	if h.Jobs != nil {
		h.Jobs.RegisterRoutes(jobsGroup)
	}
	if h.Applications != nil {
		h.Applications.RegisterJobRoutes(jobsGroup)
	}

	appsGroup := protected.Group("/applications")
	if h.Applications != nil {
		h.Applications.RegisterRoutes(appsGroup)
	}
	if h.Offers != nil {
		h.Offers.RegisterApplicationRoutes(appsGroup)
		h.Offers.RegisterRoutes(protected.Group("/offers"))
	}
	if h.Notifications != nil {
		h.Notifications.RegisterRoutes(protected.Group("/notifications"))
	}
	if h.Payments != nil {
		h.Payments.RegisterRoutes(protected.Group("/payments"))
	}
}
