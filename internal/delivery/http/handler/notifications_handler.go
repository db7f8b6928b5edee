package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"hirelane/internal/delivery/http/dto"
	"hirelane/internal/domain"
	"hirelane/internal/domain/notification"
	"hirelane/internal/pkg/response"
)

type NotificationsUsecase interface {
	List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit, offset int) ([]notification.Notification, error)
	MarkRead(ctx context.Context, actor domain.Actor, id uuid.UUID) (notification.Notification, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int, error)
}

type NotificationsHandler struct {
	uc NotificationsUsecase
}

func NewNotificationsHandler(uc NotificationsUsecase) *NotificationsHandler {
	return &NotificationsHandler{uc: uc}
}

func (h *NotificationsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/:id/read", h.MarkRead)
}

func (h *NotificationsHandler) List(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		return err
	}
	unread := c.Query("unread") == "true"

	items, err := h.uc.List(c.Context(), actor, unread, limit, offset)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromNotifications(items))
}

func (h *NotificationsHandler) MarkRead(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	n, err := h.uc.MarkRead(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromNotification(n))
}

func (h *NotificationsHandler) UnreadCount(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	n, err := h.uc.UnreadCount(c.Context(), actor)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]int{"unread": n})
}
