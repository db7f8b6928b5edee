package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"hirelane/internal/delivery/http/dto"
	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/domain"
	"hirelane/internal/domain/payment"
	"hirelane/internal/infrastructure/gateway"
	"hirelane/internal/pkg/response"
	"hirelane/internal/usecase/payments"
)

type PaymentsUsecase interface {
	HandleWebhook(ctx context.Context, signature string, body []byte) (payments.Outcome, error)
	VerifyForActor(ctx context.Context, actor domain.Actor, sessionID string) (payment.Payment, error)
}

type PaymentsHandler struct {
	uc PaymentsUsecase
}

func NewPaymentsHandler(uc PaymentsUsecase) *PaymentsHandler {
	return &PaymentsHandler{uc: uc}
}

// RegisterWebhookRoutes mounts the unauthenticated gateway callback.
func (h *PaymentsHandler) RegisterWebhookRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/payments", h.Webhook)
}

func (h *PaymentsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/sessions/:session_id/verify", h.Verify)
}

// Webhook answers 400 only for a bad signature. Every other failure is
// acknowledged so the gateway does not retry a delivery we already logged.
func (h *PaymentsHandler) Webhook(c fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	outcome, err := h.uc.HandleWebhook(c.Context(), c.Get(gateway.SignatureHeader), body)
	if err != nil && errors.Is(err, domain.ErrSignature) {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid signature", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.WebhookAckResponse{
		Received: true,
		Outcome:  string(outcome),
	})
}

func (h *PaymentsHandler) Verify(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "session_id is required", nil, nil)
	}

	p, err := h.uc.VerifyForActor(c.Context(), actor, sessionID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromPayment(p))
}
