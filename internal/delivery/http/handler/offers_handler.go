package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"hirelane/internal/delivery/http/dto"
	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/domain"
	"hirelane/internal/domain/offer"
	"hirelane/internal/pkg/response"
)

type OffersUsecase interface {
	Create(ctx context.Context, actor domain.Actor, applicationID uuid.UUID, t offer.Terms) (offer.Offer, error)
	UpdateDraft(ctx context.Context, actor domain.Actor, id uuid.UUID, t offer.Terms) (offer.Offer, error)
	Send(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	MarkViewed(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	Accept(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	Decline(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	Withdraw(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error)
	ListForApplication(ctx context.Context, actor domain.Actor, applicationID uuid.UUID) ([]offer.Offer, error)
}

type OffersHandler struct {
	uc OffersUsecase
}

func NewOffersHandler(uc OffersUsecase) *OffersHandler {
	return &OffersHandler{uc: uc}
}

// RegisterApplicationRoutes mounts the per-application endpoints under /applications.
func (h *OffersHandler) RegisterApplicationRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/:id/offers", middleware.RequireRole(domain.RoleBusiness, domain.RoleAdmin), h.Create)
	r.Get("/:id/offers", h.ListForApplication)
}

func (h *OffersHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	employer := middleware.RequireRole(domain.RoleBusiness, domain.RoleAdmin)
	talent := middleware.RequireRole(domain.RoleTalent)

	r.Get("/:id", h.Get)
	r.Put("/:id", employer, h.UpdateDraft)
	r.Post("/:id/send", employer, h.Send)
	r.Post("/:id/withdraw", employer, h.Withdraw)
	r.Post("/:id/view", talent, h.MarkViewed)
	r.Post("/:id/accept", talent, h.Accept)
	r.Post("/:id/decline", talent, h.Decline)
}

func (h *OffersHandler) Create(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	appID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.OfferTermsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	o, err := h.uc.Create(c.Context(), actor, appID, req.Terms())
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusCreated, "offer created", dto.FromOffer(o))
}

func (h *OffersHandler) UpdateDraft(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.OfferTermsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	o, err := h.uc.UpdateDraft(c.Context(), actor, id, req.Terms())
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromOffer(o))
}

func (h *OffersHandler) Get(c fiber.Ctx) error {
	return h.single(c, h.uc.Get)
}

func (h *OffersHandler) Send(c fiber.Ctx) error {
	return h.single(c, h.uc.Send)
}

func (h *OffersHandler) MarkViewed(c fiber.Ctx) error {
	return h.single(c, h.uc.MarkViewed)
}

func (h *OffersHandler) Accept(c fiber.Ctx) error {
	return h.single(c, h.uc.Accept)
}

func (h *OffersHandler) Decline(c fiber.Ctx) error {
	return h.single(c, h.uc.Decline)
}

func (h *OffersHandler) Withdraw(c fiber.Ctx) error {
	return h.single(c, h.uc.Withdraw)
}

func (h *OffersHandler) ListForApplication(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	appID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	items, err := h.uc.ListForApplication(c.Context(), actor, appID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromOffers(items))
}

func (h *OffersHandler) single(c fiber.Ctx, op func(context.Context, domain.Actor, uuid.UUID) (offer.Offer, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	o, err := op(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromOffer(o))
}
