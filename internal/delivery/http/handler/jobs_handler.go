package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"hirelane/internal/delivery/http/dto"
	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/domain"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/payment"
	"hirelane/internal/pkg/response"
	"hirelane/internal/usecase/jobs"
)

type JobsUsecase interface {
	Create(ctx context.Context, actor domain.Actor, in jobs.CreateInput) (job.Job, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (job.Job, error)
	ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]job.Job, error)
	ListPublic(ctx context.Context, limit, offset int) ([]job.Job, error)
	SubmitForPayment(ctx context.Context, actor domain.Actor, id uuid.UUID) (jobs.Checkout, error)
	Decide(ctx context.Context, actor domain.Actor, id uuid.UUID, d jobs.Decision) (job.Job, error)
	Close(ctx context.Context, actor domain.Actor, id uuid.UUID) (job.Job, error)
	SetInterview(ctx context.Context, actor domain.Actor, id uuid.UUID, in job.Interview) (job.Job, error)
}

type RefundUsecase interface {
	RequestRefund(ctx context.Context, actor domain.Actor, jobID uuid.UUID, reason string) (payment.RefundRequest, error)
}

type JobsHandler struct {
	uc      JobsUsecase
	refunds RefundUsecase
}

func NewJobsHandler(uc JobsUsecase, refunds RefundUsecase) *JobsHandler {
	return &JobsHandler{uc: uc, refunds: refunds}
}

// RegisterPublicRoutes mounts the unauthenticated listing.
func (h *JobsHandler) RegisterPublicRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.ListPublic)
}

func (h *JobsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	business := middleware.RequireRole(domain.RoleBusiness)
	admin := middleware.RequireRole(domain.RoleAdmin)

	r.Post("/", business, h.Create)
	r.Get("/mine", business, h.ListMine)
	r.Get("/:id", h.Get)
	r.Post("/:id/submit", business, h.Submit)
	r.Post("/:id/decision", admin, h.Decide)
	r.Post("/:id/close", h.Close)
	r.Put("/:id/interview", h.SetInterview)
	r.Post("/:id/refund", business, h.RequestRefund)
}

func (h *JobsHandler) Create(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateJobRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	j, err := h.uc.Create(c.Context(), actor, jobs.CreateInput{
		Title:       req.Title,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusCreated, "job created", dto.FromJob(j))
}

func (h *JobsHandler) Get(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	j, err := h.uc.Get(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJob(j))
}

func (h *JobsHandler) ListMine(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		return err
	}

	items, err := h.uc.ListMine(c.Context(), actor, limit, offset)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJobs(items))
}

func (h *JobsHandler) ListPublic(c fiber.Ctx) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return err
	}

	items, err := h.uc.ListPublic(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJobs(items))
}

func (h *JobsHandler) Submit(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	out, err := h.uc.SubmitForPayment(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, "checkout created", dto.CheckoutResponse{
		Job:         dto.FromJob(out.Job),
		SessionID:   out.SessionID,
		RedirectURL: out.RedirectURL,
	})
}

func (h *JobsHandler) Decide(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.DecideJobRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	j, err := h.uc.Decide(c.Context(), actor, id, jobs.Decision{Approve: req.Approve, Reason: req.Reason})
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJob(j))
}

func (h *JobsHandler) Close(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	j, err := h.uc.Close(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJob(j))
}

func (h *JobsHandler) SetInterview(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.InterviewRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	j, err := h.uc.SetInterview(c.Context(), actor, id, job.Interview{
		ConversationID: req.ConversationID,
		Public:         req.Public,
		Active:         req.Active,
	})
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJob(j))
}

func (h *JobsHandler) RequestRefund(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.RefundRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	rr, err := h.refunds.RequestRefund(c.Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusAccepted, "refund requested", dto.FromRefundRequest(rr))
}
