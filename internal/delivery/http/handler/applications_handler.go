package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"hirelane/internal/delivery/http/dto"
	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/infrastructure/objectstore"
	"hirelane/internal/pkg/response"
	"hirelane/internal/usecase/applications"
)

type ApplicationsUsecase interface {
	Submit(ctx context.Context, actor domain.Actor, jobID uuid.UUID, in applications.SubmitInput) (application.Application, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, expectedVersion int, to application.Status, notes string) (application.Application, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (application.Application, error)
	ListForJob(ctx context.Context, actor domain.Actor, jobID uuid.UUID, limit, offset int) ([]application.Application, error)
	ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]application.Application, error)
	History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]application.HistoryEntry, error)
}

type ApplicationsHandler struct {
	uc ApplicationsUsecase
}

func NewApplicationsHandler(uc ApplicationsUsecase) *ApplicationsHandler {
	return &ApplicationsHandler{uc: uc}
}

// RegisterJobRoutes mounts the per-job endpoints under /jobs.
func (h *ApplicationsHandler) RegisterJobRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/:id/applications", middleware.RequireRole(domain.RoleTalent), h.Submit)
	r.Get("/:id/applications", h.ListForJob)
}

func (h *ApplicationsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/mine", middleware.RequireRole(domain.RoleTalent), h.ListMine)
	r.Get("/:id", h.Get)
	r.Patch("/:id/status", h.UpdateStatus)
	r.Delete("/:id", h.Delete)
	r.Get("/:id/history", h.History)
}

// Submit accepts multipart/form-data (cover_letter, resume) or a JSON body
// with cover_letter only.
func (h *ApplicationsHandler) Submit(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	jobID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	in, err := readSubmitInput(c)
	if err != nil {
		return err
	}

	app, err := h.uc.Submit(c.Context(), actor, jobID, in)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusCreated, "application submitted", dto.FromApplication(app))
}

func readSubmitInput(c fiber.Ctx) (applications.SubmitInput, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		var req struct {
			CoverLetter string `json:"cover_letter"`
		}
		if len(c.Body()) > 0 {
			if err := bindBody(c, &req); err != nil {
				return applications.SubmitInput{}, err
			}
		}
		return applications.SubmitInput{CoverLetter: req.CoverLetter}, nil
	}

	in := applications.SubmitInput{CoverLetter: c.FormValue("cover_letter")}

	fh, err := c.FormFile("resume")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return in, nil
		}
		return applications.SubmitInput{}, middleware.NewAppError(fiber.StatusBadRequest, "Invalid resume upload", nil, err)
	}
	if fh.Size > objectstore.MaxResumeBytes {
		return applications.SubmitInput{}, middleware.NewAppError(fiber.StatusBadRequest, "Resume too large", nil, nil)
	}

	f, err := fh.Open()
	if err != nil {
		return applications.SubmitInput{}, middleware.NewAppError(fiber.StatusBadRequest, "Invalid resume upload", nil, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, objectstore.MaxResumeBytes+1))
	if err != nil {
		return applications.SubmitInput{}, middleware.NewAppError(fiber.StatusBadRequest, "Invalid resume upload", nil, err)
	}
	in.Resume = &applications.Resume{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}
	return in, nil
}

func (h *ApplicationsHandler) UpdateStatus(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateApplicationStatusRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.Version <= 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "version is required", nil, nil)
	}

	app, err := h.uc.UpdateStatus(c.Context(), actor, id, req.Version, req.Status, req.Notes)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromApplication(app))
}

func (h *ApplicationsHandler) Delete(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.uc.SoftDelete(c.Context(), actor, id); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, "application deleted", nil)
}

func (h *ApplicationsHandler) Get(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	app, err := h.uc.Get(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromApplication(app))
}

func (h *ApplicationsHandler) ListForJob(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	jobID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		return err
	}

	items, err := h.uc.ListForJob(c.Context(), actor, jobID, limit, offset)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromApplications(items))
}

func (h *ApplicationsHandler) ListMine(c fiber.Ctx) error {
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
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromApplications(items))
}

func (h *ApplicationsHandler) History(c fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	items, err := h.uc.History(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromHistory(items))
}
