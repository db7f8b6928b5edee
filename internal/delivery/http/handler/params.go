package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"hirelane/internal/delivery/http/middleware"
	"hirelane/internal/domain"
)

const maxPageSize = 100

func parseQueryIntStrict(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func parsePage(c fiber.Ctx) (int, int, error) {
	limit, err := parseQueryIntStrict(c, "limit", 20)
	if err != nil || limit < 0 {
		return 0, 0, middleware.NewAppError(fiber.StatusBadRequest, "Invalid limit", nil, err)
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := parseQueryIntStrict(c, "offset", 0)
	if err != nil || offset < 0 {
		return 0, 0, middleware.NewAppError(fiber.StatusBadRequest, "Invalid offset", nil, err)
	}
	return limit, offset, nil
}

func parseUUIDParam(c fiber.Ctx, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(key)))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+key, nil, err)
	}
	return id, nil
}

func actorFrom(c fiber.Ctx) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return domain.Actor{}, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return actor, nil
}

func bindBody(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	return nil
}
