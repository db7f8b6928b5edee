package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
	"hirelane/internal/pkg/jwt"
	"hirelane/internal/pkg/response"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"stale version", errors.Wrap(domain.ErrOptimisticLock, "update application"), fiber.StatusConflict, ""},
		{"conflict", domain.ErrConflict, fiber.StatusConflict, "conflict"},
		{"invalid state", domain.ErrInvalidState, fiber.StatusUnprocessableEntity, ""},
		{"validation", errors.Wrap(domain.ErrValidation, "title is required"), fiber.StatusBadRequest, "title is required: validation failed"},
		{"signature", domain.ErrSignature, fiber.StatusBadRequest, ""},
		{"forbidden", domain.ErrForbidden, fiber.StatusForbidden, ""},
		{"not found", domain.ErrNotFound, fiber.StatusNotFound, ""},
		{"app error", NewAppError(fiber.StatusUnauthorized, "", nil, nil), fiber.StatusUnauthorized, response.MessageUnauthorized},
		{"app error hides 5xx", NewAppError(fiber.StatusBadGateway, "upstream leaked", nil, nil), fiber.StatusInternalServerError, response.MessageInternalServerError},
		{"fiber error", fiber.NewError(fiber.StatusNotFound, "Cannot GET /nope"), fiber.StatusNotFound, "Cannot GET /nope"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, response.MessageInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, _ := normalizeError(tt.err)
			assert.Equal(t, tt.status, status)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			}
		})
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	tok, ok := bearerTokenFromHeader("  bearer abc.def  ")
	require.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, ok := bearerTokenFromHeader(h)
		assert.False(t, ok, h)
	}
}

func TestAuthAndRoleChain(t *testing.T) {
	svc := jwt.NewHMACService("secret", "hirelane", time.Hour)
	app := fiber.New()
	app.Use(NewErrorMiddleware(nil).Middleware())
	app.Use(NewAuthMiddleware(svc).Middleware())
	app.Use(RequireRole(domain.RoleAdmin))
	app.Get("/admin", func(c fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return errors.New("no actor")
		}
		return response.Success(c, fiber.StatusOK, response.MessageOK, actor.ID)
	})

	call := func(target, token string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		return resp.StatusCode, body.Message
	}

	status, msg := call("/admin", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", msg)

	status, msg = call("/admin", "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", msg)

	talent, err := svc.Issue(uuid.New(), domain.RoleTalent)
	require.NoError(t, err)
	status, _ = call("/admin", talent)
	assert.Equal(t, fiber.StatusForbidden, status)

	admin, err := svc.Issue(uuid.New(), domain.RoleAdmin)
	require.NoError(t, err)
	status, _ = call("/admin", admin)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = call("/admin?access_token="+admin, "")
	assert.Equal(t, fiber.StatusOK, status)
}
