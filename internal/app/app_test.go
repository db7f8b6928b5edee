package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/config"
	"hirelane/internal/domain"
	"hirelane/internal/infrastructure/gateway"
)

const webhookSecret = "whsec_http"

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t   *testing.T
	app *App
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := config.Config{
		App:     config.AppConfig{AppName: "hirelane-test", Environment: "test", HTTPPort: "0", InMemory: true},
		JWT:     config.JWTConfig{Secret: "jwt-secret", Issuer: "hirelane", TokenTTL: time.Hour},
		Payment: config.PaymentConfig{WebhookSecret: webhookSecret, ListingPrice: 4900, Currency: "usd"},
	}
	c, err := NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return harness{t: t, app: New(c)}
}

func (h harness) token(role domain.Role) (string, uuid.UUID) {
	h.t.Helper()
	id := uuid.New()
	tok, err := h.app.Container.JWT.Issue(id, role)
	require.NoError(h.t, err)
	return tok, id
}

func (h harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.send(req)
}

func (h harness) send(req *http.Request) (int, envelope) {
	h.t.Helper()
	resp, err := h.app.Fiber.Test(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (h harness) webhook(eventID, typ, sessionID, secret string) (int, envelope) {
	h.t.Helper()
	body := []byte(fmt.Sprintf(`{"id":%q,"type":%q,"data":{"session_id":%q}}`, eventID, typ, sessionID))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gateway.SignatureHeader, gateway.Sign(secret, body, time.Now()))
	return h.send(req)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type jobBody struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	IsPaid   bool      `json:"is_paid"`
	IsPublic bool      `json:"is_public"`
}

type appBody struct {
	ID      uuid.UUID `json:"id"`
	Status  string    `json:"status"`
	Version int       `json:"version"`
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	data := decode[map[string]any](t, env)
	assert.Equal(t, true, data["database_healthy"])
	assert.Equal(t, false, data["redis_healthy"])
}

func TestAuthAndRoles(t *testing.T) {
	h := newHarness(t)
	talent, _ := h.token(domain.RoleTalent)

	status, _ := h.do(http.MethodPost, "/api/v1/jobs", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(http.MethodPost, "/api/v1/jobs", "not-a-jwt", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(http.MethodPost, "/api/v1/jobs", talent, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodGet, "/api/v1/jobs/not-a-uuid", talent, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), talent, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodGet, "/api/v1/notifications?limit=-1", talent, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPublicationAndPipelineOverHTTP(t *testing.T) {
	h := newHarness(t)
	business, _ := h.token(domain.RoleBusiness)
	admin, _ := h.token(domain.RoleAdmin)
	talent, _ := h.token(domain.RoleTalent)

	status, env := h.do(http.MethodPost, "/api/v1/jobs", business, map[string]string{"title": "Go Engineer", "location": "Remote"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	created := decode[jobBody](t, env)
	assert.Equal(t, "draft", created.Status)
	jobPath := "/api/v1/jobs/" + created.ID.String()

	status, env = h.do(http.MethodPost, jobPath+"/submit", business, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	checkout := decode[struct {
		Job       jobBody `json:"job"`
		SessionID string  `json:"session_id"`
	}](t, env)
	assert.Equal(t, "pending_payment", checkout.Job.Status)

	status, _ = h.webhook("evt_1", "checkout.completed", checkout.SessionID, "wrong-secret")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.webhook("evt_1", "checkout.completed", checkout.SessionID, webhookSecret)
	require.Equal(t, http.StatusOK, status)
	ack := decode[map[string]any](t, env)
	assert.Equal(t, true, ack["received"])
	assert.Equal(t, "processed", ack["outcome"])

	status, env = h.webhook("evt_1", "checkout.completed", checkout.SessionID, webhookSecret)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "duplicate", decode[map[string]any](t, env)["outcome"])

	// acknowledged even though nothing matched
	status, env = h.webhook("evt_2", "checkout.completed", "cs_unknown", webhookSecret)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "failed", decode[map[string]any](t, env)["outcome"])

	status, _ = h.do(http.MethodGet, jobPath, talent, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, jobPath+"/decision", business, map[string]any{"approve": true})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.do(http.MethodPost, jobPath+"/decision", admin, map[string]any{"approve": true})
	require.Equal(t, http.StatusOK, status, env.Message)
	live := decode[jobBody](t, env)
	assert.Equal(t, "active", live.Status)
	assert.True(t, live.IsPaid)
	assert.True(t, live.IsPublic)

	status, _ = h.do(http.MethodPost, jobPath+"/decision", admin, map[string]any{"approve": true})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, env = h.do(http.MethodGet, "/api/v1/public/jobs", "", nil)
	require.Equal(t, http.StatusOK, status)
	public := decode[[]jobBody](t, env)
	require.Len(t, public, 1)
	assert.Equal(t, created.ID, public[0].ID)

	status, env = h.do(http.MethodPost, jobPath+"/applications", talent, map[string]string{"cover_letter": "hi"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	app := decode[appBody](t, env)
	assert.Equal(t, "new", app.Status)
	assert.Equal(t, 1, app.Version)
	appPath := "/api/v1/applications/" + app.ID.String()

	status, _ = h.do(http.MethodPost, jobPath+"/applications", talent, map[string]string{"cover_letter": "again"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(http.MethodPatch, appPath+"/status", business, map[string]any{"status": "reviewing"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodPatch, appPath+"/status", business, map[string]any{"status": "reviewing", "version": 1})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, 2, decode[appBody](t, env).Version)

	status, _ = h.do(http.MethodPatch, appPath+"/status", business, map[string]any{"status": "interview", "version": 1})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(http.MethodPatch, appPath+"/status", business, map[string]any{"status": "new", "version": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = h.do(http.MethodPatch, appPath+"/status", talent, map[string]any{"status": "interview", "version": 2})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.do(http.MethodGet, appPath+"/history", talent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env), 2)

	status, env = h.do(http.MethodGet, "/api/v1/notifications/unread-count", business, nil)
	require.Equal(t, http.StatusOK, status)
	// job.paid, job.approved, application.submitted
	assert.Equal(t, float64(3), decode[map[string]any](t, env)["unread"])

	status, env = h.do(http.MethodGet, "/api/v1/notifications?unread=true", talent, nil)
	require.Equal(t, http.StatusOK, status)
	items := decode[[]map[string]any](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, "application.status_changed", items[0]["kind"])

	status, _ = h.do(http.MethodPost, "/api/v1/notifications/"+fmt.Sprint(items[0]["id"])+"/read", business, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(http.MethodPost, "/api/v1/notifications/"+fmt.Sprint(items[0]["id"])+"/read", talent, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestListenAddr(t *testing.T) {
	addr, err := ListenAddr("8080")
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	addr, err = ListenAddr(" :9000 ")
	require.NoError(t, err)
	assert.Equal(t, ":9000", addr)

	_, err = ListenAddr("  ")
	assert.Error(t, err)
}
