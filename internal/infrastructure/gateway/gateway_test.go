package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain/payment"
)

func TestNewHTTPGatewayWithoutURL(t *testing.T) {
	assert.Nil(t, NewHTTPGateway("  ", "key", time.Second, nil))
}

func TestHTTPGatewayCreateCheckoutSession(t *testing.T) {
	jobID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var in createSessionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, jobID.String(), in.ClientReferenceID)
		assert.Equal(t, int64(4900), in.Amount)
		assert.Equal(t, "usd", in.Currency)

		_ = json.NewEncoder(w).Encode(sessionResponse{ID: "cs_123", URL: "https://pay.example/cs_123"})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL+"/", "sk_test", time.Second, nil)
	out, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{JobID: jobID, Amount: 4900, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", out.SessionID)
	assert.Equal(t, "https://pay.example/cs_123", out.RedirectURL)
}

func TestHTTPGatewayCreateRejectsIncompleteRequest(t *testing.T) {
	g := NewHTTPGateway("http://127.0.0.1:1", "", time.Second, nil)
	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{Amount: 10, Currency: "usd"})
	require.Error(t, err)
}

func TestHTTPGatewayPollSessionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(sessionResponse{ID: "cs_9", Status: "PAID", PaymentIntentID: "pi_1"})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "", time.Second, nil)
	st, err := g.PollSessionStatus(context.Background(), "cs_9")
	require.NoError(t, err)
	assert.Equal(t, payment.SessionPaid, st.State)
	assert.Equal(t, "pi_1", st.PaymentIntentID)
	assert.True(t, st.Terminal())
}

func TestHTTPGatewayNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "", time.Second, nil)
	_, err := g.PollSessionStatus(context.Background(), "cs_9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, SessionStatus{State: payment.SessionOpen}.Terminal())
	assert.False(t, SessionStatus{State: "unknown"}.Terminal())
	assert.True(t, SessionStatus{State: payment.SessionExpired}.Terminal())
}

func TestFakeGateway(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	out, err := f.CreateCheckoutSession(ctx, CheckoutRequest{JobID: uuid.New(), Amount: 1, Currency: "usd"})
	require.NoError(t, err)
	st, err := f.PollSessionStatus(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, payment.SessionOpen, st.State)

	f.SetState(out.SessionID, SessionStatus{State: payment.SessionPaid})
	st, err = f.PollSessionStatus(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, payment.SessionPaid, st.State)
	assert.Len(t, f.Created(), 1)
}
