package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/domain/payment"
)

// Gateway is the payment provider as seen by the lifecycle engine.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Checkout, error)
	PollSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

type CheckoutRequest struct {
	JobID      uuid.UUID
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Checkout struct {
	SessionID   string
	RedirectURL string
}

type SessionStatus struct {
	State           payment.SessionState
	PaymentIntentID string
}

// Terminal reports whether the state settles the payment one way or another.
func (s SessionStatus) Terminal() bool {
	switch s.State {
	case payment.SessionPaid, payment.SessionFailed, payment.SessionRefunded, payment.SessionExpired:
		return true
	default:
		return false
	}
}

type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

type createSessionRequest struct {
	ClientReferenceID string `json:"client_reference_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	SuccessURL        string `json:"success_url,omitempty"`
	CancelURL         string `json:"cancel_url,omitempty"`
}

type sessionResponse struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// NewHTTPGateway returns nil when baseURL is empty.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) Gateway {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (g *httpGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	if req.JobID == uuid.Nil || req.Amount <= 0 || strings.TrimSpace(req.Currency) == "" {
		return Checkout{}, errors.New("gateway: incomplete checkout request")
	}
	body := createSessionRequest{
		ClientReferenceID: req.JobID.String(),
		Amount:            req.Amount,
		Currency:          strings.ToLower(strings.TrimSpace(req.Currency)),
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
	}

	var out sessionResponse
	if err := g.do(ctx, http.MethodPost, "/v1/checkout/sessions", body, &out); err != nil {
		return Checkout{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return Checkout{}, errors.New("gateway: empty session id")
	}
	return Checkout{SessionID: strings.TrimSpace(out.ID), RedirectURL: strings.TrimSpace(out.URL)}, nil
}

func (g *httpGateway) PollSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionStatus{}, errors.New("gateway: empty session id")
	}

	var out sessionResponse
	if err := g.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		State:           payment.SessionState(strings.ToLower(strings.TrimSpace(out.Status))),
		PaymentIntentID: strings.TrimSpace(out.PaymentIntentID),
	}, nil
}

func (g *httpGateway) do(ctx context.Context, method, path string, in any, out any) error {
	endpoint := g.baseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(rb))
		g.logger.Warn("gateway call failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", bodyStr),
		)
		return fmt.Errorf("gateway: %s %s: status=%d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Gateway = (*httpGateway)(nil)
