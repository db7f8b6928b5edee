package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"hirelane/internal/domain/payment"
)

// Fake is an in-process gateway for local runs and tests. Sessions stay open
// until SetState settles them.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]SessionStatus
	created  []CheckoutRequest

	CreateErr error
	PollErr   error
}

func NewFake() *Fake {
	return &Fake{sessions: make(map[string]SessionStatus)}
}

func (f *Fake) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return Checkout{}, f.CreateErr
	}
	if err := ctx.Err(); err != nil {
		return Checkout{}, err
	}
	id := "cs_" + uuid.NewString()
	f.sessions[id] = SessionStatus{State: payment.SessionOpen}
	f.created = append(f.created, req)
	return Checkout{SessionID: id, RedirectURL: "https://checkout.local/" + id}, nil
}

func (f *Fake) PollSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PollErr != nil {
		return SessionStatus{}, f.PollErr
	}
	if err := ctx.Err(); err != nil {
		return SessionStatus{}, err
	}
	st, ok := f.sessions[sessionID]
	if !ok {
		return SessionStatus{State: payment.SessionExpired}, nil
	}
	return st, nil
}

func (f *Fake) SetState(sessionID string, st SessionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = st
}

// Created returns the checkout requests seen so far.
func (f *Fake) Created() []CheckoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CheckoutRequest(nil), f.created...)
}

var _ Gateway = (*Fake)(nil)
