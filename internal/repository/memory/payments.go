package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/domain"
	"hirelane/internal/domain/payment"
)

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(_ context.Context, p payment.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[p.JobID]; !ok {
		return errors.Wrap(domain.ErrNotFound, "payments: insert: job")
	}
	for _, cur := range r.s.payments {
		if cur.SessionID == p.SessionID {
			return errors.Wrap(domain.ErrConflict, "payments: insert: session id")
		}
		if cur.JobID == p.JobID && cur.Status.Open() && p.Status.Open() {
			return errors.Wrap(domain.ErrConflict, "payments: insert: open payment")
		}
	}
	p.UpdatedAt = p.CreatedAt
	r.s.payments[p.ID] = p
	r.s.mark(p.ID)
	return nil
}

func (r *PaymentRepository) GetBySessionID(_ context.Context, sessionID string) (payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.bySession(sessionID)
	if !ok {
		return payment.Payment{}, errors.Wrap(domain.ErrNotFound, "payments: get by session")
	}
	return p, nil
}

func (r *PaymentRepository) GetLatestByJobID(_ context.Context, jobID uuid.UUID) (payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var (
		latest payment.Payment
		seq    int64 = -1
	)
	for _, p := range r.s.payments {
		if p.JobID == jobID && r.s.inserted[p.ID] > seq {
			latest, seq = p, r.s.inserted[p.ID]
		}
	}
	if seq < 0 {
		return payment.Payment{}, errors.Wrap(domain.ErrNotFound, "payments: get latest by job")
	}
	return latest, nil
}

func (r *PaymentRepository) CompareAndSet(_ context.Context, sessionID string, from []payment.Status, to payment.Status, intentID *string, at time.Time) (payment.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.bySession(sessionID)
	if !ok {
		return payment.Payment{}, false, errors.Wrap(domain.ErrNotFound, "payments: compare and set")
	}
	if !contains(from, p.Status) {
		return p, false, nil
	}
	if to.Open() && !p.Status.Open() {
		for _, other := range r.s.payments {
			if other.ID != p.ID && other.JobID == p.JobID && other.Status.Open() {
				return payment.Payment{}, false, errors.Wrap(domain.ErrConflict, "payments: compare and set: open payment")
			}
		}
	}
	p.Status = to
	if intentID != nil {
		p.PaymentIntentID = intentID
	}
	p.UpdatedAt = at
	r.s.payments[p.ID] = p
	return p, true, nil
}

func (r *PaymentRepository) ListByStatusBefore(_ context.Context, status payment.Status, before time.Time, limit int) ([]payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]payment.Payment, 0)
	for _, p := range r.s.payments {
		if p.Status == status && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PaymentRepository) RequestRefund(_ context.Context, sessionID string, rr payment.RefundRequest) (payment.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.bySession(sessionID)
	if !ok {
		return payment.Payment{}, false, errors.Wrap(domain.ErrNotFound, "payments: request refund")
	}
	if p.Status != payment.StatusSucceeded {
		return p, false, nil
	}
	if _, ok := r.s.refunds[rr.ID]; ok {
		return payment.Payment{}, false, errors.Wrap(domain.ErrConflict, "refund_requests: insert")
	}
	p.Status = payment.StatusRefundRequested
	p.UpdatedAt = rr.CreatedAt
	r.s.payments[p.ID] = p
	rr.PaymentID = p.ID
	r.s.refunds[rr.ID] = rr
	return p, true, nil
}

func (r *PaymentRepository) ApprovePendingRefunds(_ context.Context, paymentID uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, rr := range r.s.refunds {
		if rr.PaymentID != paymentID || rr.Status != payment.RefundPending {
			continue
		}
		rr.Status = payment.RefundApproved
		decided := at
		rr.DecidedAt = &decided
		r.s.refunds[id] = rr
		n++
	}
	return n, nil
}

func (r *PaymentRepository) RecordWebhookEvent(_ context.Context, ev payment.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if cur, ok := r.s.webhookEvents[ev.EventID]; ok {
		return cur.ProcessedAt != nil, nil
	}
	ev.ProcessedAt = nil
	r.s.webhookEvents[ev.EventID] = ev
	return false, nil
}

func (r *PaymentRepository) MarkWebhookEventProcessed(_ context.Context, eventID string, processingErr string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ev, ok := r.s.webhookEvents[eventID]
	if !ok {
		return nil
	}
	ev.ProcessingError = processingErr
	ev.ProcessedAt = nil
	if processingErr == "" {
		done := at
		ev.ProcessedAt = &done
	}
	r.s.webhookEvents[eventID] = ev
	return nil
}

func (r *PaymentRepository) bySession(sessionID string) (payment.Payment, bool) {
	for _, p := range r.s.payments {
		if p.SessionID == sessionID {
			return p, true
		}
	}
	return payment.Payment{}, false
}
