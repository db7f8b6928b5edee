// Package memory keeps every repository in process. It mirrors the unique and
// compare-and-set rules of the Postgres schema and backs tests and the
// in-memory serve mode.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"hirelane/internal/domain/application"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/notification"
	"hirelane/internal/domain/offer"
	"hirelane/internal/domain/payment"
	"hirelane/internal/repository"
)

type Store struct {
	mu sync.Mutex

	jobs          map[uuid.UUID]job.Job
	payments      map[uuid.UUID]payment.Payment
	refunds       map[uuid.UUID]payment.RefundRequest
	webhookEvents map[string]payment.WebhookEvent
	applications  map[uuid.UUID]application.Application
	history       []application.HistoryEntry
	offers        map[uuid.UUID]offer.Offer
	notifications map[uuid.UUID]notification.Notification

	// insertion order, used for stable listings
	seq      int64
	inserted map[uuid.UUID]int64
}

func NewStore() *Store {
	return &Store{
		jobs:          make(map[uuid.UUID]job.Job),
		payments:      make(map[uuid.UUID]payment.Payment),
		refunds:       make(map[uuid.UUID]payment.RefundRequest),
		webhookEvents: make(map[string]payment.WebhookEvent),
		applications:  make(map[uuid.UUID]application.Application),
		offers:        make(map[uuid.UUID]offer.Offer),
		notifications: make(map[uuid.UUID]notification.Notification),
		inserted:      make(map[uuid.UUID]int64),
	}
}

func (s *Store) Jobs() *JobRepository { return &JobRepository{s: s} }

func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s: s} }

func (s *Store) Applications() *ApplicationRepository { return &ApplicationRepository{s: s} }

func (s *Store) Offers() *OfferRepository { return &OfferRepository{s: s} }

func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

// WebhookEvent exposes the dedup log for assertions.
func (s *Store) WebhookEvent(id string) (payment.WebhookEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.webhookEvents[id]
	return ev, ok
}

// RefundRequests returns every refund request for a payment.
func (s *Store) RefundRequests(paymentID uuid.UUID) []payment.RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payment.RefundRequest, 0)
	for _, rr := range s.refunds {
		if rr.PaymentID == paymentID {
			out = append(out, rr)
		}
	}
	return out
}

func (s *Store) mark(id uuid.UUID) {
	s.seq++
	s.inserted[id] = s.seq
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

var (
	_ repository.JobRepository          = (*JobRepository)(nil)
	_ repository.PaymentRepository      = (*PaymentRepository)(nil)
	_ repository.ApplicationRepository  = (*ApplicationRepository)(nil)
	_ repository.OfferRepository        = (*OfferRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
)

// Ping lets the store stand in for a database in health checks.
func (s *Store) Ping(_ context.Context) error { return nil }
