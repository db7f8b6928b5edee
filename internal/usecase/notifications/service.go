package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/notification"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
)

// Channel pushes a stored notification to whoever is connected right now.
type Channel interface {
	Publish(ctx context.Context, recipient uuid.UUID, payload []byte) error
}

// Message is the payload published on the real-time channel.
type Message struct {
	ID        uuid.UUID         `json:"id"`
	Recipient uuid.UUID         `json:"recipient_id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Service struct {
	repo    repository.NotificationRepository
	channel Channel
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo repository.NotificationRepository, channel Channel, m *metrics.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, channel: channel, metrics: m, logger: logger, now: time.Now}
}

// Dispatch stores one row per recipient and then pushes it. A failed push is
// logged and counted; the stored row stays. Store failures for one recipient
// do not stop the others and are returned combined.
func (s *Service) Dispatch(ctx context.Context, ev notification.Event) ([]notification.Notification, error) {
	recipients := ev.Recipients()
	out := make([]notification.Notification, 0, len(recipients))
	if len(recipients) == 0 {
		return out, nil
	}

	var errs error
	for _, rid := range recipients {
		n := notification.Notification{
			ID:          uuid.New(),
			RecipientID: rid,
			Kind:        ev.Kind,
			Title:       ev.Title,
			Message:     ev.Message,
			Data:        ev.Data,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.repo.Insert(ctx, n); err != nil {
			s.metrics.RecordNotification("store_failed")
			s.logger.Error("notification store failed",
				zap.String("kind", ev.Kind),
				zap.Stringer("recipient", rid),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", rid, err))
			continue
		}
		out = append(out, n)
		s.push(ctx, n)
	}
	return out, errs
}

func (s *Service) push(ctx context.Context, n notification.Notification) {
	if s.channel == nil {
		s.metrics.RecordNotification("stored")
		return
	}
	payload, err := json.Marshal(Message{
		ID:        n.ID,
		Recipient: n.RecipientID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	})
	if err == nil {
		err = s.channel.Publish(ctx, n.RecipientID, payload)
	}
	if err != nil {
		s.metrics.RecordNotification("publish_failed")
		s.logger.Warn("notification publish failed",
			zap.Stringer("notification_id", n.ID),
			zap.Stringer("recipient", n.RecipientID),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordNotification("published")
}

func (s *Service) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit, offset int) ([]notification.Notification, error) {
	if actor.IsSystem() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByRecipient(ctx, actor.ID, unreadOnly, limit, offset)
}

// MarkRead only touches the actor's own notifications; anyone else's id
// reads as not found.
func (s *Service) MarkRead(ctx context.Context, actor domain.Actor, id uuid.UUID) (notification.Notification, error) {
	if actor.IsSystem() {
		return notification.Notification{}, domain.ErrForbidden
	}
	return s.repo.MarkRead(ctx, id, actor.ID, s.now().UTC())
}

func (s *Service) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	if actor.IsSystem() {
		return 0, domain.ErrForbidden
	}
	return s.repo.CountUnread(ctx, actor.ID)
}
