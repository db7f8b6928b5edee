package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/domain"
	"hirelane/internal/domain/notification"
)

type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Insert(_ context.Context, n notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notifications[n.ID]; ok {
		return errors.Wrap(domain.ErrConflict, "notifications: insert")
	}
	if n.Data == nil {
		n.Data = map[string]string{}
	}
	r.s.notifications[n.ID] = n
	r.s.mark(n.ID)
	return nil
}

func (r *NotificationRepository) ListByRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]notification.Notification, 0)
	for _, n := range r.s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return r.s.inserted[out[i].ID] > r.s.inserted[out[j].ID] })
	return page(out, limit, offset), nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id uuid.UUID, recipientID uuid.UUID, at time.Time) (notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return notification.Notification{}, errors.Wrap(domain.ErrNotFound, "notifications: mark read")
	}
	if n.ReadAt == nil {
		read := at
		n.ReadAt = &read
		r.s.notifications[id] = n
	}
	return n, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := 0
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && n.ReadAt == nil {
			c++
		}
	}
	return c, nil
}
