package notification

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Kind        string
	Title       string
	Message     string
	Data        map[string]string
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// Event is a lifecycle transition handed to the dispatcher. Parties lists
// everyone involved; the actor is removed before fan-out.
type Event struct {
	Kind    string
	ActorID *uuid.UUID
	Parties []uuid.UUID
	Title   string
	Message string
	Data    map[string]string
}

const (
	KindJobPaid            = "job.paid"
	KindJobApproved        = "job.approved"
	KindJobRejected        = "job.rejected"
	KindJobClosed          = "job.closed"
	KindJobRefunded        = "job.refunded"
	KindApplicationNew     = "application.submitted"
	KindApplicationStatus  = "application.status_changed"
	KindApplicationDeleted = "application.deleted"
	KindOfferSent          = "offer.sent"
	KindOfferAccepted      = "offer.accepted"
	KindOfferDeclined      = "offer.declined"
	KindOfferWithdrawn     = "offer.withdrawn"
)

// Recipients returns the parties minus the actor, deduplicated.
func (e Event) Recipients() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(e.Parties))
	out := make([]uuid.UUID, 0, len(e.Parties))
	for _, p := range e.Parties {
		if p == uuid.Nil {
			continue
		}
		if e.ActorID != nil && *e.ActorID == p {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
