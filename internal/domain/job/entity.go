package job

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingPayment  Status = "pending_payment"
	StatusInReview        Status = "in_review"
	StatusActive          Status = "active"
	StatusRejected        Status = "rejected"
	StatusClosed          Status = "closed"
	StatusPaymentRefunded Status = "payment_refunded"
)

type Job struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Location    string
	Description string

	Status   Status
	IsPaid   bool
	IsPublic bool

	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason *string

	Interview Interview

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interview holds the opaque handle of the AI video-interview provider.
type Interview struct {
	ConversationID *string
	Public         bool
	Active         bool
}

// Update describes a single compare-and-set on a job row. IsPublic is always
// derived from the target status.
type Update struct {
	To              Status
	IsPaid          *bool
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason *string
	At              time.Time
}

func (u Update) IsPublic() bool {
	return u.To == StatusActive
}

func (u Update) Apply(j Job) Job {
	j.Status = u.To
	j.IsPublic = u.IsPublic()
	if u.IsPaid != nil {
		j.IsPaid = *u.IsPaid
	}
	if u.ApprovedBy != nil {
		j.ApprovedBy = u.ApprovedBy
	}
	if u.ApprovedAt != nil {
		j.ApprovedAt = u.ApprovedAt
	}
	if u.RejectionReason != nil {
		j.RejectionReason = u.RejectionReason
	}
	j.UpdatedAt = u.At
	return j
}

func Statuses(ss ...Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
