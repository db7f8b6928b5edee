package application

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew                Status = "new"
	StatusReviewing          Status = "reviewing"
	StatusInterview          Status = "interview"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusOffer              Status = "offer"
	StatusOfferPending       Status = "offer_pending"
	StatusOfferAccepted      Status = "offer_accepted"
	StatusOfferDeclined      Status = "offer_declined"
	StatusHired              Status = "hired"
	StatusRejected           Status = "rejected"
)

type Application struct {
	ID             uuid.UUID
	JobID          uuid.UUID
	TalentID       uuid.UUID
	Status         Status
	Version        int
	CoverLetter    string
	ResumeURL      *string
	DeletedAt      *time.Time
	DeletedBy      *uuid.UUID
	LastActivityAt time.Time
	CreatedAt      time.Time
}

func (a Application) Deleted() bool {
	return a.DeletedAt != nil
}

// HistoryEntry is append-only. OldStatus is nil only for the submission entry.
type HistoryEntry struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	OldStatus     *Status
	NewStatus     Status
	ActorID       *uuid.UUID
	Notes         string
	CreatedAt     time.Time
}
