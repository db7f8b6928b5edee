package offer

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusWithdrawn Status = "withdrawn"
)

func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusWithdrawn
}

type SalaryType string

const (
	SalaryAnnual  SalaryType = "annual"
	SalaryMonthly SalaryType = "monthly"
	SalaryHourly  SalaryType = "hourly"
)

func (t SalaryType) Valid() bool {
	return t == SalaryAnnual || t == SalaryMonthly || t == SalaryHourly
}

type Offer struct {
	ID               uuid.UUID
	ApplicationID    uuid.UUID
	CreatedBy        uuid.UUID
	PositionTitle    string
	SalaryAmount     int64
	SalaryCurrency   string
	SalaryType       SalaryType
	ContractTerms    string
	StartDate        *time.Time
	Status           Status
	SalaryNegotiable bool
	TermsNegotiable  bool
	ResponseDeadline *time.Time
	ViewedAt         *time.Time
	RespondedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Terms is the editable part of an offer.
type Terms struct {
	PositionTitle    string
	SalaryAmount     int64
	SalaryCurrency   string
	SalaryType       SalaryType
	ContractTerms    string
	StartDate        *time.Time
	SalaryNegotiable bool
	TermsNegotiable  bool
	ResponseDeadline *time.Time
}

func (o Offer) WithTerms(t Terms) Offer {
	o.PositionTitle = t.PositionTitle
	o.SalaryAmount = t.SalaryAmount
	o.SalaryCurrency = t.SalaryCurrency
	o.SalaryType = t.SalaryType
	o.ContractTerms = t.ContractTerms
	o.StartDate = t.StartDate
	o.SalaryNegotiable = t.SalaryNegotiable
	o.TermsNegotiable = t.TermsNegotiable
	o.ResponseDeadline = t.ResponseDeadline
	return o
}

// Expired reports whether the talent can no longer respond.
func (o Offer) Expired(now time.Time) bool {
	return o.ResponseDeadline != nil && now.After(*o.ResponseDeadline)
}

func Statuses(ss ...Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
