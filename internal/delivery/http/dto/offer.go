package dto

import (
	"time"

	"github.com/google/uuid"

	"hirelane/internal/domain/offer"
)

type OfferTermsRequest struct {
	PositionTitle    string           `json:"position_title"`
	SalaryAmount     int64            `json:"salary_amount"`
	SalaryCurrency   string           `json:"salary_currency"`
	SalaryType       offer.SalaryType `json:"salary_type"`
	ContractTerms    string           `json:"contract_terms"`
	StartDate        *time.Time       `json:"start_date"`
	SalaryNegotiable bool             `json:"salary_negotiable"`
	TermsNegotiable  bool             `json:"terms_negotiable"`
	ResponseDeadline *time.Time       `json:"response_deadline"`
}

func (r OfferTermsRequest) Terms() offer.Terms {
	return offer.Terms{
		PositionTitle:    r.PositionTitle,
		SalaryAmount:     r.SalaryAmount,
		SalaryCurrency:   r.SalaryCurrency,
		SalaryType:       r.SalaryType,
		ContractTerms:    r.ContractTerms,
		StartDate:        r.StartDate,
		SalaryNegotiable: r.SalaryNegotiable,
		TermsNegotiable:  r.TermsNegotiable,
		ResponseDeadline: r.ResponseDeadline,
	}
}

type OfferResponse struct {
	ID               uuid.UUID        `json:"id"`
	ApplicationID    uuid.UUID        `json:"application_id"`
	CreatedBy        uuid.UUID        `json:"created_by"`
	PositionTitle    string           `json:"position_title"`
	SalaryAmount     int64            `json:"salary_amount"`
	SalaryCurrency   string           `json:"salary_currency"`
	SalaryType       offer.SalaryType `json:"salary_type"`
	ContractTerms    string           `json:"contract_terms"`
	StartDate        *time.Time       `json:"start_date,omitempty"`
	Status           offer.Status     `json:"status"`
	SalaryNegotiable bool             `json:"salary_negotiable"`
	TermsNegotiable  bool             `json:"terms_negotiable"`
	ResponseDeadline *time.Time       `json:"response_deadline,omitempty"`
	ViewedAt         *time.Time       `json:"viewed_at,omitempty"`
	RespondedAt      *time.Time       `json:"responded_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func FromOffer(o offer.Offer) OfferResponse {
	return OfferResponse{
		ID:               o.ID,
		ApplicationID:    o.ApplicationID,
		CreatedBy:        o.CreatedBy,
		PositionTitle:    o.PositionTitle,
		SalaryAmount:     o.SalaryAmount,
		SalaryCurrency:   o.SalaryCurrency,
		SalaryType:       o.SalaryType,
		ContractTerms:    o.ContractTerms,
		StartDate:        o.StartDate,
		Status:           o.Status,
		SalaryNegotiable: o.SalaryNegotiable,
		TermsNegotiable:  o.TermsNegotiable,
		ResponseDeadline: o.ResponseDeadline,
		ViewedAt:         o.ViewedAt,
		RespondedAt:      o.RespondedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func FromOffers(items []offer.Offer) []OfferResponse {
	out := make([]OfferResponse, 0, len(items))
	for _, o := range items {
		out = append(out, FromOffer(o))
	}
	return out
}
