package dto

import (
	"time"

	"github.com/google/uuid"

	"hirelane/internal/domain/job"
)

type CreateJobRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type DecideJobRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

type InterviewRequest struct {
	ConversationID *string `json:"conversation_id"`
	Public         bool    `json:"public"`
	Active         bool    `json:"active"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

type InterviewResponse struct {
	ConversationID *string `json:"conversation_id"`
	Public         bool    `json:"public"`
	Active         bool    `json:"active"`
}

type JobResponse struct {
	ID              uuid.UUID         `json:"id"`
	OwnerID         uuid.UUID         `json:"owner_id"`
	Title           string            `json:"title"`
	Location        string            `json:"location"`
	Description     string            `json:"description"`
	Status          job.Status        `json:"status"`
	IsPaid          bool              `json:"is_paid"`
	IsPublic        bool              `json:"is_public"`
	ApprovedBy      *uuid.UUID        `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	Interview       InterviewResponse `json:"interview"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type CheckoutResponse struct {
	Job         JobResponse `json:"job"`
	SessionID   string      `json:"session_id"`
	RedirectURL string      `json:"redirect_url"`
}

func FromJob(j job.Job) JobResponse {
	return JobResponse{
		ID:              j.ID,
		OwnerID:         j.OwnerID,
		Title:           j.Title,
		Location:        j.Location,
		Description:     j.Description,
		Status:          j.Status,
		IsPaid:          j.IsPaid,
		IsPublic:        j.IsPublic,
		ApprovedBy:      j.ApprovedBy,
		ApprovedAt:      j.ApprovedAt,
		RejectionReason: j.RejectionReason,
		Interview: InterviewResponse{
			ConversationID: j.Interview.ConversationID,
			Public:         j.Interview.Public,
			Active:         j.Interview.Active,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func FromJobs(items []job.Job) []JobResponse {
	out := make([]JobResponse, 0, len(items))
	for _, j := range items {
		out = append(out, FromJob(j))
	}
	return out
}
