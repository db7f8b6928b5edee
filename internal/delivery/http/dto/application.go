package dto

import (
	"time"

	"github.com/google/uuid"

	"hirelane/internal/domain/application"
)

type UpdateApplicationStatusRequest struct {
	Status  application.Status `json:"status"`
	Version int                `json:"version"`
	Notes   string             `json:"notes"`
}

type ApplicationResponse struct {
	ID             uuid.UUID          `json:"id"`
	JobID          uuid.UUID          `json:"job_id"`
	TalentID       uuid.UUID          `json:"talent_id"`
	Status         application.Status `json:"status"`
	Version        int                `json:"version"`
	CoverLetter    string             `json:"cover_letter"`
	ResumeURL      *string            `json:"resume_url,omitempty"`
	LastActivityAt time.Time          `json:"last_activity_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

type HistoryEntryResponse struct {
	ID        uuid.UUID           `json:"id"`
	OldStatus *application.Status `json:"old_status"`
	NewStatus application.Status  `json:"new_status"`
	ActorID   *uuid.UUID          `json:"actor_id"`
	Notes     string              `json:"notes,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func FromApplication(a application.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:             a.ID,
		JobID:          a.JobID,
		TalentID:       a.TalentID,
		Status:         a.Status,
		Version:        a.Version,
		CoverLetter:    a.CoverLetter,
		ResumeURL:      a.ResumeURL,
		LastActivityAt: a.LastActivityAt,
		CreatedAt:      a.CreatedAt,
	}
}

func FromApplications(items []application.Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(items))
	for _, a := range items {
		out = append(out, FromApplication(a))
	}
	return out
}

func FromHistory(items []application.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(items))
	for _, h := range items {
		out = append(out, HistoryEntryResponse{
			ID:        h.ID,
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			ActorID:   h.ActorID,
			Notes:     h.Notes,
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}
