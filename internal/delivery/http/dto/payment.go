package dto

import (
	"time"

	"github.com/google/uuid"

	"hirelane/internal/domain/payment"
)

type PaymentResponse struct {
	ID        uuid.UUID      `json:"id"`
	JobID     uuid.UUID      `json:"job_id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Status    payment.Status `json:"status"`
	SessionID string         `json:"session_id"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type RefundRequestResponse struct {
	ID        uuid.UUID            `json:"id"`
	PaymentID uuid.UUID            `json:"payment_id"`
	Reason    string               `json:"reason"`
	Status    payment.RefundStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

type WebhookAckResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

func FromPayment(p payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		JobID:     p.JobID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		SessionID: p.SessionID,
		UpdatedAt: p.UpdatedAt,
	}
}

func FromRefundRequest(r payment.RefundRequest) RefundRequestResponse {
	return RefundRequestResponse{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Reason:    r.Reason,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
