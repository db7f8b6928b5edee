package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated         Status = "created"
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusRefundRequested Status = "refund_requested"
	StatusRefunded        Status = "refunded"
)

// Open reports whether the payment still blocks a new checkout for its job.
func (s Status) Open() bool {
	return s == StatusCreated || s == StatusRefundRequested
}

type Payment struct {
	ID              uuid.UUID
	JobID           uuid.UUID
	PayerID         uuid.UUID
	Amount          int64
	Currency        string
	Status          Status
	SessionID       string
	PaymentIntentID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
)

type RefundRequest struct {
	ID          uuid.UUID
	PaymentID   uuid.UUID
	RequestedBy uuid.UUID
	Reason      string
	Status      RefundStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
}

// EventType is the gateway webhook event name.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.completed"
	EventPaymentFailed     EventType = "payment_failed"
	EventChargeRefunded    EventType = "charge.refunded"
)

// Event is the verified webhook envelope.
type Event struct {
	ID      string          `json:"id"`
	Type    EventType       `json:"type"`
	Created int64           `json:"created"`
	Data    EventData       `json:"data"`
	Raw     json.RawMessage `json:"-"`
}

type EventData struct {
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// WebhookEvent is the dedup log row for a delivered event.
type WebhookEvent struct {
	EventID         string
	Type            EventType
	SessionID       string
	Payload         []byte
	SignatureValid  bool
	ProcessedAt     *time.Time
	ProcessingError string
	ReceivedAt      time.Time
}

// SessionState is what the gateway reports when polled.
type SessionState string

const (
	SessionOpen     SessionState = "open"
	SessionPaid     SessionState = "paid"
	SessionFailed   SessionState = "failed"
	SessionRefunded SessionState = "refunded"
	SessionExpired  SessionState = "expired"
)

func Statuses(ss ...Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
