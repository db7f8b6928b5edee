package payment

import (
	"fmt"
	"strings"

	"hirelane/internal/domain"
)

// Normalize trims identifiers before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	e.ID = strings.TrimSpace(e.ID)
	e.Type = EventType(strings.TrimSpace(string(e.Type)))
	e.Data.SessionID = strings.TrimSpace(e.Data.SessionID)
	e.Data.PaymentIntentID = strings.TrimSpace(e.Data.PaymentIntentID)
}

func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing event id", domain.ErrValidation)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing event type", domain.ErrValidation)
	}
	if e.Data.SessionID == "" {
		return fmt.Errorf("%w: missing session id", domain.ErrValidation)
	}
	return nil
}

func (t EventType) Known() bool {
	switch t {
	case EventCheckoutCompleted, EventPaymentFailed, EventChargeRefunded:
		return true
	default:
		return false
	}
}
