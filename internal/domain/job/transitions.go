package job

// transitions lists every legal move. Reopening a closed job is not supported.
// pending_payment falls back to draft when the checkout fails so the owner can
// pay again.
var transitions = map[Status][]Status{
	StatusDraft:          {StatusPendingPayment, StatusInReview},
	StatusPendingPayment: {StatusInReview, StatusDraft},
	StatusInReview:       {StatusActive, StatusRejected, StatusPaymentRefunded},
	StatusActive:         {StatusClosed, StatusPaymentRefunded},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status that may move to the target.
func SourcesFor(to Status) []Status {
	out := make([]Status, 0, 2)
	for _, from := range []Status{StatusDraft, StatusPendingPayment, StatusInReview, StatusActive} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingPayment, StatusInReview, StatusActive,
		StatusRejected, StatusClosed, StatusPaymentRefunded:
		return true
	default:
		return false
	}
}
