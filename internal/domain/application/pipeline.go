package application

// stage orders the pipeline. Statuses sharing a stage are alternatives.
var stage = map[Status]int{
	StatusNew:                0,
	StatusReviewing:          1,
	StatusInterview:          2,
	StatusInterviewScheduled: 2,
	StatusOffer:              3,
	StatusOfferPending:       3,
	StatusOfferAccepted:      4,
	StatusOfferDeclined:      4,
	StatusHired:              5,
}

// lateral moves allowed inside one stage.
var lateral = map[Status]Status{
	StatusInterview: StatusInterviewScheduled,
	StatusOffer:     StatusOfferPending,
}

func (s Status) Valid() bool {
	if s == StatusRejected {
		return true
	}
	_, ok := stage[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusHired || s == StatusRejected
}

// Stage returns the pipeline position; rejected has none.
func (s Status) Stage() (int, bool) {
	n, ok := stage[s]
	return n, ok
}

// CanTransition allows forward moves (skipping is fine), the two lateral
// moves, and rejected from any non-terminal status. A declined offer can only
// end in rejection.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() || from == to {
		return false
	}
	if to == StatusRejected {
		return true
	}
	if from == StatusOfferDeclined {
		return false
	}
	if lateral[from] == to {
		return true
	}
	fs, _ := from.Stage()
	ts, _ := to.Stage()
	return ts > fs
}

// Reached reports whether current is at or past target, used to make
// cross-component feedback idempotent.
func Reached(current, target Status) bool {
	if current == target {
		return true
	}
	if current.Terminal() {
		return true
	}
	cs, _ := current.Stage()
	ts, ok := target.Stage()
	if !ok {
		return false
	}
	if cs > ts {
		return true
	}
	return cs == ts && lateral[target] == current
}

func Statuses(ss ...Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
