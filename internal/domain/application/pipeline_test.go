package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardAndSkips(t *testing.T) {
	assert.True(t, CanTransition(StatusNew, StatusReviewing))
	assert.True(t, CanTransition(StatusNew, StatusInterview))
	assert.True(t, CanTransition(StatusReviewing, StatusOffer))
	assert.True(t, CanTransition(StatusOfferAccepted, StatusHired))
}

func TestCanTransitionBackwardsIsRejected(t *testing.T) {
	assert.False(t, CanTransition(StatusInterview, StatusReviewing))
	assert.False(t, CanTransition(StatusOfferPending, StatusOffer))
	assert.False(t, CanTransition(StatusOfferAccepted, StatusOfferDeclined))
}

func TestCanTransitionLateral(t *testing.T) {
	assert.True(t, CanTransition(StatusInterview, StatusInterviewScheduled))
	assert.True(t, CanTransition(StatusOffer, StatusOfferPending))
	assert.False(t, CanTransition(StatusInterviewScheduled, StatusInterview))
}

func TestCanTransitionTerminalAndRejection(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusReviewing, StatusInterview, StatusOfferPending, StatusOfferAccepted} {
		assert.Truef(t, CanTransition(s, StatusRejected), "%s -> rejected", s)
	}
	assert.False(t, CanTransition(StatusHired, StatusRejected))
	assert.False(t, CanTransition(StatusRejected, StatusNew))
	assert.False(t, CanTransition(StatusNew, StatusNew))
	assert.False(t, CanTransition(StatusNew, Status("bogus")))
}

func TestDeclinedOfferOnlyEndsInRejection(t *testing.T) {
	assert.True(t, CanTransition(StatusOfferDeclined, StatusRejected))
	assert.False(t, CanTransition(StatusOfferDeclined, StatusHired))
}

func TestReached(t *testing.T) {
	assert.True(t, Reached(StatusOfferPending, StatusOfferPending))
	assert.True(t, Reached(StatusOfferAccepted, StatusOfferPending))
	assert.True(t, Reached(StatusOfferPending, StatusOffer))
	assert.True(t, Reached(StatusHired, StatusOfferAccepted))
	assert.True(t, Reached(StatusRejected, StatusOfferAccepted))
	assert.False(t, Reached(StatusInterview, StatusOfferPending))
	assert.False(t, Reached(StatusOffer, StatusOfferPending))
	assert.False(t, Reached(StatusOfferAccepted, StatusOfferDeclined))
}
