package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusPendingPayment, true},
		{StatusDraft, StatusInReview, true},
		{StatusPendingPayment, StatusInReview, true},
		{StatusPendingPayment, StatusDraft, true},
		{StatusInReview, StatusActive, true},
		{StatusInReview, StatusRejected, true},
		{StatusInReview, StatusPaymentRefunded, true},
		{StatusActive, StatusClosed, true},
		{StatusActive, StatusPaymentRefunded, true},

		{StatusDraft, StatusActive, false},
		{StatusPendingPayment, StatusActive, false},
		{StatusClosed, StatusActive, false},
		{StatusRejected, StatusInReview, false},
		{StatusPaymentRefunded, StatusActive, false},
		{StatusActive, StatusInReview, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []Status{StatusDraft, StatusPendingPayment}, SourcesFor(StatusInReview))
	assert.ElementsMatch(t, []Status{StatusInReview, StatusActive}, SourcesFor(StatusPaymentRefunded))
	assert.ElementsMatch(t, []Status{StatusInReview}, SourcesFor(StatusActive))
	assert.ElementsMatch(t, []Status{StatusPendingPayment}, SourcesFor(StatusDraft))
	assert.Empty(t, SourcesFor(Status("")))
}

func TestUpdateApplyKeepsPublicTiedToActive(t *testing.T) {
	now := time.Now().UTC()
	j := Job{Status: StatusInReview, IsPaid: true}

	j = Update{To: StatusActive, At: now}.Apply(j)
	require.True(t, j.IsPublic)
	require.Equal(t, now, j.UpdatedAt)

	j = Update{To: StatusClosed, At: now}.Apply(j)
	require.False(t, j.IsPublic)
	require.True(t, j.IsPaid)
}

func TestUpdateApplyRecordsApproval(t *testing.T) {
	now := time.Now().UTC()
	paid := false
	reason := "duplicate listing"

	j := Update{To: StatusRejected, RejectionReason: &reason, IsPaid: &paid, At: now}.Apply(Job{Status: StatusInReview, IsPaid: true})
	require.Equal(t, StatusRejected, j.Status)
	require.False(t, j.IsPaid)
	require.NotNil(t, j.RejectionReason)
	require.Equal(t, reason, *j.RejectionReason)
}
