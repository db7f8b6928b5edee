package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Hour)

	assert.False(t, Offer{}.Expired(now))
	assert.False(t, Offer{ResponseDeadline: &future}.Expired(now))
	assert.True(t, Offer{ResponseDeadline: &past}.Expired(now))
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusSent.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.True(t, StatusWithdrawn.Terminal())
}

func TestWithTermsKeepsIdentity(t *testing.T) {
	o := Offer{Status: StatusDraft, PositionTitle: "old"}
	out := o.WithTerms(Terms{PositionTitle: "Staff Engineer", SalaryAmount: 100, SalaryType: SalaryAnnual})

	assert.Equal(t, StatusDraft, out.Status)
	assert.Equal(t, "Staff Engineer", out.PositionTitle)
	assert.Equal(t, int64(100), out.SalaryAmount)
}
