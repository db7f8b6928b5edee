package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
)

func TestVerifySignatureAcceptsSignedBody(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"id":"evt_1"}`)

	header := Sign("whsec", body, now)
	require.NoError(t, VerifySignature("whsec", header, body, now.Add(time.Minute), DefaultTolerance))
}

func TestVerifySignatureAcceptsAnyMatchingV1(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{}`)

	header := Sign("whsec", body, now) + ",v1=deadbeef"
	require.NoError(t, VerifySignature("whsec", header, body, now, 0))
}

func TestVerifySignatureRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"id":"evt_1"}`)
	good := Sign("whsec", body, now)

	cases := map[string]struct {
		secret string
		header string
		body   []byte
		at     time.Time
	}{
		"tampered body":    {"whsec", good, []byte(`{"id":"evt_2"}`), now},
		"wrong secret":     {"other", good, body, now},
		"empty secret":     {"", good, body, now},
		"missing header":   {"whsec", "", body, now},
		"no signature":     {"whsec", "t=1700000000", body, now},
		"bad timestamp":    {"whsec", "t=abc,v1=00", body, now},
		"stale timestamp":  {"whsec", good, body, now.Add(10 * time.Minute)},
		"future timestamp": {"whsec", good, body, now.Add(-10 * time.Minute)},
		"non-hex":          {"whsec", "t=1700000000,v1=zz", body, now},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := VerifySignature(tc.secret, tc.header, tc.body, tc.at, DefaultTolerance)
			assert.ErrorIs(t, err, domain.ErrSignature)
		})
	}
}
