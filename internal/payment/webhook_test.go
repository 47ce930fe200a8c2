package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-storefront/internal/domain"
)

func TestVerifier_AcceptsValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	v := NewVerifier("whsec_test", 5*time.Minute)

	require.NoError(t, v.Verify(payload, SignatureFor(payload, "whsec_test", now)))
}

func TestVerifier_AcceptsAnyMatchingV1(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureFor(payload, "whsec_test", time.Now()) + ",v1=deadbeef"
	require.NoError(t, NewVerifier("whsec_test", time.Minute).Verify(payload, header))
}

func TestVerifier_Rejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	cases := map[string]struct {
		secret string
		header string
	}{
		"wrong secret":      {secret: "whsec_test", header: SignatureFor(payload, "other", now)},
		"tampered payload":  {secret: "whsec_test", header: SignatureFor([]byte(`{"id":"evt_2"}`), "whsec_test", now)},
		"stale timestamp":   {secret: "whsec_test", header: SignatureFor(payload, "whsec_test", now.Add(-time.Hour))},
		"empty header":      {secret: "whsec_test", header: ""},
		"no v1":             {secret: "whsec_test", header: "t=123"},
		"missing secret":    {secret: "", header: SignatureFor(payload, "", now)},
		"garbage timestamp": {secret: "whsec_test", header: "t=abc,v1=00"},
		"v0 only":           {secret: "whsec_test", header: strings.Replace(SignatureFor(payload, "whsec_test", now), "v1=", "v0=", 1)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := NewVerifier(tc.secret, 5*time.Minute).Verify(payload, tc.header)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}
}

func TestVerifier_ZeroToleranceSkipsAgeCheck(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureFor(payload, "whsec_test", time.Now().Add(-24*time.Hour))

	require.NoError(t, NewVerifier("whsec_test", 0).Verify(payload, header))
	assert.ErrorIs(t, NewVerifier("whsec_test", time.Minute).Verify(payload, header), domain.ErrInvalidSignature)
}
