package verify

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripeHeaders(value string) TransportHeaders {
	h := http.Header{}
	h.Set("Stripe-Signature", value)
	return TransportHeaders{Header: h}
}

func TestStripeVerifier(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	now := time.Unix(1700000000, 0)
	ts := fmt.Sprintf("%d", now.Unix())
	good := stripeSignature(secret, ts, body)

	v := NewStripeVerifier(5 * time.Minute)
	v.now = func() time.Time { return now }

	tests := []struct {
		name    string
		header  string
		body    []byte
		secret  string
		wantOK  bool
		wantErr error
	}{
		{"valid", "t=" + ts + ",v1=" + good, body, secret, true, nil},
		{"valid among several", "t=" + ts + ",v1=deadbeef,v1=" + good + ",v0=abc", body, secret, true, nil},
		{"tampered body", "t=" + ts + ",v1=" + good, []byte(`{"id":"evt_2"}`), secret, false, ErrSignatureMismatch},
		{"wrong secret", "t=" + ts + ",v1=" + good, body, "whsec_other", false, ErrSignatureMismatch},
		{"missing v1", "t=" + ts, body, secret, false, ErrMalformedHeader},
		{"missing header", "", body, secret, false, ErrMissingHeader},
		{"missing secret", "t=" + ts + ",v1=" + good, body, "", false, ErrMissingSecret},
		{"stale", "t=1600000000,v1=" + stripeSignature(secret, "1600000000", body), body, secret, false, ErrStaleTimestamp},
		{"non-hex signature", "t=" + ts + ",v1=zz", body, secret, false, ErrSignatureMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Verify(context.Background(), tt.body, stripeHeaders(tt.header), tt.secret)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStripeVerifierZeroToleranceSkipsAgeCheck(t *testing.T) {
	body := []byte(`{}`)
	v := NewStripeVerifier(0)

	ok, err := v.Verify(context.Background(), body,
		stripeHeaders("t=1,v1="+stripeSignature("s", "1", body)), "s")
	require.NoError(t, err)
	assert.True(t, ok)
}
