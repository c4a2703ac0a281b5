package verify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StripeVerifier checks the Stripe-Signature header: an HMAC-SHA256 of "<t>.<body>"
type StripeVerifier struct {
	tolerance time.Duration
	now       func() time.Time
}

// NewStripeVerifier creates a verifier rejecting signatures older than tolerance.
// A zero tolerance disables the timestamp check.
func NewStripeVerifier(tolerance time.Duration) *StripeVerifier {
	return &StripeVerifier{
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify implements Verifier
func (v *StripeVerifier) Verify(_ context.Context, rawBody []byte, headers TransportHeaders, secret string) (bool, error) {
	if secret == "" {
		return false, ErrMissingSecret
	}

	header := headers.Get("Stripe-Signature")
	if header == "" {
		return false, fmt.Errorf("%w: Stripe-Signature", ErrMissingHeader)
	}

	timestamp, signatures := parseStripeHeader(header)
	if timestamp == "" || len(signatures) == 0 {
		return false, ErrMalformedHeader
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: bad timestamp", ErrMalformedHeader)
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return false, ErrStaleTimestamp
		}
	}

	expected := stripeSignature(secret, timestamp, rawBody)
	for _, sig := range signatures {
		if equalHex(expected, sig) {
			return true, nil
		}
	}

	return false, ErrSignatureMismatch
}

func stripeSignature(secret, timestamp string, body []byte) string {
	return hmacSHA256Hex(secret, []byte(timestamp), []byte("."), body)
}

// parseStripeHeader splits "t=...,v1=...,v1=...,v0=..." keeping only v1 signatures
func parseStripeHeader(header string) (string, []string) {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	return timestamp, signatures
}
