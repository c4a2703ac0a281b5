// Package verify authenticates inbound webhook deliveries against their provider.
//
// Verifiers answer false for every failure cause. The error they return alongside
// is meant for logs only and must never reach the HTTP response.
package verify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
)

var (
	ErrMissingHeader     = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStaleTimestamp    = errors.New("signature timestamp outside tolerance")
	ErrMissingSecret     = errors.New("provider secret not configured")
)

// TransportHeaders carries the transport-level data a signature may cover
type TransportHeaders struct {
	Header http.Header
	Query  url.Values
}

// Get returns the first value of a header, case-insensitively
func (h TransportHeaders) Get(name string) string {
	if h.Header == nil {
		return ""
	}
	return h.Header.Get(name)
}

// QueryValue returns the first value of a query parameter
func (h TransportHeaders) QueryValue(name string) string {
	if h.Query == nil {
		return ""
	}
	return h.Query.Get(name)
}

// Verifier checks that rawBody was sent by the provider.
// rawBody must be the exact bytes received.
type Verifier interface {
	Verify(ctx context.Context, rawBody []byte, headers TransportHeaders, secret string) (bool, error)
}

func hmacSHA256Hex(secret string, parts ...[]byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write(p)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(expected, got string) bool {
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	have, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	return hmac.Equal(want, have)
}
