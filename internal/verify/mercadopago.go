package verify

import (
	"context"
	"fmt"
	"strings"
)

// MercadoPagoVerifier checks the x-signature header.
// The signed manifest is "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
type MercadoPagoVerifier struct{}

// NewMercadoPagoVerifier creates a new MercadoPago verifier
func NewMercadoPagoVerifier() *MercadoPagoVerifier {
	return &MercadoPagoVerifier{}
}

// Verify implements Verifier
func (v *MercadoPagoVerifier) Verify(_ context.Context, _ []byte, headers TransportHeaders, secret string) (bool, error) {
	if secret == "" {
		return false, ErrMissingSecret
	}

	header := headers.Get("X-Signature")
	if header == "" {
		return false, fmt.Errorf("%w: x-signature", ErrMissingHeader)
	}

	dataID := headers.QueryValue("data.id")
	if dataID == "" {
		return false, fmt.Errorf("%w: data.id query parameter", ErrMissingHeader)
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return false, ErrMalformedHeader
	}

	manifest := mercadoPagoManifest(dataID, headers.Get("X-Request-Id"), ts)
	if !equalHex(hmacSHA256Hex(secret, []byte(manifest)), v1) {
		return false, ErrSignatureMismatch
	}

	return true, nil
}

func mercadoPagoManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	b.WriteString("id:" + strings.ToLower(dataID) + ";")
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}
