package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource provides OAuth access tokens for a provider API
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PayPalVerifier asks PayPal's verify-webhook-signature API to validate a delivery.
// The secret passed to Verify is the webhook id the delivery was sent for.
type PayPalVerifier struct {
	apiBase string
	tokens  TokenSource
	client  *http.Client
	timeout time.Duration
}

// NewPayPalVerifier creates a new PayPal verifier
func NewPayPalVerifier(apiBase string, tokens TokenSource, timeout time.Duration) *PayPalVerifier {
	return &PayPalVerifier{
		apiBase: apiBase,
		tokens:  tokens,
		client:  &http.Client{},
		timeout: timeout,
	}
}

var payPalHeaders = []string{
	"PAYPAL-AUTH-ALGO",
	"PAYPAL-CERT-URL",
	"PAYPAL-TRANSMISSION-ID",
	"PAYPAL-TRANSMISSION-SIG",
	"PAYPAL-TRANSMISSION-TIME",
}

type payPalVerifyRequest struct {
	AuthAlgo         string `json:"auth_algo"`
	CertURL          string `json:"cert_url"`
	TransmissionID   string `json:"transmission_id"`
	TransmissionSig  string `json:"transmission_sig"`
	TransmissionTime string `json:"transmission_time"`
	WebhookID        string `json:"webhook_id"`
}

type payPalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// Verify implements Verifier. Timeouts fail closed.
func (v *PayPalVerifier) Verify(ctx context.Context, rawBody []byte, headers TransportHeaders, secret string) (bool, error) {
	if secret == "" {
		return false, ErrMissingSecret
	}
	for _, name := range payPalHeaders {
		if headers.Get(name) == "" {
			return false, fmt.Errorf("%w: %s", ErrMissingHeader, name)
		}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	token, err := v.tokens.Token(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get access token: %w", err)
	}

	payload, err := payPalVerifyPayload(payPalVerifyRequest{
		AuthAlgo:         headers.Get("PAYPAL-AUTH-ALGO"),
		CertURL:          headers.Get("PAYPAL-CERT-URL"),
		TransmissionID:   headers.Get("PAYPAL-TRANSMISSION-ID"),
		TransmissionSig:  headers.Get("PAYPAL-TRANSMISSION-SIG"),
		TransmissionTime: headers.Get("PAYPAL-TRANSMISSION-TIME"),
		WebhookID:        secret,
	}, rawBody)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.apiBase+"/v1/notifications/verify-webhook-signature", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("verify request returned %d: %s", resp.StatusCode, snippet)
	}

	var result payPalVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	if result.VerificationStatus != "SUCCESS" {
		return false, fmt.Errorf("%w: verification_status=%s", ErrSignatureMismatch, result.VerificationStatus)
	}

	return true, nil
}

// payPalVerifyPayload appends webhook_event as the exact bytes received.
// json.Marshal would compact and re-escape a RawMessage.
func payPalVerifyPayload(req payPalVerifyRequest, rawBody []byte) ([]byte, error) {
	head, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(head) + len(rawBody) + 20)
	buf.Write(head[:len(head)-1])
	buf.WriteString(`,"webhook_event":`)
	buf.Write(rawBody)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
