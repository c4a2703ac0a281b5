package verify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

func payPalTestHeaders() TransportHeaders {
	h := http.Header{}
	h.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")
	h.Set("PAYPAL-CERT-URL", "https://api.paypal.com/v1/notifications/certs/CERT-1")
	h.Set("PAYPAL-TRANSMISSION-ID", "tx-1")
	h.Set("PAYPAL-TRANSMISSION-SIG", "sig")
	h.Set("PAYPAL-TRANSMISSION-TIME", "2024-01-01T00:00:00Z")
	return TransportHeaders{Header: h}
}

func TestPayPalVerifyPayloadKeepsRawBytes(t *testing.T) {
	raw := []byte("{\"id\": \"WH-1\",\n  \"amount\": 10.50}")
	payload, err := payPalVerifyPayload(payPalVerifyRequest{WebhookID: "WH"}, raw)
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"webhook_event":`+string(raw)+`}`)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, string(raw), string(decoded["webhook_event"]))
	assert.Equal(t, `"WH"`, string(decoded["webhook_id"]))
}

func TestPayPalVerifier(t *testing.T) {
	var mu sync.Mutex
	status := "SUCCESS"
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/verify-webhook-signature", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = body
		current := status
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verification_status":"` + current + `"}`))
	}))
	defer srv.Close()

	v := NewPayPalVerifier(srv.URL, staticTokens("tok"), time.Second)
	raw := []byte(`{"id":"WH-1"}`)

	ok, err := v.Verify(context.Background(), raw, payPalTestHeaders(), "WEBHOOK-ID")
	require.NoError(t, err)
	assert.True(t, ok)
	mu.Lock()
	assert.Contains(t, string(gotBody), `"webhook_id":"WEBHOOK-ID"`)
	assert.Contains(t, string(gotBody), `"transmission_id":"tx-1"`)
	status = "FAILURE"
	mu.Unlock()

	ok, err = v.Verify(context.Background(), raw, payPalTestHeaders(), "WEBHOOK-ID")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestPayPalVerifierMissingHeader(t *testing.T) {
	v := NewPayPalVerifier("http://unused", staticTokens("tok"), time.Second)
	headers := payPalTestHeaders()
	headers.Header.Del("PAYPAL-TRANSMISSION-SIG")

	ok, err := v.Verify(context.Background(), []byte(`{}`), headers, "WEBHOOK-ID")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestPayPalVerifierTimeoutFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"verification_status":"SUCCESS"}`))
	}))
	defer srv.Close()

	v := NewPayPalVerifier(srv.URL, staticTokens("tok"), 50*time.Millisecond)
	ok, err := v.Verify(context.Background(), []byte(`{}`), payPalTestHeaders(), "WEBHOOK-ID")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPayPalVerifierUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewPayPalVerifier(srv.URL, staticTokens("tok"), time.Second)
	ok, err := v.Verify(context.Background(), []byte(`{}`), payPalTestHeaders(), "WEBHOOK-ID")
	assert.False(t, ok)
	assert.Error(t, err)
}

type memTokenCache struct {
	tokens map[string]string
	ttl    time.Duration
}

func (m *memTokenCache) GetAccessToken(_ context.Context, key string) (string, error) {
	return m.tokens[key], nil
}

func (m *memTokenCache) SetAccessToken(_ context.Context, key, token string, ttl time.Duration) error {
	m.tokens[key] = token
	m.ttl = ttl
	return nil
}

func TestPayPalTokenSourceCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"A21","expires_in":3600}`))
	}))
	defer srv.Close()

	cache := &memTokenCache{tokens: map[string]string{}}
	src := NewPayPalTokenSource(srv.URL, "client", "secret", cache)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A21", tok)
	assert.Equal(t, 59*time.Minute, cache.ttl)

	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A21", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPayPalTokenSourceMissingCredentials(t *testing.T) {
	src := NewPayPalTokenSource("http://unused", "", "", nil)
	_, err := src.Token(context.Background())
	assert.ErrorIs(t, err, ErrMissingSecret)
}
