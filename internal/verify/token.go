package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenCache stores access tokens shared between service instances
type TokenCache interface {
	GetAccessToken(ctx context.Context, key string) (string, error)
	SetAccessToken(ctx context.Context, key, token string, ttl time.Duration) error
}

// PayPalTokenSource obtains client-credentials access tokens from PayPal
type PayPalTokenSource struct {
	apiBase      string
	clientID     string
	clientSecret string
	cache        TokenCache
	client       *http.Client
}

// NewPayPalTokenSource creates a token source. cache may be nil.
func NewPayPalTokenSource(apiBase, clientID, clientSecret string, cache TokenCache) *PayPalTokenSource {
	return &PayPalTokenSource{
		apiBase:      apiBase,
		clientID:     clientID,
		clientSecret: clientSecret,
		cache:        cache,
		client:       &http.Client{},
	}
}

type payPalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token implements TokenSource
func (s *PayPalTokenSource) Token(ctx context.Context) (string, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return "", ErrMissingSecret
	}

	cacheKey := "paypal:" + s.clientID
	if s.cache != nil {
		if token, err := s.cache.GetAccessToken(ctx, cacheKey); err == nil && token != "" {
			return token, nil
		}
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned %d", resp.StatusCode)
	}

	var body payPalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	if s.cache != nil {
		ttl := time.Duration(body.ExpiresIn)*time.Second - time.Minute
		if ttl > 0 {
			_ = s.cache.SetAccessToken(ctx, cacheKey, body.AccessToken, ttl)
		}
	}

	return body.AccessToken, nil
}
