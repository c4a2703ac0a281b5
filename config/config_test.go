package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("WEBHOOK_SKIP_VERIFICATION", "")
	t.Setenv("WEBHOOK_VERIFY_TIMEOUT", "")
	t.Setenv("PAYPAL_MODE", "")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Webhooks.VerifyTimeout)
	assert.Equal(t, 5, cfg.Webhooks.MaxApplyAttempts)
	assert.False(t, cfg.Webhooks.SkipVerification)
	assert.Equal(t, "https://api-m.sandbox.paypal.com", cfg.PayPal.APIBase())
}

func TestSkipVerificationForcedOffInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("WEBHOOK_SKIP_VERIFICATION", "true")

	cfg := Load()

	assert.False(t, cfg.Webhooks.SkipVerification)
}

func TestSkipVerificationOutsideProduction(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("WEBHOOK_SKIP_VERIFICATION", "yes")

	cfg := Load()

	assert.True(t, cfg.Webhooks.SkipVerification)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("WEBHOOK_VERIFY_TIMEOUT", "soon")
	t.Setenv("WEBHOOK_MAX_APPLY_ATTEMPTS", "0")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Webhooks.VerifyTimeout)
	assert.Equal(t, 1, cfg.Webhooks.MaxApplyAttempts)
}

func TestLivePayPalBase(t *testing.T) {
	assert.Equal(t, "https://api-m.paypal.com", PayPalConfig{Mode: "live"}.APIBase())
}
