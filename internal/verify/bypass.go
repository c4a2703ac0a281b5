package verify

import (
	"context"

	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

// BypassVerifier accepts every delivery. Only wired outside production when
// WEBHOOK_SKIP_VERIFICATION is set, and loud about it.
type BypassVerifier struct {
	provider string
	logger   *zap.Logger
}

// NewBypassVerifier creates a verifier that skips authentication for provider
func NewBypassVerifier(provider string) *BypassVerifier {
	logger := util.GetLogger()
	logger.Warn("Webhook signature verification is DISABLED",
		zap.String("provider", provider))

	return &BypassVerifier{
		provider: provider,
		logger:   logger,
	}
}

// Verify implements Verifier
func (v *BypassVerifier) Verify(_ context.Context, rawBody []byte, _ TransportHeaders, _ string) (bool, error) {
	v.logger.Warn("Signature verification bypassed",
		zap.String("provider", v.provider),
		zap.Int("body_len", len(rawBody)))
	return true, nil
}
