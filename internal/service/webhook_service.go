package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/util"
	"reconciliation-service/internal/verify"

	"go.uber.org/zap"
)

type providerAuth struct {
	verifier verify.Verifier
	secret   string
}

// WebhookService runs one delivery through verification, parsing and reconciliation
type WebhookService struct {
	providers   map[models.Provider]providerAuth
	parsers     *parser.Registry
	reconciler  *Reconciler
	deliveries  DeliveryCache
	deliveryTTL time.Duration
	logger      *zap.Logger
}

// NewWebhookService creates a new webhook service. deliveries may be nil.
func NewWebhookService(parsers *parser.Registry, reconciler *Reconciler, deliveries DeliveryCache, deliveryTTL time.Duration) *WebhookService {
	return &WebhookService{
		providers:   make(map[models.Provider]providerAuth),
		parsers:     parsers,
		reconciler:  reconciler,
		deliveries:  deliveries,
		deliveryTTL: deliveryTTL,
		logger:      util.GetLogger(),
	}
}

// RegisterProvider enables deliveries for provider, authenticated by verifier with secret
func (s *WebhookService) RegisterProvider(provider models.Provider, verifier verify.Verifier, secret string) {
	s.providers[provider] = providerAuth{verifier: verifier, secret: secret}
}

// HandleDelivery processes one webhook delivery. rawBody must be the exact bytes received.
func (s *WebhookService) HandleDelivery(ctx context.Context, provider models.Provider, rawBody []byte, headers verify.TransportHeaders) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "WebhookService.HandleDelivery")
	defer span.End()

	auth, ok := s.providers[provider]
	if !ok || !s.parsers.Supports(provider) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	util.WebhooksReceivedTotal.WithLabelValues(string(provider)).Inc()

	start := time.Now()
	valid, err := auth.verifier.Verify(ctx, rawBody, headers, auth.secret)
	util.SignatureVerifyLatency.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())
	if !valid || err != nil {
		util.WebhookSignatureFailuresTotal.WithLabelValues(string(provider)).Inc()
		s.logger.Warn("Webhook signature rejected",
			zap.String("provider", string(provider)),
			zap.Error(err))
		return nil, ErrInvalidSignature
	}

	ev, err := s.parsers.Parse(ctx, provider, rawBody)
	if err != nil {
		if errors.Is(err, parser.ErrMalformedPayload) {
			util.WebhookParseFailuresTotal.WithLabelValues(string(provider)).Inc()
			s.logger.Warn("Malformed webhook payload",
				zap.String("provider", string(provider)),
				zap.Error(err))
		}
		return nil, err
	}

	if s.seen(ctx, ev) {
		util.WebhookDuplicatesTotal.WithLabelValues(string(provider)).Inc()
		s.logger.Debug("Delivery already handled",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID))
		return &Result{Outcome: OutcomeDuplicate, Reason: "delivery already handled"}, nil
	}

	result, err := s.reconciler.Reconcile(ctx, ev)
	if err != nil {
		s.logger.Error("Failed to reconcile payment event",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.TypeName()),
			zap.Error(err))
		return nil, err
	}

	s.mark(ctx, ev)
	return result, nil
}

// seen consults the delivery cache. Cache failures only cost the fast path.
func (s *WebhookService) seen(ctx context.Context, ev models.PaymentEvent) bool {
	if s.deliveries == nil || ev.ID == "" {
		return false
	}
	seen, err := s.deliveries.SeenDelivery(ctx, ev.Provider, ev.ID)
	if err != nil {
		s.logger.Warn("Delivery cache unavailable", zap.Error(err))
		return false
	}
	return seen
}

func (s *WebhookService) mark(ctx context.Context, ev models.PaymentEvent) {
	if s.deliveries == nil || ev.ID == "" {
		return
	}
	if err := s.deliveries.MarkDelivery(ctx, ev.Provider, ev.ID, s.deliveryTTL); err != nil {
		s.logger.Warn("Failed to mark delivery",
			zap.String("event_id", ev.ID),
			zap.Error(err))
	}
}
