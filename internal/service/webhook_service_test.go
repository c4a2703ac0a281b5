package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/service/mocks"
	"reconciliation-service/internal/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stubVerifier struct {
	valid bool
	err   error
	calls int
}

func (v *stubVerifier) Verify(context.Context, []byte, verify.TransportHeaders, string) (bool, error) {
	v.calls++
	return v.valid, v.err
}

const payPalCaptureBody = `{
	"id": "WH-1",
	"event_type": "PAYMENT.CAPTURE.COMPLETED",
	"resource": {
		"id": "CAP-1",
		"status": "COMPLETED",
		"amount": {"currency_code": "USD", "value": "100.00"},
		"supplementary_data": {"related_ids": {"order_id": "PAY-1"}}
	}
}`

func newWebhookFixture(t *testing.T, verifier verify.Verifier, cache DeliveryCache) (*WebhookService, *memStore) {
	t.Helper()

	s := newMemStore()
	parsers := parser.NewRegistry()
	parsers.Register(models.ProviderPayPal, parser.NewPayPalParser())

	svc := NewWebhookService(parsers, NewReconciler(s, s, 3), cache, time.Hour)
	svc.RegisterProvider(models.ProviderPayPal, verifier, "WEBHOOK-ID")
	return svc, s
}

func TestHandleDeliveryAppliesCapture(t *testing.T) {
	svc, s := newWebhookFixture(t, &stubVerifier{valid: true}, nil)
	order := s.addOrder(newOrder("PAY-1"))

	res, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	got := s.order(order.ID)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "CAP-1", got.Metadata.Key(models.KeyCaptureID))
}

func TestHandleDeliveryRejectsBadSignature(t *testing.T) {
	verifier := &stubVerifier{valid: false, err: verify.ErrSignatureMismatch}
	svc, s := newWebhookFixture(t, verifier, nil)
	order := s.addOrder(newOrder("PAY-1"))

	_, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.NotErrorIs(t, err, verify.ErrSignatureMismatch)

	assert.Equal(t, models.PaymentStatusPending, s.order(order.ID).PaymentStatus)
	assert.Empty(t, s.anomalyList())
}

func TestHandleDeliveryFailsClosedOnVerifierError(t *testing.T) {
	// A verifier that errors is rejected even if it claims success
	svc, _ := newWebhookFixture(t, &stubVerifier{valid: true, err: context.DeadlineExceeded}, nil)

	_, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHandleDeliveryMalformedBody(t *testing.T) {
	svc, s := newWebhookFixture(t, &stubVerifier{valid: true}, nil)

	_, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(`{not json`), verify.TransportHeaders{})
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrMalformedPayload)
	assert.Empty(t, s.anomalyList())
}

func TestHandleDeliveryUnknownProvider(t *testing.T) {
	verifier := &stubVerifier{valid: true}
	svc, _ := newWebhookFixture(t, verifier, nil)

	_, err := svc.HandleDelivery(context.Background(), models.ProviderStripe, []byte(`{}`), verify.TransportHeaders{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Zero(t, verifier.calls)
}

func TestHandleDeliveryUnmatchedIsAcknowledged(t *testing.T) {
	svc, s := newWebhookFixture(t, &stubVerifier{valid: true}, nil)

	res, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, res.Outcome)

	anomalies := s.anomalyList()
	require.Len(t, anomalies, 1)
	assert.JSONEq(t, payPalCaptureBody, string(anomalies[0].Body))
}

func TestHandleDeliveryUsesDeliveryCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockDeliveryCache(ctrl)
	svc, s := newWebhookFixture(t, &stubVerifier{valid: true}, cache)
	order := s.addOrder(newOrder("PAY-1"))

	gomock.InOrder(
		cache.EXPECT().SeenDelivery(gomock.Any(), models.ProviderPayPal, "WH-1").Return(false, nil),
		cache.EXPECT().MarkDelivery(gomock.Any(), models.ProviderPayPal, "WH-1", time.Hour).Return(nil),
		cache.EXPECT().SeenDelivery(gomock.Any(), models.ProviderPayPal, "WH-1").Return(true, nil),
	)

	res, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	res, err = svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, int64(2), s.order(order.ID).Version)
}

func TestHandleDeliveryCacheOutageFallsBackToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockDeliveryCache(ctrl)
	svc, s := newWebhookFixture(t, &stubVerifier{valid: true}, cache)
	s.addOrder(newOrder("PAY-1"))

	down := errors.New("redis: connection refused")
	cache.EXPECT().SeenDelivery(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, down).Times(2)
	cache.EXPECT().MarkDelivery(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(down).Times(2)

	res, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	res, err = svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
}

func TestHandleDeliveryDoesNotMarkFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockDeliveryCache(ctrl)
	orders := mocks.NewMockOrderStore(ctrl)

	parsers := parser.NewRegistry()
	parsers.Register(models.ProviderPayPal, parser.NewPayPalParser())
	svc := NewWebhookService(parsers, NewReconciler(orders, mocks.NewMockAnomalyStore(ctrl), 3), cache, time.Hour)
	svc.RegisterProvider(models.ProviderPayPal, &stubVerifier{valid: true}, "WEBHOOK-ID")

	cache.EXPECT().SeenDelivery(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	orders.EXPECT().IsEventProcessed(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, err := svc.HandleDelivery(context.Background(), models.ProviderPayPal, []byte(payPalCaptureBody), verify.TransportHeaders{})
	require.Error(t, err)
}
