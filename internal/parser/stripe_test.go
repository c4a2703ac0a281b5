package parser

import (
	"context"
	"testing"

	"reconciliation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeCheckoutSessionCompleted(t *testing.T) {
	paid := []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1714550400,"data":{"object":{
		"id":"cs_1","payment_intent":"pi_1","payment_status":"paid","amount_total":2599,"currency":"usd",
		"client_reference_id":"ORD-1","customer_details":{"email":"b@example.com","name":"Ana"}}}}`)

	ev, err := NewStripeParser().Parse(context.Background(), paid)
	require.NoError(t, err)

	assert.Equal(t, models.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, []models.CorrelationKey{
		{Kind: models.KeyPaymentID, Value: "cs_1"},
		{Kind: models.KeyPaymentID, Value: "pi_1"},
		{Kind: models.KeyOrderNumber, Value: "ORD-1"},
	}, ev.Candidates)
	assert.Equal(t, &models.Money{Value: "25.99", Currency: "USD"}, ev.Capture.Amount)
	require.NotNil(t, ev.Buyer)
	assert.Equal(t, "b@example.com", ev.Buyer.Email)

	unpaid := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{
		"id":"cs_2","payment_status":"unpaid","metadata":{"order_number":"ORD-2"}}}}`)
	ev, err = NewStripeParser().Parse(context.Background(), unpaid)
	require.NoError(t, err)
	assert.Equal(t, models.EventCheckoutProcessed, ev.Type)
}

func TestStripePaymentIntent(t *testing.T) {
	tests := []struct {
		eventType string
		want      models.EventType
	}{
		{"payment_intent.succeeded", models.EventCaptureCompleted},
		{"payment_intent.processing", models.EventCapturePending},
		{"payment_intent.payment_failed", models.EventCaptureDenied},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			raw := []byte(`{"id":"evt_pi","type":"` + tt.eventType + `","data":{"object":{
				"id":"pi_1","status":"x","amount":1000,"amount_received":1000,"currency":"eur",
				"latest_charge":{"id":"ch_1","object":"charge"},
				"last_payment_error":{"code":"card_declined","message":"Your card was declined."}}}}`)

			ev, err := NewStripeParser().Parse(context.Background(), raw)
			require.NoError(t, err)

			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, []models.CorrelationKey{
				{Kind: models.KeyPaymentID, Value: "pi_1"},
				{Kind: models.KeyCaptureID, Value: "ch_1"},
				{Kind: models.KeyTransactionID, Value: "stripe_ch_1"},
			}, ev.Candidates)
			if tt.want == models.EventCaptureDenied {
				require.NotNil(t, ev.Failure)
				assert.Equal(t, "card_declined", ev.Failure.Code)
			}
		})
	}
}

func TestStripeChargeRefunded(t *testing.T) {
	raw := []byte(`{"id":"evt_r","type":"charge.refunded","data":{"object":{
		"id":"ch_1","payment_intent":"pi_1","amount":5000,"amount_refunded":3000,"currency":"jpy",
		"refunds":{"data":[{"id":"re_2","amount":1000},{"id":"re_1","amount":2000}]}}}}`)

	ev, err := NewStripeParser().Parse(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, models.EventCaptureRefunded, ev.Type)
	require.NotNil(t, ev.Refund)
	assert.Equal(t, "re_2", ev.Refund.RefundID)
	assert.Equal(t, &models.Money{Value: "1000", Currency: "JPY"}, ev.Refund.Amount)
	assert.Equal(t, &models.Money{Value: "3000", Currency: "JPY"}, ev.Refund.TotalRefunded)
}

func TestStripeChargeRefundedWithoutList(t *testing.T) {
	raw := []byte(`{"id":"evt_r","type":"charge.refunded","data":{"object":{
		"id":"ch_1","amount":5000,"amount_refunded":5000,"currency":"usd"}}}`)

	ev, err := NewStripeParser().Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "ch_1:5000", ev.Refund.RefundID)
	assert.Equal(t, "50.00", ev.Refund.TotalRefunded.Value)
}

func TestStripeDisputeClosed(t *testing.T) {
	tests := []struct {
		status string
		favor  models.DisputeFavor
	}{
		{"won", models.FavorSeller},
		{"warning_closed", models.FavorSeller},
		{"lost", models.FavorBuyer},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			raw := []byte(`{"id":"evt_d","type":"charge.dispute.closed","data":{"object":{
				"id":"dp_1","charge":"ch_1","amount":1000,"currency":"usd","reason":"fraudulent","status":"` + tt.status + `"}}}`)

			ev, err := NewStripeParser().Parse(context.Background(), raw)
			require.NoError(t, err)

			assert.Equal(t, models.EventDisputeResolved, ev.Type)
			assert.Equal(t, tt.favor, ev.Dispute.Favor)
			assert.Equal(t, models.KeyCaptureID, ev.Candidates[0].Kind)
		})
	}
}

func TestStripeUnknownAndMalformed(t *testing.T) {
	p := NewStripeParser()

	ev, err := p.Parse(context.Background(), []byte(`{"id":"evt_u","type":"customer.created","data":{"object":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventUnknown, ev.Type)
	assert.Equal(t, "customer.created", ev.RawType)

	_, err = p.Parse(context.Background(), []byte(`{"id":"evt_u","data":{}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = p.Parse(context.Background(), []byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestStripeMoney(t *testing.T) {
	assert.Equal(t, "0.99", stripeMoney(99, "usd").Value)
	assert.Equal(t, "1500", stripeMoney(1500, "krw").Value)
	assert.Nil(t, stripeMoney(100, ""))
}
