package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reconciliation-service/internal/models"

	"github.com/govalues/decimal"
)

// ErrLookupFailed marks a provider API failure while resolving a notification.
// The delivery should be retried, so it maps to a transient error.
var ErrLookupFailed = errors.New("provider payment lookup failed")

// MercadoPagoPayment is the payment state needed to reconcile a notification
type MercadoPagoPayment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Amount            string
	AmountRefunded    string
	Currency          string
	Raw               json.RawMessage
}

// PaymentLookup fetches a MercadoPago payment by id
type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*MercadoPagoPayment, error)
}

type mercadoPagoData struct {
	ID json.RawMessage `json:"id"`
}

type mercadoPagoNotification struct {
	ID          json.RawMessage `json:"id"`
	Type        string          `json:"type"`
	Action      string          `json:"action"`
	DateCreated string          `json:"date_created"`
	Data        mercadoPagoData `json:"data"`
}

// MercadoPagoParser resolves MercadoPago notifications against the payments API.
// Notifications only carry the payment id.
type MercadoPagoParser struct {
	lookup PaymentLookup
}

// NewMercadoPagoParser creates a new MercadoPago parser
func NewMercadoPagoParser(lookup PaymentLookup) *MercadoPagoParser {
	return &MercadoPagoParser{lookup: lookup}
}

// Parse implements Parser
func (p *MercadoPagoParser) Parse(ctx context.Context, raw []byte) (models.PaymentEvent, error) {
	var n mercadoPagoNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return models.PaymentEvent{}, malformed("mercadopago notification: %v", err)
	}
	if n.Type == "" {
		return models.PaymentEvent{}, malformed("mercadopago notification without type")
	}

	notificationID := rawID(n.ID)
	paymentID := rawID(n.Data.ID)
	if notificationID == "" {
		return models.PaymentEvent{}, malformed("mercadopago notification without id")
	}

	rawType := n.Type
	if n.Action != "" {
		rawType = n.Action
	}
	event := models.PaymentEvent{
		ID:         notificationID,
		RawType:    rawType,
		OccurredAt: parseTime(n.DateCreated),
	}

	if n.Type != "payment" {
		event.Type = models.EventUnknown
		return event, nil
	}
	if paymentID == "" {
		return models.PaymentEvent{}, malformed("mercadopago payment notification without data.id")
	}

	payment, err := p.lookup.GetPayment(ctx, paymentID)
	if err != nil {
		return models.PaymentEvent{}, fmt.Errorf("%w: payment %s: %v", ErrLookupFailed, paymentID, err)
	}

	event.Raw = payment.Raw
	event.RawType = rawType + ":" + payment.Status
	event.Type = mercadoPagoEventType(payment)
	if event.Type == models.EventUnknown {
		return event, nil
	}

	keys := newCandidates(models.ProviderMercadoPago)
	keys.capture(payment.ID).orderNumber(payment.ExternalReference)
	event.Candidates = keys.sorted()

	amount := mercadoPagoMoney(payment.Amount, payment.Currency)
	event.Capture = &models.CaptureInfo{
		CaptureID: payment.ID,
		Status:    payment.Status,
		Amount:    amount,
	}

	switch event.Type {
	case models.EventCaptureDenied:
		event.Failure = &models.FailureInfo{Code: payment.Status, Reason: payment.StatusDetail}
	case models.EventCaptureRefunded:
		refunded := mercadoPagoMoney(payment.AmountRefunded, payment.Currency)
		if refunded == nil {
			refunded = amount
		}
		// Only the cumulative refunded amount is known
		event.Refund = &models.RefundInfo{
			RefundID:      payment.ID + ":" + refunded.Value,
			CaptureID:     payment.ID,
			TotalRefunded: refunded,
		}
	case models.EventDisputeCreated:
		event.Dispute = &models.DisputeInfo{
			DisputeID: "mp_" + payment.ID,
			Reason:    payment.StatusDetail,
			Status:    payment.Status,
			Amount:    amount,
			Favor:     models.FavorUnknown,
		}
	}
	return event, nil
}

// mercadoPagoEventType maps a payment status. An approved payment with a refunded
// amount is a partial refund.
func mercadoPagoEventType(payment *MercadoPagoPayment) models.EventType {
	switch payment.Status {
	case "approved":
		if hasAmount(payment.AmountRefunded) {
			return models.EventCaptureRefunded
		}
		return models.EventCaptureCompleted
	case "pending", "in_process", "authorized":
		return models.EventCapturePending
	case "rejected", "cancelled":
		return models.EventCaptureDenied
	case "refunded":
		return models.EventCaptureRefunded
	case "charged_back", "in_mediation":
		return models.EventDisputeCreated
	}
	return models.EventUnknown
}

func hasAmount(value string) bool {
	if value == "" {
		return false
	}
	d, err := decimal.Parse(value)
	return err == nil && d.IsPos()
}

func mercadoPagoMoney(value, currency string) *models.Money {
	if !hasAmount(value) {
		return nil
	}
	return &models.Money{Value: value, Currency: strings.ToUpper(currency)}
}

// rawID accepts numeric and string ids
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
