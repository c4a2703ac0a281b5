package parser

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"reconciliation-service/internal/models"

	"github.com/govalues/decimal"
)

var stripeEventTypes = map[string]models.EventType{
	"checkout.session.async_payment_succeeded": models.EventCheckoutCompleted,
	"checkout.session.async_payment_failed":    models.EventCaptureDenied,
	"payment_intent.succeeded":                 models.EventCaptureCompleted,
	"payment_intent.processing":                models.EventCapturePending,
	"payment_intent.payment_failed":            models.EventCaptureDenied,
	"charge.refunded":                          models.EventCaptureRefunded,
	"charge.dispute.created":                   models.EventDisputeCreated,
	"charge.dispute.closed":                    models.EventDisputeResolved,
}

// Currencies Stripe bills in whole units
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

// stripeRef is an id field that may be expanded into an object
type stripeRef string

func (r *stripeRef) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = stripeRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = stripeRef(obj.ID)
	return nil
}

type stripeAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a *stripeAddress) address() *models.Address {
	if a == nil {
		return nil
	}
	return &models.Address{
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: a.Country,
	}
}

type stripeCustomerDetails struct {
	Email   string         `json:"email"`
	Name    string         `json:"name"`
	Address *stripeAddress `json:"address"`
}

type stripeShippingDetails struct {
	Name    string         `json:"name"`
	Address *stripeAddress `json:"address"`
}

type stripeSession struct {
	ID                string                 `json:"id"`
	PaymentIntent     stripeRef              `json:"payment_intent"`
	PaymentStatus     string                 `json:"payment_status"`
	AmountTotal       int64                  `json:"amount_total"`
	Currency          string                 `json:"currency"`
	ClientReferenceID string                 `json:"client_reference_id"`
	Customer          stripeRef              `json:"customer"`
	Metadata          map[string]string      `json:"metadata"`
	CustomerDetails   *stripeCustomerDetails `json:"customer_details"`
	ShippingDetails   *stripeShippingDetails `json:"shipping_details"`
}

type stripePaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stripePaymentIntent struct {
	ID               string              `json:"id"`
	Status           string              `json:"status"`
	Amount           int64               `json:"amount"`
	AmountReceived   int64               `json:"amount_received"`
	Currency         string              `json:"currency"`
	LatestCharge     stripeRef           `json:"latest_charge"`
	Metadata         map[string]string   `json:"metadata"`
	LastPaymentError *stripePaymentError `json:"last_payment_error"`
}

type stripeRefund struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Created  int64  `json:"created"`
}

type stripeRefundList struct {
	Data []stripeRefund `json:"data"`
}

type stripeCharge struct {
	ID             string            `json:"id"`
	PaymentIntent  stripeRef         `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	Refunds        *stripeRefundList `json:"refunds"`
}

type stripeEvidenceDetails struct {
	DueBy int64 `json:"due_by"`
}

type stripeDispute struct {
	ID              string                 `json:"id"`
	Charge          stripeRef              `json:"charge"`
	PaymentIntent   stripeRef              `json:"payment_intent"`
	Amount          int64                  `json:"amount"`
	Currency        string                 `json:"currency"`
	Reason          string                 `json:"reason"`
	Status          string                 `json:"status"`
	Metadata        map[string]string      `json:"metadata"`
	EvidenceDetails *stripeEvidenceDetails `json:"evidence_details"`
}

// StripeParser parses Stripe webhook events
type StripeParser struct{}

// NewStripeParser creates a new Stripe parser
func NewStripeParser() *StripeParser {
	return &StripeParser{}
}

// Parse implements Parser
func (p *StripeParser) Parse(_ context.Context, raw []byte) (models.PaymentEvent, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.PaymentEvent{}, malformed("stripe envelope: %v", err)
	}
	if env.Type == "" {
		return models.PaymentEvent{}, malformed("stripe envelope without type")
	}
	if env.ID == "" {
		return models.PaymentEvent{}, malformed("stripe envelope without id")
	}

	event := models.PaymentEvent{
		ID:      env.ID,
		RawType: env.Type,
		Raw:     env.Data.Object,
	}
	if env.Created > 0 {
		event.OccurredAt = time.Unix(env.Created, 0).UTC()
	}

	keys := newCandidates(models.ProviderStripe)
	var err error
	switch {
	case env.Type == "checkout.session.completed":
		err = p.parseSession(&event, keys, env.Data.Object, true)
	case strings.HasPrefix(env.Type, "checkout.session.") && stripeEventTypes[env.Type] != "":
		err = p.parseSession(&event, keys, env.Data.Object, false)
	case strings.HasPrefix(env.Type, "payment_intent.") && stripeEventTypes[env.Type] != "":
		err = p.parsePaymentIntent(&event, keys, env.Data.Object)
	case env.Type == "charge.refunded":
		err = p.parseCharge(&event, keys, env.Data.Object)
	case strings.HasPrefix(env.Type, "charge.dispute.") && stripeEventTypes[env.Type] != "":
		err = p.parseDispute(&event, keys, env.Data.Object)
	default:
		event.Type = models.EventUnknown
		return event, nil
	}
	if err != nil {
		return models.PaymentEvent{}, err
	}

	event.Candidates = keys.sorted()
	return event, nil
}

// parseSession handles checkout.session events. A completed session is only a
// payment once payment_status is paid; otherwise an async method is still settling.
func (p *StripeParser) parseSession(event *models.PaymentEvent, keys *candidates, object json.RawMessage, completed bool) error {
	var s stripeSession
	if err := json.Unmarshal(object, &s); err != nil {
		return malformed("stripe checkout session: %v", err)
	}

	if completed {
		if s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required" {
			event.Type = models.EventCheckoutCompleted
		} else {
			event.Type = models.EventCheckoutProcessed
		}
	} else {
		event.Type = stripeEventTypes[event.RawType]
	}

	keys.paymentID(s.ID).paymentID(string(s.PaymentIntent)).
		orderNumber(s.ClientReferenceID, s.Metadata["order_number"])

	event.Capture = &models.CaptureInfo{
		Status: s.PaymentStatus,
		Amount: stripeMoney(s.AmountTotal, s.Currency),
	}
	if event.Type == models.EventCaptureDenied {
		event.Failure = &models.FailureInfo{Code: "async_payment_failed", Reason: s.PaymentStatus}
	}

	buyer := &models.BuyerSnapshot{PayerID: string(s.Customer)}
	if s.CustomerDetails != nil {
		buyer.Email = s.CustomerDetails.Email
		buyer.Name = s.CustomerDetails.Name
		buyer.Shipping = s.CustomerDetails.Address.address()
	}
	if s.ShippingDetails != nil {
		buyer.ShippingName = s.ShippingDetails.Name
		if addr := s.ShippingDetails.Address.address(); addr != nil {
			buyer.Shipping = addr
		}
	}
	if buyer.PayerID != "" || buyer.Email != "" || buyer.Name != "" || buyer.Shipping != nil {
		event.Buyer = buyer
	}
	return nil
}

func (p *StripeParser) parsePaymentIntent(event *models.PaymentEvent, keys *candidates, object json.RawMessage) error {
	var pi stripePaymentIntent
	if err := json.Unmarshal(object, &pi); err != nil {
		return malformed("stripe payment intent: %v", err)
	}
	event.Type = stripeEventTypes[event.RawType]

	charge := string(pi.LatestCharge)
	keys.paymentID(pi.ID).capture(charge).orderNumber(pi.Metadata["order_number"])

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	event.Capture = &models.CaptureInfo{
		CaptureID: charge,
		Status:    pi.Status,
		Amount:    stripeMoney(amount, pi.Currency),
	}
	if event.Type == models.EventCaptureDenied {
		event.Failure = &models.FailureInfo{Code: pi.Status}
		if pi.LastPaymentError != nil {
			event.Failure.Code = pi.LastPaymentError.Code
			event.Failure.Reason = pi.LastPaymentError.Message
		}
	}
	return nil
}

// parseCharge handles charge.refunded. Stripe lists refunds newest first; when the
// list is not included the refund is identified by the cumulative amount.
func (p *StripeParser) parseCharge(event *models.PaymentEvent, keys *candidates, object json.RawMessage) error {
	var ch stripeCharge
	if err := json.Unmarshal(object, &ch); err != nil {
		return malformed("stripe charge: %v", err)
	}
	event.Type = models.EventCaptureRefunded

	keys.paymentID(string(ch.PaymentIntent)).capture(ch.ID).orderNumber(ch.Metadata["order_number"])

	info := &models.RefundInfo{
		RefundID:      ch.ID + ":" + strconv.FormatInt(ch.AmountRefunded, 10),
		CaptureID:     ch.ID,
		TotalRefunded: stripeMoney(ch.AmountRefunded, ch.Currency),
	}
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		latest := ch.Refunds.Data[0]
		info.RefundID = latest.ID
		info.Amount = stripeMoney(latest.Amount, ch.Currency)
	}
	event.Refund = info
	event.Capture = &models.CaptureInfo{CaptureID: ch.ID, Amount: stripeMoney(ch.Amount, ch.Currency)}
	return nil
}

func (p *StripeParser) parseDispute(event *models.PaymentEvent, keys *candidates, object json.RawMessage) error {
	var d stripeDispute
	if err := json.Unmarshal(object, &d); err != nil {
		return malformed("stripe dispute: %v", err)
	}
	if d.ID == "" {
		return malformed("stripe dispute without id")
	}
	event.Type = stripeEventTypes[event.RawType]

	keys.paymentID(string(d.PaymentIntent)).capture(string(d.Charge)).orderNumber(d.Metadata["order_number"])

	info := &models.DisputeInfo{
		DisputeID: d.ID,
		Reason:    d.Reason,
		Status:    d.Status,
		Amount:    stripeMoney(d.Amount, d.Currency),
		Favor:     models.FavorUnknown,
	}
	if d.EvidenceDetails != nil && d.EvidenceDetails.DueBy > 0 {
		due := time.Unix(d.EvidenceDetails.DueBy, 0).UTC()
		info.SellerResponseDueDate = &due
	}
	if event.Type == models.EventDisputeResolved {
		info.Outcome = d.Status
		switch d.Status {
		case "won", "warning_closed":
			info.Favor = models.FavorSeller
		case "lost":
			info.Favor = models.FavorBuyer
		}
	}
	event.Dispute = info
	return nil
}

// stripeMoney converts a minor-unit amount using the currency's exponent
func stripeMoney(amount int64, currency string) *models.Money {
	if currency == "" {
		return nil
	}
	currency = strings.ToUpper(currency)
	scale := 2
	if zeroDecimalCurrencies[currency] {
		scale = 0
	}
	d, err := decimal.New(amount, scale)
	if err != nil {
		return nil
	}
	return &models.Money{Value: d.String(), Currency: currency}
}
