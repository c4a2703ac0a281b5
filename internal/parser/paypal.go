package parser

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"reconciliation-service/internal/models"
)

var payPalEventTypes = map[string]models.EventType{
	"PAYMENT.CAPTURE.COMPLETED": models.EventCaptureCompleted,
	"PAYMENT.CAPTURE.DENIED":    models.EventCaptureDenied,
	"PAYMENT.CAPTURE.DECLINED":  models.EventCaptureDenied,
	"PAYMENT.CAPTURE.PENDING":   models.EventCapturePending,
	"PAYMENT.CAPTURE.REFUNDED":  models.EventCaptureRefunded,
	"CHECKOUT.ORDER.COMPLETED":  models.EventCheckoutCompleted,
	"CHECKOUT.ORDER.APPROVED":   models.EventCheckoutApproved,
	"CHECKOUT.ORDER.PROCESSED":  models.EventCheckoutProcessed,
	"CUSTOMER.DISPUTE.CREATED":  models.EventDisputeCreated,
	"CUSTOMER.DISPUTE.RESOLVED": models.EventDisputeResolved,
}

var payPalBuyerOutcomes = map[string]bool{
	"RESOLVED_BUYER_FAVOUR": true,
	"RESOLVED_WITH_PAYOUT":  true,
	"ACCEPTED":              true,
}

var payPalSellerOutcomes = map[string]bool{
	"RESOLVED_SELLER_FAVOUR": true,
	"CANCELED_BY_BUYER":      true,
	"DENIED":                 true,
}

type payPalEnvelope struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	CreateTime   string          `json:"create_time"`
	Resource     json.RawMessage `json:"resource"`
}

type payPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func (a *payPalAmount) money() *models.Money {
	if a == nil || a.Value == "" {
		return nil
	}
	return &models.Money{Value: a.Value, Currency: strings.ToUpper(a.CurrencyCode)}
}

type payPalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type payPalStatusDetails struct {
	Reason string `json:"reason"`
}

type payPalRelatedIDs struct {
	OrderID   string `json:"order_id"`
	CaptureID string `json:"capture_id"`
}

type payPalSupplementaryData struct {
	RelatedIDs payPalRelatedIDs `json:"related_ids"`
}

type payPalPayableBreakdown struct {
	TotalRefundedAmount *payPalAmount `json:"total_refunded_amount"`
}

// payPalCapture covers both capture and refund resources
type payPalCapture struct {
	ID                     string                   `json:"id"`
	Status                 string                   `json:"status"`
	Amount                 *payPalAmount            `json:"amount"`
	CustomID               string                   `json:"custom_id"`
	InvoiceID              string                   `json:"invoice_id"`
	StatusDetails          *payPalStatusDetails     `json:"status_details"`
	SupplementaryData      *payPalSupplementaryData `json:"supplementary_data"`
	Links                  []payPalLink             `json:"links"`
	SellerPayableBreakdown *payPalPayableBreakdown  `json:"seller_payable_breakdown"`
}

func (c *payPalCapture) relatedOrderID() string {
	if c.SupplementaryData == nil {
		return ""
	}
	return c.SupplementaryData.RelatedIDs.OrderID
}

// refundedCaptureID finds the capture a refund belongs to
func (c *payPalCapture) refundedCaptureID() string {
	if c.SupplementaryData != nil && c.SupplementaryData.RelatedIDs.CaptureID != "" {
		return c.SupplementaryData.RelatedIDs.CaptureID
	}
	for _, l := range c.Links {
		if l.Rel == "up" && strings.Contains(l.Href, "/captures/") {
			return l.Href[strings.LastIndex(l.Href, "/")+1:]
		}
	}
	return ""
}

type payPalName struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
	FullName  string `json:"full_name"`
}

type payPalAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	AdminArea2   string `json:"admin_area_2"`
	AdminArea1   string `json:"admin_area_1"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type payPalShipping struct {
	Name    *payPalName    `json:"name"`
	Address *payPalAddress `json:"address"`
}

type payPalPayments struct {
	Captures []payPalCapture `json:"captures"`
}

type payPalPurchaseUnit struct {
	ReferenceID string          `json:"reference_id"`
	CustomID    string          `json:"custom_id"`
	InvoiceID   string          `json:"invoice_id"`
	Amount      *payPalAmount   `json:"amount"`
	Shipping    *payPalShipping `json:"shipping"`
	Payments    *payPalPayments `json:"payments"`
}

type payPalPayer struct {
	PayerID      string      `json:"payer_id"`
	EmailAddress string      `json:"email_address"`
	Name         *payPalName `json:"name"`
}

type payPalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []payPalPurchaseUnit `json:"purchase_units"`
	Payer         *payPalPayer         `json:"payer"`
}

type payPalDisputedTransaction struct {
	SellerTransactionID string `json:"seller_transaction_id"`
	Custom              string `json:"custom"`
	InvoiceNumber       string `json:"invoice_number"`
}

type payPalDisputeOutcome struct {
	OutcomeCode string `json:"outcome_code"`
}

type payPalDispute struct {
	DisputeID             string                      `json:"dispute_id"`
	Reason                string                      `json:"reason"`
	Status                string                      `json:"status"`
	DisputeAmount         *payPalAmount               `json:"dispute_amount"`
	SellerResponseDueDate string                      `json:"seller_response_due_date"`
	DisputedTransactions  []payPalDisputedTransaction `json:"disputed_transactions"`
	DisputeOutcome        *payPalDisputeOutcome       `json:"dispute_outcome"`
}

// PayPalParser parses PayPal webhook events
type PayPalParser struct{}

// NewPayPalParser creates a new PayPal parser
func NewPayPalParser() *PayPalParser {
	return &PayPalParser{}
}

// Parse implements Parser
func (p *PayPalParser) Parse(_ context.Context, raw []byte) (models.PaymentEvent, error) {
	var env payPalEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.PaymentEvent{}, malformed("paypal envelope: %v", err)
	}
	if env.EventType == "" {
		return models.PaymentEvent{}, malformed("paypal envelope without event_type")
	}
	if env.ID == "" {
		return models.PaymentEvent{}, malformed("paypal envelope without id")
	}

	event := models.PaymentEvent{
		ID:         env.ID,
		RawType:    env.EventType,
		OccurredAt: parseTime(env.CreateTime),
		Raw:        env.Resource,
	}

	eventType, ok := payPalEventTypes[env.EventType]
	if !ok {
		event.Type = models.EventUnknown
		return event, nil
	}
	event.Type = eventType

	keys := newCandidates(models.ProviderPayPal)
	var err error
	switch eventType {
	case models.EventCaptureCompleted, models.EventCaptureDenied, models.EventCapturePending:
		err = p.parseCapture(&event, keys, env.Resource)
	case models.EventCaptureRefunded:
		err = p.parseRefund(&event, keys, env.Resource)
	case models.EventCheckoutCompleted, models.EventCheckoutApproved, models.EventCheckoutProcessed:
		err = p.parseOrder(&event, keys, env.Resource)
	case models.EventDisputeCreated, models.EventDisputeResolved:
		err = p.parseDispute(&event, keys, env.Resource)
	}
	if err != nil {
		return models.PaymentEvent{}, err
	}

	event.Candidates = keys.sorted()
	return event, nil
}

func (p *PayPalParser) parseCapture(event *models.PaymentEvent, keys *candidates, resource json.RawMessage) error {
	var c payPalCapture
	if err := json.Unmarshal(resource, &c); err != nil {
		return malformed("paypal capture resource: %v", err)
	}

	keys.paymentID(c.relatedOrderID()).capture(c.ID).orderNumber(c.CustomID, c.InvoiceID)
	event.Capture = &models.CaptureInfo{
		CaptureID: c.ID,
		Status:    c.Status,
		Amount:    c.Amount.money(),
	}
	if event.Type == models.EventCaptureDenied {
		event.Failure = &models.FailureInfo{Code: c.Status}
		if c.StatusDetails != nil {
			event.Failure.Reason = c.StatusDetails.Reason
		}
	}
	return nil
}

func (p *PayPalParser) parseRefund(event *models.PaymentEvent, keys *candidates, resource json.RawMessage) error {
	var r payPalCapture
	if err := json.Unmarshal(resource, &r); err != nil {
		return malformed("paypal refund resource: %v", err)
	}

	captureID := r.refundedCaptureID()
	keys.paymentID(r.relatedOrderID()).capture(captureID).orderNumber(r.CustomID, r.InvoiceID)

	event.Refund = &models.RefundInfo{
		RefundID:  r.ID,
		CaptureID: captureID,
		Amount:    r.Amount.money(),
	}
	if r.SellerPayableBreakdown != nil {
		event.Refund.TotalRefunded = r.SellerPayableBreakdown.TotalRefundedAmount.money()
	}
	return nil
}

func (p *PayPalParser) parseOrder(event *models.PaymentEvent, keys *candidates, resource json.RawMessage) error {
	var o payPalOrder
	if err := json.Unmarshal(resource, &o); err != nil {
		return malformed("paypal order resource: %v", err)
	}

	keys.paymentID(o.ID)
	buyer := &models.BuyerSnapshot{}
	if o.Payer != nil {
		buyer.PayerID = o.Payer.PayerID
		buyer.Email = o.Payer.EmailAddress
		if o.Payer.Name != nil {
			buyer.Name = strings.TrimSpace(o.Payer.Name.GivenName + " " + o.Payer.Name.Surname)
		}
	}

	if len(o.PurchaseUnits) > 0 {
		unit := o.PurchaseUnits[0]
		if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
			c := unit.Payments.Captures[0]
			keys.capture(c.ID)
			event.Capture = &models.CaptureInfo{CaptureID: c.ID, Status: c.Status, Amount: c.Amount.money()}
		}
		keys.orderNumber(unit.CustomID, unit.InvoiceID)
		if event.Capture == nil && unit.Amount != nil {
			event.Capture = &models.CaptureInfo{Status: o.Status, Amount: unit.Amount.money()}
		}
		if unit.Shipping != nil {
			if unit.Shipping.Name != nil {
				buyer.ShippingName = unit.Shipping.Name.FullName
			}
			if a := unit.Shipping.Address; a != nil {
				buyer.Shipping = &models.Address{
					Line1:       a.AddressLine1,
					Line2:       a.AddressLine2,
					City:        a.AdminArea2,
					State:       a.AdminArea1,
					PostalCode:  a.PostalCode,
					CountryCode: a.CountryCode,
				}
			}
		}
	}

	if *buyer != (models.BuyerSnapshot{}) {
		event.Buyer = buyer
	}
	return nil
}

func (p *PayPalParser) parseDispute(event *models.PaymentEvent, keys *candidates, resource json.RawMessage) error {
	var d payPalDispute
	if err := json.Unmarshal(resource, &d); err != nil {
		return malformed("paypal dispute resource: %v", err)
	}
	if d.DisputeID == "" {
		return malformed("paypal dispute without dispute_id")
	}

	for _, tx := range d.DisputedTransactions {
		keys.capture(tx.SellerTransactionID)
	}
	for _, tx := range d.DisputedTransactions {
		keys.orderNumber(tx.Custom, tx.InvoiceNumber)
	}

	info := &models.DisputeInfo{
		DisputeID: d.DisputeID,
		Reason:    d.Reason,
		Status:    d.Status,
		Amount:    d.DisputeAmount.money(),
		Favor:     models.FavorUnknown,
	}
	if due := parseTime(d.SellerResponseDueDate); !due.IsZero() {
		info.SellerResponseDueDate = &due
	}
	if d.DisputeOutcome != nil {
		info.Outcome = d.DisputeOutcome.OutcomeCode
		switch {
		case payPalBuyerOutcomes[info.Outcome]:
			info.Favor = models.FavorBuyer
		case payPalSellerOutcomes[info.Outcome]:
			info.Favor = models.FavorSeller
		}
	}
	event.Dispute = info
	return nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
