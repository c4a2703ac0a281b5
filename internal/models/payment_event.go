package models

import (
	"encoding/json"
	"time"
)

// EventType is the provider-agnostic type of a payment event
type EventType string

// Normalized event types
const (
	EventCaptureCompleted  EventType = "CAPTURE_COMPLETED"
	EventCaptureDenied     EventType = "CAPTURE_DENIED"
	EventCapturePending    EventType = "CAPTURE_PENDING"
	EventCaptureRefunded   EventType = "CAPTURE_REFUNDED"
	EventCheckoutCompleted EventType = "CHECKOUT_COMPLETED"
	EventCheckoutApproved  EventType = "CHECKOUT_APPROVED"
	EventCheckoutProcessed EventType = "CHECKOUT_PROCESSED"
	EventDisputeCreated    EventType = "DISPUTE_CREATED"
	EventDisputeResolved   EventType = "DISPUTE_RESOLVED"
	EventUnknown           EventType = "UNKNOWN"
)

// ImpliesExistingOrder reports whether an event of this type can only be
// emitted for an order our checkout flow already created
func (t EventType) ImpliesExistingOrder() bool {
	switch t {
	case EventCaptureCompleted, EventCaptureRefunded, EventCheckoutCompleted,
		EventDisputeCreated, EventDisputeResolved:
		return true
	}
	return false
}

// DisputeFavor is the party a dispute was resolved for
type DisputeFavor string

// Dispute outcomes
const (
	FavorBuyer   DisputeFavor = "buyer"
	FavorSeller  DisputeFavor = "seller"
	FavorUnknown DisputeFavor = "unknown"
)

// CaptureInfo describes the capture (or charge) an event is about
type CaptureInfo struct {
	CaptureID string
	Status    string
	Amount    *Money
}

// RefundInfo describes a refund. TotalRefunded is set when the provider reports a running total.
type RefundInfo struct {
	RefundID      string
	CaptureID     string
	Amount        *Money
	TotalRefunded *Money
}

// DisputeInfo describes a dispute event
type DisputeInfo struct {
	DisputeID             string
	Reason                string
	Status                string
	Amount                *Money
	SellerResponseDueDate *time.Time
	Outcome               string
	Favor                 DisputeFavor
}

// FailureInfo describes why a capture was denied
type FailureInfo struct {
	Code   string
	Reason string
}

// PaymentEvent is one webhook delivery, normalized. It is never persisted on its own.
type PaymentEvent struct {
	ID         string
	Provider   Provider
	Type       EventType
	RawType    string
	Candidates []CorrelationKey
	OccurredAt time.Time
	// Raw is the provider resource, kept verbatim in audit entries
	Raw json.RawMessage
	// Body is the full delivery body, kept for replay
	Body json.RawMessage

	Capture *CaptureInfo
	Refund  *RefundInfo
	Dispute *DisputeInfo
	Failure *FailureInfo
	Buyer   *BuyerSnapshot
}

// TypeName renders the type, including the raw provider type for unknown events
func (e PaymentEvent) TypeName() string {
	if e.Type == EventUnknown {
		return "UNKNOWN(" + e.RawType + ")"
	}
	return string(e.Type)
}

// CandidateStrings renders the correlation candidates for logging
func (e PaymentEvent) CandidateStrings() []string {
	out := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		out = append(out, c.String())
	}
	return out
}
