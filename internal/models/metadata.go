package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/govalues/decimal"
)

// CorrelationKind names a provider-side identifier an order can be found by
type CorrelationKind string

// Correlation key kinds, in the priority order parsers emit them
const (
	KeyPaymentID     CorrelationKind = "paymentId"
	KeyCaptureID     CorrelationKind = "captureId"
	KeyTransactionID CorrelationKind = "transactionId"
	KeyOrderNumber   CorrelationKind = "orderNumber"
)

// CorrelationKey is a (kind, value) pair used to map an event to an order
type CorrelationKey struct {
	Kind  CorrelationKind `json:"kind" db:"kind"`
	Value string          `json:"value" db:"value"`
}

func (k CorrelationKey) String() string {
	return fmt.Sprintf("%s=%s", k.Kind, k.Value)
}

// TransactionID formats a provider-prefixed transaction id
func TransactionID(provider Provider, id string) string {
	return string(provider) + "_" + id
}

// Money is a decimal amount in a currency, kept as the provider's string form
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Decimal parses the amount
func (m Money) Decimal() (decimal.Decimal, error) {
	d, err := decimal.Parse(m.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", m.Value, err)
	}
	return d, nil
}

// Dispute is the buyer claim sub-record of an order
type Dispute struct {
	DisputeID             string        `json:"disputeId"`
	Reason                string        `json:"reason,omitempty"`
	Status                string        `json:"status,omitempty"`
	Amount                *Money        `json:"amount,omitempty"`
	SellerResponseDueDate *time.Time    `json:"sellerResponseDueDate,omitempty"`
	PriorPaymentStatus    PaymentStatus `json:"priorPaymentStatus,omitempty"`
	Outcome               string        `json:"outcome,omitempty"`
	OpenedAt              time.Time     `json:"openedAt"`
	ResolvedAt            *time.Time    `json:"resolvedAt,omitempty"`
}

// Open reports whether the dispute has not been resolved yet
func (d *Dispute) Open() bool {
	return d != nil && d.ResolvedAt == nil
}

// Address is a shipping address snapshot
type Address struct {
	Line1       string `json:"line1,omitempty"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// BuyerSnapshot captures the buyer identity reported at checkout completion
type BuyerSnapshot struct {
	PayerID      string   `json:"payerId,omitempty"`
	Email        string   `json:"email,omitempty"`
	Name         string   `json:"name,omitempty"`
	ShippingName string   `json:"shippingName,omitempty"`
	Shipping     *Address `json:"shipping,omitempty"`
}

// AuditKind tags the payload carried by an AuditEntry
type AuditKind string

// Audit entry kinds
const (
	AuditPaymentDetails     AuditKind = "paymentDetails"
	AuditPaymentError       AuditKind = "paymentError"
	AuditPaymentPending     AuditKind = "paymentPending"
	AuditRefundDetails      AuditKind = "refundDetails"
	AuditCheckoutProcessing AuditKind = "checkoutProcessing"
	AuditDispute            AuditKind = "dispute"
	AuditDisputeResolution  AuditKind = "disputeResolution"
	AuditStatusChange       AuditKind = "statusChange"
)

// PaymentDetails records a completed capture
type PaymentDetails struct {
	CaptureID     string `json:"captureId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Amount        *Money `json:"amount,omitempty"`
}

// PaymentError records a denied or failed capture
type PaymentError struct {
	CaptureID string `json:"captureId,omitempty"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RefundDetails records a refund and the running refunded total after it
type RefundDetails struct {
	RefundID      string `json:"refundId"`
	CaptureID     string `json:"captureId,omitempty"`
	Amount        *Money `json:"amount,omitempty"`
	TotalRefunded *Money `json:"totalRefunded,omitempty"`
	Full          bool   `json:"full"`
}

// DisputeResolution records how a dispute was closed
type DisputeResolution struct {
	DisputeID string `json:"disputeId"`
	Outcome   string `json:"outcome"`
	Favor     string `json:"favor"`
}

// StatusChange records a fulfillment status change made outside webhooks
type StatusChange struct {
	From  OrderStatus `json:"from"`
	To    OrderStatus `json:"to"`
	Actor string      `json:"actor,omitempty"`
}

// AuditEntry is one element of the append-only audit trail.
// Exactly one payload pointer matching Kind is set.
type AuditEntry struct {
	Kind       AuditKind       `json:"kind"`
	Provider   Provider        `json:"provider,omitempty"`
	EventID    string          `json:"eventId,omitempty"`
	EventType  EventType       `json:"eventType,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	RecordedAt time.Time       `json:"recordedAt"`
	Raw        json.RawMessage `json:"raw,omitempty"`

	PaymentDetails    *PaymentDetails    `json:"paymentDetails,omitempty"`
	PaymentError      *PaymentError      `json:"paymentError,omitempty"`
	RefundDetails     *RefundDetails     `json:"refundDetails,omitempty"`
	Dispute           *Dispute           `json:"dispute,omitempty"`
	DisputeResolution *DisputeResolution `json:"disputeResolution,omitempty"`
	StatusChange      *StatusChange      `json:"statusChange,omitempty"`
}

// Metadata is the typed, append-friendly document attached to an order
type Metadata struct {
	CorrelationKeys []CorrelationKey `json:"correlationKeys,omitempty"`
	CapturedAmount  *Money           `json:"capturedAmount,omitempty"`
	RefundedAmount  *Money           `json:"refundedAmount,omitempty"`
	RefundIDs       []string         `json:"refundIds,omitempty"`
	Dispute         *Dispute         `json:"dispute,omitempty"`
	Buyer           *BuyerSnapshot   `json:"buyer,omitempty"`
	Audit           []AuditEntry     `json:"audit,omitempty"`
}

// MetadataPatch is merged into Metadata; it never replaces it
type MetadataPatch struct {
	CorrelationKeys []CorrelationKey
	CapturedAmount  *Money
	RefundedAmount  *Money
	RefundID        string
	Dispute         *Dispute
	Buyer           *BuyerSnapshot
	Audit           []AuditEntry
}

// Empty reports whether the patch carries no change
func (p MetadataPatch) Empty() bool {
	return len(p.CorrelationKeys) == 0 && p.CapturedAmount == nil && p.RefundedAmount == nil &&
		p.RefundID == "" && p.Dispute == nil && p.Buyer == nil && len(p.Audit) == 0
}

// Key returns the first recorded value for kind
func (m Metadata) Key(kind CorrelationKind) string {
	for _, k := range m.CorrelationKeys {
		if k.Kind == kind {
			return k.Value
		}
	}
	return ""
}

// HasKey reports whether the exact key is recorded
func (m Metadata) HasKey(key CorrelationKey) bool {
	for _, k := range m.CorrelationKeys {
		if k == key {
			return true
		}
	}
	return false
}

// HasRefund reports whether the refund id was already counted
func (m Metadata) HasRefund(refundID string) bool {
	for _, id := range m.RefundIDs {
		if id == refundID {
			return true
		}
	}
	return false
}

// HasAudit reports whether an entry of kind was recorded for the event
func (m Metadata) HasAudit(kind AuditKind, eventID string) bool {
	for _, e := range m.Audit {
		if e.Kind == kind && e.EventID == eventID {
			return true
		}
	}
	return false
}

// HasEvent reports whether any audit entry came from the provider event
func (m Metadata) HasEvent(provider Provider, eventID string) bool {
	for _, e := range m.Audit {
		if e.EventID == eventID && e.Provider == provider {
			return true
		}
	}
	return false
}

// Merge applies the patch. Correlation keys, the captured amount and the buyer
// snapshot are only ever added; audit entries are appended.
func (m *Metadata) Merge(p MetadataPatch) {
	for _, k := range p.CorrelationKeys {
		if k.Value != "" && !m.HasKey(k) {
			m.CorrelationKeys = append(m.CorrelationKeys, k)
		}
	}
	if m.CapturedAmount == nil && p.CapturedAmount != nil {
		amount := *p.CapturedAmount
		m.CapturedAmount = &amount
	}
	if p.RefundedAmount != nil {
		amount := *p.RefundedAmount
		m.RefundedAmount = &amount
	}
	if p.RefundID != "" && !m.HasRefund(p.RefundID) {
		m.RefundIDs = append(m.RefundIDs, p.RefundID)
	}
	if p.Dispute != nil {
		d := *p.Dispute
		m.Dispute = &d
	}
	if m.Buyer == nil && p.Buyer != nil {
		b := *p.Buyer
		m.Buyer = &b
	}
	m.Audit = append(m.Audit, p.Audit...)
}

// Clone returns a copy that shares no slices with m
func (m Metadata) Clone() Metadata {
	out := m
	out.CorrelationKeys = append([]CorrelationKey(nil), m.CorrelationKeys...)
	out.RefundIDs = append([]string(nil), m.RefundIDs...)
	out.Audit = append([]AuditEntry(nil), m.Audit...)
	if m.Dispute != nil {
		d := *m.Dispute
		out.Dispute = &d
	}
	return out
}

// Value implements driver.Valuer for JSONB columns
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns
func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("metadata: unsupported scan type")
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// CorrelationKeys is a JSONB-backed list of correlation keys
type CorrelationKeys []CorrelationKey

// Value implements driver.Valuer
func (k CorrelationKeys) Value() (driver.Value, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]CorrelationKey(k))
}

// Scan implements sql.Scanner
func (k *CorrelationKeys) Scan(src interface{}) error {
	return scanJSON(src, (*[]CorrelationKey)(k))
}

// StringList is a JSONB-backed list of strings
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, (*[]string)(l))
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
}
