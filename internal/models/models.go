package models

import (
	"time"
)

// OrderStatus is the fulfillment lifecycle of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment lifecycle of an order, independent of OrderStatus
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusDisputed          PaymentStatus = "DISPUTED"
)

// Settled reports whether the payment has been captured at some point.
// Events describing earlier stages of the payment are stale once an order is settled.
func (s PaymentStatus) Settled() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPartiallyRefunded,
		PaymentStatusRefunded, PaymentStatusDisputed:
		return true
	}
	return false
}

// Provider identifies an external payment provider
type Provider string

// Supported providers
const (
	ProviderPayPal      Provider = "paypal"
	ProviderStripe      Provider = "stripe"
	ProviderMercadoPago Provider = "mercadopago"
)

// Order represents a customer order as seen by the reconciliation engine.
// Orders are created by the checkout flow; the engine only reads and patches them.
type Order struct {
	ID            string        `db:"id" json:"id"`
	OrderNumber   string        `db:"order_number" json:"order_number"`
	Status        OrderStatus   `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	Metadata      Metadata      `db:"metadata" json:"metadata"`
	Version       int64         `db:"version" json:"version"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// TransitionPatch is the change set committed by OrderStore.ApplyTransition.
// Empty status fields leave the current value untouched.
type TransitionPatch struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Metadata      MetadataPatch
	Provider      Provider
	EventID       string
	EventType     EventType
}

// Apply returns a copy of the order with the patch applied
func (p TransitionPatch) Apply(order Order) Order {
	next := order
	if p.Status != "" {
		next.Status = p.Status
	}
	if p.PaymentStatus != "" {
		next.PaymentStatus = p.PaymentStatus
	}
	next.Metadata = order.Metadata.Clone()
	next.Metadata.Merge(p.Metadata)
	return next
}

// ProcessedEvent marks a provider event whose transition has been committed
type ProcessedEvent struct {
	Provider    Provider  `db:"provider"`
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	OrderID     string    `db:"order_id"`
	ProcessedAt time.Time `db:"processed_at"`
}
