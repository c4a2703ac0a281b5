package models

import "time"

// Event types published on Kafka
const (
	EventTypeOrderNotification = "ORDER_NOTIFICATION"
	EventTypeReplayRequested   = "REPLAY_REQUESTED"
)

// NotificationKind is the customer-facing event an order notification is about
type NotificationKind string

// Notification kinds
const (
	NotifyPaymentReceived NotificationKind = "payment_received"
	NotifyPaymentFailed   NotificationKind = "payment_failed"
	NotifyPaymentPending  NotificationKind = "payment_pending"
	NotifyRefundIssued    NotificationKind = "refund_issued"
	NotifyDisputeOpened   NotificationKind = "dispute_opened"
	NotifyDisputeResolved NotificationKind = "dispute_resolved"
	NotifyOrderProcessing NotificationKind = "order_processing"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderNotificationEvent asks the notification service to contact the customer
type OrderNotificationEvent struct {
	BaseEvent
	OrderID string           `json:"order_id"`
	Kind    NotificationKind `json:"kind"`
}

// ReplayRequestedEvent asks the replay worker to re-reconcile an anomaly's stored delivery
type ReplayRequestedEvent struct {
	BaseEvent
	AnomalyID   string `json:"anomaly_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}
