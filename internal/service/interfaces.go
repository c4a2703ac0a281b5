package service

import (
	"context"
	"errors"
	"time"

	"reconciliation-service/internal/models"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrOrderNotFound    = errors.New("no order matches the event")
	ErrAmbiguousOrder   = errors.New("event matches more than one order")
	ErrRetriesExhausted = errors.New("transition retries exhausted")
	ErrInvalidStatus    = errors.New("invalid status change")
)

// OrderStore reads orders and commits transitions with compare-and-swap on Version
type OrderStore interface {
	FindByCorrelationKey(ctx context.Context, key models.CorrelationKey) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ApplyTransition(ctx context.Context, orderID string, expectedVersion int64, patch models.TransitionPatch) error
	IsEventProcessed(ctx context.Context, provider models.Provider, eventID string) (bool, error)
}

// AnomalyStore keeps events escalated for manual reconciliation
type AnomalyStore interface {
	RecordAnomaly(ctx context.Context, a *models.Anomaly) error
	GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error)
	ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error)
	ResolveAnomaly(ctx context.Context, id string) error
}

// NotificationSender tells downstream systems about a committed order change
type NotificationSender interface {
	Notify(ctx context.Context, orderID string, kind models.NotificationKind) error
}

// DeliveryCache remembers deliveries that were fully handled, so redeliveries
// can be acknowledged without touching the store
type DeliveryCache interface {
	SeenDelivery(ctx context.Context, provider models.Provider, eventID string) (bool, error)
	MarkDelivery(ctx context.Context, provider models.Provider, eventID string, ttl time.Duration) error
}

// ReplayRequester queues an anomaly for replay
type ReplayRequester interface {
	RequestReplay(ctx context.Context, anomalyID, requestedBy string) error
}
