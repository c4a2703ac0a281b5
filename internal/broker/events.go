package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationPublisher tells downstream consumers that an order's payment changed
type NotificationPublisher struct {
	producer *Producer
}

// NewNotificationPublisher creates a new notification publisher
func NewNotificationPublisher(producer *Producer) *NotificationPublisher {
	return &NotificationPublisher{producer: producer}
}

// Notify publishes an OrderNotification event keyed by order
func (np *NotificationPublisher) Notify(ctx context.Context, orderID string, kind models.NotificationKind) error {
	event := &models.OrderNotificationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderNotification,
			Timestamp: time.Now().UTC(),
		},
		OrderID: orderID,
		Kind:    kind,
	}
	return np.producer.PublishEvent(ctx, "order-"+orderID, event)
}

// ReplayPublisher queues anomaly replays for the replay worker
type ReplayPublisher struct {
	producer *Producer
}

// NewReplayPublisher creates a new replay publisher
func NewReplayPublisher(producer *Producer) *ReplayPublisher {
	return &ReplayPublisher{producer: producer}
}

// RequestReplay publishes a ReplayRequested event keyed by anomaly
func (rp *ReplayPublisher) RequestReplay(ctx context.Context, anomalyID, requestedBy string) error {
	event := &models.ReplayRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReplayRequested,
			Timestamp: time.Now().UTC(),
		},
		AnomalyID:   anomalyID,
		RequestedBy: requestedBy,
	}
	return rp.producer.PublishEvent(ctx, "anomaly-"+anomalyID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onReplayRequested func(context.Context, *models.ReplayRequestedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnReplayRequested registers a handler for ReplayRequested events
func (eh *EventHandler) OnReplayRequested(handler func(context.Context, *models.ReplayRequestedEvent) error) {
	eh.onReplayRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeReplayRequested:
		if eh.onReplayRequested != nil {
			var event models.ReplayRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReplayRequested event: %w", err)
			}
			return eh.onReplayRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
