package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/store"
	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

// fulfillmentTransitions lists the dashboard status changes allowed from each status
var fulfillmentTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

// OrderService handles operator changes to orders. Status writes go through
// the same compare-and-swap as webhook transitions.
type OrderService struct {
	store       OrderStore
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, maxAttempts int) *OrderService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderService{
		store:       store,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      util.GetLogger(),
	}
}

// UpdateStatusRequest represents a dashboard fulfillment status change
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Actor  string             `json:"actor,omitempty"`
}

// GetOrder retrieves an order
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.store.GetOrder(ctx, orderID)
}

// UpdateFulfillmentStatus moves an order along its fulfillment lifecycle
func (s *OrderService) UpdateFulfillmentStatus(ctx context.Context, orderID string, req UpdateStatusRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateFulfillmentStatus")
	defer span.End()

	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, req.Status)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}

		if order.Status == req.Status {
			return order, nil
		}
		if !canTransition(order.Status, req.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatus, order.Status, req.Status)
		}

		now := s.now()
		patch := models.TransitionPatch{
			Status: req.Status,
			Metadata: models.MetadataPatch{
				Audit: []models.AuditEntry{{
					Kind:       models.AuditStatusChange,
					OccurredAt: now,
					RecordedAt: now,
					StatusChange: &models.StatusChange{
						From:  order.Status,
						To:    req.Status,
						Actor: req.Actor,
					},
				}},
			},
		}

		err = s.store.ApplyTransition(ctx, order.ID, order.Version, patch)
		if errors.Is(err, store.ErrVersionConflict) {
			util.StoreConflictRetriesTotal.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}

		updated := patch.Apply(*order)
		updated.Version = order.Version + 1

		s.logger.Info("Order status updated",
			zap.String("order_id", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(req.Status)),
			zap.String("actor", req.Actor))
		return &updated, nil
	}

	return nil, fmt.Errorf("%w: order %s after %d attempts", ErrRetriesExhausted, orderID, s.maxAttempts)
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range fulfillmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
