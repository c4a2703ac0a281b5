package service

import (
	"context"
	"testing"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/service/mocks"
	"reconciliation-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusProcessing, true},
		{models.OrderStatusProcessing, models.OrderStatusShipped, true},
		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusDelivered, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, canTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestUpdateFulfillmentStatus(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	svc := NewOrderService(s, 3)

	o := newOrder("PAY-1")
	o.Status = models.OrderStatusProcessing
	o.PaymentStatus = models.PaymentStatusPaid
	order := s.addOrder(o)

	updated, err := svc.UpdateFulfillmentStatus(ctx, order.ID, UpdateStatusRequest{Status: models.OrderStatusShipped, Actor: "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)

	got := s.order(order.ID)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
	require.Len(t, got.Metadata.Audit, 1)
	change := got.Metadata.Audit[0].StatusChange
	require.NotNil(t, change)
	assert.Equal(t, models.OrderStatusProcessing, change.From)
	assert.Equal(t, "ops@example.com", change.Actor)

	// Setting the current status again is a no-op
	again, err := svc.UpdateFulfillmentStatus(ctx, order.ID, UpdateStatusRequest{Status: models.OrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)
}

func TestUpdateFulfillmentStatusRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	svc := NewOrderService(s, 3)
	order := s.addOrder(newOrder("PAY-1"))

	_, err := svc.UpdateFulfillmentStatus(ctx, order.ID, UpdateStatusRequest{Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateFulfillmentStatus(ctx, order.ID, UpdateStatusRequest{Status: models.OrderStatusDelivered})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateFulfillmentStatus(ctx, "missing", UpdateStatusRequest{Status: models.OrderStatusProcessing})
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
}

func TestUpdateFulfillmentStatusRetriesOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderStore(ctrl)
	svc := NewOrderService(orders, 2)

	first := &models.Order{ID: "O1", Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPaid, Version: 4}
	second := &models.Order{ID: "O1", Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPaid, Version: 5}

	gomock.InOrder(
		orders.EXPECT().GetOrder(gomock.Any(), "O1").Return(first, nil),
		orders.EXPECT().ApplyTransition(gomock.Any(), "O1", int64(4), gomock.Any()).Return(store.ErrVersionConflict),
		orders.EXPECT().GetOrder(gomock.Any(), "O1").Return(second, nil),
		orders.EXPECT().ApplyTransition(gomock.Any(), "O1", int64(5), gomock.Any()).Return(nil),
	)

	updated, err := svc.UpdateFulfillmentStatus(context.Background(), "O1", UpdateStatusRequest{Status: models.OrderStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)
	assert.Equal(t, int64(6), updated.Version)
}

func TestFulfillmentUpdateKeepsConcurrentPaymentChange(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	svc := NewOrderService(s, 3)
	r := NewReconciler(s, s, 3)

	order := s.addOrder(newOrder("PAY-1"))
	_, err := r.Reconcile(ctx, captureCompleted("WH-1", "PAY-1", "CAP-1", "10.00"))
	require.NoError(t, err)

	updated, err := svc.UpdateFulfillmentStatus(ctx, order.ID, UpdateStatusRequest{Status: models.OrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, "CAP-1", s.order(order.ID).Metadata.Key(models.KeyCaptureID))
}
