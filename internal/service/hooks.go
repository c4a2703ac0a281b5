package service

import (
	"context"
	"sync"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

// PostCommitHook runs after a transition has been committed. Hooks cannot fail
// the delivery: the order change is already durable.
type PostCommitHook interface {
	AfterCommit(ctx context.Context, before, after models.Order, ev models.PaymentEvent, t Transition)
}

// MetricsHook counts committed payment status changes
type MetricsHook struct{}

// NewMetricsHook creates a new metrics hook
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

// AfterCommit implements PostCommitHook
func (h *MetricsHook) AfterCommit(_ context.Context, before, after models.Order, _ models.PaymentEvent, _ Transition) {
	if before.PaymentStatus != after.PaymentStatus {
		util.PaymentTransitionsTotal.WithLabelValues(string(before.PaymentStatus), string(after.PaymentStatus)).Inc()
	}
}

// NotificationHook hands committed changes to the NotificationSender in the background
type NotificationHook struct {
	sender  NotificationSender
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewNotificationHook creates a notification hook; each send gets its own timeout
func NewNotificationHook(sender NotificationSender, timeout time.Duration) *NotificationHook {
	return &NotificationHook{
		sender:  sender,
		timeout: timeout,
		logger:  util.GetLogger(),
	}
}

// AfterCommit implements PostCommitHook
func (h *NotificationHook) AfterCommit(ctx context.Context, _, after models.Order, ev models.PaymentEvent, t Transition) {
	if t.Notify == "" || h.sender == nil {
		return
	}

	// Detached from the request: the provider may hang up once we answer
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				util.NotificationsFailedTotal.Inc()
				h.logger.Error("Notification sender panicked",
					zap.String("order_id", after.ID),
					zap.Any("panic", r))
			}
		}()

		if err := h.sender.Notify(sendCtx, after.ID, t.Notify); err != nil {
			util.NotificationsFailedTotal.Inc()
			h.logger.Error("Failed to send order notification",
				zap.String("order_id", after.ID),
				zap.String("kind", string(t.Notify)),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			return
		}
		util.NotificationsSentTotal.Inc()
	}()
}

// Wait blocks until in-flight notifications finish
func (h *NotificationHook) Wait() {
	h.wg.Wait()
}
