package worker

import (
	"context"
	"errors"
	"time"

	"reconciliation-service/internal/broker"
	"reconciliation-service/internal/models"
	"reconciliation-service/internal/redisclient"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/store"
	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

// Replayer re-runs an escalated event
type Replayer interface {
	Replay(ctx context.Context, anomalyID string) (*service.Result, error)
}

// Locker keeps two instances from replaying the same anomaly at once
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (*redisclient.Lock, error)
	ReleaseLock(ctx context.Context, lock *redisclient.Lock) error
}

// ReplayWorker consumes replay requests and reconciles the stored deliveries again
type ReplayWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	replayer     Replayer
	locker       Locker
	lockTTL      time.Duration
	logger       *zap.Logger
}

// NewReplayWorker creates a new replay worker. locker may be nil.
func NewReplayWorker(consumer *broker.Consumer, replayer Replayer, locker Locker) *ReplayWorker {
	w := &ReplayWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		replayer:     replayer,
		locker:       locker,
		lockTTL:      time.Minute,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnReplayRequested(w.HandleReplayRequested)
	return w
}

// Start starts the worker
func (w *ReplayWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting replay worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReplayWorker) Stop() error {
	w.logger.Info("Stopping replay worker")
	return w.consumer.Close()
}

// HandleReplayRequested replays one anomaly. Requests that can never succeed
// are dropped; transient failures are returned so the message is not committed.
func (w *ReplayWorker) HandleReplayRequested(ctx context.Context, event *models.ReplayRequestedEvent) error {
	logger := w.logger.With(
		zap.String("anomaly_id", event.AnomalyID),
		zap.String("requested_by", event.RequestedBy))

	if w.locker != nil {
		lock, err := w.locker.AcquireLock(ctx, "replay:"+event.AnomalyID, w.lockTTL)
		if err != nil {
			logger.Warn("Replay lock unavailable, continuing without it", zap.Error(err))
		} else if lock == nil {
			logger.Info("Replay already running elsewhere")
			return nil
		} else {
			defer func() {
				if err := w.locker.ReleaseLock(context.WithoutCancel(ctx), lock); err != nil {
					logger.Warn("Failed to release replay lock", zap.Error(err))
				}
			}()
		}
	}

	result, err := w.replayer.Replay(ctx, event.AnomalyID)
	switch {
	case errors.Is(err, store.ErrAnomalyNotFound), errors.Is(err, service.ErrNoReplayBody):
		logger.Warn("Dropping replay request", zap.Error(err))
		return nil
	case err != nil:
		return err
	}

	logger.Info("Replay finished",
		zap.String("outcome", string(result.Outcome)),
		zap.String("order_id", result.OrderID),
		zap.String("reason", result.Reason))
	return nil
}
