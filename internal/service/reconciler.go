package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/store"
	"reconciliation-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Outcome summarizes how an event was handled
type Outcome string

// Reconcile outcomes. All of them are acknowledged to the provider.
const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeConflict  Outcome = "conflict"
	OutcomeIgnored   Outcome = "ignored"
)

// Final reports whether replaying the event again could change anything
func (o Outcome) Final() bool {
	switch o {
	case OutcomeApplied, OutcomeNoop, OutcomeDuplicate, OutcomeIgnored:
		return true
	}
	return false
}

// Result is the outcome of reconciling one event
type Result struct {
	Outcome   Outcome
	OrderID   string
	Reason    string
	AnomalyID string
	Order     *models.Order
}

// Reconciler applies payment events to orders: locate, decide, compare-and-swap,
// and on a lost race re-read and decide again
type Reconciler struct {
	orders      OrderStore
	anomalies   AnomalyStore
	locator     *OrderLocator
	hooks       []PostCommitHook
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(orders OrderStore, anomalies AnomalyStore, maxAttempts int, hooks ...PostCommitHook) *Reconciler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Reconciler{
		orders:      orders,
		anomalies:   anomalies,
		locator:     NewOrderLocator(orders),
		hooks:       hooks,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      util.GetLogger(),
	}
}

// Reconcile applies ev to the order it belongs to. Errors are transient: the
// caller should let the provider redeliver.
func (r *Reconciler) Reconcile(ctx context.Context, ev models.PaymentEvent) (*Result, error) {
	return r.reconcile(ctx, ev, true)
}

// ReconcileReplay re-runs an escalated event. Outcomes that would escalate
// again are reported without recording another anomaly.
func (r *Reconciler) ReconcileReplay(ctx context.Context, ev models.PaymentEvent) (*Result, error) {
	return r.reconcile(ctx, ev, false)
}

func (r *Reconciler) reconcile(ctx context.Context, ev models.PaymentEvent, record bool) (res *Result, err error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Reconcile",
		attribute.String("provider", string(ev.Provider)),
		attribute.String("event_id", ev.ID),
		attribute.String("event_type", ev.TypeName()))
	defer func() { util.EndSpan(span, err) }()

	defer func() {
		if res != nil {
			util.ReconcileOutcomesTotal.WithLabelValues(string(ev.Provider), string(ev.Type), string(res.Outcome)).Inc()
		}
	}()

	logger := r.logger.With(
		zap.String("provider", string(ev.Provider)),
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.TypeName()))

	if _, ok := transitionTable[ev.Type]; !ok {
		logger.Info("Event accepted without order change")
		return &Result{Outcome: OutcomeIgnored, Reason: "event type " + ev.TypeName() + " does not change orders"}, nil
	}

	processed, err := r.orders.IsEventProcessed(ctx, ev.Provider, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check processed events: %w", err)
	}
	if processed {
		logger.Debug("Event already processed")
		return &Result{Outcome: OutcomeDuplicate, Reason: "event already processed"}, nil
	}

	order, err := r.locator.Locate(ctx, ev.Candidates)
	if err != nil {
		return r.handleLocateError(ctx, logger, ev, err, record)
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			util.StoreConflictRetriesTotal.Inc()
			reloaded, err := r.orders.GetOrder(ctx, order.ID)
			if errors.Is(err, store.ErrOrderNotFound) {
				return r.orderVanished(ctx, logger, ev, order.ID, record)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to reload order: %w", err)
			}
			order = reloaded
		}

		t := Decide(*order, ev, r.now())
		switch t.Decision {
		case DecisionNoop:
			logger.Debug("Event is a no-op for order",
				zap.String("order_id", order.ID),
				zap.String("reason", t.Reason))
			return &Result{Outcome: OutcomeNoop, OrderID: order.ID, Reason: t.Reason, Order: order}, nil

		case DecisionConflict:
			return r.escalate(ctx, logger, ev, models.AnomalyTransitionConflict, []string{order.ID}, t.Reason, record)
		}

		err = r.orders.ApplyTransition(ctx, order.ID, order.Version, t.Patch)
		if errors.Is(err, store.ErrVersionConflict) {
			logger.Debug("Lost compare-and-swap, re-evaluating",
				zap.String("order_id", order.ID),
				zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, store.ErrEventAlreadyProcessed) {
			return &Result{Outcome: OutcomeDuplicate, OrderID: order.ID, Reason: "event already processed"}, nil
		}
		if errors.Is(err, store.ErrOrderNotFound) {
			return r.orderVanished(ctx, logger, ev, order.ID, record)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply transition: %w", err)
		}

		after := t.Patch.Apply(*order)
		after.Version = order.Version + 1

		logger.Info("Payment event applied",
			zap.String("order_id", order.ID),
			zap.String("payment_status", string(after.PaymentStatus)),
			zap.String("status", string(after.Status)))

		for _, h := range r.hooks {
			h.AfterCommit(ctx, *order, after, ev, t)
		}

		return &Result{Outcome: OutcomeApplied, OrderID: order.ID, Reason: t.Reason, Order: &after}, nil
	}

	logger.Error("Giving up after repeated version conflicts",
		zap.String("order_id", order.ID),
		zap.Int("attempts", r.maxAttempts))
	return nil, fmt.Errorf("%w: order %s after %d attempts", ErrRetriesExhausted, order.ID, r.maxAttempts)
}

// orderVanished handles an order deleted between locate and commit like an
// event that matched nothing.
func (r *Reconciler) orderVanished(ctx context.Context, logger *zap.Logger, ev models.PaymentEvent, orderID string, record bool) (*Result, error) {
	logger.Warn("Matched order no longer exists", zap.String("order_id", orderID))
	return r.handleLocateError(ctx, logger, ev, ErrOrderNotFound, record)
}

func (r *Reconciler) handleLocateError(ctx context.Context, logger *zap.Logger, ev models.PaymentEvent, err error, record bool) (*Result, error) {
	var ambiguous *AmbiguousOrderError
	switch {
	case errors.As(err, &ambiguous):
		return r.escalate(ctx, logger, ev, models.AnomalyAmbiguousOrder, ambiguous.OrderIDs, err.Error(), record)

	case errors.Is(err, ErrOrderNotFound):
		if ev.Type.ImpliesExistingOrder() {
			return r.escalate(ctx, logger, ev, models.AnomalyUnmatchedOrder, nil, "no order matches any candidate", record)
		}
		logger.Warn("No order matches payment event",
			zap.Strings("candidates", ev.CandidateStrings()))
		return &Result{Outcome: OutcomeUnmatched, Reason: "no order matches any candidate"}, nil

	default:
		return nil, err
	}
}

// escalate records an operator-visible anomaly. The delivery is still acknowledged;
// failing to record it is transient so the provider redelivers.
func (r *Reconciler) escalate(ctx context.Context, logger *zap.Logger, ev models.PaymentEvent, kind models.AnomalyKind, orderIDs []string, reason string, record bool) (*Result, error) {
	outcome := OutcomeConflict
	switch kind {
	case models.AnomalyUnmatchedOrder:
		outcome = OutcomeUnmatched
	case models.AnomalyAmbiguousOrder:
		outcome = OutcomeAmbiguous
	}

	result := &Result{Outcome: outcome, Reason: reason}
	if len(orderIDs) == 1 {
		result.OrderID = orderIDs[0]
	}

	if !record {
		logger.Warn("Replayed event still needs manual reconciliation",
			zap.String("kind", string(kind)),
			zap.Strings("order_ids", orderIDs),
			zap.String("reason", reason))
		return result, nil
	}

	anomaly := &models.Anomaly{
		Kind:       kind,
		Provider:   ev.Provider,
		EventID:    ev.ID,
		EventType:  ev.TypeName(),
		Candidates: models.CorrelationKeys(ev.Candidates),
		OrderIDs:   models.StringList(orderIDs),
		Reason:     reason,
		Body:       ev.Body,
	}
	if err := r.anomalies.RecordAnomaly(ctx, anomaly); err != nil {
		return nil, fmt.Errorf("failed to record %s anomaly: %w", kind, err)
	}
	util.AnomaliesRecordedTotal.WithLabelValues(string(kind)).Inc()

	logger.Error("Payment event needs manual reconciliation",
		zap.String("anomaly_id", anomaly.ID),
		zap.String("kind", string(kind)),
		zap.Strings("order_ids", orderIDs),
		zap.Strings("candidates", ev.CandidateStrings()),
		zap.String("reason", reason))

	result.AnomalyID = anomaly.ID
	return result, nil
}
