package service

import (
	"context"
	"errors"
	"fmt"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

var ErrNoReplayBody = errors.New("anomaly has no stored delivery to replay")

// AnomalyService serves the operator view of escalated events and replays them
type AnomalyService struct {
	anomalies  AnomalyStore
	parsers    *parser.Registry
	reconciler *Reconciler
	replays    ReplayRequester
	logger     *zap.Logger
}

// NewAnomalyService creates a new anomaly service. replays may be nil, in which
// case RequestReplay runs the replay inline.
func NewAnomalyService(anomalies AnomalyStore, parsers *parser.Registry, reconciler *Reconciler, replays ReplayRequester) *AnomalyService {
	return &AnomalyService{
		anomalies:  anomalies,
		parsers:    parsers,
		reconciler: reconciler,
		replays:    replays,
		logger:     util.GetLogger(),
	}
}

// ListAnomalies returns anomalies matching filter
func (s *AnomalyService) ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error) {
	return s.anomalies.ListAnomalies(ctx, filter)
}

// GetAnomaly returns one anomaly
func (s *AnomalyService) GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error) {
	return s.anomalies.GetAnomaly(ctx, id)
}

// ResolveAnomaly marks an anomaly handled by hand
func (s *AnomalyService) ResolveAnomaly(ctx context.Context, id string) error {
	if err := s.anomalies.ResolveAnomaly(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Anomaly resolved manually", zap.String("anomaly_id", id))
	return nil
}

// RequestReplay queues the anomaly for the replay worker
func (s *AnomalyService) RequestReplay(ctx context.Context, id, requestedBy string) error {
	if _, err := s.anomalies.GetAnomaly(ctx, id); err != nil {
		return err
	}
	if s.replays == nil {
		_, err := s.Replay(ctx, id)
		return err
	}
	return s.replays.RequestReplay(ctx, id, requestedBy)
}

// Replay re-parses the stored delivery and reconciles it again, resolving the
// anomaly once the outcome no longer needs an operator
func (s *AnomalyService) Replay(ctx context.Context, id string) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "AnomalyService.Replay")
	defer span.End()

	anomaly, err := s.anomalies.GetAnomaly(ctx, id)
	if err != nil {
		return nil, err
	}
	if anomaly.ResolvedAt != nil {
		return &Result{Outcome: OutcomeNoop, Reason: "anomaly already resolved", AnomalyID: id}, nil
	}
	if len(anomaly.Body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReplayBody, id)
	}

	ev, err := s.parsers.Parse(ctx, anomaly.Provider, anomaly.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored delivery: %w", err)
	}

	result, err := s.reconciler.ReconcileReplay(ctx, ev)
	if err != nil {
		return nil, err
	}
	result.AnomalyID = id
	util.ReplaysProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()

	if !result.Outcome.Final() {
		s.logger.Info("Replay did not resolve anomaly",
			zap.String("anomaly_id", id),
			zap.String("outcome", string(result.Outcome)),
			zap.String("reason", result.Reason))
		return result, nil
	}

	if err := s.anomalies.ResolveAnomaly(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to resolve anomaly: %w", err)
	}
	s.logger.Info("Anomaly resolved by replay",
		zap.String("anomaly_id", id),
		zap.String("outcome", string(result.Outcome)),
		zap.String("order_id", result.OrderID))
	return result, nil
}
