package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"reconciliation-service/internal/models"

	"github.com/google/uuid"
)

const anomalyColumns = "id, kind, provider, event_id, event_type, candidates, order_ids, reason, COALESCE(body, ''::bytea) AS body, created_at, resolved_at"

// RecordAnomaly stores an event that needs manual reconciliation. An event
// already open under the same kind is not stored twice; a is filled from the
// open anomaly instead.
func (s *Store) RecordAnomaly(ctx context.Context, a *models.Anomaly) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reconciliation_anomalies (id, kind, provider, event_id, event_type, candidates, order_ids, reason, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, event_id, kind) WHERE resolved_at IS NULL DO NOTHING
		RETURNING created_at`

	err := s.db.QueryRowxContext(ctx, query,
		a.ID, a.Kind, a.Provider, a.EventID, a.EventType, a.Candidates, a.OrderIDs, a.Reason, []byte(a.Body),
	).Scan(&a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowxContext(ctx, `
			SELECT id, created_at FROM reconciliation_anomalies
			WHERE provider = $1 AND event_id = $2 AND kind = $3 AND resolved_at IS NULL`,
			a.Provider, a.EventID, a.Kind,
		).Scan(&a.ID, &a.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to record anomaly: %w", err)
	}
	return nil
}

// GetAnomaly retrieves an anomaly by ID
func (s *Store) GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error) {
	var a models.Anomaly
	err := s.db.GetContext(ctx, &a, "SELECT "+anomalyColumns+" FROM reconciliation_anomalies WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAnomalyNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnomalies returns anomalies newest first
func (s *Store) ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error) {
	var where []string
	var args []interface{}

	if !filter.IncludeResolved {
		where = append(where, "resolved_at IS NULL")
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		where = append(where, fmt.Sprintf("provider = $%d", len(args)))
	}

	query := "SELECT " + anomalyColumns + " FROM reconciliation_anomalies"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	anomalies := []models.Anomaly{}
	if err := s.db.SelectContext(ctx, &anomalies, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	return anomalies, nil
}

// ResolveAnomaly marks an anomaly as handled. Resolving twice is not an error.
func (s *Store) ResolveAnomaly(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reconciliation_anomalies SET resolved_at = NOW() WHERE id = $1 AND resolved_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to resolve anomaly: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetAnomaly(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
