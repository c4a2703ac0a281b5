package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reconciliation-service/internal/models"

	"github.com/google/uuid"
)

const orderColumns = "id, order_number, status, payment_status, metadata, version, created_at, updated_at"

// CreateOrder inserts an order created by checkout, indexing its correlation keys
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, order_number, status, payment_status, metadata, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING version, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.ID, order.OrderNumber, order.Status, order.PaymentStatus, order.Metadata,
	).Scan(&order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertCorrelationKeys(ctx, tx, order.ID, order.Metadata.CorrelationKeys); err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByCorrelationKey returns every order indexed under key.
// Order numbers live on the orders table itself.
func (s *Store) FindByCorrelationKey(ctx context.Context, key models.CorrelationKey) ([]models.Order, error) {
	var orders []models.Order
	var err error

	if key.Kind == models.KeyOrderNumber {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT "+orderColumns+" FROM orders WHERE order_number = $1", key.Value)
	} else {
		err = s.db.SelectContext(ctx, &orders, `
			SELECT o.id, o.order_number, o.status, o.payment_status, o.metadata, o.version, o.created_at, o.updated_at
			FROM orders o
			JOIN order_correlation_keys k ON k.order_id = o.id
			WHERE k.kind = $1 AND k.value = $2
			ORDER BY o.created_at`, key.Kind, key.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find orders by %s: %w", key, err)
	}
	return orders, nil
}

// IsEventProcessed checks if a provider event has been committed
func (s *Store) IsEventProcessed(ctx context.Context, provider models.Provider, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2)",
		provider, eventID)
	return exists, err
}

// ApplyTransition commits patch if the order is still at expectedVersion.
// The metadata merge, the correlation index and the processed-event marker
// are written in one transaction.
func (s *Store) ApplyTransition(ctx context.Context, orderID string, expectedVersion int64, patch models.TransitionPatch) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current models.Order
	err = tx.GetContext(ctx, &current,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}

	if current.Version != expectedVersion {
		return fmt.Errorf("%w: order %s at version %d, expected %d",
			ErrVersionConflict, orderID, current.Version, expectedVersion)
	}

	next := patch.Apply(current)
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, metadata = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5`,
		next.Status, next.PaymentStatus, next.Metadata, orderID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	if err := insertCorrelationKeys(ctx, tx, orderID, patch.Metadata.CorrelationKeys); err != nil {
		return err
	}

	if patch.EventID != "" {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO processed_events (provider, event_id, event_type, order_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (provider, event_id) DO NOTHING`,
			patch.Provider, patch.EventID, patch.EventType, orderID)
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("%w: %s/%s", ErrEventAlreadyProcessed, patch.Provider, patch.EventID)
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertCorrelationKeys(ctx context.Context, tx execer, orderID string, keys []models.CorrelationKey) error {
	for _, k := range keys {
		if k.Value == "" || k.Kind == models.KeyOrderNumber {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_correlation_keys (kind, value, order_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (kind, value, order_id) DO NOTHING`,
			k.Kind, k.Value, orderID)
		if err != nil {
			return fmt.Errorf("failed to index correlation key %s: %w", k, err)
		}
	}
	return nil
}
