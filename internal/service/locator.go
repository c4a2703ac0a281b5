package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
)

// AmbiguousOrderError lists the orders an event's candidates resolved to
type AmbiguousOrderError struct {
	OrderIDs []string
}

func (e *AmbiguousOrderError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAmbiguousOrder, strings.Join(e.OrderIDs, ", "))
}

func (e *AmbiguousOrderError) Unwrap() error {
	return ErrAmbiguousOrder
}

// OrderLocator resolves correlation candidates to a single order
type OrderLocator struct {
	store OrderStore
}

// NewOrderLocator creates a new order locator
func NewOrderLocator(store OrderStore) *OrderLocator {
	return &OrderLocator{store: store}
}

// Locate queries every candidate and returns the order they agree on.
// Hits on different orders are ambiguous; the locator never picks one.
func (l *OrderLocator) Locate(ctx context.Context, candidates []models.CorrelationKey) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderLocator.Locate",
		attribute.Int("candidates", len(candidates)))
	defer span.End()

	var first *models.Order
	seen := make(map[string]struct{})

	for _, key := range candidates {
		orders, err := l.store.FindByCorrelationKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", key, err)
		}
		for i := range orders {
			if _, ok := seen[orders[i].ID]; ok {
				continue
			}
			seen[orders[i].ID] = struct{}{}
			if first == nil {
				first = &orders[i]
			}
		}
	}

	if len(seen) > 1 {
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, &AmbiguousOrderError{OrderIDs: ids}
	}
	if first == nil {
		return nil, ErrOrderNotFound
	}

	span.SetAttributes(attribute.String("order_id", first.ID))
	return first, nil
}
