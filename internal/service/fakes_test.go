package service

import (
	"context"
	"fmt"
	"sync"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/store"

	"github.com/google/uuid"
)

// memStore is an in-memory OrderStore and AnomalyStore with the same
// compare-and-swap behavior as the database store
type memStore struct {
	mu        sync.Mutex
	orders    map[string]models.Order
	index     map[models.CorrelationKey]map[string]struct{}
	processed map[string]string
	anomalies map[string]models.Anomaly
	applies   int
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]models.Order),
		index:     make(map[models.CorrelationKey]map[string]struct{}),
		processed: make(map[string]string),
		anomalies: make(map[string]models.Anomaly),
	}
}

func (s *memStore) addOrder(order models.Order) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}
	order.Version = 1
	s.orders[order.ID] = order
	s.indexKeys(order.ID, order.Metadata.CorrelationKeys)
	return order
}

func (s *memStore) order(id string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) indexKeys(orderID string, keys []models.CorrelationKey) {
	for _, k := range keys {
		if k.Kind == models.KeyOrderNumber {
			continue
		}
		if s.index[k] == nil {
			s.index[k] = make(map[string]struct{})
		}
		s.index[k][orderID] = struct{}{}
	}
}

func (s *memStore) FindByCorrelationKey(_ context.Context, key models.CorrelationKey) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	if key.Kind == models.KeyOrderNumber {
		for _, o := range s.orders {
			if o.OrderNumber == key.Value {
				out = append(out, o)
			}
		}
		return out, nil
	}
	for id := range s.index[key] {
		out = append(out, s.orders[id])
	}
	return out, nil
}

func (s *memStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrOrderNotFound, id)
	}
	return &o, nil
}

func (s *memStore) ApplyTransition(_ context.Context, orderID string, expectedVersion int64, patch models.TransitionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	marker := string(patch.Provider) + "/" + patch.EventID
	if patch.EventID != "" {
		if _, dup := s.processed[marker]; dup {
			return store.ErrEventAlreadyProcessed
		}
	}

	next := patch.Apply(current)
	next.Version = current.Version + 1
	s.orders[orderID] = next
	s.indexKeys(orderID, patch.Metadata.CorrelationKeys)
	if patch.EventID != "" {
		s.processed[marker] = orderID
	}
	s.applies++
	return nil
}

func (s *memStore) IsEventProcessed(_ context.Context, provider models.Provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.processed[string(provider)+"/"+eventID]
	return ok, nil
}

func (s *memStore) RecordAnomaly(_ context.Context, a *models.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, open := range s.anomalies {
		if open.ResolvedAt == nil && open.Provider == a.Provider && open.EventID == a.EventID && open.Kind == a.Kind {
			a.ID = open.ID
			a.CreatedAt = open.CreatedAt
			return nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.anomalies[a.ID] = *a
	return nil
}

func (s *memStore) GetAnomaly(_ context.Context, id string) (*models.Anomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.anomalies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAnomalyNotFound, id)
	}
	return &a, nil
}

func (s *memStore) ListAnomalies(_ context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Anomaly
	for _, a := range s.anomalies {
		if a.ResolvedAt != nil && !filter.IncludeResolved {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) ResolveAnomaly(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.anomalies[id]
	if !ok {
		return store.ErrAnomalyNotFound
	}
	if a.ResolvedAt == nil {
		now := a.CreatedAt
		a.ResolvedAt = &now
		s.anomalies[id] = a
	}
	return nil
}

func (s *memStore) anomalyList() []models.Anomaly {
	list, _ := s.ListAnomalies(context.Background(), models.AnomalyFilter{IncludeResolved: true})
	return list
}

func key(kind models.CorrelationKind, value string) models.CorrelationKey {
	return models.CorrelationKey{Kind: kind, Value: value}
}

func usd(value string) *models.Money {
	return &models.Money{Value: value, Currency: "USD"}
}

func newOrder(paymentID string) models.Order {
	return models.Order{
		OrderNumber: "ORD-" + paymentID,
		Metadata: models.Metadata{
			CorrelationKeys: []models.CorrelationKey{key(models.KeyPaymentID, paymentID)},
		},
	}
}

func captureCompleted(eventID, paymentID, captureID, amount string) models.PaymentEvent {
	ev := models.PaymentEvent{
		ID:       eventID,
		Provider: models.ProviderPayPal,
		Type:     models.EventCaptureCompleted,
		Capture:  &models.CaptureInfo{CaptureID: captureID, Status: "COMPLETED", Amount: usd(amount)},
		Body:     []byte(`{"id":"` + eventID + `"}`),
	}
	if paymentID != "" {
		ev.Candidates = append(ev.Candidates, key(models.KeyPaymentID, paymentID))
	}
	if captureID != "" {
		ev.Candidates = append(ev.Candidates,
			key(models.KeyCaptureID, captureID),
			key(models.KeyTransactionID, models.TransactionID(models.ProviderPayPal, captureID)))
	}
	return ev
}

func capturePending(eventID, paymentID, captureID string) models.PaymentEvent {
	ev := captureCompleted(eventID, paymentID, captureID, "0")
	ev.Type = models.EventCapturePending
	ev.Capture.Status = "PENDING"
	ev.Capture.Amount = nil
	return ev
}

func captureRefunded(eventID, captureID, refundID, amount string) models.PaymentEvent {
	return models.PaymentEvent{
		ID:       eventID,
		Provider: models.ProviderPayPal,
		Type:     models.EventCaptureRefunded,
		Candidates: []models.CorrelationKey{
			key(models.KeyCaptureID, captureID),
			key(models.KeyTransactionID, models.TransactionID(models.ProviderPayPal, captureID)),
		},
		Refund: &models.RefundInfo{RefundID: refundID, CaptureID: captureID, Amount: usd(amount)},
		Body:   []byte(`{"id":"` + eventID + `"}`),
	}
}

func disputeEvent(eventID string, eventType models.EventType, captureID, disputeID string, favor models.DisputeFavor) models.PaymentEvent {
	return models.PaymentEvent{
		ID:       eventID,
		Provider: models.ProviderPayPal,
		Type:     eventType,
		Candidates: []models.CorrelationKey{
			key(models.KeyCaptureID, captureID),
			key(models.KeyTransactionID, models.TransactionID(models.ProviderPayPal, captureID)),
		},
		Dispute: &models.DisputeInfo{DisputeID: disputeID, Reason: "MERCHANDISE_OR_SERVICE_NOT_RECEIVED", Favor: favor, Outcome: string(favor)},
		Body:    []byte(`{"id":"` + eventID + `"}`),
	}
}
