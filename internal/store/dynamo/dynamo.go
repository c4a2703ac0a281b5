// Package dynamo is the DynamoDB-backed order and anomaly store.
//
// Tables (all names carry the configured prefix):
//   - orders: PK id; GSI order_number-index (PK order_number)
//   - correlation_keys: PK key ("<kind>#<value>"), SK order_id
//   - processed_events: PK key ("<provider>#<event_id>")
//   - anomalies: PK id
//   - open_anomalies: PK key ("<provider>#<event_id>#<kind>"), the open anomaly for an event
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const orderNumberIndex = "order_number-index"

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store keeps orders in DynamoDB. Transitions are one TransactWriteItems call
// conditioned on the order version.
type Store struct {
	ddb       API
	orders    string
	keys      string
	processed string
	anomalies string
	open      string
	now       func() time.Time
}

// NewClient builds a DynamoDB client. A non-empty endpoint targets DynamoDB Local
// with static credentials.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewStore creates a store on tables named with prefix
func NewStore(ddb API, prefix string) *Store {
	return &Store{
		ddb:       ddb,
		orders:    prefix + "orders",
		keys:      prefix + "correlation_keys",
		processed: prefix + "processed_events",
		anomalies: prefix + "anomalies",
		open:      prefix + "open_anomalies",
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type orderItem struct {
	ID            string `dynamodbav:"id"`
	OrderNumber   string `dynamodbav:"order_number,omitempty"`
	Status        string `dynamodbav:"status"`
	PaymentStatus string `dynamodbav:"payment_status"`
	Metadata      string `dynamodbav:"metadata"`
	Version       int64  `dynamodbav:"version"`
	CreatedAt     string `dynamodbav:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

type keyItem struct {
	Key     string `dynamodbav:"key"`
	OrderID string `dynamodbav:"order_id"`
}

type processedItem struct {
	Key         string `dynamodbav:"key"`
	EventType   string `dynamodbav:"event_type"`
	OrderID     string `dynamodbav:"order_id"`
	ProcessedAt string `dynamodbav:"processed_at"`
}

func correlationKey(k models.CorrelationKey) string {
	return string(k.Kind) + "#" + k.Value
}

func processedKey(provider models.Provider, eventID string) string {
	return string(provider) + "#" + eventID
}

func toOrderItem(o *models.Order) (orderItem, error) {
	metadata, err := json.Marshal(o.Metadata)
	if err != nil {
		return orderItem{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return orderItem{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Metadata:      string(metadata),
		Version:       o.Version,
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func fromOrderItem(it orderItem) (*models.Order, error) {
	o := &models.Order{
		ID:            it.ID,
		OrderNumber:   it.OrderNumber,
		Status:        models.OrderStatus(it.Status),
		PaymentStatus: models.PaymentStatus(it.PaymentStatus),
		Version:       it.Version,
	}
	if err := o.Metadata.Scan(it.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", it.ID, err)
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, it.CreatedAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, it.UpdatedAt)
	return o, nil
}

// CreateOrder inserts an order and its correlation keys
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
	order.Version = 1
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt

	it, err := toOrderItem(order)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                aws.String(s.orders),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		},
	}}
	keyPuts, err := s.keyPuts(order.ID, order.Metadata.CorrelationKeys, nil)
	if err != nil {
		return err
	}
	items = append(items, keyPuts...)

	if _, err := s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrOrderNotFound, id)
	}

	var it orderItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return fromOrderItem(it)
}

// FindByCorrelationKey returns every order indexed under key
func (s *Store) FindByCorrelationKey(ctx context.Context, key models.CorrelationKey) ([]models.Order, error) {
	if key.Kind == models.KeyOrderNumber {
		return s.findByOrderNumber(ctx, key.Value)
	}

	out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.keys),
		KeyConditionExpression: aws.String("#k = :k"),
		ExpressionAttributeNames: map[string]string{
			"#k": "key",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: correlationKey(key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(out.Items))
	for _, raw := range out.Items {
		var it keyItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		order, err := s.GetOrder(ctx, it.OrderID)
		if errors.Is(err, store.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (s *Store) findByOrderNumber(ctx context.Context, orderNumber string) ([]models.Order, error) {
	out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.orders),
		IndexName:              aws.String(orderNumberIndex),
		KeyConditionExpression: aws.String("order_number = :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: orderNumber},
		},
	})
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(out.Items))
	for _, raw := range out.Items {
		var it orderItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		order, err := fromOrderItem(it)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// IsEventProcessed reports whether a provider event was committed to an order
func (s *Store) IsEventProcessed(ctx context.Context, provider models.Provider, eventID string) (bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.processed),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: processedKey(provider, eventID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	return len(out.Item) > 0, nil
}

// ApplyTransition commits patch if the order is still at expectedVersion.
// The order update, new correlation keys and the processed-event marker are
// written in one transaction.
func (s *Store) ApplyTransition(ctx context.Context, orderID string, expectedVersion int64, patch models.TransitionPatch) error {
	current, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	next := patch.Apply(*current)
	metadata, err := json.Marshal(next.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	items := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName: aws.String(s.orders),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: orderID},
			},
			UpdateExpression:    aws.String("SET #status = :status, payment_status = :payment, #metadata = :metadata, #version = :next, updated_at = :now"),
			ConditionExpression: aws.String("#version = :expected"),
			ExpressionAttributeNames: map[string]string{
				"#status":   "status",
				"#metadata": "metadata",
				"#version":  "version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status":   &types.AttributeValueMemberS{Value: string(next.Status)},
				":payment":  &types.AttributeValueMemberS{Value: string(next.PaymentStatus)},
				":metadata": &types.AttributeValueMemberS{Value: string(metadata)},
				":next":     &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion+1, 10)},
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
				":now":      &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339Nano)},
			},
		},
	}}

	keyPuts, err := s.keyPuts(orderID, patch.Metadata.CorrelationKeys, &current.Metadata)
	if err != nil {
		return err
	}
	items = append(items, keyPuts...)

	processedIndex := -1
	if patch.EventID != "" {
		av, err := attributevalue.MarshalMap(processedItem{
			Key:         processedKey(patch.Provider, patch.EventID),
			EventType:   string(patch.EventType),
			OrderID:     orderID,
			ProcessedAt: s.now().Format(time.RFC3339Nano),
		})
		if err != nil {
			return err
		}
		processedIndex = len(items)
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(s.processed),
				Item:                     av,
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": "key"},
			},
		})
	}

	_, err = s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return mapTransactionError(err, processedIndex)
	}
	return nil
}

// keyPuts writes index entries for keys the order does not carry yet
func (s *Store) keyPuts(orderID string, keys []models.CorrelationKey, existing *models.Metadata) ([]types.TransactWriteItem, error) {
	seen := make(map[string]struct{})
	var items []types.TransactWriteItem
	for _, k := range keys {
		if k.Value == "" || k.Kind == models.KeyOrderNumber {
			continue
		}
		if existing != nil && existing.HasKey(k) {
			continue
		}
		id := correlationKey(k)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		av, err := attributevalue.MarshalMap(keyItem{Key: id, OrderID: orderID})
		if err != nil {
			return nil, err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(s.keys), Item: av},
		})
	}
	return items, nil
}

// mapTransactionError turns a cancelled transaction into the store's sentinel errors.
// Item 0 is always the order update.
func mapTransactionError(err error, processedIndex int) error {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return fmt.Errorf("failed to apply transition: %w", err)
	}

	reasons := cancelled.CancellationReasons
	failed := func(i int) bool {
		return i >= 0 && i < len(reasons) && aws.ToString(reasons[i].Code) == "ConditionalCheckFailed"
	}
	switch {
	case failed(0):
		return store.ErrVersionConflict
	case failed(processedIndex):
		return store.ErrEventAlreadyProcessed
	}
	return fmt.Errorf("failed to apply transition: %w", err)
}

type anomalyItem struct {
	ID         string   `dynamodbav:"id"`
	Kind       string   `dynamodbav:"kind"`
	Provider   string   `dynamodbav:"provider"`
	EventID    string   `dynamodbav:"event_id"`
	EventType  string   `dynamodbav:"event_type"`
	Candidates string   `dynamodbav:"candidates"`
	OrderIDs   []string `dynamodbav:"order_ids,omitempty"`
	Reason     string   `dynamodbav:"reason"`
	Body       []byte   `dynamodbav:"body,omitempty"`
	CreatedAt  string   `dynamodbav:"created_at"`
	ResolvedAt string   `dynamodbav:"resolved_at,omitempty"`
}

func fromAnomalyItem(it anomalyItem) (models.Anomaly, error) {
	a := models.Anomaly{
		ID:        it.ID,
		Kind:      models.AnomalyKind(it.Kind),
		Provider:  models.Provider(it.Provider),
		EventID:   it.EventID,
		EventType: it.EventType,
		OrderIDs:  models.StringList(it.OrderIDs),
		Reason:    it.Reason,
		Body:      json.RawMessage(it.Body),
	}
	if err := a.Candidates.Scan(it.Candidates); err != nil {
		return models.Anomaly{}, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, it.CreatedAt)
	if it.ResolvedAt != "" {
		resolved, err := time.Parse(time.RFC3339Nano, it.ResolvedAt)
		if err == nil {
			a.ResolvedAt = &resolved
		}
	}
	return a, nil
}

type openAnomalyItem struct {
	Key       string `dynamodbav:"key"`
	AnomalyID string `dynamodbav:"anomaly_id"`
}

func openAnomalyKey(provider models.Provider, eventID string, kind models.AnomalyKind) string {
	return string(provider) + "#" + eventID + "#" + string(kind)
}

// RecordAnomaly stores an event that needs manual reconciliation. A guard item
// keeps one open anomaly per event and kind; a repeat fills a from the open one.
func (s *Store) RecordAnomaly(ctx context.Context, a *models.Anomaly) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = s.now()

	candidates, err := json.Marshal(a.Candidates)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(anomalyItem{
		ID:         a.ID,
		Kind:       string(a.Kind),
		Provider:   string(a.Provider),
		EventID:    a.EventID,
		EventType:  a.EventType,
		Candidates: string(candidates),
		OrderIDs:   []string(a.OrderIDs),
		Reason:     a.Reason,
		Body:       []byte(a.Body),
		CreatedAt:  a.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	guard, err := attributevalue.MarshalMap(openAnomalyItem{
		Key:       openAnomalyKey(a.Provider, a.EventID, a.Kind),
		AnomalyID: a.ID,
	})
	if err != nil {
		return err
	}

	_, err = s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.open),
				Item:                     guard,
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": "key"},
			}},
			{Put: &types.Put{TableName: aws.String(s.anomalies), Item: av}},
		},
	})
	if err == nil {
		return nil
	}

	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) || len(cancelled.CancellationReasons) == 0 ||
		aws.ToString(cancelled.CancellationReasons[0].Code) != "ConditionalCheckFailed" {
		return fmt.Errorf("failed to insert anomaly: %w", err)
	}

	existing, err := s.openAnomaly(ctx, a.Provider, a.EventID, a.Kind)
	if err != nil {
		return fmt.Errorf("failed to load open anomaly: %w", err)
	}
	a.ID = existing.ID
	a.CreatedAt = existing.CreatedAt
	return nil
}

func (s *Store) openAnomaly(ctx context.Context, provider models.Provider, eventID string, kind models.AnomalyKind) (*models.Anomaly, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.open),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: openAnomalyKey(provider, eventID, kind)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: open %s for %s/%s", store.ErrAnomalyNotFound, kind, provider, eventID)
	}

	var guard openAnomalyItem
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, err
	}
	return s.GetAnomaly(ctx, guard.AnomalyID)
}

// GetAnomaly retrieves an anomaly by ID
func (s *Store) GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.anomalies),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrAnomalyNotFound, id)
	}

	var it anomalyItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	a, err := fromAnomalyItem(it)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnomalies scans anomalies matching filter, newest first
func (s *Store) ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var result []models.Anomaly
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.anomalies),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		for _, raw := range out.Items {
			var it anomalyItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			if !filter.IncludeResolved && it.ResolvedAt != "" {
				continue
			}
			if filter.Kind != "" && models.AnomalyKind(it.Kind) != filter.Kind {
				continue
			}
			if filter.Provider != "" && models.Provider(it.Provider) != filter.Provider {
				continue
			}
			a, err := fromAnomalyItem(it)
			if err != nil {
				return nil, err
			}
			result = append(result, a)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ResolveAnomaly marks an anomaly handled and releases its event for new
// anomalies. Resolving twice keeps the first time.
func (s *Store) ResolveAnomaly(ctx context.Context, id string) error {
	a, err := s.GetAnomaly(ctx, id)
	if err != nil {
		return err
	}
	if a.ResolvedAt != nil {
		return nil
	}

	_, err = s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName: aws.String(s.anomalies),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: id},
				},
				UpdateExpression:    aws.String("SET resolved_at = if_not_exists(resolved_at, :now)"),
				ConditionExpression: aws.String("attribute_exists(id)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339Nano)},
				},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.open),
				Key: map[string]types.AttributeValue{
					"key": &types.AttributeValueMemberS{Value: openAnomalyKey(a.Provider, a.EventID, a.Kind)},
				},
				ConditionExpression:      aws.String("attribute_not_exists(#k) OR anomaly_id = :id"),
				ExpressionAttributeNames: map[string]string{"#k": "key"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": &types.AttributeValueMemberS{Value: id},
				},
			}},
		},
	})
	if err == nil {
		return nil
	}

	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		reasons := cancelled.CancellationReasons
		if len(reasons) > 0 && aws.ToString(reasons[0].Code) == "ConditionalCheckFailed" {
			return fmt.Errorf("%w: %s", store.ErrAnomalyNotFound, id)
		}
		if len(reasons) > 1 && aws.ToString(reasons[1].Code) == "ConditionalCheckFailed" {
			// The guard belongs to a newer anomaly for the event; leave it in place
			return s.markResolved(ctx, id)
		}
	}
	return fmt.Errorf("failed to resolve anomaly: %w", err)
}

func (s *Store) markResolved(ctx context.Context, id string) error {
	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.anomalies),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET resolved_at = if_not_exists(resolved_at, :now)"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339Nano)},
		},
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return fmt.Errorf("%w: %s", store.ErrAnomalyNotFound, id)
	}
	return err
}

// Ping checks that the orders table is reachable
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: "__ping__"},
		},
	})
	return err
}
