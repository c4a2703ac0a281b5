package dynamo

import (
	"context"
	"errors"
	"testing"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	items       map[string]map[string]types.AttributeValue
	queryItems  []map[string]types.AttributeValue
	transactErr error
	updateErr   error
	transacts   []*dynamodb.TransactWriteItemsInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeAPI) put(t *testing.T, id string, v interface{}) {
	t.Helper()
	av, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	f.items[id] = av
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	for _, v := range in.Key {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			return &dynamodb.GetItemOutput{Item: f.items[s.Value]}, nil
		}
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeAPI) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func (f *fakeAPI) Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	return &dynamodb.TransactWriteItemsOutput{}, f.transactErr
}

func storedOrder(version int64) orderItem {
	return orderItem{
		ID:            "O1",
		OrderNumber:   "ORD-1",
		Status:        string(models.OrderStatusPending),
		PaymentStatus: string(models.PaymentStatusPending),
		Metadata:      `{"correlationKeys":[{"kind":"paymentId","value":"PAY-1"}]}`,
		Version:       version,
	}
}

func capturePatch() models.TransitionPatch {
	return models.TransitionPatch{
		Status:        models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusPaid,
		Provider:      models.ProviderPayPal,
		EventID:       "WH-1",
		EventType:     models.EventCaptureCompleted,
		Metadata: models.MetadataPatch{
			CorrelationKeys: []models.CorrelationKey{
				{Kind: models.KeyPaymentID, Value: "PAY-1"},
				{Kind: models.KeyCaptureID, Value: "CAP-1"},
				{Kind: models.KeyCaptureID, Value: "CAP-1"},
			},
		},
	}
}

func TestApplyTransitionWritesOneTransaction(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "O1", storedOrder(3))
	s := NewStore(api, "test_")

	require.NoError(t, s.ApplyTransition(context.Background(), "O1", 3, capturePatch()))
	require.Len(t, api.transacts, 1)

	items := api.transacts[0].TransactItems
	require.Len(t, items, 3, "order update, one new key, processed marker")

	update := items[0].Update
	require.NotNil(t, update)
	assert.Equal(t, "test_orders", aws.ToString(update.TableName))
	assert.Equal(t, "#version = :expected", aws.ToString(update.ConditionExpression))
	assert.Equal(t, "3", update.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "4", update.ExpressionAttributeValues[":next"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "PAID", update.ExpressionAttributeValues[":payment"].(*types.AttributeValueMemberS).Value)

	var key keyItem
	require.NoError(t, attributevalue.UnmarshalMap(items[1].Put.Item, &key))
	assert.Equal(t, keyItem{Key: "captureId#CAP-1", OrderID: "O1"}, key)

	processed := items[2].Put
	assert.Equal(t, "test_processed_events", aws.ToString(processed.TableName))
	assert.Equal(t, "attribute_not_exists(#k)", aws.ToString(processed.ConditionExpression))
}

func TestApplyTransitionStaleVersion(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "O1", storedOrder(4))
	s := NewStore(api, "")

	err := s.ApplyTransition(context.Background(), "O1", 3, capturePatch())
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Empty(t, api.transacts)
}

func TestApplyTransitionMissingOrder(t *testing.T) {
	s := NewStore(newFakeAPI(), "")

	err := s.ApplyTransition(context.Background(), "nope", 1, capturePatch())
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
}

func TestApplyTransitionCancelledTransaction(t *testing.T) {
	checkFailed := types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
	none := types.CancellationReason{Code: aws.String("None")}

	tests := []struct {
		name    string
		reasons []types.CancellationReason
		want    error
	}{
		{"lost race on version", []types.CancellationReason{checkFailed, none, none}, store.ErrVersionConflict},
		{"event already processed", []types.CancellationReason{none, none, checkFailed}, store.ErrEventAlreadyProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.put(t, "O1", storedOrder(1))
			api.transactErr = &types.TransactionCanceledException{CancellationReasons: tt.reasons}
			s := NewStore(api, "")

			err := s.ApplyTransition(context.Background(), "O1", 1, capturePatch())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMapTransactionErrorPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("throttled")
	err := mapTransactionError(boom, 2)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrVersionConflict)
}

func TestFindByCorrelationKey(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "O1", storedOrder(2))
	for _, it := range []keyItem{{Key: "paymentId#PAY-1", OrderID: "O1"}, {Key: "paymentId#PAY-1", OrderID: "gone"}} {
		av, err := attributevalue.MarshalMap(it)
		require.NoError(t, err)
		api.queryItems = append(api.queryItems, av)
	}
	s := NewStore(api, "")

	orders, err := s.FindByCorrelationKey(context.Background(), models.CorrelationKey{Kind: models.KeyPaymentID, Value: "PAY-1"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "O1", orders[0].ID)
	assert.Equal(t, int64(2), orders[0].Version)
	assert.Equal(t, "PAY-1", orders[0].Metadata.Key(models.KeyPaymentID))
}

func TestResolveMissingAnomaly(t *testing.T) {
	api := newFakeAPI()
	s := NewStore(api, "")

	err := s.ResolveAnomaly(context.Background(), "A1")
	assert.ErrorIs(t, err, store.ErrAnomalyNotFound)
	assert.Empty(t, api.transacts)
}

func unmatchedAnomaly() *models.Anomaly {
	return &models.Anomaly{
		Kind:       models.AnomalyUnmatchedOrder,
		Provider:   models.ProviderPayPal,
		EventID:    "WH-9",
		EventType:  string(models.EventCaptureCompleted),
		Candidates: models.CorrelationKeys{{Kind: models.KeyPaymentID, Value: "PAY-999"}},
		Body:       []byte(`{"id":"WH-9"}`),
	}
}

func TestRecordAnomalyGuardsOpenEvent(t *testing.T) {
	api := newFakeAPI()
	s := NewStore(api, "test_")

	a := unmatchedAnomaly()
	require.NoError(t, s.RecordAnomaly(context.Background(), a))
	require.NotEmpty(t, a.ID)
	require.Len(t, api.transacts, 1)

	items := api.transacts[0].TransactItems
	require.Len(t, items, 2)
	assert.Equal(t, "test_open_anomalies", aws.ToString(items[0].Put.TableName))
	assert.Equal(t, "attribute_not_exists(#k)", aws.ToString(items[0].Put.ConditionExpression))

	var guard openAnomalyItem
	require.NoError(t, attributevalue.UnmarshalMap(items[0].Put.Item, &guard))
	assert.Equal(t, openAnomalyItem{Key: "paypal#WH-9#unmatched_order", AnomalyID: a.ID}, guard)
	assert.Equal(t, "test_anomalies", aws.ToString(items[1].Put.TableName))
}

func TestRecordAnomalyReusesOpenOne(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "paypal#WH-9#unmatched_order", openAnomalyItem{Key: "paypal#WH-9#unmatched_order", AnomalyID: "A1"})
	api.put(t, "A1", anomalyItem{
		ID:         "A1",
		Kind:       string(models.AnomalyUnmatchedOrder),
		Provider:   "paypal",
		EventID:    "WH-9",
		Candidates: `[]`,
		CreatedAt:  "2024-05-01T10:00:00Z",
	})
	api.transactErr = &types.TransactionCanceledException{CancellationReasons: []types.CancellationReason{
		{Code: aws.String("ConditionalCheckFailed")},
		{Code: aws.String("None")},
	}}
	s := NewStore(api, "")

	a := unmatchedAnomaly()
	require.NoError(t, s.RecordAnomaly(context.Background(), a))
	assert.Equal(t, "A1", a.ID)
	assert.Equal(t, 2024, a.CreatedAt.Year())
}

func TestResolveAnomalyReleasesGuard(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "A1", anomalyItem{
		ID:         "A1",
		Kind:       string(models.AnomalyUnmatchedOrder),
		Provider:   "paypal",
		EventID:    "WH-9",
		Candidates: `[]`,
		CreatedAt:  "2024-05-01T10:00:00Z",
	})
	s := NewStore(api, "")

	require.NoError(t, s.ResolveAnomaly(context.Background(), "A1"))
	require.Len(t, api.transacts, 1)

	del := api.transacts[0].TransactItems[1].Delete
	require.NotNil(t, del)
	assert.Equal(t, "open_anomalies", aws.ToString(del.TableName))
	assert.Equal(t, "paypal#WH-9#unmatched_order", del.Key["key"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "A1", del.ExpressionAttributeValues[":id"].(*types.AttributeValueMemberS).Value)

	api.put(t, "A1", anomalyItem{
		ID:         "A1",
		Kind:       string(models.AnomalyUnmatchedOrder),
		Provider:   "paypal",
		EventID:    "WH-9",
		Candidates: `[]`,
		CreatedAt:  "2024-05-01T10:00:00Z",
		ResolvedAt: "2024-05-01T11:00:00Z",
	})
	require.NoError(t, s.ResolveAnomaly(context.Background(), "A1"))
	assert.Len(t, api.transacts, 1, "already resolved")
}

func TestGetAnomalyRoundTrip(t *testing.T) {
	api := newFakeAPI()
	api.put(t, "A1", anomalyItem{
		ID:         "A1",
		Kind:       string(models.AnomalyUnmatchedOrder),
		Provider:   "paypal",
		EventID:    "WH-9",
		Candidates: `[{"kind":"paymentId","value":"PAY-999"}]`,
		Body:       []byte(`{"id":"WH-9"}`),
		CreatedAt:  "2024-05-01T10:00:00Z",
	})
	s := NewStore(api, "")

	a, err := s.GetAnomaly(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, models.AnomalyUnmatchedOrder, a.Kind)
	assert.Equal(t, "PAY-999", a.Candidates[0].Value)
	assert.JSONEq(t, `{"id":"WH-9"}`, string(a.Body))
	assert.Nil(t, a.ResolvedAt)

	_, err = s.GetAnomaly(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrAnomalyNotFound)
}
