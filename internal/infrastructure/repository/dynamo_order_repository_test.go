package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
)

// fakeDynamo keeps items in memory keyed by id and honours the two
// condition expressions the repository uses
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	scanErr  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue), pageSize: 1}
}

func keyOf(key map[string]types.AttributeValue) string {
	if s, ok := key["id"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := keyOf(in.Item)
	if _, exists := f.items[id]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(id)" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[keyOf(in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	item["status"] = in.ExpressionAttributeValues[":status"]
	item["status_history"] = in.ExpressionAttributeValues[":history"]
	item["updated_at"] = in.ExpressionAttributeValues[":updated"]
	return &dynamodb.UpdateItemOutput{}, nil
}

// Scan pages through items in id order, pageSize at a time
func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}

	var ids []string
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := keyOf(in.ExclusiveStartKey)
		for start < len(ids) && ids[start] <= after {
			start++
		}
	}
	end := start + f.pageSize
	if end > len(ids) {
		end = len(ids)
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, f.items[id])
	}
	if end < len(ids) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: ids[end-1]}}
	}
	return out, nil
}

func TestDynamoOrderRepository(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoOrderRepository(fake, "orders")
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, testOrder("SIP-000002", at.Add(time.Hour))))
	require.NoError(t, repo.Insert(ctx, testOrder("SIP-000001", at)))

	t.Run("get round trip", func(t *testing.T) {
		got, err := repo.Get(ctx, "SIP-000001")

		require.NoError(t, err)
		want := testOrder("SIP-000001", at)
		assert.Equal(t, want.Items, got.Items)
		assert.Equal(t, want.StatusHistory[0].Status, got.StatusHistory[0].Status)
		assert.True(t, want.ConfirmedAt.Equal(got.ConfirmedAt))
		assert.Equal(t, order.PaymentCash, got.PaymentMethod)
		assert.Equal(t, 32000, got.GrandTotal())
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := repo.Insert(ctx, testOrder("SIP-000001", at))
		assert.ErrorIs(t, err, order.ErrDuplicateOrderID)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := repo.Get(ctx, "SIP-404404")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)

		err = repo.Update(ctx, testOrder("SIP-404404", at))
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("update status", func(t *testing.T) {
		o, err := repo.Get(ctx, "SIP-000002")
		require.NoError(t, err)
		require.NoError(t, o.SetStatus(order.StatusOnTheWay, "", at.Add(2*time.Hour)))

		require.NoError(t, repo.Update(ctx, o))

		got, err := repo.Get(ctx, "SIP-000002")
		require.NoError(t, err)
		assert.Equal(t, order.StatusOnTheWay, got.Status)
		assert.Len(t, got.StatusHistory, 2)
		assert.True(t, at.Add(2*time.Hour).Equal(got.UpdatedAt))
	})

	t.Run("list pages through the table", func(t *testing.T) {
		all, err := repo.List(ctx)

		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "SIP-000001", all[0].ID, "sorted by confirmation time")
	})
}

func TestDynamoOrderRepository_ScanFailure(t *testing.T) {
	fake := newFakeDynamo()
	fake.scanErr = errors.New("throttled")
	repo := NewDynamoOrderRepository(fake, "orders")

	_, err := repo.List(context.Background())

	assert.ErrorContains(t, err, "throttled")
}
