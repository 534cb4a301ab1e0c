package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo understands just the expressions DynamoStore sends.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(k map[string]types.AttributeValue) string {
	return k["dataset"].(*types.AttributeValueMemberS).Value + "|" + k["token"].(*types.AttributeValueMemberS).Value
}

func numAttr(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(in.Key)]
	if !ok || numAttr(item["expires_at"]) <= numAttr(in.ExpressionAttributeValues[":now"]) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := in.ExpressionAttributeValues
	switch *in.UpdateExpression {
	case "SET initialized = :t":
		item["initialized"] = vals[":t"]
	case "ADD total_processed :n":
		total := numAttr(item["total_processed"]) + numAttr(vals[":n"])
		item["total_processed"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(total, 10)}
	default:
		item["initialized"] = vals[":f"]
		item["total_processed"] = vals[":z"]
	}
	return &dynamodb.UpdateItemOutput{Attributes: item}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds := in.ExpressionAttributeValues[":ds"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["dataset"].(*types.AttributeValueMemberS).Value == ds {
			out = append(out, map[string]types.AttributeValue{"token": item["token"]})
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func TestDynamoStore(t *testing.T) {
	exerciseStore(t, NewDynamoStore(newFakeDynamo(), "upload_sessions", time.Hour))
}

func TestDynamoStore_ExpiredItemIsNotFound(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "upload_sessions", time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s, err := store.Create(ctx, domain.DatasetOrders)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = store.Get(ctx, domain.DatasetOrders, s.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.MarkInitialized(ctx, domain.DatasetOrders, s.Token), ErrNotFound)
}
