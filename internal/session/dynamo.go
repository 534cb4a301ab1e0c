package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/courier-ops/internal/domain"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps sessions in a DynamoDB table keyed by dataset (partition)
// and token (sort). The table's TTL attribute must be "expires_at".
// Expired items may linger until DynamoDB sweeps them, so reads also
// compare expires_at.
type DynamoStore struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

type dynamoItem struct {
	Session
	ExpiresAt int64 `dynamodbav:"expires_at"`
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(client DynamoAPI, table string, ttl time.Duration) *DynamoStore {
	return &DynamoStore{client: client, table: table, ttl: ttl, now: time.Now}
}

func (d *DynamoStore) key(ds domain.Dataset, token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"dataset": &types.AttributeValueMemberS{Value: string(ds)},
		"token":   &types.AttributeValueMemberS{Value: token},
	}
}

func (d *DynamoStore) Create(ctx context.Context, ds domain.Dataset) (*Session, error) {
	now := d.now()
	item := dynamoItem{
		Session:   Session{Token: NewToken(), Dataset: ds, CreatedAt: now.UTC()},
		ExpiresAt: now.Add(d.ttl).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return nil, fmt.Errorf("putting session to DynamoDB: %w", err)
	}
	s := item.Session
	return &s, nil
}

func (d *DynamoStore) Get(ctx context.Context, ds domain.Dataset, token string) (*Session, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.key(ds, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting session from DynamoDB: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	if item.ExpiresAt <= d.now().Unix() {
		return nil, ErrNotFound
	}
	s := item.Session
	return &s, nil
}

// update applies expr to a live session; a failed condition means the
// session is missing or expired.
func (d *DynamoStore) update(ctx context.Context, ds domain.Dataset, token, expr string, values map[string]types.AttributeValue) (*dynamodb.UpdateItemOutput, error) {
	values[":now"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(d.now().Unix(), 10)}
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       d.key(ds, token),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(#tok) AND expires_at > :now"),
		ExpressionAttributeNames:  map[string]string{"#tok": "token"},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating session in DynamoDB: %w", err)
	}
	return out, nil
}

func (d *DynamoStore) MarkInitialized(ctx context.Context, ds domain.Dataset, token string) error {
	_, err := d.update(ctx, ds, token, "SET initialized = :t", map[string]types.AttributeValue{
		":t": &types.AttributeValueMemberBOOL{Value: true},
	})
	return err
}

func (d *DynamoStore) AddProcessed(ctx context.Context, ds domain.Dataset, token string, n int) (int, error) {
	out, err := d.update(ctx, ds, token, "ADD total_processed :n", map[string]types.AttributeValue{
		":n": &types.AttributeValueMemberN{Value: strconv.Itoa(n)},
	})
	if err != nil {
		return 0, err
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return 0, fmt.Errorf("unmarshaling session: %w", err)
	}
	return item.TotalProcessed, nil
}

func (d *DynamoStore) Reset(ctx context.Context, ds domain.Dataset, token string) error {
	_, err := d.update(ctx, ds, token, "SET initialized = :f, total_processed = :z", map[string]types.AttributeValue{
		":f": &types.AttributeValueMemberBOOL{Value: false},
		":z": &types.AttributeValueMemberN{Value: "0"},
	})
	return err
}

func (d *DynamoStore) ResetAll(ctx context.Context, ds domain.Dataset) (int, error) {
	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.table),
			KeyConditionExpression: aws.String("dataset = :ds"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":ds": &types.AttributeValueMemberS{Value: string(ds)},
			},
			ProjectionExpression:     aws.String("#tok"),
			ExpressionAttributeNames: map[string]string{"#tok": "token"},
			ExclusiveStartKey:        startKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("querying sessions in DynamoDB: %w", err)
		}
		for _, it := range out.Items {
			tok, ok := it["token"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(d.table),
				Key:       d.key(ds, tok.Value),
			}); err != nil {
				return deleted, fmt.Errorf("deleting session from DynamoDB: %w", err)
			}
			deleted++
		}
		if len(out.LastEvaluatedKey) == 0 {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
