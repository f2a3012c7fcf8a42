package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// DynamoAPI is the subset of the DynamoDB client the repository uses
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoOrderRepository stores one item per order keyed by id.
// Items and status history are JSON documents, timestamps RFC3339.
type DynamoOrderRepository struct {
	client    DynamoAPI
	tableName string
	log       *slog.Logger
}

// dynamoOrder represents the DynamoDB item structure
type dynamoOrder struct {
	ID            string `dynamodbav:"id"`
	UserID        string `dynamodbav:"user_id"`
	BusinessID    string `dynamodbav:"business_id"`
	Items         string `dynamodbav:"items"`
	Total         int    `dynamodbav:"total"`
	DeliveryFee   int    `dynamodbav:"delivery_fee"`
	Address       string `dynamodbav:"address"`
	PaymentMethod string `dynamodbav:"payment_method"`
	Status        string `dynamodbav:"status"`
	StatusHistory string `dynamodbav:"status_history"`
	CreatedAt     string `dynamodbav:"created_at"`
	ConfirmedAt   string `dynamodbav:"confirmed_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

func NewDynamoOrderRepository(client DynamoAPI, tableName string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, tableName: tableName, log: logging.New("order_repository")}
}

func (r *DynamoOrderRepository) Insert(ctx context.Context, o *order.Order) error {
	item, err := toDynamo(o)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return fmt.Errorf("%w: %s", order.ErrDuplicateOrderID, o.ID)
		}
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (r *DynamoOrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return fromItem(out.Item)
}

// Update writes the status fields, failing when the order does not exist
func (r *DynamoOrderRepository) Update(ctx context.Context, o *order.Order) error {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("encode status history: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: o.ID}},
		ConditionExpression: aws.String("attribute_exists(id)"),
		UpdateExpression:    aws.String("SET #status = :status, status_history = :history, updated_at = :updated"),
		// status is a DynamoDB reserved word
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(o.Status)},
			":history": &types.AttributeValueMemberS{Value: string(history)},
			":updated": &types.AttributeValueMemberS{Value: o.UpdatedAt.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return fmt.Errorf("%w: %s", order.ErrOrderNotFound, o.ID)
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// List scans the whole table. Order volumes per deployment are small; the
// register filters and sorts in memory.
func (r *DynamoOrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	var out []*order.Order
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		for _, item := range page.Items {
			o, err := fromItem(item)
			if err != nil {
				r.log.Warn("skipping unreadable order item", "error", err)
				continue
			}
			out = append(out, o)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfirmedAt.Before(out[j].ConfirmedAt)
	})
	return out, nil
}

func toDynamo(o *order.Order) (dynamoOrder, error) {
	items, history, err := encodeJSONColumns(o)
	if err != nil {
		return dynamoOrder{}, err
	}
	return dynamoOrder{
		ID:            o.ID,
		UserID:        o.UserID,
		BusinessID:    o.BusinessID,
		Items:         string(items),
		Total:         o.Total,
		DeliveryFee:   o.DeliveryFee,
		Address:       o.Address,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		StatusHistory: string(history),
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339Nano),
		ConfirmedAt:   o.ConfirmedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func fromItem(item map[string]types.AttributeValue) (*order.Order, error) {
	var d dynamoOrder
	if err := attributevalue.UnmarshalMap(item, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}

	o := &order.Order{
		ID:            d.ID,
		UserID:        d.UserID,
		BusinessID:    d.BusinessID,
		Total:         d.Total,
		DeliveryFee:   d.DeliveryFee,
		Address:       d.Address,
		PaymentMethod: order.PaymentMethod(d.PaymentMethod),
		Status:        order.Status(d.Status),
	}
	if err := json.Unmarshal([]byte(d.Items), &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(d.StatusHistory), &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history of %s: %w", d.ID, err)
	}

	var err error
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, d.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", d.ID, err)
	}
	if o.ConfirmedAt, err = time.Parse(time.RFC3339Nano, d.ConfirmedAt); err != nil {
		return nil, fmt.Errorf("decode confirmed_at of %s: %w", d.ID, err)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at of %s: %w", d.ID, err)
	}
	return o, nil
}
