package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// Secondary indexes on the interactions table. The partition key of the table is interactionId.
const (
	ReceiverIndex = "receiverId-index"
	SenderIndex   = "senderId-index"
	TargetIndex   = "targetId-index"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps interactions in a DynamoDB table.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore creates a store backed by the given table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// NewDynamoClient loads AWS configuration and creates a DynamoDB client.
// A non-empty endpoint points the client at a local DynamoDB.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Create stores a new interaction, refusing to overwrite an existing id.
func (s *DynamoStore) Create(ctx context.Context, in *model.Interaction) error {
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(interactionId)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to put interaction in table '%s': %w", s.table, err)
	}
	return nil
}

// Get returns the interaction with the given id.
func (s *DynamoStore) Get(ctx context.Context, id string) (*model.Interaction, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       interactionKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction from table '%s': %w", s.table, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var in model.Interaction
	if err := attributevalue.UnmarshalMap(out.Item, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interaction: %w", err)
	}
	return &in, nil
}

// ListByReceiver returns interactions addressed to userID plus reviews targeting them.
func (s *DynamoStore) ListByReceiver(ctx context.Context, userID string) ([]model.Interaction, error) {
	received, err := s.queryIndex(ctx, ReceiverIndex, "receiverId", userID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.ListReviews(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(received, reviews...), nil
}

// ListBySender returns interactions created by userID.
func (s *DynamoStore) ListBySender(ctx context.Context, userID string) ([]model.Interaction, error) {
	return s.queryIndex(ctx, SenderIndex, "senderId", userID)
}

// ListReviews returns reviews targeting userID.
func (s *DynamoStore) ListReviews(ctx context.Context, userID string) ([]model.Interaction, error) {
	items, err := s.queryIndex(ctx, TargetIndex, "targetId", userID)
	if err != nil {
		return nil, err
	}

	reviews := items[:0]
	for _, in := range items {
		if in.Type == model.TypeReview {
			reviews = append(reviews, in)
		}
	}
	return reviews, nil
}

// UpdateStatus sets the status conditionally on the current value.
func (s *DynamoStore) UpdateStatus(ctx context.Context, id string, from, to model.Status) error {
	condition := "attribute_exists(interactionId) AND #status = :from"
	values := map[string]types.AttributeValue{
		":from": &types.AttributeValueMemberS{Value: string(from)},
		":to":   &types.AttributeValueMemberS{Value: string(to)},
	}
	if from == model.StatusNone {
		condition = "attribute_exists(interactionId) AND attribute_not_exists(#status)"
		delete(values, ":from")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       interactionKey(id),
		UpdateExpression:          aws.String("SET #status = :to"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err == nil {
		return nil
	}

	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		return fmt.Errorf("failed to update interaction status: %w", err)
	}

	// Distinguish a missing item from a status that moved underneath us.
	if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *DynamoStore) queryIndex(ctx context.Context, index, attribute, value string) ([]model.Interaction, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#key = :value"),
		ExpressionAttributeNames:  map[string]string{"#key": attribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{":value": &types.AttributeValueMemberS{Value: value}},
	})

	out := make([]model.Interaction, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query index '%s': %w", index, err)
		}

		var batch []model.Interaction
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interactions: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func interactionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"interactionId": &types.AttributeValueMemberS{Value: id},
	}
}
