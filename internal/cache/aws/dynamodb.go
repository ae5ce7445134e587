// Where: internal/cache/aws/dynamodb.go
// What: DynamoDB tag store using the OpenNext table layout.
// Why: tag is the hash key, path the range key, and GSI "revalidate" serves path lookups.
package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/poruru-code/opennext-azure/internal/cache"
)

const (
	attrTag           = "tag"
	attrPath          = "path"
	attrRevalidatedAt = "revalidatedAt"
	// RevalidateIndex is the GSI keyed by path.
	RevalidateIndex = "revalidate"
	maxBatchWrite   = 25
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoTagStore implements cache.TagStore on one table.
type DynamoTagStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoTagStore binds a client to a table.
func NewDynamoTagStore(client DynamoDBAPI, table string) *DynamoTagStore {
	return &DynamoTagStore{client: client, table: table}
}

// QueryByTag reads every row of a tag.
func (s *DynamoTagStore) QueryByTag(ctx context.Context, tag string) ([]cache.TagItem, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#tag = :tag"),
		ExpressionAttributeNames: map[string]string{"#tag": attrTag},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tag": &types.AttributeValueMemberS{Value: tag},
		},
	})
}

// QueryByPath reads every row of a path through the revalidate index.
func (s *DynamoTagStore) QueryByPath(ctx context.Context, path string) ([]cache.TagItem, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		IndexName:                aws.String(RevalidateIndex),
		KeyConditionExpression:   aws.String("#path = :path"),
		ExpressionAttributeNames: map[string]string{"#path": attrPath},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":path": &types.AttributeValueMemberS{Value: path},
		},
	})
}

func (s *DynamoTagStore) query(ctx context.Context, input *dynamodb.QueryInput) ([]cache.TagItem, error) {
	var items []cache.TagItem
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.table, err)
		}
		for _, raw := range out.Items {
			items = append(items, decodeItem(raw))
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// PutItems writes rows in batches of 25.
func (s *DynamoTagStore) PutItems(ctx context.Context, items []cache.TagItem) error {
	for start := 0; start < len(items); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(items) {
			end = len(items)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: encodeItem(item)},
			})
		}
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: requests},
		})
		if err != nil {
			return fmt.Errorf("batch write %s: %w", s.table, err)
		}
		if pending := len(out.UnprocessedItems[s.table]); pending > 0 {
			return fmt.Errorf("batch write %s: %d items unprocessed", s.table, pending)
		}
	}
	return nil
}

func encodeItem(item cache.TagItem) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrTag:           &types.AttributeValueMemberS{Value: item.Tag},
		attrPath:          &types.AttributeValueMemberS{Value: item.Path},
		attrRevalidatedAt: &types.AttributeValueMemberN{Value: strconv.FormatInt(item.RevalidatedAt, 10)},
	}
}

func decodeItem(raw map[string]types.AttributeValue) cache.TagItem {
	var item cache.TagItem
	if v, ok := raw[attrTag].(*types.AttributeValueMemberS); ok {
		item.Tag = v.Value
	}
	if v, ok := raw[attrPath].(*types.AttributeValueMemberS); ok {
		item.Path = v.Value
	}
	if v, ok := raw[attrRevalidatedAt].(*types.AttributeValueMemberN); ok {
		item.RevalidatedAt, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	return item
}

// EnsureTable creates the tag table and its revalidate index when missing.
func EnsureTable(ctx context.Context, client DynamoDBAPI, table string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", table, err)
	}
	if _, err := client.CreateTable(ctx, buildCreateTableInput(table)); err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func buildCreateTableInput(table string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrTag), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrPath), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrTag), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrPath), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrRevalidatedAt), AttributeType: types.ScalarAttributeTypeN},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(RevalidateIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(attrPath), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(attrRevalidatedAt), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}
