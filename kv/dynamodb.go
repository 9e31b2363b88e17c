package kv

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoItem is the single-table layout: partition key "PK" holds the entity key.
type dynamoItem struct {
	PK    string `dynamodbav:"PK"`
	Value []byte `dynamodbav:"Value"`
}

type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore connects to tableName. With a non-empty endpoint (DynamoDB Local)
// dummy credentials are used.
func NewDynamoStore(ctx context.Context, endpoint, region, tableName string) (*DynamoStore, error) {
	var client *dynamodb.Client
	if endpoint != "" {
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")),
		)
		if err != nil {
			return nil, err
		}
		client = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	} else {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, err
		}
		client = dynamodb.NewFromConfig(cfg)
	}
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}); err != nil {
		return nil, fmt.Errorf("dynamodb table %q: %w", tableName, err)
	}
	return &DynamoStore{client: client, tableName: tableName}, nil
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem failed: %w", err)
	}
	if resp.Item == nil {
		return nil, ErrNotFound
	}
	item := dynamoItem{}
	if err = attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	return item.Value, nil
}

func (s *DynamoStore) Put(ctx context.Context, key string, value []byte) error {
	av, err := attributevalue.MarshalMap(dynamoItem{PK: key, Value: value})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       dynamoKey(key),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem failed: %w", err)
	}
	return nil
}
