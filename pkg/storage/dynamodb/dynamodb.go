// Package dynamodb provides a storage driver that keeps each record as a
// single DynamoDB item.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/papercomputeco/keepsake/pkg/storage"
)

// MaxItemBytes is the DynamoDB item size limit.
const MaxItemBytes = 400 * 1024

// API is the subset of the DynamoDB client the driver uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// item is the stored shape of a record.
type item struct {
	PK        string `dynamodbav:"PK"`
	Value     []byte `dynamodbav:"Value"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// Driver implements storage.Driver on a DynamoDB table keyed by PK.
type Driver struct {
	client    API
	tableName string
}

// NewDriver creates a driver over an existing client.
func NewDriver(client API, tableName string) *Driver {
	return &Driver{client: client, tableName: tableName}
}

// NewDriverFromEnv loads the default AWS configuration and creates a driver.
func NewDriverFromEnv(ctx context.Context, tableName, region string) (*Driver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewDriver(dynamodb.NewFromConfig(cfg), tableName), nil
}

func pk(key string) string {
	return "RECORD#" + key
}

func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk(key)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if out.Item == nil {
		return nil, storage.NotFoundError{Key: key}
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record item: %w", err)
	}
	return it.Value, nil
}

func (d *Driver) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > MaxItemBytes {
		return storage.QuotaError{Key: key, Size: len(value), Limit: MaxItemBytes}
	}

	itemMap, err := attributevalue.MarshalMap(item{
		PK:        pk(key),
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      itemMap,
	})
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

func (d *Driver) Remove(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk(key)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (d *Driver) Close() error {
	return nil
}
