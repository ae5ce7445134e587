// Where: internal/bindings/factory.go
// What: Client construction for each binding spec.
// Why: Keep SDK wiring out of the cache and host packages.
package bindings

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const defaultAWSRegion = "us-east-1"

// Factory constructs the client for a spec.
type Factory func(ctx context.Context, spec Spec) (any, error)

// DefaultFactory builds real SDK clients.
func DefaultFactory(ctx context.Context, spec Spec) (any, error) {
	switch s := spec.(type) {
	case BlobBinding:
		return newBlobClient(s.AzureStorage)
	case TableBinding:
		return newTableClient(s.AzureStorage)
	case QueueBinding:
		return newQueueClient(s.AzureStorage)
	case S3Binding:
		cfg, err := loadAWSConfig(ctx, s.AWSAccess)
		if err != nil {
			return nil, err
		}
		return s3.NewFromConfig(cfg, func(options *s3.Options) {
			if s.Endpoint != "" {
				options.BaseEndpoint = aws.String(s.Endpoint)
				options.UsePathStyle = true
			}
		}), nil
	case DynamoDBBinding:
		cfg, err := loadAWSConfig(ctx, s.AWSAccess)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewFromConfig(cfg, func(options *dynamodb.Options) {
			if s.Endpoint != "" {
				options.BaseEndpoint = aws.String(s.Endpoint)
			}
		}), nil
	case LevelDBBinding:
		if s.Path == "" {
			return leveldb.Open(storage.NewMemStorage(), nil)
		}
		return leveldb.OpenFile(s.Path, nil)
	case RedisBinding:
		opts, err := redis.ParseURL(s.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	case PostgresBinding:
		pool, err := pgxpool.New(ctx, s.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unsupported binding spec %T", spec)
	}
}

func newBlobClient(cfg AzureStorage) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("blob credential: %w", err)
	}
	return azblob.NewClientWithSharedKeyCredential(serviceURL(cfg, "blob"), cred, nil)
}

func newTableClient(cfg AzureStorage) (*aztables.ServiceClient, error) {
	if cfg.ConnectionString != "" {
		return aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := aztables.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("table credential: %w", err)
	}
	return aztables.NewServiceClientWithSharedKey(serviceURL(cfg, "table"), cred, nil)
}

func newQueueClient(cfg AzureStorage) (*azqueue.ServiceClient, error) {
	if cfg.ConnectionString != "" {
		return azqueue.NewServiceClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azqueue.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("queue credential: %w", err)
	}
	return azqueue.NewServiceClientWithSharedKeyCredential(serviceURL(cfg, "queue"), cred, nil)
}

func serviceURL(cfg AzureStorage, service string) string {
	if cfg.ServiceURL != "" {
		return cfg.ServiceURL
	}
	return fmt.Sprintf("https://%s.%s.core.windows.net/", cfg.AccountName, service)
}

// loadAWSConfig uses static credentials when provided, otherwise the default chain.
func loadAWSConfig(ctx context.Context, access AWSAccess) (aws.Config, error) {
	region := access.Region
	if region == "" {
		region = defaultAWSRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if access.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(access.AccessKey, access.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
