// Where: internal/backends/backends.go
// What: Builds the four cache fronts for the configured backend.
// Why: The host and bridge only need the fronts, not which cloud serves them.
package backends

import (
	"context"
	"fmt"

	"github.com/poruru-code/opennext-azure/internal/bindings"
	"github.com/poruru-code/opennext-azure/internal/cache"
	cacheaws "github.com/poruru-code/opennext-azure/internal/cache/aws"
	cacheazure "github.com/poruru-code/opennext-azure/internal/cache/azure"
	"github.com/poruru-code/opennext-azure/internal/cache/local"
	"github.com/poruru-code/opennext-azure/internal/config"
	"go.uber.org/zap"
)

// Binding names registered by RegisterBindings.
const (
	BindingBlob     = "storage-blob"
	BindingTable    = "storage-table"
	BindingQueue    = "storage-queue"
	BindingS3       = "s3"
	BindingDynamoDB = "dynamodb"
	BindingLevelDB  = "leveldb"
	BindingRedis    = "redis"
	BindingPostgres = "postgres"
)

// Caches groups the cache fronts used by one handler process.
type Caches struct {
	Incremental *cache.IncrementalCache
	Tags        *cache.TagCache
	Queue       *cache.RevalidationQueue
	Images      *cache.ImageCache
}

// RegisterBindings declares every client the configuration calls for.
func RegisterBindings(reg *bindings.Registry, cfg config.Runtime) {
	if hasAzureStorage(cfg) {
		storage := bindings.AzureStorage{
			ConnectionString: cfg.StorageConnectionString,
			AccountName:      cfg.StorageAccountName,
			AccountKey:       cfg.StorageAccountKey,
		}
		reg.Register(BindingBlob, bindings.BlobBinding{AzureStorage: withServiceURL(storage, cfg, "blob")})
		reg.Register(BindingTable, bindings.TableBinding{AzureStorage: withServiceURL(storage, cfg, "table")})
		reg.Register(BindingQueue, bindings.QueueBinding{AzureStorage: withServiceURL(storage, cfg, "queue")})
	}
	switch cfg.Backend {
	case config.BackendAWS:
		access := bindings.AWSAccess{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		}
		reg.Register(BindingS3, bindings.S3Binding{AWSAccess: access})
		reg.Register(BindingDynamoDB, bindings.DynamoDBBinding{AWSAccess: access})
	case config.BackendLocal:
		reg.Register(BindingLevelDB, bindings.LevelDBBinding{Path: cfg.LocalCacheDir})
	}
	if cfg.RedisURL != "" {
		reg.Register(BindingRedis, bindings.RedisBinding{URL: cfg.RedisURL})
	}
	if cfg.DatabaseURL != "" {
		reg.Register(BindingPostgres, bindings.PostgresBinding{URL: cfg.DatabaseURL})
	}
}

func hasAzureStorage(cfg config.Runtime) bool {
	return cfg.StorageConnectionString != "" || (cfg.StorageAccountName != "" && cfg.StorageAccountKey != "")
}

func withServiceURL(storage bindings.AzureStorage, cfg config.Runtime, service string) bindings.AzureStorage {
	if storage.ConnectionString == "" {
		storage.ServiceURL = cfg.ServiceURL(service)
	}
	return storage
}

// Open builds the cache fronts. deliver receives revalidation messages when no
// storage queue is configured.
func Open(ctx context.Context, cfg config.Runtime, reg *bindings.Registry, log *zap.Logger, deliver local.Deliver) (*Caches, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("cache")

	var (
		objects cache.ObjectStore
		images  cache.ObjectStore
		tags    cache.TagStore
	)
	switch cfg.Backend {
	case config.BackendAzure:
		blobClient, err := reg.Blob(ctx, BindingBlob)
		if err != nil {
			return nil, err
		}
		tableService, err := reg.Table(ctx, BindingTable)
		if err != nil {
			return nil, err
		}
		objects = cacheazure.NewBlobStore(blobClient, cfg.CacheContainer)
		images = cacheazure.NewBlobStore(blobClient, cfg.ImageCacheContainer)
		tags = cacheazure.NewTableStore(tableService, cfg.TagCacheTable)
	case config.BackendAWS:
		s3Client, err := reg.S3(ctx, BindingS3)
		if err != nil {
			return nil, err
		}
		dynamoClient, err := reg.DynamoDB(ctx, BindingDynamoDB)
		if err != nil {
			return nil, err
		}
		objects = cacheaws.NewS3Store(s3Client, cfg.S3Bucket)
		images = cacheaws.NewS3Store(s3Client, cfg.S3Bucket)
		tags = cacheaws.NewDynamoTagStore(dynamoClient, cfg.DynamoDBTable)
	case config.BackendLocal:
		db, err := reg.LevelDB(ctx, BindingLevelDB)
		if err != nil {
			return nil, err
		}
		objects = local.NewObjectStore(db, cfg.CacheContainer)
		images = local.NewObjectStore(db, cfg.ImageCacheContainer)
		tags = local.NewTagStore(db)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}

	var queue cache.Queue = local.NewDirectQueue(deliver)
	if reg.Has(BindingQueue) {
		queueService, err := reg.Queue(ctx, BindingQueue)
		if err != nil {
			return nil, err
		}
		queue = cacheazure.NewQueueStore(queueService, cfg.RevalidationQueue)
	}

	log.Info("cache backend ready",
		zap.String("backend", string(cfg.Backend)),
		zap.String("build_id", cfg.BuildID))

	return &Caches{
		Incremental: cache.NewIncrementalCache(objects, cfg.CacheKeyPrefix, cfg.BuildID, log),
		Tags:        cache.NewTagCache(tags, cfg.BuildID, log),
		Queue:       cache.NewRevalidationQueue(queue, log),
		Images:      cache.NewImageCache(images, log),
	}, nil
}

// Provision creates the containers, tables and queues the backend needs.
func Provision(ctx context.Context, cfg config.Runtime, reg *bindings.Registry) error {
	switch cfg.Backend {
	case config.BackendAzure:
		blobClient, err := reg.Blob(ctx, BindingBlob)
		if err != nil {
			return err
		}
		for _, container := range []string{cfg.CacheContainer, cfg.ImageCacheContainer, cfg.AssetsContainer} {
			if err := cacheazure.EnsureContainer(ctx, blobClient, container); err != nil {
				return err
			}
		}
		tableService, err := reg.Table(ctx, BindingTable)
		if err != nil {
			return err
		}
		if err := cacheazure.EnsureTable(ctx, tableService, cfg.TagCacheTable); err != nil {
			return err
		}
	case config.BackendAWS:
		dynamoClient, err := reg.DynamoDB(ctx, BindingDynamoDB)
		if err != nil {
			return err
		}
		if err := cacheaws.EnsureTable(ctx, dynamoClient, cfg.DynamoDBTable); err != nil {
			return err
		}
	}
	if reg.Has(BindingQueue) {
		queueService, err := reg.Queue(ctx, BindingQueue)
		if err != nil {
			return err
		}
		if err := cacheazure.EnsureQueue(ctx, queueService, cfg.RevalidationQueue); err != nil {
			return err
		}
	}
	return nil
}
