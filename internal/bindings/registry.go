// Where: internal/bindings/registry.go
// What: Process-wide cache of storage and database clients keyed by binding name.
// Why: SDK clients are expensive to build and safe to share between requests.
package bindings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/multierr"
)

// ErrUnknownBinding is returned for names that were never registered.
var ErrUnknownBinding = errors.New("unknown binding")

// Registry lazily constructs clients on first use and reuses them afterwards.
type Registry struct {
	mu      sync.Mutex
	specs   map[string]Spec
	clients map[string]any
	factory Factory
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory replaces DefaultFactory.
func WithFactory(factory Factory) Option {
	return func(r *Registry) {
		r.factory = factory
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		specs:   map[string]Spec{},
		clients: map[string]any{},
		factory: DefaultFactory,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records spec under name. Re-registering drops nothing already built;
// call Reset first to rebuild.
func (r *Registry) Register(name string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[name] = spec
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.specs[name]
	return ok
}

// Names returns registered binding names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the client for name, constructing it on first use.
func (r *Registry) Get(ctx context.Context, name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[name]; ok {
		return client, nil
	}
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBinding, name)
	}
	client, err := r.factory(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("build %s binding %q: %w", Kind(spec), name, err)
	}
	r.clients[name] = client
	return client, nil
}

func typed[T any](ctx context.Context, r *Registry, name string) (T, error) {
	var zero T
	client, err := r.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	value, ok := client.(T)
	if !ok {
		return zero, fmt.Errorf("binding %q is %T, not %T", name, client, zero)
	}
	return value, nil
}

// Blob returns the named Azure Blob client.
func (r *Registry) Blob(ctx context.Context, name string) (*azblob.Client, error) {
	return typed[*azblob.Client](ctx, r, name)
}

// Table returns the named Azure Table service client.
func (r *Registry) Table(ctx context.Context, name string) (*aztables.ServiceClient, error) {
	return typed[*aztables.ServiceClient](ctx, r, name)
}

// Queue returns the named Azure Queue service client.
func (r *Registry) Queue(ctx context.Context, name string) (*azqueue.ServiceClient, error) {
	return typed[*azqueue.ServiceClient](ctx, r, name)
}

// S3 returns the named S3 client.
func (r *Registry) S3(ctx context.Context, name string) (*s3.Client, error) {
	return typed[*s3.Client](ctx, r, name)
}

// DynamoDB returns the named DynamoDB client.
func (r *Registry) DynamoDB(ctx context.Context, name string) (*dynamodb.Client, error) {
	return typed[*dynamodb.Client](ctx, r, name)
}

// LevelDB returns the named goleveldb handle.
func (r *Registry) LevelDB(ctx context.Context, name string) (*leveldb.DB, error) {
	return typed[*leveldb.DB](ctx, r, name)
}

// Ping checks every registered binding, building clients as needed.
// Errors from all bindings are combined.
func (r *Registry) Ping(ctx context.Context) error {
	var err error
	for _, name := range r.Names() {
		client, getErr := r.Get(ctx, name)
		if getErr != nil {
			err = multierr.Append(err, getErr)
			continue
		}
		if pingErr := ping(ctx, client); pingErr != nil {
			err = multierr.Append(err, fmt.Errorf("ping %s: %w", name, pingErr))
		}
	}
	return err
}

func ping(ctx context.Context, client any) error {
	switch c := client.(type) {
	case *azblob.Client:
		_, err := c.ServiceClient().GetProperties(ctx, nil)
		return err
	case *aztables.ServiceClient:
		_, err := c.GetProperties(ctx, nil)
		return err
	case *azqueue.ServiceClient:
		_, err := c.GetServiceProperties(ctx, nil)
		return err
	case *leveldb.DB:
		_, err := c.GetProperty("leveldb.num-files-at-level0")
		return err
	case *redis.Client:
		return c.Ping(ctx).Err()
	case *pgxpool.Pool:
		return c.Ping(ctx)
	case interface{ Ping(context.Context) error }:
		return c.Ping(ctx)
	default:
		return nil
	}
}

// Reset closes every constructed client and forgets it. Specs stay registered.
func (r *Registry) Reset() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = map[string]any{}
	r.mu.Unlock()

	var err error
	for name, client := range clients {
		if closeErr := closeClient(client); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", name, closeErr))
		}
	}
	return err
}

func closeClient(client any) error {
	switch c := client.(type) {
	case *pgxpool.Pool:
		c.Close()
		return nil
	case interface{ Close() error }:
		return c.Close()
	default:
		return nil
	}
}
