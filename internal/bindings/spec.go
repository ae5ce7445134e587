// Where: internal/bindings/spec.go
// What: Binding specifications, one type per supported client.
// Why: A closed set of specs lets the factory switch on concrete types.
package bindings

// Spec describes how to construct one client. The set of implementations is closed.
type Spec interface {
	bindingKind() string
}

// AzureStorage carries credentials shared by the Azure Storage specs.
// ConnectionString wins over the account name/key pair.
type AzureStorage struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	// ServiceURL overrides the default https://{account}.{service}.core.windows.net.
	ServiceURL string
}

// BlobBinding builds an *azblob.Client.
type BlobBinding struct{ AzureStorage }

// TableBinding builds an *aztables.ServiceClient.
type TableBinding struct{ AzureStorage }

// QueueBinding builds an *azqueue.ServiceClient.
type QueueBinding struct{ AzureStorage }

// AWSAccess configures AWS-compatible endpoints.
type AWSAccess struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Binding builds an *s3.Client.
type S3Binding struct{ AWSAccess }

// DynamoDBBinding builds a *dynamodb.Client.
type DynamoDBBinding struct{ AWSAccess }

// LevelDBBinding opens a goleveldb database; an empty Path means in-memory.
type LevelDBBinding struct {
	Path string
}

// RedisBinding builds a *redis.Client from a redis:// URL.
type RedisBinding struct {
	URL string
}

// PostgresBinding builds a *pgxpool.Pool from a postgres:// URL.
type PostgresBinding struct {
	URL string
}

func (BlobBinding) bindingKind() string     { return "blob" }
func (TableBinding) bindingKind() string    { return "table" }
func (QueueBinding) bindingKind() string    { return "queue" }
func (S3Binding) bindingKind() string       { return "s3" }
func (DynamoDBBinding) bindingKind() string { return "dynamodb" }
func (LevelDBBinding) bindingKind() string  { return "leveldb" }
func (RedisBinding) bindingKind() string    { return "redis" }
func (PostgresBinding) bindingKind() string { return "postgres" }

// Kind reports the short name of a spec's client type.
func Kind(spec Spec) string {
	if spec == nil {
		return ""
	}
	return spec.bindingKind()
}
