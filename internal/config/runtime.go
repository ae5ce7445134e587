// Where: internal/config/runtime.go
// What: Runtime configuration for the custom handler, read from the environment.
// Why: Read settings once at process start and share them across invocations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/envutil"
)

// Backend selects which storage family backs the caches.
type Backend string

const (
	BackendAzure Backend = "azure"
	BackendAWS   Backend = "aws"
	BackendLocal Backend = "local"
)

// ParseBackend maps a configured name to a Backend.
func ParseBackend(value string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case "", BackendAzure:
		return BackendAzure, nil
	case BackendAWS:
		return BackendAWS, nil
	case BackendLocal:
		return BackendLocal, nil
	default:
		return "", fmt.Errorf("unsupported cache backend: %s", value)
	}
}

// HTTPMode selects how the Functions host talks to the custom handler.
type HTTPMode string

const (
	// HTTPModeForward receives the original HTTP request (enableForwardingHttpRequest).
	HTTPModeForward HTTPMode = "forward"
	// HTTPModeInvoke receives invocation JSON envelopes.
	HTTPModeInvoke HTTPMode = "invoke"
)

// Default resource names.
const (
	DefaultCacheContainer      = "cache"
	DefaultTagCacheTable       = "tagcache"
	DefaultRevalidationQueue   = "revalidation"
	DefaultImageCacheContainer = "images"
	DefaultAssetsContainer     = "assets"
	DefaultHandlerPort         = 8080
	DefaultServerPort          = 3000
	DefaultAWSRegion           = "us-east-1"
)

// Runtime holds every setting the custom handler consumes.
type Runtime struct {
	StorageConnectionString string
	StorageAccountName      string
	StorageAccountKey       string

	Backend             Backend
	CacheContainer      string
	CacheKeyPrefix      string
	TagCacheTable       string
	RevalidationQueue   string
	ImageCacheContainer string
	AssetsContainer     string
	StaticAssetsURL     string
	ProvisionCache      bool

	BuildID          string
	DeploymentTarget string
	Region           string
	Dev              bool

	Port        int
	HTTPMode    HTTPMode
	Origin      string
	ServerDir   string
	ServerEntry string
	ServerPort  int
	CacheToken  string

	AWSRegion     string
	AWSEndpoint   string
	AWSAccessKey  string
	AWSSecretKey  string
	S3Bucket      string
	DynamoDBTable string

	LocalCacheDir string

	RedisURL    string
	DatabaseURL string
}

var (
	loadOnce   sync.Once
	loaded     Runtime
	loadErr    error
	loadLocker sync.Mutex
)

// Load reads the runtime configuration from the process environment once and
// returns the cached result afterwards.
func Load() (Runtime, error) {
	loadLocker.Lock()
	defer loadLocker.Unlock()
	loadOnce.Do(func() {
		loaded, loadErr = FromEnv(os.Getenv)
	})
	return loaded, loadErr
}

// Reset drops the cached configuration so the next Load re-reads the environment.
func Reset() {
	loadLocker.Lock()
	defer loadLocker.Unlock()
	loadOnce = sync.Once{}
	loaded = Runtime{}
	loadErr = nil
}

// FromEnv builds a Runtime from an arbitrary lookup.
func FromEnv(getenv func(string) string) (Runtime, error) {
	env := envutil.Getenv(getenv)

	backend, err := ParseBackend(env.StringOr(constants.EnvCacheBackend, ""))
	if err != nil {
		return Runtime{}, err
	}
	mode, err := parseHTTPMode(env.StringOr(constants.EnvHTTPMode, ""))
	if err != nil {
		return Runtime{}, err
	}

	connection := env.StringOr(constants.EnvStorageConnectionString, env.StringOr(constants.EnvFunctionsStorage, ""))
	account := env.StringOr(constants.EnvStorageAccountName, accountFromConnectionString(connection))
	serverDir := env.StringOr(constants.EnvServerDir, "")

	cfg := Runtime{
		StorageConnectionString: connection,
		StorageAccountName:      account,
		StorageAccountKey:       env.StringOr(constants.EnvStorageAccountKey, ""),

		Backend:             backend,
		CacheContainer:      env.StringOr(constants.EnvCacheContainer, DefaultCacheContainer),
		CacheKeyPrefix:      strings.Trim(env.StringOr(constants.EnvCacheKeyPrefix, ""), "/"),
		TagCacheTable:       env.StringOr(constants.EnvTagCacheTable, DefaultTagCacheTable),
		RevalidationQueue:   env.StringOr(constants.EnvRevalidationQueue, DefaultRevalidationQueue),
		ImageCacheContainer: env.StringOr(constants.EnvImageCacheContainer, DefaultImageCacheContainer),
		AssetsContainer:     env.StringOr(constants.EnvAssetsContainer, DefaultAssetsContainer),
		StaticAssetsURL:     env.StringOr(constants.EnvStaticAssetsURL, ""),
		ProvisionCache:      env.Bool(constants.EnvCacheProvision, false),

		BuildID:          env.StringOr(constants.EnvBuildID, readBuildID(serverDir)),
		DeploymentTarget: env.StringOr(constants.EnvDeploymentTarget, "production"),
		Region:           env.StringOr(constants.EnvRegion, ""),
		Dev:              env.Bool(constants.EnvDev, strings.EqualFold(env.StringOr(constants.EnvNodeEnv, ""), "development")),

		Port:        env.Int(constants.EnvHandlerPort, DefaultHandlerPort),
		HTTPMode:    mode,
		Origin:      env.StringOr(constants.EnvOrigin, ""),
		ServerDir:   serverDir,
		ServerEntry: env.StringOr(constants.EnvServerEntry, ""),
		ServerPort:  env.Int(constants.EnvServerPort, DefaultServerPort),
		CacheToken:  env.StringOr(constants.EnvCacheToken, ""),

		AWSRegion:     env.StringOr(constants.EnvAWSRegion, DefaultAWSRegion),
		AWSEndpoint:   env.StringOr(constants.EnvAWSEndpoint, ""),
		AWSAccessKey:  env.StringOr(constants.EnvAWSAccessKey, ""),
		AWSSecretKey:  env.StringOr(constants.EnvAWSSecretKey, ""),
		S3Bucket:      env.StringOr(constants.EnvS3Bucket, ""),
		DynamoDBTable: env.StringOr(constants.EnvDynamoDBTable, ""),

		LocalCacheDir: env.StringOr(constants.EnvLocalCacheDir, filepath.Join(os.TempDir(), "opennext-azure-cache")),

		RedisURL:    env.StringOr(constants.EnvRedisURL, ""),
		DatabaseURL: env.StringOr(constants.EnvDatabaseURL, ""),
	}
	if cfg.Origin == "" {
		cfg.Origin = fmt.Sprintf("http://127.0.0.1:%d", cfg.ServerPort)
	}
	if err := cfg.validate(); err != nil {
		return Runtime{}, err
	}
	return cfg, nil
}

func (r Runtime) validate() error {
	switch r.Backend {
	case BackendAzure:
		if r.StorageConnectionString == "" && (r.StorageAccountName == "" || r.StorageAccountKey == "") {
			return fmt.Errorf("azure cache backend requires %s or %s and %s",
				constants.EnvStorageConnectionString, constants.EnvStorageAccountName, constants.EnvStorageAccountKey)
		}
	case BackendAWS:
		if r.S3Bucket == "" || r.DynamoDBTable == "" {
			return fmt.Errorf("aws cache backend requires %s and %s", constants.EnvS3Bucket, constants.EnvDynamoDBTable)
		}
	case BackendLocal:
		if r.LocalCacheDir == "" {
			return fmt.Errorf("local cache backend requires %s", constants.EnvLocalCacheDir)
		}
	}
	return nil
}

// BlobServiceURL returns the account blob endpoint, or "" when unknown.
func (r Runtime) BlobServiceURL() string {
	return r.ServiceURL("blob")
}

// ServiceURL returns the account endpoint for a storage service ("blob",
// "table", "queue").
func (r Runtime) ServiceURL(service string) string {
	key := strings.ToUpper(service[:1]) + service[1:] + "Endpoint"
	if endpoint := connectionStringValue(r.StorageConnectionString, key); endpoint != "" {
		return strings.TrimRight(endpoint, "/")
	}
	if r.StorageAccountName == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s.core.windows.net", r.StorageAccountName, service)
}

// AssetsBaseURL is where static assets are redirected to.
func (r Runtime) AssetsBaseURL() string {
	if r.StaticAssetsURL != "" {
		return strings.TrimRight(r.StaticAssetsURL, "/")
	}
	base := r.BlobServiceURL()
	if base == "" {
		return ""
	}
	return base + "/" + r.AssetsContainer
}

func parseHTTPMode(value string) (HTTPMode, error) {
	switch HTTPMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", HTTPModeForward:
		return HTTPModeForward, nil
	case HTTPModeInvoke:
		return HTTPModeInvoke, nil
	default:
		return "", fmt.Errorf("unsupported http mode: %s", value)
	}
}

func readBuildID(serverDir string) string {
	if serverDir == "" {
		return ""
	}
	payload, err := os.ReadFile(filepath.Join(serverDir, ".next", "BUILD_ID"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(payload))
}

func accountFromConnectionString(connection string) string {
	return connectionStringValue(connection, "AccountName")
}

func connectionStringValue(connection, key string) string {
	for _, part := range strings.Split(connection, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(name, key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
