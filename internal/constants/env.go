// Where: internal/constants/env.go
// What: Environment variable naming constants.
// Why: Centralize environment variable names to avoid typos and inconsistencies.
package constants

const (
	// Storage Account
	EnvStorageConnectionString = "AZURE_STORAGE_CONNECTION_STRING"
	EnvStorageAccountName      = "AZURE_STORAGE_ACCOUNT_NAME"
	EnvStorageAccountKey       = "AZURE_STORAGE_ACCOUNT_KEY"
	EnvFunctionsStorage        = "AzureWebJobsStorage"

	// Cache Layout
	EnvCacheBackend        = "CACHE_BACKEND"
	EnvCacheContainer      = "CACHE_CONTAINER"
	EnvCacheKeyPrefix      = "CACHE_KEY_PREFIX"
	EnvTagCacheTable       = "TAG_CACHE_TABLE"
	EnvRevalidationQueue   = "REVALIDATION_QUEUE"
	EnvImageCacheContainer = "IMAGE_CACHE_CONTAINER"
	EnvAssetsContainer     = "ASSETS_CONTAINER"
	EnvStaticAssetsURL     = "STATIC_ASSETS_URL"
	EnvCacheProvision      = "CACHE_PROVISION"

	// Build and Deployment
	EnvBuildID          = "NEXT_BUILD_ID"
	EnvDeploymentTarget = "DEPLOYMENT_TARGET"
	EnvRegion           = "AZURE_REGION"
	EnvNodeEnv          = "NODE_ENV"
	EnvDev              = "OPENNEXT_DEV"

	// Custom Handler Host
	EnvHandlerPort = "FUNCTIONS_CUSTOMHANDLER_PORT"
	EnvHTTPMode    = "OPENNEXT_HTTP_MODE"
	EnvOrigin      = "OPENNEXT_ORIGIN"
	EnvServerDir   = "OPENNEXT_SERVER_DIR"
	EnvServerEntry = "OPENNEXT_SERVER_ENTRY"
	EnvServerPort  = "OPENNEXT_SERVER_PORT"
	EnvCacheToken  = "OPENNEXT_CACHE_TOKEN"
	EnvCacheBridge = "OPENNEXT_CACHE_BRIDGE_URL"

	// AWS-compatible Backends
	EnvAWSRegion     = "AWS_REGION"
	EnvAWSEndpoint   = "AWS_ENDPOINT_URL"
	EnvAWSAccessKey  = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey  = "AWS_SECRET_ACCESS_KEY"
	EnvS3Bucket      = "S3_BUCKET"
	EnvDynamoDBTable = "DYNAMODB_TABLE"

	// Local Backend
	EnvLocalCacheDir = "LOCAL_CACHE_DIR"

	// Application Bindings
	EnvRedisURL    = "REDIS_URL"
	EnvDatabaseURL = "DATABASE_URL"

	// CLI Host Settings (prefixed with meta.EnvPrefix)
	HostSuffixConfigPath = "CONFIG_PATH"
	HostSuffixConfigHome = "CONFIG_HOME"
	HostSuffixNoEmoji    = "NO_EMOJI"
	HostSuffixHandler    = "HANDLER"
)
