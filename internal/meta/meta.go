// Where: internal/meta/meta.go
// What: Project-wide identity and layout constants.
// Why: Keep names shared by the CLI and the custom handler in one place.
package meta

const (
	// Project Identity
	AppName   = "opennext-azure"
	EnvPrefix = "OPENNEXT_AZURE"

	// Directory Layout
	HomeDir           = ".opennext-azure"
	OutputDir         = ".azure"
	FunctionDir       = "function"
	InfraDir          = "infra"
	OpenNextDir       = ".open-next"
	ProjectConfigFile = "opennext-azure.yml"
	HandlerBinary     = "handler"

	// Runtime Routes
	HealthRoute        = "/api/health"
	CacheBridgePrefix  = "/_opennext/cache"
	ServerFunction     = "server"
	RootFunction       = "root"
	RevalidateFunction = "opennext_revalidate"

	// Headers
	CacheTokenHeader   = "x-opennext-cache-token"
	RevalidateHeader   = "x-prerender-revalidate"
	InvocationIDHeader = "x-azure-functions-invocationid"

	// Containers
	LabelPrefix = "com.opennext-azure"
)
