// Where: internal/templates/templates.go
// What: Render the Functions package and Bicep inputs.
// Why: host.json, function.json and deployment parameters share one embedded source of truth.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed files/*
var templateFS embed.FS

var templateCache sync.Map

// Default queue trigger tuning written to host.json.
const (
	DefaultMaxDequeueCount = 5
	DefaultQueueBatchSize  = 16
	StorageConnection      = "AzureWebJobsStorage"
)

// HTTPMethods are accepted by the HTTP trigger functions.
var HTTPMethods = []string{"get", "post", "put", "patch", "delete", "head", "options"}

// HostData feeds host.json.
type HostData struct {
	Executable      string
	Forward         bool
	MaxDequeueCount int
	QueueBatchSize  int
}

// HTTPFunctionData feeds an HTTP trigger function.json.
type HTTPFunctionData struct {
	Route   string
	Methods []string
}

// QueueFunctionData feeds the revalidation queue trigger function.json.
type QueueFunctionData struct {
	Queue      string
	Connection string
}

// ParametersData feeds main.parameters.json.
type ParametersData struct {
	AppName            string
	Location           string
	StorageAccountName string
	SKU                string
	NodeVersion        string
	CacheContainer     string
	ImageContainer     string
	AssetsContainer    string
	TagTable           string
	RevalidationQueue  string
	AppSettings        map[string]string
	Tags               map[string]string
}

// RenderHostJSON renders host.json.
func RenderHostJSON(data HostData) (string, error) {
	if data.Executable == "" {
		return "", fmt.Errorf("host.json requires an executable")
	}
	if data.MaxDequeueCount == 0 {
		data.MaxDequeueCount = DefaultMaxDequeueCount
	}
	if data.QueueBatchSize == 0 {
		data.QueueBatchSize = DefaultQueueBatchSize
	}
	return renderTemplate("host.json.tmpl", data)
}

// RenderHTTPFunction renders an HTTP trigger binding. An empty route binds the site root.
func RenderHTTPFunction(data HTTPFunctionData) (string, error) {
	if len(data.Methods) == 0 {
		data.Methods = HTTPMethods
	}
	return renderTemplate("http.function.json.tmpl", data)
}

// RenderQueueFunction renders the revalidation queue trigger binding.
func RenderQueueFunction(data QueueFunctionData) (string, error) {
	if data.Queue == "" {
		return "", fmt.Errorf("queue trigger requires a queue name")
	}
	if data.Connection == "" {
		data.Connection = StorageConnection
	}
	return renderTemplate("queue.function.json.tmpl", data)
}

// RenderParameters renders the Bicep parameters file.
func RenderParameters(data ParametersData) (string, error) {
	if data.AppName == "" || data.StorageAccountName == "" {
		return "", fmt.Errorf("parameters require appName and storageAccountName")
	}
	if data.AppSettings == nil {
		data.AppSettings = map[string]string{}
	}
	if data.Tags == nil {
		data.Tags = map[string]string{}
	}
	return renderTemplate("main.parameters.json.tmpl", data)
}

// Bicep returns the infrastructure template.
func Bicep() (string, error) {
	payload, err := templateFS.ReadFile("files/main.bicep")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func renderTemplate(name string, data any) (string, error) {
	tmpl, err := loadTemplate(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func loadTemplate(name string) (*template.Template, error) {
	if value, ok := templateCache.Load(name); ok {
		cached, ok := value.(*template.Template)
		if !ok {
			return nil, fmt.Errorf("template cache type mismatch for %s", name)
		}
		return cached, nil
	}
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "files/"+name)
	if err != nil {
		return nil, err
	}
	templateCache.Store(name, tmpl)
	return tmpl, nil
}
