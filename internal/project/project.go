// Where: internal/project/project.go
// What: opennext-azure.yml project configuration.
// Why: Keep per-app deployment inputs in the repository next to the Next.js app.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/meta"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no project file exists in the directory.
var ErrNotFound = errors.New("project config not found")

// Project mirrors opennext-azure.yml.
type Project struct {
	Version       int               `yaml:"version,omitempty"`
	App           string            `yaml:"app"`
	Region        string            `yaml:"region,omitempty"`
	ResourceGroup string            `yaml:"resource_group,omitempty"`
	Env           string            `yaml:"env,omitempty"`
	Build         Build             `yaml:"build,omitempty"`
	Cache         Cache             `yaml:"cache,omitempty"`
	Function      Function          `yaml:"function,omitempty"`
	Settings      map[string]string `yaml:"settings,omitempty"`
}

// Build configures the OpenNext build step.
type Build struct {
	Command     string `yaml:"command,omitempty"`
	OpenNextDir string `yaml:"open_next_dir,omitempty"`
	NodeVersion string `yaml:"node_version,omitempty"`
}

// Cache configures the cache layout written to app settings.
type Cache struct {
	Backend   string `yaml:"backend,omitempty"`
	KeyPrefix string `yaml:"key_prefix,omitempty"`
	Container string `yaml:"container,omitempty"`
	Table     string `yaml:"table,omitempty"`
	Queue     string `yaml:"queue,omitempty"`
}

// Function configures the Functions app.
type Function struct {
	HTTPMode string `yaml:"http_mode,omitempty"`
	SKU      string `yaml:"sku,omitempty"`
}

// Defaults used when the project file leaves a field empty.
const (
	DefaultRegion       = "eastus"
	DefaultBuildCommand = "npx --yes @opennextjs/aws@latest build"
	DefaultNodeVersion  = "20"
	DefaultSKU          = "Y1"
	DefaultHTTPMode     = "forward"
)

// New returns a project with defaults applied.
func New(app string) Project {
	p := Project{Version: 1, App: app}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills empty fields.
func (p *Project) ApplyDefaults() {
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}
	if p.Build.Command == "" {
		p.Build.Command = DefaultBuildCommand
	}
	if p.Build.OpenNextDir == "" {
		p.Build.OpenNextDir = meta.OpenNextDir
	}
	if p.Build.NodeVersion == "" {
		p.Build.NodeVersion = DefaultNodeVersion
	}
	if p.Cache.Backend == "" {
		p.Cache.Backend = "azure"
	}
	if p.Function.HTTPMode == "" {
		p.Function.HTTPMode = DefaultHTTPMode
	}
	if p.Function.SKU == "" {
		p.Function.SKU = DefaultSKU
	}
}

// ResourceGroupName returns the configured group or rg-{app}[-{env}].
func (p Project) ResourceGroupName() string {
	if p.ResourceGroup != "" {
		return p.ResourceGroup
	}
	return "rg-" + p.QualifiedName()
}

// QualifiedName returns {app} or {app}-{env}.
func (p Project) QualifiedName() string {
	if p.Env == "" {
		return p.App
	}
	return p.App + "-" + p.Env
}

// StorageAccountName derives a valid storage account name (3-24 lowercase alphanumerics).
func (p Project) StorageAccountName() string {
	var b strings.Builder
	for _, r := range strings.ToLower(p.QualifiedName()) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := "st" + b.String()
	if len(name) > 24 {
		name = name[:24]
	}
	for len(name) < 3 {
		name += "0"
	}
	return name
}

// Path returns the project file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, meta.ProjectConfigFile)
}

// Load reads, validates and defaults the project file inside dir.
func Load(dir string) (Project, error) {
	path := Path(dir)
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Project{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Project{}, err
	}
	return Parse(payload)
}

// Parse validates payload against the project schema and decodes it.
func Parse(payload []byte) (Project, error) {
	if err := Validate(payload); err != nil {
		return Project{}, fmt.Errorf("invalid %s: %w", meta.ProjectConfigFile, err)
	}
	var p Project
	if err := yaml.Unmarshal(payload, &p); err != nil {
		return Project{}, fmt.Errorf("parse %s: %w", meta.ProjectConfigFile, err)
	}
	p.ApplyDefaults()
	return p, nil
}

// Save writes p to dir. Existing files are only replaced when overwrite is set.
func Save(dir string, p Project, overwrite bool) (string, error) {
	path := Path(dir)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists", path)
		}
	}
	payload, err := yaml.Marshal(&p)
	if err != nil {
		return "", err
	}
	if err := Validate(payload); err != nil {
		return "", fmt.Errorf("invalid project: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, payload, 0o644)
}
