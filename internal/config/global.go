// Where: internal/config/global.go
// What: Global CLI state load/save helpers.
// Why: Remember deployed apps in ~/.opennext-azure/config.yaml across commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/envutil"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents the ~/.opennext-azure/config.yaml file.
// It tracks known projects and the last deployment of each app.
type GlobalConfig struct {
	Version     int                         `yaml:"version"`
	Projects    map[string]ProjectEntry     `yaml:"projects,omitempty"`
	Deployments map[string]DeploymentRecord `yaml:"deployments,omitempty"`
}

// ProjectEntry stores a project's directory path and last-used timestamp.
type ProjectEntry struct {
	Path     string `yaml:"path"`
	LastUsed string `yaml:"last_used"`
}

// DeploymentRecord captures where an app was last deployed.
type DeploymentRecord struct {
	App            string `yaml:"app"`
	Env            string `yaml:"env,omitempty"`
	ResourceGroup  string `yaml:"resource_group"`
	Region         string `yaml:"region"`
	StorageAccount string `yaml:"storage_account,omitempty"`
	URL            string `yaml:"url,omitempty"`
	BuildID        string `yaml:"build_id,omitempty"`
	DeployedAt     string `yaml:"deployed_at"`
}

// DefaultGlobalConfig returns an initialized GlobalConfig with version set.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Version:     1,
		Projects:    map[string]ProjectEntry{},
		Deployments: map[string]DeploymentRecord{},
	}
}

// DeploymentKey identifies an app/env pair in Deployments.
func DeploymentKey(app, env string) string {
	if strings.TrimSpace(env) == "" {
		return app
	}
	return app + "@" + env
}

// RecordDeployment stores rec under its app/env key.
func (c *GlobalConfig) RecordDeployment(rec DeploymentRecord) {
	if c.Deployments == nil {
		c.Deployments = map[string]DeploymentRecord{}
	}
	c.Deployments[DeploymentKey(rec.App, rec.Env)] = rec
}

// ForgetDeployment removes an app/env record.
func (c *GlobalConfig) ForgetDeployment(app, env string) {
	delete(c.Deployments, DeploymentKey(app, env))
}

// Deployment looks up the record for an app/env pair.
func (c GlobalConfig) Deployment(app, env string) (DeploymentRecord, bool) {
	rec, ok := c.Deployments[DeploymentKey(app, env)]
	return rec, ok
}

// DeploymentKeys returns the recorded keys in sorted order.
func (c GlobalConfig) DeploymentKeys() []string {
	keys := make([]string, 0, len(c.Deployments))
	for key := range c.Deployments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GlobalConfigPath returns the path to the global config file.
// Respects the CONFIG_PATH and CONFIG_HOME host environment variables.
func GlobalConfigPath() (string, error) {
	if override := strings.TrimSpace(envutil.GetHostEnv(constants.HostSuffixConfigPath)); override != "" {
		path := override
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		return path, nil
	}
	if override := strings.TrimSpace(envutil.GetHostEnv(constants.HostSuffixConfigHome)); override != "" {
		return filepath.Join(override, "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, meta.HomeDir, "config.yaml"), nil
}

// EnsureGlobalConfig creates the global config file if it doesn't exist.
func EnsureGlobalConfig() error {
	path, err := GlobalConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return SaveGlobalConfig(path, DefaultGlobalConfig())
		}
		return err
	}
	return nil
}

// LoadGlobalConfig reads and parses the global configuration file.
// A missing file yields the default configuration.
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGlobalConfig(), nil
		}
		return GlobalConfig{}, err
	}

	cfg := DefaultGlobalConfig()
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return GlobalConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveGlobalConfig writes a GlobalConfig to the specified path.
func SaveGlobalConfig(path string, cfg GlobalConfig) error {
	payload, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, payload, 0o644)
}
