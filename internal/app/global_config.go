// Where: internal/app/global_config.go
// What: Read-modify-write helpers for ~/.opennext-azure/config.yaml.
// Why: init registers projects and deploy/delete track deployments.
package app

import (
	"time"

	"github.com/poruru-code/opennext-azure/internal/config"
)

func updateGlobalConfig(mutate func(*config.GlobalConfig)) error {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadGlobalConfig(path)
	if err != nil {
		return err
	}
	if cfg.Projects == nil {
		cfg.Projects = map[string]config.ProjectEntry{}
	}
	if cfg.Deployments == nil {
		cfg.Deployments = map[string]config.DeploymentRecord{}
	}
	mutate(&cfg)
	return config.SaveGlobalConfig(path, cfg)
}

func loadGlobalConfig() (config.GlobalConfig, error) {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return config.GlobalConfig{}, err
	}
	return config.LoadGlobalConfig(path)
}

func registerProject(name, dir string, now time.Time) error {
	return updateGlobalConfig(func(cfg *config.GlobalConfig) {
		cfg.Projects[name] = config.ProjectEntry{Path: dir, LastUsed: now.UTC().Format(time.RFC3339)}
	})
}
