// Where: internal/config/global_test.go
// What: Tests for global config helpers.
// Why: Deployment records must survive a save/load cycle.
package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGlobalConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultGlobalConfig()
	cfg.Projects["shop"] = ProjectEntry{Path: "/src/shop", LastUsed: "2026-01-08T23:45:00+09:00"}
	cfg.RecordDeployment(DeploymentRecord{
		App:           "shop",
		Env:           "staging",
		ResourceGroup: "rg-shop-staging",
		Region:        "japaneast",
		URL:           "https://shop-staging.azurewebsites.net",
		DeployedAt:    "2026-01-09T10:00:00Z",
	})

	if err := SaveGlobalConfig(path, cfg); err != nil {
		t.Fatalf("save global config: %v", err)
	}

	loaded, err := LoadGlobalConfig(path)
	if err != nil {
		t.Fatalf("load global config: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	rec, ok := loaded.Deployment("shop", "staging")
	if !ok || rec.ResourceGroup != "rg-shop-staging" {
		t.Fatalf("unexpected deployment lookup: %#v %v", rec, ok)
	}
}

func TestLoadGlobalConfigMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 1 || cfg.Deployments == nil {
		t.Fatalf("unexpected default config: %#v", cfg)
	}
}

func TestForgetDeployment(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.RecordDeployment(DeploymentRecord{App: "shop"})
	cfg.RecordDeployment(DeploymentRecord{App: "blog", Env: "prod"})
	cfg.ForgetDeployment("shop", "")
	if got := cfg.DeploymentKeys(); len(got) != 1 || got[0] != "blog@prod" {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestGlobalConfigPathHonorsOverride(t *testing.T) {
	overridePath := filepath.Join(t.TempDir(), "custom", "config.yaml")
	t.Setenv("OPENNEXT_AZURE_CONFIG_PATH", overridePath)

	got, err := GlobalConfigPath()
	if err != nil {
		t.Fatalf("global config path: %v", err)
	}
	if got != overridePath {
		t.Fatalf("unexpected config path: %s", got)
	}
}

func TestGlobalConfigPathHonorsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("OPENNEXT_AZURE_CONFIG_PATH", "")
	t.Setenv("OPENNEXT_AZURE_CONFIG_HOME", home)

	got, err := GlobalConfigPath()
	if err != nil {
		t.Fatalf("global config path: %v", err)
	}
	if got != filepath.Join(home, "config.yaml") {
		t.Fatalf("unexpected config path: %s", got)
	}
}
