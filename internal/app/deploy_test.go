package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/poruru-code/opennext-azure/internal/project"
)

func TestDeployProvisionsUploadsAndRecords(t *testing.T) {
	env := newTestEnv(t)
	p := project.New("shop")
	p.Settings = map[string]string{"FEATURE_FLAG": "on"}
	env.withProject(t, p)

	code := Run([]string{"deploy", "--skip-next", "--handler", env.handler}, env.deps)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	want := []string{
		"installed",
		"account",
		"supports eastus",
		"create-group rg-shop eastus",
		"deploy-template rg-shop",
		"connection-string rg-shop stshop",
		"config-zip rg-shop func-shop",
	}
	if diff := cmp.Diff(want, env.azure.calls); diff != "" {
		t.Fatalf("az calls mismatch (-want +got):\n%s", diff)
	}
	for _, fragment := range []string{`"NEXT_BUILD_ID":"b42"`, `"FEATURE_FLAG":"on"`, `"OPENNEXT_SERVER_DIR":"app"`} {
		if !strings.Contains(env.azure.params, fragment) {
			t.Fatalf("parameters missing %s:\n%s", fragment, env.azure.params)
		}
	}
	if _, err := os.Stat(filepath.Join(env.dir, ".azure", "infra", "main.bicep")); err != nil {
		t.Fatalf("expected bicep written: %v", err)
	}
	if diff := cmp.Diff([]string{"_next/static/app.js"}, env.uploader.names); diff != "" {
		t.Fatalf("uploads mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://func-shop.azurewebsites.net/api/health"}, env.waiter.urls); diff != "" {
		t.Fatalf("health probe mismatch (-want +got):\n%s", diff)
	}

	cfg, err := loadGlobalConfig()
	if err != nil {
		t.Fatalf("load global config: %v", err)
	}
	rec, ok := cfg.Deployment("shop", "")
	if !ok || rec.BuildID != "b42" || rec.URL != "https://func-shop.azurewebsites.net" || rec.DeployedAt != "2026-10-19T12:00:00Z" {
		t.Fatalf("unexpected deployment record: %+v", rec)
	}
}

func TestDeployRejectsUnsupportedRegion(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))
	env.azure.unsupported = true

	if code := Run([]string{"--region", "antarctica", "deploy", "--skip-next", "--handler", env.handler}, env.deps); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if env.azure.has("create-group") {
		t.Fatalf("no resources may be created after a failed preflight: %v", env.azure.calls)
	}
}

func TestDeploySkipInfraUpdatesSettings(t *testing.T) {
	env := newTestEnv(t)
	p := project.New("shop")
	p.Env = "staging"
	env.withProject(t, p)

	if code := Run([]string{"deploy", "--skip-next", "--skip-infra", "--no-wait", "--handler", env.handler}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if env.azure.has("create-group") || env.azure.has("deploy-template") {
		t.Fatalf("infra must be skipped: %v", env.azure.calls)
	}
	if !env.azure.has("set-settings rg-shop-staging func-shop-staging") {
		t.Fatalf("expected settings update: %v", env.azure.calls)
	}
	if env.azure.settings["NEXT_BUILD_ID"] != "b42" || env.azure.settings["DEPLOYMENT_TARGET"] != "staging" {
		t.Fatalf("unexpected settings: %v", env.azure.settings)
	}
	if len(env.waiter.urls) != 0 {
		t.Fatalf("--no-wait must skip the health probe")
	}
}

func TestDeployUnhealthyFails(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))
	env.waiter.err = errors.New("endpoint did not become healthy")

	if code := Run([]string{"deploy", "--skip-next", "--handler", env.handler}, env.deps); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}
