package azcli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	err     error
}

func (f *fakeRunner) record(name string, args []string) string {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	return strings.Join(args, " ")
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ []string, name string, args ...string) error {
	f.record(name, args)
	return f.err
}

func (f *fakeRunner) RunOutput(_ context.Context, _ string, _ []string, name string, args ...string) ([]byte, error) {
	key := f.record(name, args)
	if f.err != nil {
		return nil, f.err
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(key, prefix) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func TestSupportsRegionNormalizesNames(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"functionapp list-consumption-locations": `[{"name":"East US"},{"name":"West Europe"}]`,
	}}
	client := New(runner)

	ok, err := client.SupportsRegion(context.Background(), "eastus")
	if err != nil || !ok {
		t.Fatalf("expected eastus supported, got %v %v", ok, err)
	}
	ok, err = client.SupportsRegion(context.Background(), "japaneast")
	if err != nil || ok {
		t.Fatalf("expected japaneast unsupported, got %v %v", ok, err)
	}
}

func TestAccountDecodes(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"account show": `{"id":"sub-1","name":"Dev","tenantId":"t-1","user":{"name":"dev@example.com"}}`,
	}}
	account, err := New(runner).Account(context.Background())
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.ID != "sub-1" || account.User.Name != "dev@example.com" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestCreateGroupPassesSortedTags(t *testing.T) {
	runner := &fakeRunner{}
	err := New(runner).CreateGroup(context.Background(), "rg-shop", "eastus", map[string]string{"env": "prod", "app": "shop"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	want := []string{"az", "group", "create", "--name", "rg-shop", "--location", "eastus", "--output", "none", "--tags", "app=shop", "env=prod"}
	if diff := cmp.Diff(want, runner.calls[0]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteGroupDoesNotWait(t *testing.T) {
	runner := &fakeRunner{}
	if err := New(runner).DeleteGroup(context.Background(), "rg-shop"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	want := []string{"az", "group", "delete", "--name", "rg-shop", "--yes", "--no-wait"}
	if diff := cmp.Diff(want, runner.calls[0]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDeployTemplateParsesOutputs(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"deployment group create": `{"properties":{"outputs":{
			"functionAppName":{"type":"String","value":"func-shop"},
			"defaultHostName":{"type":"String","value":"func-shop.azurewebsites.net"},
			"storageAccountName":{"type":"String","value":"stshop"},
			"assetsBaseUrl":{"type":"String","value":"https://stshop.blob.core.windows.net/assets"}}}}`,
	}}
	outputs, err := New(runner).DeployTemplate(context.Background(), "rg-shop", "shop", "main.bicep", "main.parameters.json")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	want := DeploymentOutputs{
		FunctionAppName:    "func-shop",
		DefaultHostName:    "func-shop.azurewebsites.net",
		StorageAccountName: "stshop",
		AssetsBaseURL:      "https://stshop.blob.core.windows.net/assets",
	}
	if diff := cmp.Diff(want, outputs); diff != "" {
		t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
	}
	if got := runner.calls[0][len(runner.calls[0])-3]; got != "@main.parameters.json" {
		t.Fatalf("expected parameters file reference, got %s", got)
	}
}

func TestDeployTemplateRequiresAppName(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"deployment group create": `{"properties":{"outputs":{}}}`}}
	if _, err := New(runner).DeployTemplate(context.Background(), "rg", "n", "t", "p"); err == nil {
		t.Fatalf("expected error for missing outputs")
	}
}

func TestOutputWrapsRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	err := New(runner).ConfigZip(context.Background(), "rg", "app", "pkg.zip")
	if err == nil || !strings.Contains(err.Error(), "az functionapp deployment source") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstalledUsesLookPath(t *testing.T) {
	orig := LookPath
	t.Cleanup(func() { LookPath = orig })
	LookPath = func(string) (string, error) { return "", errors.New("missing") }
	if err := New(nil).Installed(); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}
