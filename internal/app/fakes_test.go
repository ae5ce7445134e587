package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/poruru-code/opennext-azure/internal/artifact"
	"github.com/poruru-code/opennext-azure/internal/azcli"
	"github.com/poruru-code/opennext-azure/internal/emulator"
	"github.com/poruru-code/opennext-azure/internal/project"
)

type fakeRunner struct {
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, dir string, _ []string, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{dir, name}, args...))
	return f.err
}

func (f *fakeRunner) RunOutput(_ context.Context, dir string, _ []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{dir, name}, args...))
	return nil, f.err
}

type fakeAzure struct {
	calls       []string
	unsupported bool
	groupExists bool
	outputs     azcli.DeploymentOutputs
	settings    map[string]string
	params      string
	err         error
}

func (f *fakeAzure) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAzure) Installed() error { return f.record("installed") }

func (f *fakeAzure) Account(context.Context) (azcli.Account, error) {
	return azcli.Account{ID: "sub-1", Name: "Dev"}, f.record("account")
}

func (f *fakeAzure) SupportsRegion(_ context.Context, region string) (bool, error) {
	return !f.unsupported, f.record("supports " + region)
}

func (f *fakeAzure) CreateGroup(_ context.Context, name, region string, _ map[string]string) error {
	return f.record("create-group " + name + " " + region)
}

func (f *fakeAzure) GroupExists(_ context.Context, name string) (bool, error) {
	return f.groupExists, f.record("group-exists " + name)
}

func (f *fakeAzure) DeleteGroup(_ context.Context, name string) error {
	return f.record("delete-group " + name)
}

func (f *fakeAzure) DeployTemplate(_ context.Context, group, _ string, templateFile, parametersFile string) (azcli.DeploymentOutputs, error) {
	payload, _ := os.ReadFile(parametersFile)
	f.params = string(payload)
	if _, err := os.Stat(templateFile); err != nil {
		return azcli.DeploymentOutputs{}, err
	}
	return f.outputs, f.record("deploy-template " + group)
}

func (f *fakeAzure) StorageConnectionString(_ context.Context, group, account string) (string, error) {
	return "UseDevelopmentStorage=true", f.record("connection-string " + group + " " + account)
}

func (f *fakeAzure) SetAppSettings(_ context.Context, group, app string, settings map[string]string) error {
	f.settings = settings
	return f.record("set-settings " + group + " " + app)
}

func (f *fakeAzure) ConfigZip(_ context.Context, group, app, zipPath string) error {
	if _, err := os.Stat(zipPath); err != nil {
		return err
	}
	return f.record("config-zip " + group + " " + app)
}

func (f *fakeAzure) Tail(_ context.Context, group, app string) error {
	return f.record("tail " + group + " " + app)
}

func (f *fakeAzure) has(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) UploadBuffer(_ context.Context, _ string, name string, _ []byte, _ *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return azblob.UploadBufferResponse{}, nil
}

type fakeWaiter struct {
	urls []string
	err  error
}

func (f *fakeWaiter) Wait(_ context.Context, url string) error {
	f.urls = append(f.urls, url)
	return f.err
}

type fakeDocker struct {
	containers []container.Summary
	started    []string
	removed    []string
}

func (f *fakeDocker) ContainerList(context.Context, container.ListOptions) ([]container.Summary, error) {
	return f.containers, nil
}

func (f *fakeDocker) ImagePull(context.Context, string, image.PullOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeDocker) ContainerCreate(context.Context, *container.Config, *container.HostConfig, *network.NetworkingConfig, *ocispec.Platform, string) (container.CreateResponse, error) {
	return container.CreateResponse{ID: "azurite-1"}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDocker) ContainerStop(context.Context, string, container.StopOptions) error { return nil }

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

type testEnv struct {
	dir      string
	handler  string
	runner   *fakeRunner
	azure    *fakeAzure
	uploader *fakeUploader
	waiter   *fakeWaiter
	docker   *fakeDocker
	deps     Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENNEXT_AZURE_CONFIG_PATH", "")
	t.Setenv("OPENNEXT_AZURE_CONFIG_HOME", "")
	t.Setenv("OPENNEXT_AZURE_HANDLER", "")

	env := &testEnv{
		dir:      t.TempDir(),
		runner:   &fakeRunner{},
		uploader: &fakeUploader{},
		waiter:   &fakeWaiter{},
		docker:   &fakeDocker{},
		azure: &fakeAzure{outputs: azcli.DeploymentOutputs{
			FunctionAppName:    "func-shop",
			DefaultHostName:    "func-shop.azurewebsites.net",
			StorageAccountName: "stshop",
		}},
	}
	env.handler = filepath.Join(t.TempDir(), "handler")
	writeFile(t, env.handler, "#!/bin/sh")
	env.deps = Dependencies{
		ProjectDir: env.dir,
		Out:        io.Discard,
		In:         strings.NewReader(""),
		Now:        func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
		Runner:     env.runner,
		Azure:      env.azure,
		Uploader:   func(string) (artifact.BlobUploader, error) { return env.uploader, nil },
		Docker:     func() (emulator.DockerClient, error) { return env.docker, nil },
		Waiter:     env.waiter,
	}
	return env
}

// withProject writes opennext-azure.yml and a minimal OpenNext output.
func (e *testEnv) withProject(t *testing.T, p project.Project) {
	t.Helper()
	if _, err := project.Save(e.dir, p, true); err != nil {
		t.Fatalf("save project: %v", err)
	}
	bundle := filepath.Join(e.dir, ".open-next", "server-functions", "default")
	writeFile(t, filepath.Join(bundle, "index.mjs"), "export {}")
	writeFile(t, filepath.Join(bundle, ".next", "BUILD_ID"), "b42")
	writeFile(t, filepath.Join(e.dir, ".open-next", "assets", "_next", "static", "app.js"), "js")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
