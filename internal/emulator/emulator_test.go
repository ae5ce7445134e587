package emulator

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

type fakeDocker struct {
	containers []container.Summary
	pulled     []string
	created    *container.Config
	hostConfig *container.HostConfig
	started    []string
	stopped    []string
	removed    []string
}

func (f *fakeDocker) ContainerList(context.Context, container.ListOptions) ([]container.Summary, error) {
	return f.containers, nil
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	return io.NopCloser(strings.NewReader("{}")), nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.created = cfg
	f.hostConfig = host
	return container.CreateResponse{ID: "new-id"}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDocker) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func TestStartCreatesContainer(t *testing.T) {
	docker := &fakeDocker{}
	inst, err := Start(context.Background(), docker, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if inst.Reused || inst.ContainerID != "new-id" || inst.Ports != DefaultPorts {
		t.Fatalf("unexpected instance: %+v", inst)
	}
	if len(docker.pulled) != 1 || docker.pulled[0] != DefaultImage {
		t.Fatalf("expected image pull, got %v", docker.pulled)
	}
	if docker.created.Labels[roleLabel] != roleValue {
		t.Fatalf("missing role label: %v", docker.created.Labels)
	}
	binding := docker.hostConfig.PortBindings["10002/tcp"]
	if len(binding) != 1 || binding[0].HostPort != "10002" || binding[0].HostIP != "127.0.0.1" {
		t.Fatalf("unexpected table binding: %v", binding)
	}
	if len(docker.started) != 1 || docker.started[0] != "new-id" {
		t.Fatalf("expected start, got %v", docker.started)
	}
}

func TestStartReusesStoppedContainer(t *testing.T) {
	docker := &fakeDocker{containers: []container.Summary{{
		ID:    "old-id",
		Names: []string{"/" + DefaultName},
		State: "exited",
		Ports: []container.Port{{PrivatePort: 10000, PublicPort: 20000}},
	}}}
	inst, err := Start(context.Background(), docker, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !inst.Reused || inst.Ports.Blob != 20000 || inst.Ports.Queue != 10001 {
		t.Fatalf("unexpected instance: %+v", inst)
	}
	if len(docker.pulled) != 0 || docker.created != nil {
		t.Fatalf("reuse must not pull or create")
	}
	if len(docker.started) != 1 || docker.started[0] != "old-id" {
		t.Fatalf("expected restart of old container, got %v", docker.started)
	}
}

func TestStopRemovesRunningContainer(t *testing.T) {
	docker := &fakeDocker{containers: []container.Summary{{ID: "c1", Names: []string{"/" + DefaultName}, State: "running"}}}
	removed, err := Stop(context.Background(), docker, "")
	if err != nil || !removed {
		t.Fatalf("stop: %v %v", removed, err)
	}
	if len(docker.stopped) != 1 || len(docker.removed) != 1 {
		t.Fatalf("expected stop and remove: %v %v", docker.stopped, docker.removed)
	}
}

func TestStopMissingContainer(t *testing.T) {
	removed, err := Stop(context.Background(), &fakeDocker{}, "")
	if err != nil || removed {
		t.Fatalf("expected no-op, got %v %v", removed, err)
	}
}

func TestConnectionStringUsesPorts(t *testing.T) {
	conn := ConnectionString(Ports{Blob: 1, Queue: 2, Table: 3})
	for _, want := range []string{
		"AccountName=devstoreaccount1",
		"BlobEndpoint=http://127.0.0.1:1/devstoreaccount1",
		"QueueEndpoint=http://127.0.0.1:2/devstoreaccount1",
		"TableEndpoint=http://127.0.0.1:3/devstoreaccount1",
	} {
		if !strings.Contains(conn, want) {
			t.Fatalf("connection string missing %q: %s", want, conn)
		}
	}
}
