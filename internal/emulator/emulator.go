// Where: internal/emulator/emulator.go
// What: Azurite storage emulator lifecycle through the Docker SDK.
// Why: Local development exercises the Azure cache backends without a cloud account.
package emulator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/poruru-code/opennext-azure/internal/meta"
)

const (
	DefaultImage = "mcr.microsoft.com/azure-storage/azurite:latest"
	DefaultName  = meta.AppName + "-azurite"

	// Well-known development account baked into Azurite.
	AccountName = "devstoreaccount1"
	AccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IxN9ol+/lUZZT3gCAzmp5eRdKUk4p5RtkVyMzgW0Ak5WBvnMS1aVcw=="

	roleLabel = meta.LabelPrefix + ".role"
	roleValue = "azurite"
)

// DockerClient is the Docker SDK subset used here.
type DockerClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// NewDockerClient constructs a Docker SDK client using environment defaults.
func NewDockerClient() (DockerClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// Ports are the host ports Azurite services are published on.
type Ports struct {
	Blob  int
	Queue int
	Table int
}

// DefaultPorts match Azurite's defaults.
var DefaultPorts = Ports{Blob: 10000, Queue: 10001, Table: 10002}

// Options configure Start.
type Options struct {
	Name  string
	Image string
	Ports Ports
	// Pull forces an image pull even when a container is reused.
	Pull bool
}

// Instance describes a running emulator.
type Instance struct {
	ContainerID string
	Name        string
	Reused      bool
	Ports       Ports
}

// ConnectionString returns the storage connection string for the instance.
func (i Instance) ConnectionString() string {
	return ConnectionString(i.Ports)
}

// ConnectionString builds a development connection string for ports on localhost.
func ConnectionString(ports Ports) string {
	return strings.Join([]string{
		"DefaultEndpointsProtocol=http",
		"AccountName=" + AccountName,
		"AccountKey=" + AccountKey,
		fmt.Sprintf("BlobEndpoint=http://127.0.0.1:%d/%s", ports.Blob, AccountName),
		fmt.Sprintf("QueueEndpoint=http://127.0.0.1:%d/%s", ports.Queue, AccountName),
		fmt.Sprintf("TableEndpoint=http://127.0.0.1:%d/%s", ports.Table, AccountName),
	}, ";") + ";"
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Image == "" {
		o.Image = DefaultImage
	}
	if o.Ports == (Ports{}) {
		o.Ports = DefaultPorts
	}
	return o
}

// Find returns the emulator container with the given name, if any.
func Find(ctx context.Context, docker DockerClient, name string) (*container.Summary, error) {
	args := filters.NewArgs()
	args.Add("label", roleLabel+"="+roleValue)
	containers, err := docker.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, err
	}
	for i := range containers {
		for _, n := range containers[i].Names {
			if strings.TrimPrefix(n, "/") == name {
				return &containers[i], nil
			}
		}
	}
	return nil, nil
}

// Start runs Azurite, reusing an existing container of the same name.
func Start(ctx context.Context, docker DockerClient, opts Options) (Instance, error) {
	opts = opts.withDefaults()
	existing, err := Find(ctx, docker, opts.Name)
	if err != nil {
		return Instance{}, fmt.Errorf("list containers: %w", err)
	}
	if existing != nil {
		if existing.State != "running" {
			if err := docker.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
				return Instance{}, fmt.Errorf("start %s: %w", opts.Name, err)
			}
		}
		return Instance{ContainerID: existing.ID, Name: opts.Name, Reused: true, Ports: portsOf(*existing, opts.Ports)}, nil
	}

	reader, err := docker.ImagePull(ctx, opts.Image, image.PullOptions{})
	if err != nil {
		return Instance{}, fmt.Errorf("pull %s: %w", opts.Image, err)
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	exposed, bindings := portSpec(opts.Ports)
	created, err := docker.ContainerCreate(ctx,
		&container.Config{
			Image:        opts.Image,
			Labels:       map[string]string{roleLabel: roleValue},
			ExposedPorts: exposed,
			Cmd: []string{
				"azurite",
				"--blobHost", "0.0.0.0",
				"--queueHost", "0.0.0.0",
				"--tableHost", "0.0.0.0",
				"--skipApiVersionCheck",
				"--loose",
			},
		},
		&container.HostConfig{
			PortBindings:  bindings,
			RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		},
		nil, nil, opts.Name)
	if err != nil {
		return Instance{}, fmt.Errorf("create %s: %w", opts.Name, err)
	}
	if err := docker.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return Instance{}, fmt.Errorf("start %s: %w", opts.Name, err)
	}
	return Instance{ContainerID: created.ID, Name: opts.Name, Ports: opts.Ports}, nil
}

// Stop stops and removes the emulator container. Missing containers are not an error.
func Stop(ctx context.Context, docker DockerClient, name string) (bool, error) {
	if name == "" {
		name = DefaultName
	}
	existing, err := Find(ctx, docker, name)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if existing.State == "running" {
		if err := docker.ContainerStop(ctx, existing.ID, container.StopOptions{}); err != nil {
			return false, fmt.Errorf("stop %s: %w", name, err)
		}
	}
	if err := docker.ContainerRemove(ctx, existing.ID, container.RemoveOptions{RemoveVolumes: true}); err != nil {
		return false, fmt.Errorf("remove %s: %w", name, err)
	}
	return true, nil
}

func portSpec(ports Ports) (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for containerPort, hostPort := range map[int]int{10000: ports.Blob, 10001: ports.Queue, 10002: ports.Table} {
		port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", hostPort)}}
	}
	return exposed, bindings
}

func portsOf(summary container.Summary, fallback Ports) Ports {
	ports := fallback
	for _, p := range summary.Ports {
		if p.PublicPort == 0 {
			continue
		}
		switch p.PrivatePort {
		case 10000:
			ports.Blob = int(p.PublicPort)
		case 10001:
			ports.Queue = int(p.PublicPort)
		case 10002:
			ports.Table = int(p.PublicPort)
		}
	}
	return ports
}
