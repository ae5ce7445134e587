// Where: internal/app/deps.go
// What: External collaborators of the CLI commands and their production wiring.
// Why: Commands talk to az, Docker, blob storage and HTTP through narrow interfaces.
package app

import (
	"context"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/poruru-code/opennext-azure/internal/artifact"
	"github.com/poruru-code/opennext-azure/internal/azcli"
	"github.com/poruru-code/opennext-azure/internal/emulator"
	"github.com/poruru-code/opennext-azure/internal/interaction"
	"github.com/poruru-code/opennext-azure/internal/probe"
)

// AzureCLI is the set of az operations the commands use.
type AzureCLI interface {
	Installed() error
	Account(ctx context.Context) (azcli.Account, error)
	SupportsRegion(ctx context.Context, region string) (bool, error)
	CreateGroup(ctx context.Context, name, region string, tags map[string]string) error
	GroupExists(ctx context.Context, name string) (bool, error)
	DeleteGroup(ctx context.Context, name string) error
	DeployTemplate(ctx context.Context, group, name, templateFile, parametersFile string) (azcli.DeploymentOutputs, error)
	StorageConnectionString(ctx context.Context, group, account string) (string, error)
	SetAppSettings(ctx context.Context, group, app string, settings map[string]string) error
	ConfigZip(ctx context.Context, group, app, zipPath string) error
	Tail(ctx context.Context, group, app string) error
}

// HealthWaiter blocks until url answers 200.
type HealthWaiter interface {
	Wait(ctx context.Context, url string) error
}

// NewDependencies returns the production wiring rooted at the working directory.
func NewDependencies() (Dependencies, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Dependencies{}, err
	}
	deps := Dependencies{ProjectDir: wd}
	if interaction.Interactive() {
		deps.Prompter = interaction.HuhPrompter{}
	}
	return deps.withDefaults(), nil
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Runner == nil {
		d.Runner = azcli.ExecRunner{Stdout: d.Out, Stderr: d.Out}
	}
	if d.Azure == nil {
		d.Azure = azcli.New(d.Runner)
	}
	if d.Uploader == nil {
		d.Uploader = newBlobUploader
	}
	if d.Docker == nil {
		d.Docker = emulator.NewDockerClient
	}
	if d.Waiter == nil {
		d.Waiter = probe.NewWaiter(5*time.Minute, 5*time.Second)
	}
	return d
}

func newBlobUploader(connectionString string) (artifact.BlobUploader, error) {
	return azblob.NewClientFromConnectionString(connectionString, nil)
}
