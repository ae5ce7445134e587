// Where: internal/app/dev.go
// What: dev start/stop commands.
// Why: Run the Azure cache backends against Azurite on the developer machine.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/emulator"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

type DevCmd struct {
	Start DevStartCmd `cmd:"" default:"1" help:"Start the Azurite storage emulator"`
	Stop  DevStopCmd  `cmd:"" help:"Stop and remove the emulator container"`
}

type DevStartCmd struct {
	BlobPort  int  `name:"blob-port" default:"10000" help:"Host port for the blob service"`
	QueuePort int  `name:"queue-port" default:"10001" help:"Host port for the queue service"`
	TablePort int  `name:"table-port" default:"10002" help:"Host port for the table service"`
	WriteEnv  bool `name:"write-env" help:"Write the connection settings into .env"`
}

type DevStopCmd struct{}

func runDevStart(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	docker, err := deps.Docker()
	if err != nil {
		return exitWithError(out, err)
	}
	flags := cli.Dev.Start
	inst, err := emulator.Start(ctx, docker, emulator.Options{Ports: emulator.Ports{
		Blob:  flags.BlobPort,
		Queue: flags.QueuePort,
		Table: flags.TablePort,
	}})
	if err != nil {
		return exitWithError(out, err)
	}

	console := ui.New(out)
	if inst.Reused {
		console.Success("Azurite already present (" + inst.Name + ")")
	} else {
		console.Success("Azurite started (" + inst.Name + ")")
	}
	env := devEnv(inst)
	console.Items(env)

	if flags.WriteEnv {
		path := filepath.Join(projectDir(cli, deps), ".env")
		if err := mergeEnvFile(path, env); err != nil {
			return exitWithError(out, err)
		}
		console.Info("Updated " + path)
	}
	return 0
}

func runDevStop(ctx context.Context, _ CLI, deps Dependencies, out io.Writer) int {
	docker, err := deps.Docker()
	if err != nil {
		return exitWithError(out, err)
	}
	removed, err := emulator.Stop(ctx, docker, "")
	if err != nil {
		return exitWithError(out, err)
	}
	if removed {
		ui.New(out).Success("Azurite removed")
	} else {
		ui.New(out).Info("Azurite is not running")
	}
	return 0
}

func devEnv(inst emulator.Instance) map[string]string {
	return map[string]string{
		constants.EnvStorageConnectionString: inst.ConnectionString(),
		constants.EnvCacheBackend:            "azure",
		constants.EnvCacheProvision:          "true",
		constants.EnvDev:                     "true",
	}
}

// mergeEnvFile sets values in a dotenv file, keeping unrelated entries.
func mergeEnvFile(path string, values map[string]string) error {
	existing := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err = godotenv.Read(path)
		if err != nil {
			return err
		}
	}
	for k, v := range values {
		existing[k] = v
	}
	return godotenv.Write(existing, path)
}
