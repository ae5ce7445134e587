// Where: internal/app/app.go
// What: CLI entrypoint logic.
// Why: Provide a testable command dispatcher.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/poruru-code/opennext-azure/internal/artifact"
	"github.com/poruru-code/opennext-azure/internal/azcli"
	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/emulator"
	"github.com/poruru-code/opennext-azure/internal/interaction"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/version"
)

// Dependencies holds everything a command reaches outside the process.
// Tests replace the Azure CLI, Docker, blob uploads and health probes with fakes.
type Dependencies struct {
	ProjectDir string
	Out        io.Writer
	In         io.Reader
	Now        func() time.Time
	// Prompter is nil when no terminal is attached.
	Prompter interaction.Prompter
	Runner   azcli.CommandRunner
	Azure    AzureCLI
	Uploader func(connectionString string) (artifact.BlobUploader, error)
	Docker   func() (emulator.DockerClient, error)
	Waiter   HealthWaiter
}

// CLI defines the command-line interface parsed by Kong.
type CLI struct {
	App           string `help:"Application name (overrides ${config_file})"`
	ResourceGroup string `short:"g" name:"resource-group" help:"Azure resource group"`
	Region        string `help:"Azure region"`
	EnvFlag       string `short:"e" name:"env" help:"Deployment environment, e.g. staging"`
	EnvFile       string `name:"env-file" help:"Path to .env file"`
	Dir           string `short:"C" name:"dir" help:"Project directory (default: current directory)"`

	Init    InitCmd    `cmd:"" help:"Create ${config_file}"`
	Build   BuildCmd   `cmd:"" help:"Build the Next.js app and assemble the Functions package"`
	Deploy  DeployCmd  `cmd:"" help:"Provision Azure resources and deploy"`
	Tail    TailCmd    `cmd:"" help:"Stream function app logs"`
	Health  HealthCmd  `cmd:"" help:"Wait for the deployed health endpoint"`
	Delete  DeleteCmd  `cmd:"" help:"Delete the resource group"`
	Dev     DevCmd     `cmd:"" help:"Manage the local storage emulator"`
	Version VersionCmd `cmd:"" help:"Show version information"`

	Complete   CompleteCmd   `cmd:"" name:"__complete" hidden:"" help:"Completion candidate provider"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completion script"`
}

type VersionCmd struct{}

// Run parses args, dispatches the command and returns the exit code:
// 0 on success, 1 on any failure.
func Run(args []string, deps Dependencies) int {
	deps = deps.withDefaults()
	out := deps.Out

	if len(args) == 0 {
		printUsage(out)
		return 0
	}

	if err := config.EnsureGlobalConfig(); err != nil {
		return exitWithError(out, err)
	}

	cli := CLI{}
	parser, err := newParser(&cli, out)
	if err != nil {
		return exitWithError(out, err)
	}

	kctx, err := parser.Parse(args)
	if isHelp(args) {
		return 0
	}
	if err != nil {
		return handleParseError(err, out)
	}

	loadEnvFile(cli, deps, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if exitCode, handled := dispatchCommand(ctx, kctx.Command(), cli, deps, out); handled {
		return exitCode
	}
	fmt.Fprintln(out, "unknown command")
	return 1
}

func newParser(cli *CLI, out io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name(meta.AppName),
		kong.Description("Deploy OpenNext builds of Next.js apps to Azure Functions."),
		kong.Vars{"config_file": meta.ProjectConfigFile},
		kong.Writers(out, out),
		kong.Exit(func(int) {}),
	)
}

type commandHandler func(context.Context, CLI, Dependencies, io.Writer) int

func dispatchCommand(ctx context.Context, command string, cli CLI, deps Dependencies, out io.Writer) (int, bool) {
	handlers := map[string]commandHandler{
		"init":              runInit,
		"init <name>":       runInit,
		"build":             runBuild,
		"deploy":            runDeploy,
		"tail":              runTail,
		"health":            runHealth,
		"delete":            runDelete,
		"dev":               runDevStart,
		"dev start":         runDevStart,
		"dev stop":          runDevStop,
		"version":           func(context.Context, CLI, Dependencies, io.Writer) int { return runVersion(out) },
		"__complete <kind>": runComplete,
		"completion bash":   runCompletionBash,
		"completion zsh":    runCompletionZsh,
		"completion fish":   runCompletionFish,
	}
	if handler, ok := handlers[command]; ok {
		return handler(ctx, cli, deps, out), true
	}
	return 1, false
}

func runVersion(out io.Writer) int {
	fmt.Fprintln(out, version.GetVersion())
	return 0
}

// loadEnvFile loads --env-file, or .env from the project directory when present.
func loadEnvFile(cli CLI, deps Dependencies, out io.Writer) {
	if cli.EnvFile != "" {
		if err := godotenv.Load(cli.EnvFile); err != nil {
			fmt.Fprintf(out, "Warning: failed to load env file %s: %v\n", cli.EnvFile, err)
		}
		return
	}
	path := projectDir(cli, deps) + string(os.PathSeparator) + ".env"
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(out, "Warning: failed to load .env: %v\n", err)
		}
	}
}

func isHelp(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printUsage(out io.Writer) {
	fmt.Fprintf(out, "Usage: %s <command> [flags]\n\n", meta.AppName)
	fmt.Fprintln(out, "Commands:")
	for _, line := range []string{
		"init      Create " + meta.ProjectConfigFile,
		"build     Build the Next.js app and assemble the Functions package",
		"deploy    Provision Azure resources and deploy",
		"tail      Stream function app logs",
		"health    Wait for the deployed health endpoint",
		"delete    Delete the resource group",
		"dev       Manage the local storage emulator",
		"version   Show version information",
		"completion Generate shell completion script (bash, zsh, fish)",
	} {
		fmt.Fprintln(out, "  "+line)
	}
	fmt.Fprintf(out, "\nRun \"%s <command> --help\" for details.\n", meta.AppName)
}

// handleParseError turns kong errors into a short message with a hint.
func handleParseError(err error, out io.Writer) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unexpected argument"), strings.Contains(msg, "expected one of"):
		return exitWithSuggestion(out, msg, []string{meta.AppName + " --help"})
	default:
		return exitWithError(out, err)
	}
}
