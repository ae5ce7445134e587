// Where: internal/app/build.go
// What: build command.
// Why: Turn an OpenNext build into a deployable Functions package.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/poruru-code/opennext-azure/internal/artifact"
	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/envutil"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

// PackageFlags select how the Functions package is produced.
type PackageFlags struct {
	SkipNext   bool   `name:"skip-next" help:"Reuse the existing OpenNext output instead of running the build command"`
	Handler    string `help:"Prebuilt linux/amd64 custom handler binary"`
	HandlerSrc string `name:"handler-src" help:"Build the custom handler with go build from this module checkout"`
}

type BuildCmd struct {
	PackageFlags `embed:""`
}

// errNoHandler is returned when no handler binary can be located.
var errNoHandler = errors.New("custom handler binary not found")

func runBuild(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	cc, err := resolveCommandContext(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}
	console := ui.New(out)
	console.Header("📦", "Building "+cc.Project.QualifiedName())

	layout, err := buildPackage(ctx, cc, cli.Build.PackageFlags, deps, console, 0, 3)
	if err != nil {
		if errors.Is(err, errNoHandler) {
			return exitWithSuggestion(out, err.Error(), []string{
				meta.AppName + " build --handler ./bin/handler",
				meta.AppName + " build --handler-src <path to opennext-azure checkout>",
			})
		}
		return exitWithError(out, err)
	}
	console.Success("Functions package ready")
	console.Item("Package", layout.FunctionDir)
	console.Item("Assets", layout.AssetsDir)
	console.Item("Build ID", firstNonEmpty(layout.BuildID, "(unknown)"))
	return 0
}

// buildPackage runs the Next.js build and assembles the package, numbering
// its three steps after offset out of total.
func buildPackage(ctx context.Context, cc commandContext, flags PackageFlags, deps Dependencies, console *ui.Console, offset, total int) (artifact.Layout, error) {
	p := cc.Project
	if flags.SkipNext {
		console.Step(offset+1, total, "Skipping Next.js build")
	} else {
		console.Step(offset+1, total, "Running "+p.Build.Command)
		if err := deps.Runner.Run(ctx, cc.Dir, nil, "sh", "-c", p.Build.Command); err != nil {
			return artifact.Layout{}, fmt.Errorf("build command failed: %w", err)
		}
	}

	console.Step(offset+2, total, "Resolving custom handler")
	handler, err := resolveHandler(ctx, cc, flags, deps)
	if err != nil {
		return artifact.Layout{}, err
	}
	console.ItemPlain(handler)

	console.Step(offset+3, total, "Assembling Functions package")
	return artifact.Assemble(artifact.Options{
		ProjectDir:  cc.Dir,
		OpenNextDir: p.Build.OpenNextDir,
		OutDir:      meta.OutputDir,
		HandlerPath: handler,
		Forward:     p.Function.HTTPMode == string(config.HTTPModeForward),
		Queue:       firstNonEmpty(p.Cache.Queue, config.DefaultRevalidationQueue),
	})
}

// resolveHandler finds the handler binary: --handler, the HANDLER host env,
// a go build of --handler-src, or a binary shipped next to the CLI.
func resolveHandler(ctx context.Context, cc commandContext, flags PackageFlags, deps Dependencies) (string, error) {
	if flags.Handler != "" {
		return existingFile(flags.Handler)
	}
	if env := envutil.GetHostEnv(constants.HostSuffixHandler); env != "" {
		return existingFile(env)
	}
	if flags.HandlerSrc != "" {
		dest := filepath.Join(cc.Dir, meta.OutputDir, "bin", meta.HandlerBinary)
		env := []string{"GOOS=linux", "GOARCH=amd64", "CGO_ENABLED=0"}
		err := deps.Runner.Run(ctx, flags.HandlerSrc, env, "go", "build", "-trimpath", "-ldflags", "-s -w", "-o", dest, "./cmd/handler")
		if err != nil {
			return "", fmt.Errorf("go build handler: %w", err)
		}
		return dest, nil
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), meta.AppName+"-"+meta.HandlerBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errNoHandler
}

func existingFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNoHandler, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", errNoHandler, abs)
	}
	return abs, nil
}
