// Where: internal/app/init.go
// What: init command.
// Why: Scaffold opennext-azure.yml and a .env.example for local runs.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/interaction"
	"github.com/poruru-code/opennext-azure/internal/project"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

type InitCmd struct {
	Name     string `arg:"" optional:"" help:"Application name (default: directory name)"`
	Backend  string `enum:"azure,aws,local" default:"azure" help:"Cache backend"`
	HTTPMode string `name:"http-mode" enum:"forward,invoke" default:"forward" help:"Custom handler HTTP mode"`
	Force    bool   `short:"f" help:"Overwrite an existing ${config_file}"`
	Yes      bool   `short:"y" help:"Accept defaults without prompting"`
}

func runInit(_ context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	dir := projectDir(cli, deps)
	console := ui.New(out)

	name := firstNonEmpty(cli.Init.Name, cli.App)
	region := strings.TrimSpace(cli.Region)
	ask := deps.Prompter != nil && !cli.Init.Yes

	if name == "" {
		name = sanitizeAppName(filepath.Base(dir))
		if ask {
			answer, err := deps.Prompter.Input("Application name", name)
			if err != nil {
				return exitWithError(out, err)
			}
			name = sanitizeAppName(answer)
		}
	}
	if name == "" {
		return exitWithSuggestion(out, "application name required", []string{"opennext-azure init <name>"})
	}
	if region == "" && ask {
		answer, err := deps.Prompter.SelectValue("Azure region", regionOptions())
		if err != nil {
			return exitWithError(out, err)
		}
		region = answer
	}

	p := project.New(name)
	applyOverrides(&p, cli)
	p.App = name
	if region != "" {
		p.Region = region
	}
	p.Cache.Backend = cli.Init.Backend
	p.Function.HTTPMode = cli.Init.HTTPMode

	path, err := project.Save(dir, p, cli.Init.Force)
	if err != nil {
		return exitWithError(out, err)
	}
	envExample := filepath.Join(dir, ".env.example")
	wroteEnv := false
	if _, err := os.Stat(envExample); os.IsNotExist(err) {
		if err := os.WriteFile(envExample, []byte(envExampleContent(p)), 0o644); err != nil {
			return exitWithError(out, err)
		}
		wroteEnv = true
	}
	if err := registerProject(p.App, dir, deps.Now()); err != nil {
		console.Warn(fmt.Sprintf("could not register project: %v", err))
	}

	console.Success("Created " + path)
	console.Item("App", p.App)
	console.Item("Region", p.Region)
	console.Item("Resource group", p.ResourceGroupName())
	console.Item("Cache backend", p.Cache.Backend)
	console.Item("HTTP mode", p.Function.HTTPMode)
	if wroteEnv {
		console.Item("Env template", envExample)
	}
	console.Info("Next: opennext-azure build && opennext-azure deploy")
	return 0
}

func regionOptions() []interaction.SelectOption {
	regions := []string{"eastus", "eastus2", "westus2", "westeurope", "northeurope", "japaneast", "southeastasia", "australiaeast"}
	options := make([]interaction.SelectOption, len(regions))
	for i, r := range regions {
		options[i] = interaction.SelectOption{Label: r, Value: r}
	}
	return options
}

// sanitizeAppName lowercases name and keeps [a-z0-9-].
func sanitizeAppName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func envExampleContent(p project.Project) string {
	lines := []string{
		"# Local development settings for the custom handler.",
		"# Start the storage emulator with: opennext-azure dev --write-env",
		constants.EnvCacheBackend + "=" + p.Cache.Backend,
		constants.EnvStorageConnectionString + "=",
		constants.EnvCacheContainer + "=" + firstNonEmpty(p.Cache.Container, config.DefaultCacheContainer),
		constants.EnvTagCacheTable + "=" + firstNonEmpty(p.Cache.Table, config.DefaultTagCacheTable),
		constants.EnvRevalidationQueue + "=" + firstNonEmpty(p.Cache.Queue, config.DefaultRevalidationQueue),
		constants.EnvCacheProvision + "=true",
		constants.EnvHTTPMode + "=" + p.Function.HTTPMode,
		constants.EnvServerDir + "=" + p.Build.OpenNextDir + "/server-functions/default",
		constants.EnvDev + "=true",
	}
	return strings.Join(lines, "\n") + "\n"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
