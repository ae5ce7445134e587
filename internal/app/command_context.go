// Where: internal/app/command_context.go
// What: Project resolution shared by every command.
// Why: Flags override opennext-azure.yml the same way for build, deploy and the rest.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/project"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

type commandContext struct {
	Dir     string
	Project project.Project
}

// FunctionAppName matches the name the Bicep template assigns.
func (c commandContext) FunctionAppName() string {
	return "func-" + c.Project.QualifiedName()
}

// DefaultURL is the function app's azurewebsites.net address.
func (c commandContext) DefaultURL() string {
	return "https://" + c.FunctionAppName() + ".azurewebsites.net"
}

func exitWithError(out io.Writer, err error) int {
	ui.New(out).Error(err.Error())
	return 1
}

// exitWithSuggestion prints an error with suggested next steps.
func exitWithSuggestion(out io.Writer, msg string, suggestions []string) int {
	console := ui.New(out)
	console.Error(msg)
	if len(suggestions) > 0 {
		console.Info("💡 Next steps:")
		for _, s := range suggestions {
			console.ItemPlain("- " + s)
		}
	}
	return 1
}

func projectDir(cli CLI, deps Dependencies) string {
	dir := strings.TrimSpace(cli.Dir)
	if dir == "" {
		dir = deps.ProjectDir
	}
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// resolveCommandContext loads opennext-azure.yml and applies global flag overrides.
func resolveCommandContext(cli CLI, deps Dependencies) (commandContext, error) {
	dir := projectDir(cli, deps)
	p, err := project.Load(dir)
	if err != nil {
		return commandContext{}, err
	}
	applyOverrides(&p, cli)
	if strings.TrimSpace(p.App) == "" {
		return commandContext{}, fmt.Errorf("app name is empty; set it in %s or pass --app", project.Path(dir))
	}
	return commandContext{Dir: dir, Project: p}, nil
}

// resolveOptionalContext is resolveCommandContext for commands that can run
// from flags alone.
func resolveOptionalContext(cli CLI, deps Dependencies) (commandContext, bool, error) {
	ctx, err := resolveCommandContext(cli, deps)
	if err == nil {
		return ctx, true, nil
	}
	if !isNotFound(err) {
		return commandContext{}, false, err
	}
	if strings.TrimSpace(cli.App) == "" {
		return commandContext{}, false, err
	}
	p := project.New(cli.App)
	applyOverrides(&p, cli)
	return commandContext{Dir: projectDir(cli, deps), Project: p}, true, nil
}

func applyOverrides(p *project.Project, cli CLI) {
	if v := strings.TrimSpace(cli.App); v != "" {
		p.App = v
	}
	if v := strings.TrimSpace(cli.ResourceGroup); v != "" {
		p.ResourceGroup = v
	}
	if v := strings.TrimSpace(cli.Region); v != "" {
		p.Region = v
	}
	if v := strings.TrimSpace(cli.EnvFlag); v != "" {
		p.Env = v
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, project.ErrNotFound)
}
