// Where: internal/app/command_context_test.go
// What: Tests for shared command context resolution.
// Why: Flags must override opennext-azure.yml identically for every command.
package app

import (
	"testing"

	"github.com/poruru-code/opennext-azure/internal/project"
)

func TestResolveCommandContextAppliesOverrides(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))

	cli := CLI{EnvFlag: "prod", Region: "westeurope", ResourceGroup: "rg-custom"}
	cc, err := resolveCommandContext(cli, env.deps)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.Project.QualifiedName() != "shop-prod" {
		t.Fatalf("unexpected qualified name: %s", cc.Project.QualifiedName())
	}
	if cc.Project.Region != "westeurope" || cc.Project.ResourceGroupName() != "rg-custom" {
		t.Fatalf("overrides not applied: %+v", cc.Project)
	}
	if cc.FunctionAppName() != "func-shop-prod" {
		t.Fatalf("unexpected function app: %s", cc.FunctionAppName())
	}
	if cc.DefaultURL() != "https://func-shop-prod.azurewebsites.net" {
		t.Fatalf("unexpected url: %s", cc.DefaultURL())
	}
}

func TestResolveCommandContextMissingProject(t *testing.T) {
	env := newTestEnv(t)
	if _, err := resolveCommandContext(CLI{}, env.deps); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveOptionalContextFallsBackToFlags(t *testing.T) {
	env := newTestEnv(t)
	cc, ok, err := resolveOptionalContext(CLI{App: "blog"}, env.deps)
	if err != nil || !ok {
		t.Fatalf("expected flag-only context, got %v", err)
	}
	if cc.Project.App != "blog" || cc.Project.Region != project.DefaultRegion {
		t.Fatalf("unexpected project: %+v", cc.Project)
	}
	if cc.Dir != env.dir {
		t.Fatalf("unexpected dir: %s", cc.Dir)
	}
}

func TestResolveOptionalContextWithoutAppFails(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := resolveOptionalContext(CLI{}, env.deps); err == nil {
		t.Fatalf("expected error without project or --app")
	}
}

func TestProjectDirPrefersFlag(t *testing.T) {
	dir := t.TempDir()
	if got := projectDir(CLI{Dir: dir}, Dependencies{ProjectDir: "/elsewhere"}); got != dir {
		t.Fatalf("expected %s, got %s", dir, got)
	}
}
