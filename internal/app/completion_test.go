// Where: internal/app/completion_test.go
// What: Tests for completion scripts and candidates.
// Why: Ensure dynamic completion outputs recorded names and scripts list every visible command.
package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/poruru-code/opennext-azure/internal/config"
)

func TestRunCompleteAppListsProjectsAndDeployments(t *testing.T) {
	env := newTestEnv(t)
	err := updateGlobalConfig(func(cfg *config.GlobalConfig) {
		cfg.Projects["shop"] = config.ProjectEntry{Path: "/tmp/shop"}
		cfg.RecordDeployment(config.DeploymentRecord{App: "blog", Env: "prod"})
		cfg.RecordDeployment(config.DeploymentRecord{App: "shop", Env: "staging"})
	})
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}

	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run([]string{"__complete", "app"}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if diff := cmp.Diff([]string{"blog", "shop"}, strings.Fields(out.String())); diff != "" {
		t.Fatalf("apps mismatch (-want +got):\n%s", diff)
	}

	out.Reset()
	if code := Run([]string{"__complete", "env"}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if diff := cmp.Diff([]string{"prod", "staging"}, strings.Fields(out.String())); diff != "" {
		t.Fatalf("envs mismatch (-want +got):\n%s", diff)
	}
}

func TestCompletionScriptsListCommands(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		t.Run(shell, func(t *testing.T) {
			env := newTestEnv(t)
			var out bytes.Buffer
			env.deps.Out = &out
			if code := Run([]string{"completion", shell}, env.deps); code != 0 {
				t.Fatalf("expected exit 0, got %d: %s", code, out.String())
			}
			script := out.String()
			for _, want := range []string{"deploy", "health", "__complete env"} {
				if !strings.Contains(script, want) {
					t.Fatalf("%s script missing %q:\n%s", shell, want, script)
				}
			}
			if strings.Contains(script, " __complete ") && strings.Contains(script, "-a __complete") {
				t.Fatalf("hidden command leaked into %s script", shell)
			}
		})
	}
}
