package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poruru-code/opennext-azure/internal/project"
)

func TestBuildRunsCommandAndAssembles(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))

	if code := Run([]string{"build", "--handler", env.handler}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if len(env.runner.calls) != 1 {
		t.Fatalf("expected build command, got %v", env.runner.calls)
	}
	call := env.runner.calls[0]
	if call[0] != env.dir || call[1] != "sh" || call[3] != project.DefaultBuildCommand {
		t.Fatalf("unexpected build call: %v", call)
	}
	for _, rel := range []string{"host.json", "server/function.json", "handler", "app/index.mjs"} {
		if _, err := os.Stat(filepath.Join(env.dir, ".azure", "function", rel)); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}
}

func TestBuildSkipNext(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))
	if code := Run([]string{"build", "--skip-next", "--handler", env.handler}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if len(env.runner.calls) != 0 {
		t.Fatalf("expected no commands, got %v", env.runner.calls)
	}
}

func TestBuildHandlerFromSource(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))
	src := t.TempDir()

	// The fake runner does not compile; the assemble step then fails on the missing binary.
	_ = Run([]string{"build", "--skip-next", "--handler-src", src}, env.deps)
	if len(env.runner.calls) != 1 {
		t.Fatalf("expected go build, got %v", env.runner.calls)
	}
	call := env.runner.calls[0]
	if call[0] != src || call[1] != "go" || call[len(call)-1] != "./cmd/handler" {
		t.Fatalf("unexpected go build call: %v", call)
	}
}

func TestBuildWithoutHandlerSuggestsFlags(t *testing.T) {
	env := newTestEnv(t)
	env.withProject(t, project.New("shop"))
	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run([]string{"build", "--skip-next"}, env.deps); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "--handler") {
		t.Fatalf("expected handler hint, got:\n%s", out.String())
	}
}
