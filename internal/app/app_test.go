package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunNoArgsPrintsUsage(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run(nil, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, cmd := range []string{"init", "build", "deploy", "tail", "health", "delete", "dev"} {
		if !strings.Contains(out.String(), cmd) {
			t.Fatalf("usage missing %s:\n%s", cmd, out.String())
		}
	}
}

func TestRunVersion(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run([]string{"version"}, env.deps); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.TrimSpace(out.String()) == "" {
		t.Fatalf("expected version output")
	}
}

func TestRunUnknownCommandFails(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run([]string{"launch"}, env.deps); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "❌") {
		t.Fatalf("expected error message, got %q", out.String())
	}
}

func TestRunMissingProjectFails(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	env.deps.Out = &out
	if code := Run([]string{"build", "--handler", env.handler}, env.deps); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "project config not found") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
