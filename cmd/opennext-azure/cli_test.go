// Where: cmd/opennext-azure/cli_test.go
// What: Tests for CLI dependency wiring.
package main

import (
	"errors"
	"testing"

	"github.com/poruru-code/opennext-azure/internal/app"
)

func TestBuildDependenciesSuccess(t *testing.T) {
	orig := newDependencies
	t.Cleanup(func() { newDependencies = orig })
	newDependencies = func() (app.Dependencies, error) {
		return app.Dependencies{ProjectDir: "/project"}, nil
	}

	deps, err := buildDependencies()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deps.ProjectDir != "/project" {
		t.Fatalf("unexpected project dir: %s", deps.ProjectDir)
	}
	if deps.Out == nil {
		t.Fatalf("expected stdout as default writer")
	}
}

func TestBuildDependenciesError(t *testing.T) {
	orig := newDependencies
	t.Cleanup(func() { newDependencies = orig })
	newDependencies = func() (app.Dependencies, error) {
		return app.Dependencies{}, errors.New("no cwd")
	}

	if _, err := buildDependencies(); err == nil {
		t.Fatalf("expected error")
	}
}
