// Where: cmd/opennext-azure/cli.go
// What: CLI dependency wiring.
// Why: Keep main free of construction details so they can be swapped in tests.
package main

import (
	"os"

	"github.com/poruru-code/opennext-azure/internal/app"
)

var (
	newDependencies = app.NewDependencies
	stdout          = os.Stdout
)

// buildDependencies constructs the production collaborators for the CLI.
func buildDependencies() (app.Dependencies, error) {
	deps, err := newDependencies()
	if err != nil {
		return app.Dependencies{}, err
	}
	if deps.Out == nil {
		deps.Out = stdout
	}
	return deps, nil
}
