// Where: internal/app/tail.go
// What: tail command.
// Why: Stream the function app log through az until interrupted.
package app

import (
	"context"
	"errors"
	"io"

	"github.com/poruru-code/opennext-azure/internal/ui"
)

type TailCmd struct{}

func runTail(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	cc, _, err := resolveOptionalContext(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}
	if err := deps.Azure.Installed(); err != nil {
		return exitWithError(out, err)
	}
	app := cc.FunctionAppName()
	ui.New(out).Info("Tailing " + app + " (Ctrl+C to stop)")
	if err := deps.Azure.Tail(ctx, cc.Project.ResourceGroupName(), app); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0
		}
		return exitWithError(out, err)
	}
	return 0
}
