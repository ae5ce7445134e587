// Where: internal/app/health.go
// What: health command.
// Why: Confirm a deployment answers on /api/health before sending traffic.
package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

type HealthCmd struct {
	URL     string        `help:"Base URL (default: last deployment or the azurewebsites.net address)"`
	Timeout time.Duration `default:"60s" help:"Give up after this long"`
}

func runHealth(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	base, err := healthBaseURL(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}
	target := strings.TrimRight(base, "/") + meta.HealthRoute
	console := ui.New(out)
	console.Info("Checking " + target)

	waitCtx, cancel := context.WithTimeout(ctx, cli.Health.Timeout)
	defer cancel()
	start := deps.Now()
	if err := deps.Waiter.Wait(waitCtx, target); err != nil {
		return exitWithError(out, err)
	}
	console.Success("Healthy after " + deps.Now().Sub(start).Round(time.Millisecond).String())
	return 0
}

// healthBaseURL prefers --url, then the recorded deployment, then the default host name.
func healthBaseURL(cli CLI, deps Dependencies) (string, error) {
	if cli.Health.URL != "" {
		return cli.Health.URL, nil
	}
	cc, _, err := resolveOptionalContext(cli, deps)
	if err != nil {
		return "", err
	}
	if cfg, err := loadGlobalConfig(); err == nil {
		if rec, ok := cfg.Deployment(cc.Project.App, cc.Project.Env); ok && rec.URL != "" {
			return rec.URL, nil
		}
	}
	return cc.DefaultURL(), nil
}
