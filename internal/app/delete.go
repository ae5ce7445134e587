// Where: internal/app/delete.go
// What: delete command.
// Why: Tear down every resource of an app by deleting its resource group.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/interaction"
	"github.com/poruru-code/opennext-azure/internal/ui"
)

type DeleteCmd struct {
	Yes bool `short:"y" help:"Skip confirmation prompt"`
}

func runDelete(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	cc, _, err := resolveOptionalContext(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}
	group := cc.Project.ResourceGroupName()
	console := ui.New(out)

	if !cli.Delete.Yes {
		question := fmt.Sprintf("Delete resource group %s and everything in it?", group)
		var confirmed bool
		if deps.Prompter != nil {
			confirmed, err = deps.Prompter.Confirm(question)
		} else {
			confirmed, err = interaction.PromptYesNo(deps.In, out, question)
		}
		if err != nil {
			return exitWithError(out, err)
		}
		if !confirmed {
			console.Info("Aborted")
			return 0
		}
	}

	if err := deps.Azure.Installed(); err != nil {
		return exitWithError(out, err)
	}
	exists, err := deps.Azure.GroupExists(ctx, group)
	if err != nil {
		return exitWithError(out, err)
	}
	if exists {
		if err := deps.Azure.DeleteGroup(ctx, group); err != nil {
			return exitWithError(out, err)
		}
		console.Success("Deletion of " + group + " started")
	} else {
		console.Info("Resource group " + group + " does not exist")
	}

	err = updateGlobalConfig(func(cfg *config.GlobalConfig) {
		cfg.ForgetDeployment(cc.Project.App, cc.Project.Env)
	})
	if err != nil {
		console.Warn(fmt.Sprintf("could not update deployment records: %v", err))
	}
	return 0
}
