// Where: internal/app/deploy.go
// What: deploy command.
// Why: One command takes a Next.js app from source to a healthy Functions app.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/poruru-code/opennext-azure/internal/artifact"
	"github.com/poruru-code/opennext-azure/internal/azcli"
	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/templates"
	"github.com/poruru-code/opennext-azure/internal/ui"
	"github.com/poruru-code/opennext-azure/internal/version"
)

type DeployCmd struct {
	PackageFlags `embed:""`
	SkipInfra    bool          `name:"skip-infra" help:"Reuse existing infrastructure; only update code, assets and the build id"`
	NoWait       bool          `name:"no-wait" help:"Do not wait for the health endpoint"`
	Timeout      time.Duration `default:"5m" help:"Health wait timeout"`
}

// ErrRegionUnsupported is returned when the region has no consumption plan capacity.
var ErrRegionUnsupported = errors.New("region does not offer the Functions consumption plan")

func runDeploy(ctx context.Context, cli CLI, deps Dependencies, out io.Writer) int {
	cc, err := resolveCommandContext(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}
	url, err := deploy(ctx, cc, cli.Deploy, deps, ui.New(out))
	if err != nil {
		if errors.Is(err, errNoHandler) {
			return exitWithSuggestion(out, err.Error(), []string{meta.AppName + " deploy --handler ./bin/handler"})
		}
		return exitWithError(out, err)
	}
	ui.New(out).Success("Deployed " + url)
	return 0
}

func deploy(ctx context.Context, cc commandContext, cmd DeployCmd, deps Dependencies, console *ui.Console) (string, error) {
	p := cc.Project
	group := p.ResourceGroupName()
	total := 8
	if !cmd.NoWait {
		total++
	}
	console.Header("🚀", fmt.Sprintf("Deploying %s to %s (%s)", p.QualifiedName(), group, p.Region))

	console.Step(1, total, "Preflight checks")
	account, err := preflight(ctx, deps.Azure, p.Region)
	if err != nil {
		return "", err
	}
	console.Item("Subscription", fmt.Sprintf("%s (%s)", account.Name, account.ID))

	layout, err := buildPackage(ctx, cc, cmd.PackageFlags, deps, console, 1, total)
	if err != nil {
		return "", err
	}

	infraDir := filepath.Join(cc.Dir, meta.OutputDir, meta.InfraDir)
	settings := appSettings(p.Env, layout.BuildID, cc)
	var outputs azcli.DeploymentOutputs
	if cmd.SkipInfra {
		console.Step(5, total, "Reusing resource group "+group)
		console.Step(6, total, "Updating app settings")
		outputs = azcli.DeploymentOutputs{
			FunctionAppName:    cc.FunctionAppName(),
			DefaultHostName:    cc.FunctionAppName() + ".azurewebsites.net",
			StorageAccountName: p.StorageAccountName(),
		}
		if err := deps.Azure.SetAppSettings(ctx, group, outputs.FunctionAppName, settings); err != nil {
			return "", err
		}
	} else {
		console.Step(5, total, "Creating resource group "+group)
		tags := map[string]string{"app": p.App, "managed-by": meta.AppName}
		if p.Env != "" {
			tags["env"] = p.Env
		}
		if err := deps.Azure.CreateGroup(ctx, group, p.Region, tags); err != nil {
			return "", err
		}

		console.Step(6, total, "Provisioning infrastructure")
		templateFile, paramsFile, err := writeInfra(infraDir, cc, settings, tags)
		if err != nil {
			return "", err
		}
		outputs, err = deps.Azure.DeployTemplate(ctx, group, p.QualifiedName()+"-"+deps.Now().UTC().Format("20060102150405"), templateFile, paramsFile)
		if err != nil {
			return "", err
		}
	}
	console.Item("Function app", outputs.FunctionAppName)

	console.Step(7, total, "Uploading static assets")
	connection, err := deps.Azure.StorageConnectionString(ctx, group, outputs.StorageAccountName)
	if err != nil {
		return "", err
	}
	uploader, err := deps.Uploader(connection)
	if err != nil {
		return "", fmt.Errorf("blob client: %w", err)
	}
	count, err := uploadAssets(ctx, uploader, layout.AssetsDir)
	if err != nil {
		return "", fmt.Errorf("upload assets: %w", err)
	}
	console.Item("Assets", fmt.Sprintf("%d files", count))

	console.Step(8, total, "Deploying function package")
	zipPath := filepath.Join(cc.Dir, meta.OutputDir, "function.zip")
	if err := artifact.Zip(layout.FunctionDir, zipPath); err != nil {
		return "", err
	}
	if err := deps.Azure.ConfigZip(ctx, group, outputs.FunctionAppName, zipPath); err != nil {
		return "", err
	}

	url := "https://" + firstNonEmpty(outputs.DefaultHostName, outputs.FunctionAppName+".azurewebsites.net")
	record := config.DeploymentRecord{
		App:            p.App,
		Env:            p.Env,
		ResourceGroup:  group,
		Region:         p.Region,
		StorageAccount: outputs.StorageAccountName,
		URL:            url,
		BuildID:        layout.BuildID,
		DeployedAt:     deps.Now().UTC().Format(time.RFC3339),
	}
	if err := updateGlobalConfig(func(cfg *config.GlobalConfig) { cfg.RecordDeployment(record) }); err != nil {
		console.Warn(fmt.Sprintf("could not record deployment: %v", err))
	}

	if !cmd.NoWait {
		console.Step(9, total, "Waiting for "+url+meta.HealthRoute)
		waitCtx, cancel := context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
		if err := deps.Waiter.Wait(waitCtx, url+meta.HealthRoute); err != nil {
			return "", fmt.Errorf("deployment is not healthy: %w", err)
		}
	}
	return url, nil
}

// preflight checks az, the login and regional availability.
func preflight(ctx context.Context, az AzureCLI, region string) (azcli.Account, error) {
	if err := az.Installed(); err != nil {
		return azcli.Account{}, err
	}
	account, err := az.Account(ctx)
	if err != nil {
		return azcli.Account{}, err
	}
	ok, err := az.SupportsRegion(ctx, region)
	if err != nil {
		return azcli.Account{}, err
	}
	if !ok {
		return azcli.Account{}, fmt.Errorf("%w: %s", ErrRegionUnsupported, region)
	}
	return account, nil
}

// appSettings are the handler settings not derived by the Bicep template.
func appSettings(env, buildID string, cc commandContext) map[string]string {
	p := cc.Project
	settings := map[string]string{
		constants.EnvCacheBackend:     p.Cache.Backend,
		constants.EnvHTTPMode:         p.Function.HTTPMode,
		constants.EnvServerDir:        artifact.AppDir,
		constants.EnvDeploymentTarget: firstNonEmpty(env, "production"),
		meta.EnvPrefix + "_VERSION":   version.GetVersion(),
	}
	if buildID != "" {
		settings[constants.EnvBuildID] = buildID
	}
	if p.Cache.KeyPrefix != "" {
		settings[constants.EnvCacheKeyPrefix] = p.Cache.KeyPrefix
	}
	for k, v := range p.Settings {
		settings[k] = v
	}
	return settings
}

func writeInfra(dir string, cc commandContext, settings, tags map[string]string) (string, string, error) {
	p := cc.Project
	bicep, err := templates.Bicep()
	if err != nil {
		return "", "", err
	}
	params, err := templates.RenderParameters(templates.ParametersData{
		AppName:            p.QualifiedName(),
		Location:           p.Region,
		StorageAccountName: p.StorageAccountName(),
		SKU:                p.Function.SKU,
		NodeVersion:        p.Build.NodeVersion,
		CacheContainer:     firstNonEmpty(p.Cache.Container, config.DefaultCacheContainer),
		ImageContainer:     config.DefaultImageCacheContainer,
		AssetsContainer:    config.DefaultAssetsContainer,
		TagTable:           firstNonEmpty(p.Cache.Table, config.DefaultTagCacheTable),
		RevalidationQueue:  firstNonEmpty(p.Cache.Queue, config.DefaultRevalidationQueue),
		AppSettings:        settings,
		Tags:               tags,
	})
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	templateFile := filepath.Join(dir, "main.bicep")
	paramsFile := filepath.Join(dir, "main.parameters.json")
	if err := os.WriteFile(templateFile, []byte(bicep), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(paramsFile, []byte(params), 0o644); err != nil {
		return "", "", err
	}
	return templateFile, paramsFile, nil
}

func uploadAssets(ctx context.Context, uploader artifact.BlobUploader, dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	return artifact.UploadAssets(ctx, uploader, config.DefaultAssetsContainer, dir)
}
