// Where: internal/azcli/azcli.go
// What: Thin wrappers over the Azure CLI.
// Why: Deployments reuse the operator's az login instead of managing credentials.
package azcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ErrNotInstalled is returned when az is missing from PATH.
var ErrNotInstalled = errors.New("azure cli (az) not found in PATH")

// ErrNotLoggedIn is returned when az has no active account.
var ErrNotLoggedIn = errors.New("azure cli is not logged in; run 'az login'")

// Client issues az commands through a CommandRunner.
type Client struct {
	Runner CommandRunner
	Binary string
}

// New returns a Client using the az binary.
func New(runner CommandRunner) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{Runner: runner, Binary: "az"}
}

// Account is the subset of `az account show` used for preflight output.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
	User     struct {
		Name string `json:"name"`
	} `json:"user"`
}

// DeploymentOutputs are the Bicep outputs consumed after provisioning.
type DeploymentOutputs struct {
	FunctionAppName    string
	DefaultHostName    string
	StorageAccountName string
	AssetsBaseURL      string
}

// Installed checks that az is on PATH.
func (c *Client) Installed() error {
	if _, err := LookPath(c.Binary); err != nil {
		return ErrNotInstalled
	}
	return nil
}

// Account returns the active subscription.
func (c *Client) Account(ctx context.Context) (Account, error) {
	out, err := c.output(ctx, "account", "show", "--output", "json")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Account{}, ErrNotLoggedIn
		}
		return Account{}, err
	}
	var account Account
	if err := json.Unmarshal(out, &account); err != nil {
		return Account{}, fmt.Errorf("decode az account: %w", err)
	}
	return account, nil
}

// ConsumptionLocations lists regions offering the Functions consumption plan.
func (c *Client) ConsumptionLocations(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, "functionapp", "list-consumption-locations", "--output", "json")
	if err != nil {
		return nil, err
	}
	var locations []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(out, &locations); err != nil {
		return nil, fmt.Errorf("decode consumption locations: %w", err)
	}
	names := make([]string, 0, len(locations))
	for _, loc := range locations {
		names = append(names, NormalizeRegion(loc.Name))
	}
	sort.Strings(names)
	return names, nil
}

// SupportsRegion reports whether region offers the consumption plan.
func (c *Client) SupportsRegion(ctx context.Context, region string) (bool, error) {
	locations, err := c.ConsumptionLocations(ctx)
	if err != nil {
		return false, err
	}
	want := NormalizeRegion(region)
	for _, name := range locations {
		if name == want {
			return true, nil
		}
	}
	return false, nil
}

// NormalizeRegion turns "East US" and "eastus" into "eastus".
func NormalizeRegion(region string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(region), " ", ""))
}

// CreateGroup creates or updates a resource group.
func (c *Client) CreateGroup(ctx context.Context, name, region string, tags map[string]string) error {
	args := []string{"group", "create", "--name", name, "--location", region, "--output", "none"}
	if len(tags) > 0 {
		args = append(args, "--tags")
		args = append(args, sortedPairs(tags)...)
	}
	_, err := c.output(ctx, args...)
	return err
}

// GroupExists reports whether the resource group exists.
func (c *Client) GroupExists(ctx context.Context, name string) (bool, error) {
	out, err := c.output(ctx, "group", "exists", "--name", name)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// DeleteGroup starts deletion of a resource group without waiting.
func (c *Client) DeleteGroup(ctx context.Context, name string) error {
	_, err := c.output(ctx, "group", "delete", "--name", name, "--yes", "--no-wait")
	return err
}

// DeployTemplate runs a group-scoped Bicep deployment and returns its outputs.
func (c *Client) DeployTemplate(ctx context.Context, group, name, templateFile, parametersFile string) (DeploymentOutputs, error) {
	out, err := c.output(ctx,
		"deployment", "group", "create",
		"--resource-group", group,
		"--name", name,
		"--template-file", templateFile,
		"--parameters", "@"+parametersFile,
		"--output", "json",
	)
	if err != nil {
		return DeploymentOutputs{}, err
	}
	return parseDeploymentOutputs(out)
}

func parseDeploymentOutputs(payload []byte) (DeploymentOutputs, error) {
	var result struct {
		Properties struct {
			Outputs map[string]struct {
				Value any `json:"value"`
			} `json:"outputs"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return DeploymentOutputs{}, fmt.Errorf("decode deployment outputs: %w", err)
	}
	value := func(key string) string {
		if out, ok := result.Properties.Outputs[key]; ok {
			if s, ok := out.Value.(string); ok {
				return s
			}
		}
		return ""
	}
	outputs := DeploymentOutputs{
		FunctionAppName:    value("functionAppName"),
		DefaultHostName:    value("defaultHostName"),
		StorageAccountName: value("storageAccountName"),
		AssetsBaseURL:      value("assetsBaseUrl"),
	}
	if outputs.FunctionAppName == "" {
		return outputs, errors.New("deployment did not report functionAppName")
	}
	return outputs, nil
}

// StorageConnectionString returns the account's primary connection string.
func (c *Client) StorageConnectionString(ctx context.Context, group, account string) (string, error) {
	out, err := c.output(ctx,
		"storage", "account", "show-connection-string",
		"--resource-group", group,
		"--name", account,
		"--query", "connectionString",
		"--output", "tsv",
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// SetAppSettings merges settings into the function app configuration.
func (c *Client) SetAppSettings(ctx context.Context, group, app string, settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	args := []string{"functionapp", "config", "appsettings", "set",
		"--resource-group", group, "--name", app, "--output", "none", "--settings"}
	args = append(args, sortedPairs(settings)...)
	_, err := c.output(ctx, args...)
	return err
}

// ConfigZip pushes a zip package to the function app.
func (c *Client) ConfigZip(ctx context.Context, group, app, zipPath string) error {
	_, err := c.output(ctx,
		"functionapp", "deployment", "source", "config-zip",
		"--resource-group", group,
		"--name", app,
		"--src", zipPath,
		"--output", "none",
	)
	return err
}

// Tail streams the function app log until ctx ends.
func (c *Client) Tail(ctx context.Context, group, app string) error {
	return c.Runner.Run(ctx, "", nil, c.Binary, "webapp", "log", "tail", "--resource-group", group, "--name", app)
}

func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := c.Runner.RunOutput(ctx, "", nil, c.Binary, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("az %s: %w: %s", strings.Join(args[:min(len(args), 3)], " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("az %s: %w", strings.Join(args[:min(len(args), 3)], " "), err)
	}
	return out, nil
}

func sortedPairs(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values[key])
	}
	return pairs
}
