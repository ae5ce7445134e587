// Where: internal/app/completion.go
// What: Shell completion scripts and the hidden candidate provider.
// Why: Complete commands from the kong model and --app/--env from recorded deployments.
package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/poruru-code/opennext-azure/internal/meta"
)

type CompletionCmd struct {
	Bash CompletionBashCmd `cmd:"" help:"Generate bash completion script"`
	Zsh  CompletionZshCmd  `cmd:"" help:"Generate zsh completion script"`
	Fish CompletionFishCmd `cmd:"" help:"Generate fish completion script"`
}

type (
	CompletionBashCmd struct{}
	CompletionZshCmd  struct{}
	CompletionFishCmd struct{}
)

// CompleteCmd prints candidates for one completion kind, one per line.
type CompleteCmd struct {
	Kind string `arg:"" enum:"app,env" help:"Candidate kind"`
}

func runComplete(_ context.Context, cli CLI, _ Dependencies, out io.Writer) int {
	cfg, err := loadGlobalConfig()
	if err != nil {
		return 0
	}
	seen := map[string]struct{}{}
	switch cli.Complete.Kind {
	case "app":
		for name := range cfg.Projects {
			seen[name] = struct{}{}
		}
		for _, rec := range cfg.Deployments {
			seen[rec.App] = struct{}{}
		}
	case "env":
		for _, rec := range cfg.Deployments {
			if rec.Env != "" {
				seen[rec.Env] = struct{}{}
			}
		}
	}
	for _, name := range sortedKeys(seen) {
		fmt.Fprintln(out, name)
	}
	return 0
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type commandNode struct {
	Name string
	Help string
	Subs []string
}

// visibleCommands walks the kong model, skipping hidden commands.
func visibleCommands(out io.Writer) ([]commandNode, error) {
	parser, err := newParser(&CLI{}, out)
	if err != nil {
		return nil, err
	}
	var nodes []commandNode
	for _, node := range parser.Model.Children {
		if !isVisible(node) {
			continue
		}
		cmd := commandNode{Name: node.Name, Help: node.Help}
		for _, sub := range node.Children {
			if isVisible(sub) {
				cmd.Subs = append(cmd.Subs, sub.Name)
			}
		}
		nodes = append(nodes, cmd)
	}
	return nodes, nil
}

func isVisible(node *kong.Node) bool {
	return node.Type == kong.CommandNode && !node.Hidden && !strings.HasPrefix(node.Name, "__")
}

func commandNames(nodes []commandNode) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

func runCompletionBash(_ context.Context, _ CLI, _ Dependencies, out io.Writer) int {
	nodes, err := visibleCommands(out)
	if err != nil {
		return exitWithError(out, err)
	}
	var cases []string
	for _, n := range nodes {
		if len(n.Subs) == 0 {
			continue
		}
		cases = append(cases, fmt.Sprintf("        %s)\n            COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n            return 0\n            ;;",
			n.Name, strings.Join(n.Subs, " ")))
	}
	fn := "_" + strings.ReplaceAll(meta.AppName, "-", "_")
	fmt.Fprintf(out, `%[1]s_completion() {
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    case "${prev}" in
        --app)
            COMPREPLY=( $(compgen -W "$(command %[2]s __complete app 2>/dev/null)" -- "${cur}") )
            return 0
            ;;
        --env|-e)
            COMPREPLY=( $(compgen -W "$(command %[2]s __complete env 2>/dev/null)" -- "${cur}") )
            return 0
            ;;
%[3]s
    esac

    COMPREPLY=( $(compgen -W %[4]q -- "${cur}") )
}
complete -F %[1]s_completion %[2]s
`, fn, meta.AppName, strings.Join(cases, "\n"), strings.Join(commandNames(nodes), " "))
	return 0
}

func runCompletionZsh(_ context.Context, _ CLI, _ Dependencies, out io.Writer) int {
	nodes, err := visibleCommands(out)
	if err != nil {
		return exitWithError(out, err)
	}
	var described []string
	for _, n := range nodes {
		described = append(described, fmt.Sprintf("'%s:%s'", n.Name, strings.ReplaceAll(n.Help, "'", "")))
	}
	fn := "_" + strings.ReplaceAll(meta.AppName, "-", "_")
	fmt.Fprintf(out, `#compdef %[2]s
%[1]s() {
    local -a commands
    commands=(
        %[3]s
    )
    local prev="${words[$CURRENT-1]}"
    case "${prev}" in
        --app)
            _values 'apps' ${(f)"$(command %[2]s __complete app 2>/dev/null)"}
            return
            ;;
        --env|-e)
            _values 'environments' ${(f)"$(command %[2]s __complete env 2>/dev/null)"}
            return
            ;;
    esac
    _describe 'commands' commands
}
compdef %[1]s %[2]s
`, fn, meta.AppName, strings.Join(described, "\n        "))
	return 0
}

func runCompletionFish(_ context.Context, _ CLI, _ Dependencies, out io.Writer) int {
	nodes, err := visibleCommands(out)
	if err != nil {
		return exitWithError(out, err)
	}
	name := meta.AppName
	top := strings.Join(commandNames(nodes), " ")
	for _, n := range nodes {
		fmt.Fprintf(out, "complete -c %s -f -n 'not __fish_seen_subcommand_from %s' -a %s -d '%s'\n",
			name, top, n.Name, strings.ReplaceAll(n.Help, "'", ""))
		if len(n.Subs) > 0 {
			fmt.Fprintf(out, "complete -c %s -f -n '__fish_seen_subcommand_from %s' -a '%s'\n",
				name, n.Name, strings.Join(n.Subs, " "))
		}
	}
	fmt.Fprintf(out, "complete -c %[1]s -f -l app -r -a '(%[1]s __complete app)' -d 'Application'\n", name)
	fmt.Fprintf(out, "complete -c %[1]s -f -l env -s e -r -a '(%[1]s __complete env)' -d 'Environment'\n", name)
	return 0
}
