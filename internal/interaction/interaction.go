// Where: internal/interaction/interaction.go
// What: Prompts and TTY detection for the CLI.
// Why: Commands ask for missing input only when a person is at the terminal.
package interaction

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// SelectOption is one entry of a selection menu.
type SelectOption struct {
	Label string
	Value string
}

// Prompter asks the operator for input.
type Prompter interface {
	Input(title, placeholder string) (string, error)
	SelectValue(title string, options []SelectOption) (string, error)
	Confirm(title string) (bool, error)
}

// IsTerminal reports whether the file refers to a terminal device.
var IsTerminal = func(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// PromptYesNo reads a y/N answer from in, writing the question to out.
func PromptYesNo(in io.Reader, out io.Writer, message string) (bool, error) {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "%s [y/N]: ", message)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	trimmed := strings.TrimSpace(strings.ToLower(line))
	return trimmed == "y" || trimmed == "yes", nil
}
