// Where: internal/ui/console.go
// What: Console output for the operator CLI.
// Why: Every command reports progress with the same markers and indentation.
package ui

import (
	"fmt"
	"io"
	"sort"
)

// Console writes formatted CLI output.
type Console struct {
	Out io.Writer
	// Plain drops emoji markers, e.g. when output is not a terminal.
	Plain bool
}

// New creates a Console writing to out.
func New(out io.Writer) *Console {
	return &Console{Out: out}
}

func (c *Console) marker(emoji, plain string) string {
	if c.Plain {
		return plain
	}
	return emoji
}

// Header prints a section header.
// Example: 🚀 Deploying shop
func (c *Console) Header(emoji, title string) {
	fmt.Fprintf(c.Out, "%s %s\n", c.marker(emoji, "=="), title)
}

// Step prints a numbered step of a longer operation.
// Example: [2/5] Creating resource group
func (c *Console) Step(n, total int, msg string) {
	fmt.Fprintf(c.Out, "[%d/%d] %s\n", n, total, msg)
}

// Item prints an indented key-value line.
func (c *Console) Item(key string, value any) {
	fmt.Fprintf(c.Out, "   %-18s %v\n", key+":", value)
}

// Items prints a map as sorted key-value lines.
func (c *Console) Items(values map[string]string) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c.Item(key, values[key])
	}
}

// ItemPlain prints an indented line.
func (c *Console) ItemPlain(msg string) {
	fmt.Fprintf(c.Out, "   %s\n", msg)
}

// Success prints a success line.
func (c *Console) Success(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", c.marker("✅", "OK"), msg)
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", c.marker("➜", "->"), msg)
}

// Warn prints a warning line.
func (c *Console) Warn(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", c.marker("⚠️ ", "WARN"), msg)
}

// Error prints an error line.
func (c *Console) Error(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", c.marker("❌", "ERROR"), msg)
}
