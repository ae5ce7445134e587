// Where: cmd/opennext-azure/main.go
// What: CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/poruru-code/opennext-azure/internal/app"
)

func main() {
	deps, err := buildDependencies()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(app.Run(os.Args[1:], deps))
}
