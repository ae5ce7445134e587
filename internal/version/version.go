// Where: internal/version/version.go
// What: Build version reported by both binaries.
// Why: Deployments record which CLI build produced them.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set with -ldflags "-X .../internal/version.Version=v1.2.3" on release builds.
var Version = ""

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetVersion returns Version when stamped, otherwise the short VCS revision
// with a "(dirty)" suffix for modified trees, otherwise "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "dev"
	}
	if modified {
		return fmt.Sprintf("%s (dirty)", revision)
	}
	return revision
}
