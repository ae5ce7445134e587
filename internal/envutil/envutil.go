// Package envutil provides helper functions for environment variable handling.
package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/meta"
)

// Getenv is the lookup used by the helpers; tests swap it for a map.
type Getenv func(string) string

// HostEnvKey constructs a CLI host-level environment variable name.
// Example: HostEnvKey("CONFIG_HOME") returns "OPENNEXT_AZURE_CONFIG_HOME".
func HostEnvKey(suffix string) string {
	return meta.EnvPrefix + "_" + suffix
}

// GetHostEnv retrieves a host-level environment variable.
func GetHostEnv(suffix string) string {
	return os.Getenv(HostEnvKey(suffix))
}

// StringOr returns the trimmed value of key, or fallback when unset or blank.
func (g Getenv) StringOr(key, fallback string) string {
	if g == nil {
		g = os.Getenv
	}
	if value := strings.TrimSpace(g(key)); value != "" {
		return value
	}
	return fallback
}

// Bool parses key as a boolean; unset or unparsable values yield fallback.
func (g Getenv) Bool(key string, fallback bool) bool {
	raw := g.StringOr(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// Int parses key as an integer; unset or unparsable values yield fallback.
func (g Getenv) Int(key string, fallback int) int {
	raw := g.StringOr(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
