package settings

import (
	"os"
	"strings"
)

// EnvName returns the environment variable that feeds key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// envSet reports whether key's environment variable holds a non-empty value.
func envSet(key string) bool {
	return os.Getenv(EnvName(key)) != ""
}
