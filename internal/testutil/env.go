// Package testutil provides utilities for testing prebuilt in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv isolates a test from the caller's prebuilt environment.
// It returns the base directory artifacts should be written to.
//
// Every PREBUILT_* variable that settings.Load reads is pinned to a value
// under t.TempDir(), so nothing leaks in from the developer's shell.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	baseDir := filepath.Join(tmpDir, "third_party")

	t.Setenv("PREBUILT_BASE_DIR", baseDir)
	t.Setenv("PREBUILT_MANIFEST", "")
	t.Setenv("PREBUILT_PACKAGE_JSON", filepath.Join(tmpDir, "package.json"))
	t.Setenv("PREBUILT_DUCKDB_VERSION", "")
	t.Setenv("PREBUILT_KEYTAR_VERSION", "")
	t.Setenv("PREBUILT_URL_BASE", "")
	t.Setenv("PREBUILT_COMPRESSION", "")

	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		t.Fatalf("failed to create test directory %s: %v", baseDir, err)
	}

	return baseDir
}
