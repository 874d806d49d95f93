package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	baseDir := testutil.SetupTestEnv(t)

	if got := os.Getenv("PREBUILT_BASE_DIR"); got != baseDir {
		t.Errorf("PREBUILT_BASE_DIR = %q, want %q", got, baseDir)
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		t.Fatalf("base dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("base dir is not a directory")
	}

	if got := os.Getenv("PREBUILT_PACKAGE_JSON"); filepath.Dir(got) != filepath.Dir(baseDir) {
		t.Errorf("PREBUILT_PACKAGE_JSON = %q, not isolated", got)
	}

	if got := os.Getenv("PREBUILT_URL_BASE"); got != "" {
		t.Errorf("PREBUILT_URL_BASE = %q, want cleared", got)
	}
}
