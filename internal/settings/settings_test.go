package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/archive"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/logging"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/report"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/testutil"
)

func load(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()
	fs := NewFlagSet("test")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return Load(fs)
}

func TestLoad_Defaults(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("PREBUILT_BASE_DIR", "")
	t.Setenv("PREBUILT_PACKAGE_JSON", "")

	s, err := load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.BaseDir != matrix.DefaultBaseDir || s.BaseDirExplicit {
		t.Errorf("BaseDir = %q (explicit %v), want default", s.BaseDir, s.BaseDirExplicit)
	}
	if s.PackageJSON != "package.json" {
		t.Errorf("PackageJSON = %q", s.PackageJSON)
	}
	if s.Concurrency != 0 || s.Timeout != 0 {
		t.Errorf("Concurrency = %d, Timeout = %s, want zero", s.Concurrency, s.Timeout)
	}
	if s.LogFormat != logging.FormatConsole || s.Format != report.FormatText {
		t.Errorf("LogFormat = %q, Format = %q", s.LogFormat, s.Format)
	}
	if len(s.Overrides) != 0 || len(s.EnvVersions) != 0 {
		t.Errorf("unexpected versions: %v %v", s.Overrides, s.EnvVersions)
	}
	if s.Compression != archive.CompressionGzip {
		t.Errorf("Compression = %s, want gzip", s.Compression)
	}
}

func TestLoad_Compression(t *testing.T) {
	testutil.SetupTestEnv(t)

	s, err := load(t, "--compression=zstd")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Compression != archive.CompressionZstd {
		t.Errorf("Compression = %s, want zstd", s.Compression)
	}

	t.Setenv("PREBUILT_COMPRESSION", "lz4")
	s, err = load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Compression != archive.CompressionLZ4 {
		t.Errorf("Compression = %s, want lz4 from env", s.Compression)
	}
}

func TestLoad_NormalizesVersions(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("PREBUILT_DUCKDB_VERSION", " v1.0.0 ")

	s, err := load(t, "--version-override=keytar=^7.9.0")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := s.EnvVersions[matrix.ComponentDuckDB]; got != "1.0.0" {
		t.Errorf("EnvVersions[duckdb] = %q, want 1.0.0", got)
	}
	if got := s.Overrides[matrix.ComponentKeytar]; got != "7.9.0" {
		t.Errorf("Overrides[keytar] = %q, want 7.9.0", got)
	}

	t.Setenv("PREBUILT_DUCKDB_VERSION", "v")
	s, err = load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := s.EnvVersions[matrix.ComponentDuckDB]; ok {
		t.Errorf("EnvVersions = %v, want prefix-only value ignored", s.EnvVersions)
	}
}

func TestLoad_Layering(t *testing.T) {
	baseDir := testutil.SetupTestEnv(t)
	t.Setenv("PREBUILT_CONCURRENCY", "4")
	t.Setenv("PREBUILT_TIMEOUT", "30s")
	t.Setenv("PREBUILT_DUCKDB_VERSION", "1.0.0")

	t.Run("env_only", func(t *testing.T) {
		s, err := load(t)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if s.BaseDir != baseDir || !s.BaseDirExplicit {
			t.Errorf("BaseDir = %q (explicit %v), want %q from env", s.BaseDir, s.BaseDirExplicit, baseDir)
		}
		if s.Concurrency != 4 || s.Timeout != 30*time.Second {
			t.Errorf("Concurrency = %d, Timeout = %s", s.Concurrency, s.Timeout)
		}
		if s.EnvVersions[matrix.ComponentDuckDB] != "1.0.0" {
			t.Errorf("EnvVersions = %v", s.EnvVersions)
		}
	})

	t.Run("flags_win", func(t *testing.T) {
		s, err := load(t, "--concurrency=2", "--base-dir=/elsewhere", "-o", "json")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if s.Concurrency != 2 || s.BaseDir != "/elsewhere" {
			t.Errorf("Concurrency = %d, BaseDir = %q", s.Concurrency, s.BaseDir)
		}
		if s.Format != report.FormatJSON {
			t.Errorf("Format = %q, want json", s.Format)
		}
	})
}

func TestLoad_SettingsFile(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("PREBUILT_BASE_DIR", "")

	path := filepath.Join(t.TempDir(), "prebuilt.yaml")
	content := "base-dir: vendor/native\nconcurrency: 3\nlog-format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := load(t, "--config", path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.BaseDir != "vendor/native" || !s.BaseDirExplicit {
		t.Errorf("BaseDir = %q (explicit %v)", s.BaseDir, s.BaseDirExplicit)
	}
	if s.Concurrency != 3 || s.LogFormat != logging.FormatJSON {
		t.Errorf("Concurrency = %d, LogFormat = %q", s.Concurrency, s.LogFormat)
	}

	if _, err := load(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing settings file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative_concurrency", []string{"--concurrency=-1"}},
		{"negative_timeout", []string{"--timeout=-5s"}},
		{"host_and_platform", []string{"--host", "--platform=linux-x64"}},
		{"bad_log_format", []string{"--log-format=xml"}},
		{"bad_report_format", []string{"--format=csv"}},
		{"bad_override", []string{"--version-override=duckdb"}},
		{"unknown_override_component", []string{"--version-override=sqlite=3"}},
		{"prefix_only_override", []string{"--version-override=duckdb=v"}},
		{"bad_compression", []string{"--compression=bzip2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.SetupTestEnv(t)
			if _, err := load(t, tt.args...); err == nil {
				t.Errorf("Load(%v) should fail", tt.args)
			}
		})
	}
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"duckdb=v0.9.2", " keytar = ~7.9.0 "})
	if err != nil {
		t.Fatalf("ParseOverrides() error = %v", err)
	}
	want := map[matrix.Component]string{
		matrix.ComponentDuckDB: "0.9.2",
		matrix.ComponentKeytar: "7.9.0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseOverrides() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseOverrides([]string{"duckdb=1", "duckdb=2"}); err == nil {
		t.Error("duplicate override should fail")
	}
	if _, err := ParseOverrides([]string{"=1"}); err == nil {
		t.Error("empty component should fail")
	}
}

func TestResolveVersion(t *testing.T) {
	manifest := func(c matrix.Component) (string, bool, error) {
		if c == matrix.ComponentKeytar {
			return "7.8.0", true, nil
		}
		return "", false, nil
	}
	pkg := func(c matrix.Component) (string, bool, error) {
		return "0.1.0", true, nil
	}

	s := &Settings{
		Overrides:   map[matrix.Component]string{matrix.ComponentDuckDB: "9.9.9"},
		EnvVersions: map[matrix.Component]string{matrix.ComponentDuckDB: "1.0.0", matrix.ComponentKeytar: "7.9.0"},
	}

	tests := []struct {
		name      string
		s         *Settings
		component matrix.Component
		want      string
	}{
		{"override_beats_env", s, matrix.ComponentDuckDB, "9.9.9"},
		{"env_beats_manifest", s, matrix.ComponentKeytar, "7.9.0"},
		{"manifest_beats_package", &Settings{}, matrix.ComponentKeytar, "7.8.0"},
		{"package_last", &Settings{}, matrix.ComponentDuckDB, "0.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.ResolveVersion(tt.component, manifest, pkg)
			if err != nil {
				t.Fatalf("ResolveVersion() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveVersion() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("none", func(t *testing.T) {
		_, err := (&Settings{}).ResolveVersion(matrix.ComponentDuckDB)
		if !errors.Is(err, ErrNoVersion) {
			t.Errorf("error = %v, want ErrNoVersion", err)
		}
	})

	t.Run("lookup_error", func(t *testing.T) {
		wantErr := errors.New("bad manifest")
		_, err := (&Settings{}).ResolveVersion(matrix.ComponentDuckDB, func(matrix.Component) (string, bool, error) {
			return "", false, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
	})
}

func TestEnvName(t *testing.T) {
	if got := EnvName(KeyPackageJSON); got != "PREBUILT_PACKAGE_JSON" {
		t.Errorf("EnvName() = %q", got)
	}
}
