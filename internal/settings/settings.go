// Package settings layers prebuilt's configuration: command-line flags,
// then PREBUILT_* environment variables, then an optional YAML settings
// file, then defaults.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/archive"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/fetch"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/logging"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/manifest"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/report"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "PREBUILT"

// Configuration keys
const (
	KeyConfig          = "config"
	KeyBaseDir         = "base-dir"
	KeyManifest        = "manifest"
	KeyPackageJSON     = "package-json"
	KeyConcurrency     = "concurrency"
	KeyTimeout         = "timeout"
	KeyUserAgent       = "user-agent"
	KeyURLBase         = "url-base"
	KeyCompression     = "compression"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyHost            = "host"
	KeyPlatform        = "platform"
	KeyFormat          = "format"
	KeyVersionOverride = "version-override"
)

// Settings is the resolved configuration of one invocation
type Settings struct {
	BaseDir string
	// BaseDirExplicit is true when BaseDir came from a flag, the
	// environment or the settings file rather than the default.
	BaseDirExplicit bool

	Manifest    string
	PackageJSON string
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	URLBase     string
	// Compression is the codec archives are published with
	Compression archive.Compression

	LogLevel  string
	LogFormat logging.Format

	Host      bool
	Platforms []string
	Format    report.Format

	// Overrides holds --version-override pairs
	Overrides map[matrix.Component]string
	// EnvVersions holds PREBUILT_<COMPONENT>_VERSION values
	EnvVersions map[matrix.Component]string
}

// NewFlagSet registers every setting as a flag on a new FlagSet.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String(KeyConfig, "", "YAML settings file")
	fs.String(KeyBaseDir, matrix.DefaultBaseDir, "directory artifacts are written under")
	fs.String(KeyManifest, "", "Lua manifest pinning component versions")
	fs.String(KeyPackageJSON, "package.json", "package.json declaring component versions")
	fs.Int(KeyConcurrency, 0, "maximum concurrent downloads (0 = unlimited)")
	fs.Duration(KeyTimeout, 0, "per-target timeout (0 = none)")
	fs.String(KeyUserAgent, fetch.DefaultUserAgent, "User-Agent header for downloads")
	fs.String(KeyURLBase, "", "override the archive host (mirrors and tests)")
	fs.String(KeyCompression, "gzip", "archive codec of the host (gzip, zstd, lz4, none)")
	fs.String(KeyLogLevel, "info", "log level (debug, info, warn, error)")
	fs.String(KeyLogFormat, string(logging.FormatConsole), "log format (console, json)")
	fs.Bool(KeyHost, false, "fetch only the platform of this host")
	fs.StringSlice(KeyPlatform, nil, "fetch only these platform keys")
	fs.StringP(KeyFormat, "o", string(report.FormatText), "report format (text, json, yaml)")
	fs.StringArray(KeyVersionOverride, nil, "pin a version as component=version (repeatable)")
	return fs
}

// Load resolves settings from fs, the environment and an optional
// settings file. fs must already be parsed.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file %s: %w", path, err)
		}
	}

	s := &Settings{
		BaseDir:         v.GetString(KeyBaseDir),
		BaseDirExplicit: isExplicit(v, fs, KeyBaseDir),
		Manifest:        v.GetString(KeyManifest),
		PackageJSON:     v.GetString(KeyPackageJSON),
		Concurrency:     v.GetInt(KeyConcurrency),
		Timeout:         v.GetDuration(KeyTimeout),
		UserAgent:       v.GetString(KeyUserAgent),
		URLBase:         v.GetString(KeyURLBase),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       logging.Format(v.GetString(KeyLogFormat)),
		Host:            v.GetBool(KeyHost),
		Platforms:       v.GetStringSlice(KeyPlatform),
		EnvVersions:     make(map[matrix.Component]string),
	}

	if s.Concurrency < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", KeyConcurrency, s.Concurrency)
	}
	if s.Timeout < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %s", KeyTimeout, s.Timeout)
	}
	if s.Host && len(s.Platforms) > 0 {
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", KeyHost, KeyPlatform)
	}

	switch s.LogFormat {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return nil, fmt.Errorf("unknown %s %q", KeyLogFormat, s.LogFormat)
	}

	compression, err := archive.ParseCompression(v.GetString(KeyCompression))
	if err != nil {
		return nil, err
	}
	s.Compression = compression

	format, err := report.ParseFormat(v.GetString(KeyFormat))
	if err != nil {
		return nil, err
	}
	s.Format = format

	s.Overrides, err = ParseOverrides(v.GetStringSlice(KeyVersionOverride))
	if err != nil {
		return nil, err
	}

	for _, c := range matrix.Components() {
		if version := manifest.NormalizeVersion(v.GetString(string(c) + "-version")); version != "" {
			s.EnvVersions[c] = version
		}
	}

	return s, nil
}

// ParseOverrides parses component=version pairs. A component may appear
// only once.
func ParseOverrides(pairs []string) (map[matrix.Component]string, error) {
	overrides := make(map[matrix.Component]string, len(pairs))
	for _, pair := range pairs {
		name, version, ok := strings.Cut(pair, "=")
		name, version = strings.TrimSpace(name), manifest.NormalizeVersion(version)
		if !ok || name == "" || version == "" {
			return nil, fmt.Errorf("invalid %s %q: want component=version", KeyVersionOverride, pair)
		}

		component, err := matrix.ParseComponent(name)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyVersionOverride, pair, err)
		}
		if _, dup := overrides[component]; dup {
			return nil, fmt.Errorf("invalid %s: %s given twice", KeyVersionOverride, component)
		}
		overrides[component] = version
	}
	return overrides, nil
}

// ErrNoVersion is returned by ResolveVersion when no layer declares one
var ErrNoVersion = errors.New("no version configured")

// ResolveVersion picks a component's version from, in order: the explicit
// override, the environment, then each fallback lookup. A lookup that
// reports ok=false defers to the next.
func (s *Settings) ResolveVersion(c matrix.Component, fallbacks ...func(matrix.Component) (string, bool, error)) (string, error) {
	if v, ok := s.Overrides[c]; ok {
		return v, nil
	}
	if v, ok := s.EnvVersions[c]; ok {
		return v, nil
	}
	for _, lookup := range fallbacks {
		v, ok, err := lookup(c)
		if err != nil {
			return "", err
		}
		if ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s: %w", c, ErrNoVersion)
}

// isExplicit reports whether key was set anywhere other than a flag default.
func isExplicit(v *viper.Viper, fs *pflag.FlagSet, key string) bool {
	if f := fs.Lookup(key); f != nil && f.Changed {
		return true
	}
	return v.InConfig(key) || envSet(key)
}
