package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/logging"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/manifest"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/platform"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/settings"
)

// errHelp is returned by parseCommand when --help was requested
var errHelp = errors.New("help requested")

// invocation is the parsed state shared by fetch and matrix
type invocation struct {
	settings   *settings.Settings
	components []matrix.Component
	logger     logging.Logger
}

// parseCommand parses flags, positional components and settings.
func parseCommand(name string, args []string, stdout, stderr io.Writer) (*invocation, error) {
	fs := settings.NewFlagSet(name)
	fs.SetOutput(stderr)
	help := fs.BoolP("help", "h", false, "show help")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *help {
		printCommandHelp(stdout, name, fs)
		return nil, errHelp
	}

	s, err := settings.Load(fs)
	if err != nil {
		return nil, err
	}

	components, err := parseComponents(fs.Args())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewZap(stderr, s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, err
	}

	return &invocation{settings: s, components: components, logger: logger}, nil
}

// parseComponents returns the named components, or all of them when none
// are named. Duplicates are dropped.
func parseComponents(names []string) ([]matrix.Component, error) {
	if len(names) == 0 {
		return matrix.Components(), nil
	}

	seen := make(map[matrix.Component]bool, len(names))
	var components []matrix.Component
	for _, name := range names {
		c, err := matrix.ParseComponent(name)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			components = append(components, c)
		}
	}
	return components, nil
}

// plan resolves versions and builds one matrix per component, narrowed to
// the requested platforms.
func (inv *invocation) plan(ctx context.Context) ([]*matrix.Matrix, string, error) {
	s := inv.settings

	var mf *manifest.Manifest
	if s.Manifest != "" {
		var err error
		mf, err = manifest.NewParser(platform.NewDetector()).ParseFile(ctx, s.Manifest)
		if err != nil {
			return nil, "", err
		}
		inv.logger.Debug("Loaded manifest", "path", s.Manifest, "components", mf.Components())
	}

	baseDir := s.BaseDir
	if !s.BaseDirExplicit && mf != nil && mf.BaseDir != "" {
		baseDir = mf.BaseDir
	}

	fromManifest := func(c matrix.Component) (string, bool, error) {
		if mf == nil {
			return "", false, nil
		}
		v, ok := mf.Versions[c]
		return v, ok, nil
	}

	fromPackageJSON := func(c matrix.Component) (string, bool, error) {
		src, ok := manifest.DefaultSources[c]
		if !ok || s.PackageJSON == "" {
			return "", false, nil
		}
		v, err := manifest.ResolvePackageVersion(s.PackageJSON, src.Section, src.Package)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, manifest.ErrNotDeclared) {
			return "", false, nil
		}
		return v, err == nil, err
	}

	opts := []matrix.Option{matrix.WithCompression(s.Compression)}
	if s.URLBase != "" {
		opts = append(opts, matrix.WithURLBase(s.URLBase))
	}

	keys := s.Platforms
	if s.Host {
		key, err := platform.HostKey(ctx, platform.NewDetector())
		if err != nil {
			return nil, "", err
		}
		inv.logger.Info("Restricting to host platform", "platform", key)
		keys = []string{key}
	}

	matrices := make([]*matrix.Matrix, 0, len(inv.components))
	for _, c := range inv.components {
		version, err := s.ResolveVersion(c, fromManifest, fromPackageJSON)
		if errors.Is(err, settings.ErrNoVersion) {
			return nil, "", fmt.Errorf("%s: %w (set --%s %s=<version>, %s, or declare it in %s)",
				c, matrix.ErrMissingVersion, settings.KeyVersionOverride, c,
				settings.EnvName(string(c)+"-version"), s.PackageJSON)
		}
		if err != nil {
			return nil, "", err
		}

		m, err := matrix.Build(c, version, baseDir, opts...)
		if err != nil {
			return nil, "", err
		}
		if len(keys) > 0 {
			if m, err = m.Filter(keys...); err != nil {
				return nil, "", err
			}
		}

		inv.logger.Debug("Planned", "component", c, "version", m.Version(), "targets", m.Len())
		matrices = append(matrices, m)
	}

	return matrices, baseDir, nil
}

func printCommandHelp(w io.Writer, name string, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: prebuilt %s [component...] [flags]\n\n", name)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every flag can also be set as PREBUILT_<FLAG> in the environment.")
	fmt.Fprintln(w, "Component versions: --version-override > PREBUILT_<COMPONENT>_VERSION > --manifest > --package-json")
}
