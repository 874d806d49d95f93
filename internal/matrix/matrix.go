package matrix

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/archive"
)

// DefaultBaseDir is where artifacts land when no base directory is given
const DefaultBaseDir = "third_party"

// Matrix is an immutable set of targets for one component and version.
// Accessors return copies; a Matrix is safe for concurrent reads.
type Matrix struct {
	component Component
	version   string
	keys      []string
	targets   map[string]Target
}

type options struct {
	baseDir     string
	urlBase     string
	compression archive.Compression
}

// Option customizes matrix construction
type Option func(*options)

// WithURLBase replaces the scheme and host (and any leading path) of every
// archive URL while keeping the template's file naming. Used for mirrors and tests.
func WithURLBase(base string) Option {
	return func(o *options) {
		o.urlBase = base
	}
}

// WithCompression sets the codec of the published archives, and with it the
// archive file suffix. Upstream hosts publish gzip only; other codecs are for
// mirrors that recompress.
func WithCompression(c archive.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// Build derives the target matrix for a component at a version.
// The version is not validated beyond being non-empty.
func Build(component Component, version, baseDir string, opts ...Option) (*Matrix, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("build %s matrix: %w", component, ErrMissingVersion)
	}

	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	o := &options{baseDir: absBase, compression: archive.CompressionGzip}
	for _, opt := range opts {
		opt(o)
	}

	keys, err := platformKeys(component)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}
	sort.Strings(keys)

	targets := make(map[string]Target, len(keys))
	for _, key := range keys {
		target, err := constructTarget(component, key, version, o)
		if err != nil {
			return nil, fmt.Errorf("construct %s target %s: %w", component, key, err)
		}
		targets[key] = target
	}

	return &Matrix{
		component: component,
		version:   version,
		keys:      keys,
		targets:   targets,
	}, nil
}

// Component returns the component this matrix was built for
func (m *Matrix) Component() Component {
	return m.component
}

// Version returns the version this matrix was built for
func (m *Matrix) Version() string {
	return m.version
}

// Len returns the number of targets
func (m *Matrix) Len() int {
	return len(m.keys)
}

// Keys returns the platform keys in sorted order
func (m *Matrix) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Target looks up the target for a platform key
func (m *Matrix) Target(platformKey string) (Target, bool) {
	t, ok := m.targets[platformKey]
	return t, ok
}

// Targets returns every target sorted by platform key
func (m *Matrix) Targets() []Target {
	out := make([]Target, 0, len(m.keys))
	for _, key := range m.keys {
		out = append(out, m.targets[key])
	}
	return out
}

// Filter returns a new Matrix restricted to the given platform keys.
// Unknown keys are an error so that a typo never silently fetches nothing.
func (m *Matrix) Filter(platformKeys ...string) (*Matrix, error) {
	keep := make(map[string]Target, len(platformKeys))
	for _, key := range platformKeys {
		target, ok := m.targets[key]
		if !ok {
			return nil, fmt.Errorf("platform %s not in %s matrix", key, m.component)
		}
		keep[key] = target
	}

	keys := make([]string, 0, len(keep))
	for key := range keep {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Matrix{
		component: m.component,
		version:   m.version,
		keys:      keys,
		targets:   keep,
	}, nil
}
