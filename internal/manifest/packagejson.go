package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
)

// Package.json dependency sections
const (
	SectionDependencies    = "dependencies"
	SectionDevDependencies = "devDependencies"
)

// ErrNotDeclared is returned when a package.json does not list a package
var ErrNotDeclared = errors.New("package not declared")

// Source locates a component's version inside package.json
type Source struct {
	Section string
	Package string
}

// DefaultSources maps each component to where the project declares it.
var DefaultSources = map[matrix.Component]Source{
	matrix.ComponentDuckDB: {Section: SectionDependencies, Package: "duckdb"},
	matrix.ComponentKeytar: {Section: SectionDevDependencies, Package: "keytar"},
}

// PackageJSON holds the dependency sections of a package.json
type PackageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// LoadPackageJSON reads path, tolerating comments and trailing commas.
func LoadPackageJSON(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var pkg PackageJSON
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &pkg, nil
}

// Version returns the normalized version of name in section.
func (p *PackageJSON) Version(section, name string) (string, error) {
	var deps map[string]string
	switch section {
	case SectionDependencies:
		deps = p.Dependencies
	case SectionDevDependencies:
		deps = p.DevDependencies
	default:
		return "", fmt.Errorf("unknown package.json section %q", section)
	}

	raw, ok := deps[name]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", section, name, ErrNotDeclared)
	}
	version := NormalizeVersion(raw)
	if version == "" {
		return "", fmt.Errorf("%s.%s: empty version", section, name)
	}
	return version, nil
}

// ResolvePackageVersion reads one declared version from a package.json.
func ResolvePackageVersion(path, section, name string) (string, error) {
	pkg, err := LoadPackageJSON(path)
	if err != nil {
		return "", err
	}
	return pkg.Version(section, name)
}

// NormalizeVersion strips whitespace and a leading range operator so that
// "^0.9.2", "~0.9.2", ">=0.9.2" and "v0.9.2" all yield "0.9.2".
func NormalizeVersion(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimLeft(v, "^~=>")
	v = strings.TrimSpace(v)
	return strings.TrimPrefix(v, "v")
}
