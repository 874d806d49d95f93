package manifest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/platform"
)

// Manifest is the content of a Lua manifest
type Manifest struct {
	// BaseDir is empty when the manifest does not set one
	BaseDir string
	// Versions holds the components the manifest pins
	Versions map[matrix.Component]string
}

// Components returns the pinned components in sorted order.
func (m *Manifest) Components() []matrix.Component {
	components := make([]matrix.Component, 0, len(m.Versions))
	for c := range m.Versions {
		components = append(components, c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i] < components[j] })
	return components
}

// ParseError represents a manifest parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Parser evaluates Lua manifests
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector leaves the platform table
// undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and evaluates the manifest at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return p.ParseString(ctx, string(code))
}

// ParseString evaluates manifest source held in memory.
func (p *Parser) ParseString(ctx context.Context, code string) (*Manifest, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		platform.InjectPlatformTable(L, info)
	}

	if err := L.DoString(code); err != nil {
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractManifest(L)
}

// extractManifest reads the global "prebuilt" table.
func extractManifest(L *lua.LState) (*Manifest, error) {
	root, ok := L.GetGlobal("prebuilt").(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'prebuilt' table",
			Detail:  fmt.Sprintf("expected table, got %s", L.GetGlobal("prebuilt").Type()),
		}
	}

	m := &Manifest{Versions: make(map[matrix.Component]string)}

	switch v := root.RawGetString("base_dir").(type) {
	case lua.LString:
		m.BaseDir = strings.TrimSpace(string(v))
	case *lua.LNilType:
	default:
		return nil, &ParseError{
			Message: "invalid base_dir",
			Detail:  fmt.Sprintf("expected string, got %s", v.Type()),
		}
	}

	switch v := root.RawGetString("components").(type) {
	case *lua.LTable:
		if err := extractVersions(v, m.Versions); err != nil {
			return nil, err
		}
	case *lua.LNilType:
	default:
		return nil, &ParseError{
			Message: "invalid components",
			Detail:  fmt.Sprintf("expected table, got %s", v.Type()),
		}
	}

	return m, nil
}

// extractVersions fills versions from a components table. Entries that
// evaluate to nil (from platform.when) are left out.
func extractVersions(table *lua.LTable, versions map[matrix.Component]string) error {
	var firstErr error
	table.ForEach(func(key, value lua.LValue) {
		if firstErr != nil {
			return
		}

		name, ok := key.(lua.LString)
		if !ok {
			firstErr = &ParseError{
				Message: "invalid components",
				Detail:  fmt.Sprintf("component names must be strings, got %s", key.Type()),
			}
			return
		}

		component, err := matrix.ParseComponent(string(name))
		if err != nil {
			firstErr = &ParseError{Message: "invalid components", Detail: err.Error()}
			return
		}

		version, ok := value.(lua.LString)
		if !ok {
			firstErr = &ParseError{
				Message: "invalid components",
				Detail:  fmt.Sprintf("%s: expected version string, got %s", component, value.Type()),
			}
			return
		}

		normalized := NormalizeVersion(string(version))
		if normalized == "" {
			firstErr = &ParseError{
				Message: "invalid components",
				Detail:  fmt.Sprintf("%s: empty version", component),
			}
			return
		}
		versions[component] = normalized
	})
	return firstErr
}
