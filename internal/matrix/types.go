// Package matrix builds the per-platform target list for each prebuilt
// component.
//
// A Matrix is derived purely from a component, a version string, and a base
// directory. Building one performs no network or filesystem I/O; every URL
// and destination path comes from a fixed naming template.
package matrix

import (
	"errors"
)

// Component represents a native artifact family fetched by prebuilt
type Component string

const (
	// ComponentDuckDB represents the duckdb node bindings
	ComponentDuckDB Component = "duckdb"
	// ComponentKeytar represents the keytar node bindings
	ComponentKeytar Component = "keytar"
)

// String returns the string representation of the component
func (c Component) String() string {
	return string(c)
}

// Components returns every supported component in a stable order
func Components() []Component {
	return []Component{ComponentDuckDB, ComponentKeytar}
}

// ParseComponent converts a name into a Component
func ParseComponent(name string) (Component, error) {
	for _, c := range Components() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", &UnknownComponentError{Name: name}
}

var (
	// ErrMissingVersion is returned when a matrix is requested without a version.
	ErrMissingVersion = errors.New("version is required")
	// ErrUnknownComponent is returned for components with no naming template.
	ErrUnknownComponent = errors.New("unknown component")
)

// UnknownComponentError names the component that could not be resolved.
type UnknownComponentError struct {
	Name string
}

func (e *UnknownComponentError) Error() string {
	return "unknown component: " + e.Name
}

// Unwrap lets errors.Is match ErrUnknownComponent.
func (e *UnknownComponentError) Unwrap() error {
	return ErrUnknownComponent
}

// Target describes one artifact to materialize
type Target struct {
	PlatformKey     string // "linux-x64", "darwin-arm64", etc.
	ArchiveURL      string // remote .tar.gz location
	DestinationPath string // absolute local path of the extracted file
	EntryName       string // archive entry holding the artifact
}
