package matrix

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultDuckDBURLBase = "https://duckdb-node.s3.amazonaws.com"
	defaultKeytarURLBase = "https://github.com/atom/node-keytar/releases/download"

	// duckdbNodeABI is the node module ABI the duckdb archives are built against
	duckdbNodeABI = "node-v93"
	// keytarNAPI is the N-API level of the keytar archives
	keytarNAPI = "napi-v3"

	duckdbEntryName = "duckdb.node"
	keytarEntryName = "build/Release/keytar.node"
)

// duckdbPlatforms lists the platforms duckdb publishes node bindings for
var duckdbPlatforms = []string{
	"darwin-arm64",
	"darwin-x64",
	"linux-x64",
	"win32-x64",
}

// keytarPlatforms maps platform keys to keytar's release asset suffix.
// linux-armhf has always been served by the ia32 asset.
var keytarPlatforms = map[string]string{
	"linux-x64":    "linux-x64",
	"linux-arm64":  "linux-arm64",
	"linux-armhf":  "linux-ia32",
	"alpine-x64":   "linuxmusl-x64",
	"alpine-arm64": "linuxmusl-arm64",
	"darwin-x64":   "darwin-x64",
	"darwin-arm64": "darwin-arm64",
	"win32-x64":    "win32-x64",
}

// platformKeys returns the platform keys supported by a component
func platformKeys(component Component) ([]string, error) {
	switch component {
	case ComponentDuckDB:
		return append([]string(nil), duckdbPlatforms...), nil
	case ComponentKeytar:
		keys := make([]string, 0, len(keytarPlatforms))
		for key := range keytarPlatforms {
			keys = append(keys, key)
		}
		return keys, nil
	default:
		return nil, &UnknownComponentError{Name: string(component)}
	}
}

// constructTarget builds the target for one platform of a component
func constructTarget(component Component, platformKey, version string, opts *options) (Target, error) {
	switch component {
	case ComponentDuckDB:
		return constructDuckDBTarget(platformKey, version, opts), nil
	case ComponentKeytar:
		return constructKeytarTarget(platformKey, version, opts)
	default:
		return Target{}, &UnknownComponentError{Name: string(component)}
	}
}

// constructDuckDBTarget constructs a duckdb target
// Pattern: https://duckdb-node.s3.amazonaws.com/duckdb-v{version}-node-v93-{platform}.tar.gz
func constructDuckDBTarget(platformKey, version string, opts *options) Target {
	stem := fmt.Sprintf("duckdb-v%s-%s-%s", version, duckdbNodeABI, platformKey)
	base := opts.urlBase
	if base == "" {
		base = defaultDuckDBURLBase
	}

	return Target{
		PlatformKey:     platformKey,
		ArchiveURL:      fmt.Sprintf("%s/%s%s", strings.TrimRight(base, "/"), stem, opts.compression.Extension()),
		DestinationPath: filepath.Join(opts.baseDir, "github.com", "duckdb", "duckdb", stem+".node"),
		EntryName:       duckdbEntryName,
	}
}

// constructKeytarTarget constructs a keytar target
// Pattern: https://github.com/atom/node-keytar/releases/download/v{version}/keytar-v{version}-napi-v3-{suffix}.tar.gz
func constructKeytarTarget(platformKey, version string, opts *options) (Target, error) {
	suffix, ok := keytarPlatforms[platformKey]
	if !ok {
		return Target{}, fmt.Errorf("unsupported platform for keytar: %s", platformKey)
	}

	stem := fmt.Sprintf("keytar-v%s-%s-%s", version, keytarNAPI, suffix)
	base := opts.urlBase
	if base == "" {
		base = defaultKeytarURLBase
	}

	return Target{
		PlatformKey:     platformKey,
		ArchiveURL:      fmt.Sprintf("%s/v%s/%s%s", strings.TrimRight(base, "/"), version, stem, opts.compression.Extension()),
		DestinationPath: filepath.Join(opts.baseDir, "github.com", "atom", "node-keytar", stem+".node"),
		EntryName:       keytarEntryName,
	}, nil
}
