// Package platform detects the host and names it the way prebuilt archives
// are published: node-style OS and architecture names joined into a
// platform key such as "linux-x64" or "alpine-arm64".
//
// The detected host is also exposed to Lua manifests as a read-only
// platform table. Linux distribution details come from gopsutil; when
// distribution detection fails the package falls back to OS and
// architecture only.
package platform

import "context"

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux (musl)
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS      string // node-style OS: "linux", "darwin", "win32"
	Arch    string // node-style arch: "x64", "arm64", "armhf", "ia32"
	ArchRaw string // original GOARCH (e.g. "amd64")
	Distro  string // distro ID (Linux only, e.g. "ubuntu", "alpine")
	Family  string // canonical family (Linux only)
	Version string // distro version (Linux only)
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "win32"
}

// IsMusl returns true on musl-based Linux distributions.
func (i *Info) IsMusl() bool {
	return i.IsLinux() && i.Family == FamilyAlpine
}

// Key returns the platform key prebuilt archives are published under.
// musl Linux hosts use the "alpine" prefix.
func (i *Info) Key() string {
	os := i.OS
	if i.IsMusl() {
		os = "alpine"
	}
	return os + "-" + i.Arch
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
