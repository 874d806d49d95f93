package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos   string
	goarch string
}

// NewDetector creates a new platform detector for the running host.
func NewDetector() Detector {
	return &RealDetector{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Detect performs platform detection and returns platform information.
//
// On Linux, if gopsutil fails to detect the distribution, the distro fields
// stay empty and detection still succeeds. A glibc key is then assumed.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	os, err := normalizeOS(d.goos)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	arch, err := normalizeArch(d.goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	info := &Info{OS: os, Arch: arch, ArchRaw: d.goarch}
	if os != "linux" {
		return info, nil
	}

	distro, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	distro = normalizePlatform(distro)
	if distro != "" {
		info.Distro = distro
		info.Family = mapFamily(family)
		// gopsutil reports alpine's family as the distro itself
		if info.Family == FamilyUnknown {
			info.Family = mapFamily(distro)
		}
		info.Version = normalizePlatform(version)
	}
	return info, nil
}

// HostKey detects the running host and returns its platform key.
func HostKey(ctx context.Context, d Detector) (string, error) {
	info, err := d.Detect(ctx)
	if err != nil {
		return "", err
	}
	return info.Key(), nil
}
