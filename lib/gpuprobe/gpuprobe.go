// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gpuprobe

import (
	"os"
	"path/filepath"
	"strings"
)

// Probe counts NVIDIA GPUs. The sysfs and procfs roots are
// configurable so tests can point at a fabricated tree.
type Probe struct {
	sysRoot  string
	procRoot string
}

// New returns a Probe reading the real /sys and /proc.
func New() *Probe {
	return &Probe{sysRoot: "/sys", procRoot: "/proc"}
}

// NewWithRoots returns a Probe reading the given sysfs and procfs
// roots.
func NewWithRoots(sysRoot, procRoot string) *Probe {
	return &Probe{sysRoot: sysRoot, procRoot: procRoot}
}

// Count returns the number of NVIDIA GPUs visible on this node. DRM
// card devices bound to the nvidia (or nouveau) driver are counted;
// when no DRM cards are visible at all, the nvidia driver's procfs
// registry is consulted as a fallback. Returns 0 on a node without
// GPUs or where neither source is readable.
func (p *Probe) Count() int {
	if n := p.countDRM(); n > 0 {
		return n
	}
	return p.countProc()
}

func (p *Probe) countDRM() int {
	entries, err := os.ReadDir(filepath.Join(p.sysRoot, "class", "drm"))
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !isCardDevice(entry.Name()) {
			continue
		}
		driver := readDriverName(filepath.Join(p.sysRoot, "class", "drm", entry.Name(), "device"))
		if driver == "nvidia" || driver == "nouveau" {
			count++
		}
	}
	return count
}

func (p *Probe) countProc() int {
	entries, err := os.ReadDir(filepath.Join(p.procRoot, "driver", "nvidia", "gpus"))
	if err != nil {
		return 0
	}
	return len(entries)
}

// isCardDevice returns true for DRM card device names (card0, card1)
// but not connectors (card0-DP-1) or render nodes (renderD128).
func isCardDevice(name string) bool {
	if !strings.HasPrefix(name, "card") {
		return false
	}
	suffix := name[len("card"):]
	if suffix == "" {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// readDriverName returns the kernel driver bound to a device by
// reading the basename of its "driver" symlink.
func readDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}
