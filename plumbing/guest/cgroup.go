// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containerd/cgroups/v3"
	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/netplumb/netplumb/plumbing/types"
)

// lxcMonitorMarker appears in the cgroup path of an LXC monitor
// process. A guest matching both its own path and a monitor path is a
// benign duplicate, not an ambiguity.
const lxcMonitorMarker = "lxc.monitor"

// CgroupScanner resolves a guest through the mounted legacy cgroup
// hierarchies by locating a path component matching the guest
// identifier under the "devices" controller.
type CgroupScanner struct {
	// unifiedMode reports whether the host runs a unified hierarchy,
	// in which case the scan is skipped entirely.
	unifiedMode func() bool

	// devicesMount locates the mounted devices hierarchy.
	devicesMount func() (string, error)
}

// NewCgroupScanner returns a scanner backed by the real host state.
func NewCgroupScanner() *CgroupScanner {
	return &CgroupScanner{
		unifiedMode:  func() bool { return cgroups.Mode() == cgroups.Unified },
		devicesMount: devicesHierarchyMount,
	}
}

// devicesHierarchyMount scans the mount table for a cgroup filesystem
// exposing the devices controller.
func devicesHierarchyMount() (string, error) {
	mounts, err := procfs.GetMounts()
	if err != nil {
		return "", fmt.Errorf("Could not read mount table: %v", err)
	}

	for _, m := range mounts {
		if m.FSType != "cgroup" {
			continue
		}
		if _, ok := m.SuperOptions["devices"]; ok {
			return m.MountPoint, nil
		}
	}

	return "", nil
}

// Resolve scans the devices hierarchy for guestID. found is false when
// the strategy does not apply or nothing matched, allowing the caller
// to fall through to the next strategy.
func (s *CgroupScanner) Resolve(guestID string) (pid int, found bool, err error) {
	if s.unifiedMode() {
		guestLog.Debug("Unified cgroup hierarchy, skipping cgroup lookup")
		return 0, false, nil
	}

	mount, err := s.devicesMount()
	if err != nil {
		return 0, false, err
	}
	if mount == "" {
		return 0, false, nil
	}

	matches, err := matchingCgroupPaths(mount, guestID)
	if err != nil {
		return 0, false, err
	}

	switch len(matches) {
	case 0:
		return 0, false, nil
	case 1:
	case 2:
		matches = dropLxcMonitor(matches)
		if len(matches) != 1 {
			return 0, false, fmt.Errorf("%w: guest %s matches %d cgroup paths", types.ErrAmbiguousGuest, guestID, 2)
		}
	default:
		return 0, false, fmt.Errorf("%w: guest %s matches %d cgroup paths", types.ErrAmbiguousGuest, guestID, len(matches))
	}

	pid, err = firstTask(matches[0])
	if err != nil {
		return 0, false, err
	}

	guestLog.WithFields(logrus.Fields{
		"guest": guestID,
		"path":  matches[0],
	}).Debug("Guest matched in devices hierarchy")

	return pid, true, nil
}

// matchingCgroupPaths walks the hierarchy collecting directories whose
// final path component is exactly guestID.
func matchingCgroupPaths(root, guestID string) ([]string, error) {
	var matches []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Cgroup directories come and go while we walk.
			return nil
		}
		if info.IsDir() && filepath.Base(path) == guestID {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Could not scan cgroup hierarchy %s: %v", root, err)
	}

	return matches, nil
}

// dropLxcMonitor removes a match denoting an LXC monitor process.
// This is a documented special case for exactly one duplicate pattern,
// deliberately not generalized further.
func dropLxcMonitor(matches []string) []string {
	var kept []string
	for _, m := range matches {
		if strings.Contains(m, lxcMonitorMarker) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// firstTask reads the first listed task id of a cgroup directory.
func firstTask(cgroupDir string) (int, error) {
	for _, file := range []string{"tasks", "cgroup.procs"} {
		f, err := os.Open(filepath.Join(cgroupDir, file))
		if err != nil {
			continue
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		if scanner.Scan() {
			pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err == nil && pid > 0 {
				return pid, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: no task found in cgroup %s", types.ErrNotFound, cgroupDir)
}
