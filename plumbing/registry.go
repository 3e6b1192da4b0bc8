// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultRegistryDir is the conventional directory namespace-aware
// tooling (ip-netns and friends) looks namespaces up in.
const DefaultRegistryDir = "/var/run/netns"

var registryDirMode = os.FileMode(0755)

// Registry maintains the filesystem-visible association between a
// namespace pid and its kernel namespace handle. Exactly one entry per
// pid exists at any time and it never outlives the invocation: Publish
// once after resolution, Retract once on every exit path.
type Registry struct {
	Dir string
}

// NewRegistry returns a registry rooted at dir, or at the conventional
// location when dir is empty.
func NewRegistry(dir string) *Registry {
	if dir == "" {
		dir = DefaultRegistryDir
	}
	return &Registry{Dir: dir}
}

func (r *Registry) entryPath(pid int) string {
	return filepath.Join(r.Dir, strconv.Itoa(pid))
}

// Publish creates (or overwrites) the pointer from the registry entry
// named by pid to that process's network namespace handle.
func (r *Registry) Publish(pid int) (string, error) {
	if err := os.MkdirAll(r.Dir, registryDirMode); err != nil {
		return "", fmt.Errorf("Could not create registry directory %s: %v", r.Dir, err)
	}

	entry := r.entryPath(pid)
	nsPath := fmt.Sprintf("/proc/%d/ns/net", pid)

	// A leftover entry from a previous run is overwritten, not an error.
	if err := os.Remove(entry); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("Could not remove stale registry entry %s: %v", entry, err)
	}

	registryLogger().WithFields(map[string]interface{}{
		"src":  nsPath,
		"dest": entry,
	}).Debug("Creating namespace symlink")

	if err := os.Symlink(nsPath, entry); err != nil {
		return "", fmt.Errorf("Could not create namespace symlink: %v", err)
	}

	return entry, nil
}

// Retract removes the registry entry for pid, tolerating its prior
// absence. It must run exactly once at the end of the run regardless
// of the outcome of any later pipeline step.
func (r *Registry) Retract(pid int) error {
	entry := r.entryPath(pid)

	registryLogger().WithField("path", entry).Debug("Removing namespace symlink")

	if err := os.Remove(entry); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("Could not remove namespace symlink %s: %v", entry, err)
	}

	return nil
}
