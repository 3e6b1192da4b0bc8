// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netplumb/netplumb/plumbing/types"
)

var guestLog = logrus.WithField("source", "netplumb").WithField("subsystem", "guest")

// SetLogger sets the logger for the guest package.
func SetLogger(logger *logrus.Entry) {
	guestLog = logger.WithField("subsystem", "guest")
}

const (
	// pidRetries bounds the container-manager retry loop.
	pidRetries = 3

	// pidRetryDelay spaces the retries.
	pidRetryDelay = time.Second
)

// Info identifies the process owning the guest's network namespace,
// plus whatever identity the resolution strategy could discover.
type Info struct {
	Pid           int
	ContainerID   string
	ContainerName string
}

// ContainerManager is the lookup capability a container runtime
// provides: given a guest identifier, report its init process id and
// identity. A Pid of zero means "known but not started yet".
type ContainerManager interface {
	Available() bool
	Inspect(ctx context.Context, guestID string) (Info, error)
}

// LegacyLookup is the last-resort per-guest info query used when no
// container manager is installed at all.
type LegacyLookup interface {
	Available() bool
	Pid(guestID string) (int, error)
}

// Resolver maps a guest identifier to the pid owning its network
// namespace. Strategies are tried in strict order and exactly one
// succeeds per invocation; the result is never cached.
type Resolver struct {
	cgroups *CgroupScanner
	manager ContainerManager
	legacy  LegacyLookup
}

// NewResolver assembles a resolver from its strategies. Any of them
// may be nil when unavailable.
func NewResolver(cgroups *CgroupScanner, manager ContainerManager, legacy LegacyLookup) *Resolver {
	return &Resolver{
		cgroups: cgroups,
		manager: manager,
		legacy:  legacy,
	}
}

// Resolve returns the namespace owner of guestID, first strategy wins.
func (r *Resolver) Resolve(ctx context.Context, guestID string) (Info, error) {
	if r.cgroups != nil {
		pid, found, err := r.cgroups.Resolve(guestID)
		if err != nil {
			return Info{}, err
		}
		if found {
			guestLog.WithFields(logrus.Fields{
				"guest":    guestID,
				"pid":      pid,
				"strategy": "cgroup",
			}).Debug("Guest resolved")
			return Info{Pid: pid}, nil
		}
	}

	if r.manager != nil && r.manager.Available() {
		return r.resolveWithManager(ctx, guestID)
	}

	if r.legacy != nil && r.legacy.Available() {
		pid, err := r.legacy.Pid(guestID)
		if err != nil {
			return Info{}, fmt.Errorf("%w: process inside guest %s not found: %v", types.ErrNotFound, guestID, err)
		}
		guestLog.WithFields(logrus.Fields{
			"guest":    guestID,
			"pid":      pid,
			"strategy": "legacy",
		}).Debug("Guest resolved")
		return Info{Pid: pid}, nil
	}

	return Info{}, fmt.Errorf("%w: guest %s not found anywhere, no resolution strategy matched", types.ErrNotFound, guestID)
}

// resolveWithManager polls the container manager, tolerating the
// "not yet started" sentinel pid for a bounded number of attempts.
func (r *Resolver) resolveWithManager(ctx context.Context, guestID string) (Info, error) {
	var info Info
	var err error

	for attempt := 0; attempt < pidRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(pidRetryDelay)
		}

		info, err = r.manager.Inspect(ctx, guestID)
		if err != nil {
			// The guest being entirely unknown is fatal right away,
			// retrying will not make it appear.
			return Info{}, fmt.Errorf("%w: guest %s not found by the container manager: %v", types.ErrNotFound, guestID, err)
		}

		if info.Pid != 0 {
			guestLog.WithFields(logrus.Fields{
				"guest":    guestID,
				"pid":      info.Pid,
				"strategy": "container-manager",
			}).Debug("Guest resolved")
			return info, nil
		}

		guestLog.WithFields(logrus.Fields{
			"guest":   guestID,
			"attempt": attempt + 1,
		}).Debug("Guest not started yet, retrying")
	}

	return Info{}, fmt.Errorf("guest %s was found but not started: container manager reported invalid PID 0 after %d attempts", guestID, pidRetries)
}
