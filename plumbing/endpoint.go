// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"

	"github.com/netplumb/netplumb/plumbing/types"
)

// maxIfNameLen is the kernel IFNAMSIZ limit (15 characters plus the
// terminating NUL).
const maxIfNameLen = 15

// Endpoint is the host-side object plus guest-side interface a builder
// produces for one request. Create() performs the host-side
// construction and leaves the guest-side link unbound in the host
// namespace, ready to be moved.
type Endpoint interface {
	Type() TargetType

	// HostIfName is empty for types with no persistent host-side peer.
	HostIfName() string

	// GuestIfName always exists after Create() and before the move.
	GuestIfName() string

	// MTU is the MTU propagated from the resolved host device. Zero
	// for types with no MTU policy.
	MTU() int

	Create() error
}

// pairIfName derives one side of a veth pair name from the container
// interface name and the namespace pid: v<ifname>pl<pid> for the host
// side, v<ifname>pg<pid> for the guest side. The container interface
// name is truncated so the result never exceeds IFNAMSIZ.
func pairIfName(ifName string, pid int, hostSide bool) string {
	tag := "pg"
	if hostSide {
		tag = "pl"
	}
	suffix := fmt.Sprintf("%s%d", tag, pid)

	room := maxIfNameLen - 1 - len(suffix)
	if len(ifName) > room {
		ifName = ifName[:room]
	}

	return "v" + ifName + suffix
}

// prefixedIfName derives a single guest-side device name from a type
// prefix, the namespace pid and the container interface name, truncated
// to IFNAMSIZ.
func prefixedIfName(prefix, ifName string, pid int) string {
	name := fmt.Sprintf("%s%d%s", prefix, pid, ifName)
	if len(name) > maxIfNameLen {
		name = name[:maxIfNameLen]
	}
	return name
}

// GuestMetadata is the observability annotation attached to OVS ports:
// the identity of the guest the port serves, as far as resolution
// discovered it.
type GuestMetadata struct {
	Pid           int
	ContainerID   string
	ContainerName string
}

// NewEndpoint validates the request against the resolved target and
// returns the matching endpoint. All unsupported-combination checks
// happen here, before any device mutation.
func NewEndpoint(target HostTarget, ovs OvsController, req *types.InterfaceRequest, pid int, meta GuestMetadata) (Endpoint, error) {
	switch t := target.(type) {
	case *BridgeTarget:
		return newBridgeEndpoint(t, req, pid)
	case *OvsTarget:
		return newOvsEndpoint(t, ovs, req, pid, meta)
	case *PhysicalTarget:
		return newPhysicalEndpoint(t, req, pid)
	case *IpoibTarget:
		return newIpoibEndpoint(t, req, pid)
	case *DummyTarget:
		return newDummyEndpoint(req, pid)
	default:
		return nil, fmt.Errorf("Unexpected target type %s", target.TargetType())
	}
}
