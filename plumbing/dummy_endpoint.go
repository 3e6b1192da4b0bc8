// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

// DummyEndpoint creates a standalone dummy device destined for the
// namespace. There is no parent device and no host-side peer.
type DummyEndpoint struct {
	GuestSide string
}

func newDummyEndpoint(req *types.InterfaceRequest, pid int) (*DummyEndpoint, error) {
	return &DummyEndpoint{
		GuestSide: prefixedIfName("du", req.ContainerIfName, pid),
	}, nil
}

// Type returns the type of the endpoint.
func (ep *DummyEndpoint) Type() TargetType {
	return DummyTargetType
}

// HostIfName returns an empty string, dummies have no host-side peer.
func (ep *DummyEndpoint) HostIfName() string {
	return ""
}

// GuestIfName returns the dummy device name.
func (ep *DummyEndpoint) GuestIfName() string {
	return ep.GuestSide
}

// MTU returns zero, no MTU policy applies to dummy devices.
func (ep *DummyEndpoint) MTU() int {
	return 0
}

// Create builds the dummy device in the host namespace.
func (ep *DummyEndpoint) Create() error {
	netHandle, err := netlink.NewHandle()
	if err != nil {
		return err
	}
	defer netHandle.Delete()

	if _, err := createLink(netHandle, ep.GuestSide, &netlink.Dummy{}); err != nil {
		return fmt.Errorf("Could not create dummy device %s: %v", ep.GuestSide, err)
	}

	return nil
}
