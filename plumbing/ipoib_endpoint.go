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

// IpoibEndpoint creates a virtual IP-over-InfiniBand sub-device of the
// parent device, optionally bound to a partition key. No bridge or
// macvlan layer is ever put on top of IPoIB.
type IpoibEndpoint struct {
	ParentIfName string
	Pkey         int
	GuestSide    string

	mtu int
}

func newIpoibEndpoint(t *IpoibTarget, req *types.InterfaceRequest, pid int) (*IpoibEndpoint, error) {
	if req.MacAddress != "" {
		return nil, unsupportedErrorf("custom MAC addresses cannot be set on IPoIB device %s", t.Name)
	}

	suffix := fmt.Sprintf(".%d", pid)
	if t.Pkey != 0 {
		suffix = fmt.Sprintf(".%d.%d", t.Pkey, pid)
	}

	parent := t.Name
	if room := maxIfNameLen - len(suffix); len(parent) > room {
		parent = parent[:room]
	}

	return &IpoibEndpoint{
		ParentIfName: t.Name,
		Pkey:         t.Pkey,
		GuestSide:    parent + suffix,
	}, nil
}

// Type returns the type of the endpoint.
func (ep *IpoibEndpoint) Type() TargetType {
	return IpoibTargetType
}

// HostIfName returns an empty string: the parent device stays on the
// host, there is no separate host-side peer.
func (ep *IpoibEndpoint) HostIfName() string {
	return ""
}

// GuestIfName returns the IPoIB sub-device name.
func (ep *IpoibEndpoint) GuestIfName() string {
	return ep.GuestSide
}

// MTU returns the MTU copied from the parent device.
func (ep *IpoibEndpoint) MTU() int {
	return ep.mtu
}

// Create builds the IPoIB sub-device and brings the parent device up.
func (ep *IpoibEndpoint) Create() error {
	netHandle, err := netlink.NewHandle()
	if err != nil {
		return err
	}
	defer netHandle.Delete()

	parentLink, err := netHandle.LinkByName(ep.ParentIfName)
	if err != nil {
		return notFoundErrorf("IPoIB parent device %s: %v", ep.ParentIfName, err)
	}

	ep.mtu = parentLink.Attrs().MTU

	subLink, err := createLink(netHandle, ep.GuestSide, &netlink.IPoIB{
		LinkAttrs: netlink.LinkAttrs{ParentIndex: parentLink.Attrs().Index},
		Pkey:      uint16(ep.Pkey),
	})
	if err != nil {
		return fmt.Errorf("Could not create IPoIB sub-device %s on %s: %v", ep.GuestSide, ep.ParentIfName, err)
	}

	if err := netHandle.LinkSetMTU(subLink, ep.mtu); err != nil {
		return fmt.Errorf("Could not set MTU %d on %s: %v", ep.mtu, ep.GuestSide, err)
	}

	if err := netHandle.LinkSetUp(parentLink); err != nil {
		return fmt.Errorf("Could not enable IPoIB parent %s: %v", ep.ParentIfName, err)
	}

	return nil
}
