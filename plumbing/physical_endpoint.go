// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

// PhysicalEndpoint hands a physical device (or a VLAN sub-device of it)
// to the guest. In direct mode the device itself is moved into the
// namespace and becomes fully owned by it; otherwise a bridge-mode
// macvlan sub-interface is layered on top.
type PhysicalEndpoint struct {
	PhysIfName string
	VlanID     int
	Direct     bool
	GuestSide  string

	// effectiveIfName is the device the guest side is derived from:
	// the physical device, or its VLAN sub-device when a VLAN id was
	// requested.
	effectiveIfName string

	mtu int
}

func newPhysicalEndpoint(t *PhysicalTarget, req *types.InterfaceRequest, pid int) (*PhysicalEndpoint, error) {
	effective := t.Name
	if t.VlanID != 0 {
		effective = fmt.Sprintf("%s.%d", t.Name, t.VlanID)
	}

	guestSide := prefixedIfName("ph", req.ContainerIfName, pid)
	if req.DirectPhys {
		// The guest receives the device itself, no macvlan layer.
		guestSide = effective
	}

	return &PhysicalEndpoint{
		PhysIfName:      t.Name,
		VlanID:          t.VlanID,
		Direct:          req.DirectPhys,
		GuestSide:       guestSide,
		effectiveIfName: effective,
	}, nil
}

// Type returns the type of the endpoint.
func (ep *PhysicalEndpoint) Type() TargetType {
	return PhysicalTargetType
}

// HostIfName returns an empty string: the physical device itself is the
// parent, there is no separate host-side peer.
func (ep *PhysicalEndpoint) HostIfName() string {
	return ""
}

// GuestIfName returns the device destined for the namespace.
func (ep *PhysicalEndpoint) GuestIfName() string {
	return ep.GuestSide
}

// MTU returns the MTU of the effective host device.
func (ep *PhysicalEndpoint) MTU() int {
	return ep.mtu
}

// Create ensures the VLAN sub-device when requested, creates the
// macvlan guest side unless direct mode owns the device outright, and
// brings the underlying physical device up.
func (ep *PhysicalEndpoint) Create() error {
	netHandle, err := netlink.NewHandle()
	if err != nil {
		return err
	}
	defer netHandle.Delete()

	physLink, err := netHandle.LinkByName(ep.PhysIfName)
	if err != nil {
		return notFoundErrorf("physical device %s: %v", ep.PhysIfName, err)
	}

	logPhysicalDriver(ep.PhysIfName)

	effectiveLink := physLink
	if ep.VlanID != 0 {
		effectiveLink, err = ep.ensureVlanSubDevice(netHandle, physLink)
		if err != nil {
			return err
		}
	}

	ep.mtu = effectiveLink.Attrs().MTU

	if !ep.Direct {
		if _, err := createLink(netHandle, ep.GuestSide, &netlink.Macvlan{
			LinkAttrs: netlink.LinkAttrs{
				MTU:         ep.mtu,
				ParentIndex: effectiveLink.Attrs().Index,
			},
		}); err != nil {
			return fmt.Errorf("Could not create macvlan %s on %s: %v", ep.GuestSide, ep.effectiveIfName, err)
		}
	}

	if err := netHandle.LinkSetUp(physLink); err != nil {
		return fmt.Errorf("Could not enable physical device %s: %v", ep.PhysIfName, err)
	}

	if ep.VlanID != 0 && !ep.Direct {
		if err := netHandle.LinkSetUp(effectiveLink); err != nil {
			return fmt.Errorf("Could not enable VLAN device %s: %v", ep.effectiveIfName, err)
		}
	}

	return nil
}

// ensureVlanSubDevice creates the {device, vlan} sub-device when absent
// and rejects a pre-existing device at that name which is not actually
// a VLAN device carrying the requested id.
func (ep *PhysicalEndpoint) ensureVlanSubDevice(netHandle *netlink.Handle, physLink netlink.Link) (netlink.Link, error) {
	existing, err := netHandle.LinkByName(ep.effectiveIfName)
	if err == nil {
		vlanLink, ok := existing.(*netlink.Vlan)
		if !ok || vlanLink.VlanId != ep.VlanID {
			return nil, alreadyInUseErrorf("device %s exists but is not a VLAN %d sub-device of %s",
				ep.effectiveIfName, ep.VlanID, ep.PhysIfName)
		}
		return existing, nil
	}

	vlanLink, err := createLink(netHandle, ep.effectiveIfName, &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{ParentIndex: physLink.Attrs().Index},
		VlanId:    ep.VlanID,
	})
	if err != nil {
		return nil, fmt.Errorf("Could not create VLAN %d sub-device on %s: %v", ep.VlanID, ep.PhysIfName, err)
	}

	networkLogger().WithFields(map[string]interface{}{
		"device": ep.effectiveIfName,
		"vlan":   ep.VlanID,
	}).Info("VLAN sub-device created")

	return vlanLink, nil
}

// logPhysicalDriver records the driver and bus of the physical device.
// Purely informational, failures are ignored.
func logPhysicalDriver(ifName string) {
	et, err := ethtool.NewEthtool()
	if err != nil {
		return
	}
	defer et.Close()

	if drvInfo, err := et.DriverInfo(ifName); err == nil {
		networkLogger().WithFields(map[string]interface{}{
			"interface": ifName,
			"driver":    drvInfo.Driver,
			"bus":       drvInfo.BusInfo,
		}).Debug("Physical device driver")
	}
}
