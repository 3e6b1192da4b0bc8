// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

// BridgeEndpoint attaches the host side of a veth pair to a native
// Linux bridge, creating the bridge first when it does not exist yet.
type BridgeEndpoint struct {
	BridgeName   string
	BridgeExists bool
	HostSide     string
	GuestSide    string

	mtu int
}

func newBridgeEndpoint(t *BridgeTarget, req *types.InterfaceRequest, pid int) (*BridgeEndpoint, error) {
	if req.VlanID != 0 {
		return nil, unsupportedErrorf("VLAN tags are not supported on native Linux bridges (bridge %s, vlan %d)", t.Name, req.VlanID)
	}

	hostSide := req.LocalIfName
	if hostSide == "" {
		hostSide = pairIfName(req.ContainerIfName, pid, true)
	}

	return &BridgeEndpoint{
		BridgeName:   t.Name,
		BridgeExists: t.Exists,
		HostSide:     hostSide,
		GuestSide:    pairIfName(req.ContainerIfName, pid, false),
	}, nil
}

// Type returns the type of the endpoint.
func (ep *BridgeEndpoint) Type() TargetType {
	return BridgeTargetType
}

// HostIfName returns the host-side veth name.
func (ep *BridgeEndpoint) HostIfName() string {
	return ep.HostSide
}

// GuestIfName returns the guest-side veth name.
func (ep *BridgeEndpoint) GuestIfName() string {
	return ep.GuestSide
}

// MTU returns the MTU copied from the bridge device.
func (ep *BridgeEndpoint) MTU() int {
	return ep.mtu
}

// Create builds the bridge (when absent), the veth pair, and attaches
// the host side, leaving the guest side unbound in the host namespace.
func (ep *BridgeEndpoint) Create() error {
	netHandle, err := netlink.NewHandle()
	if err != nil {
		return err
	}
	defer netHandle.Delete()

	bridgeLink, err := getLinkByName(netHandle, ep.BridgeName, &netlink.Bridge{})
	if err != nil {
		bridgeLink, err = createLink(netHandle, ep.BridgeName, &netlink.Bridge{})
		if err != nil {
			return fmt.Errorf("Could not create bridge %s: %v", ep.BridgeName, err)
		}

		if err := netHandle.LinkSetUp(bridgeLink); err != nil {
			return fmt.Errorf("Could not enable bridge %s: %v", ep.BridgeName, err)
		}

		networkLogger().WithField("bridge", ep.BridgeName).Info("Bridge created")
	}

	ep.mtu = bridgeLink.Attrs().MTU

	if err := recoverStalePair(netHandle, ep.HostSide); err != nil {
		return err
	}

	vethLink, err := createLink(netHandle, ep.HostSide, &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{MTU: ep.mtu},
		PeerName:  ep.GuestSide,
	})
	if err != nil {
		return fmt.Errorf("Could not create veth pair %s/%s: %v", ep.HostSide, ep.GuestSide, err)
	}

	if err := netHandle.LinkSetMaster(vethLink, bridgeLink.(*netlink.Bridge)); err != nil {
		return fmt.Errorf("Could not attach %s to the bridge %s: %v", ep.HostSide, ep.BridgeName, err)
	}

	if err := netHandle.LinkSetUp(vethLink); err != nil {
		return fmt.Errorf("Could not enable %s: %v", ep.HostSide, err)
	}

	return nil
}

// recoverStalePair deletes a pre-existing host-side link that is
// administratively down, assuming it was left behind by an aborted
// earlier run. A link that is up belongs to a live guest and is a
// hard conflict.
func recoverStalePair(netHandle *netlink.Handle, hostSide string) error {
	link, err := netHandle.LinkByName(hostSide)
	if err != nil {
		return nil
	}

	if link.Attrs().Flags&net.FlagUp != 0 {
		return alreadyInUseErrorf("host interface %s is up and in use", hostSide)
	}

	networkLogger().WithField("interface", hostSide).Info("Removing stale host interface")

	if err := netHandle.LinkDel(link); err != nil {
		return fmt.Errorf("Could not remove stale interface %s: %v", hostSide, err)
	}

	return nil
}
