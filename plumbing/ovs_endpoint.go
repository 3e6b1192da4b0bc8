// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"strconv"

	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

// OvsController is the Open vSwitch capability surface the resolver
// and the OVS endpoint need. The real implementation drives ovs-vsctl;
// tests substitute a fake.
type OvsController interface {
	BridgeLister
	AddBridge(name string) error
	AddPort(bridge, port string, vlanID int, externalIDs map[string]string) error
}

// OvsEndpoint attaches the host side of a veth pair to an Open vSwitch
// bridge, tagging the port with the requested VLAN and annotating it
// with the guest identity for external observability.
type OvsEndpoint struct {
	BridgeName   string
	BridgeExists bool
	HostSide     string
	GuestSide    string
	VlanID       int

	ovs  OvsController
	meta GuestMetadata
	mtu  int
}

func newOvsEndpoint(t *OvsTarget, ovs OvsController, req *types.InterfaceRequest, pid int, meta GuestMetadata) (*OvsEndpoint, error) {
	if ovs == nil || !ovs.Installed() {
		return nil, toolMissingErrorf("ovs-vsctl is not installed, cannot use bridge %s", t.Name)
	}

	hostSide := req.LocalIfName
	if hostSide == "" {
		hostSide = pairIfName(req.ContainerIfName, pid, true)
	}

	return &OvsEndpoint{
		BridgeName:   t.Name,
		BridgeExists: t.Exists,
		HostSide:     hostSide,
		GuestSide:    pairIfName(req.ContainerIfName, pid, false),
		VlanID:       req.VlanID,
		ovs:          ovs,
		meta:         meta,
	}, nil
}

// Type returns the type of the endpoint.
func (ep *OvsEndpoint) Type() TargetType {
	return OvsTargetType
}

// HostIfName returns the host-side veth name.
func (ep *OvsEndpoint) HostIfName() string {
	return ep.HostSide
}

// GuestIfName returns the guest-side veth name.
func (ep *OvsEndpoint) GuestIfName() string {
	return ep.GuestSide
}

// MTU returns the MTU copied from the bridge device.
func (ep *OvsEndpoint) MTU() int {
	return ep.mtu
}

// Create builds the OVS bridge (when absent) and the veth pair, adds
// the host side as a tagged, annotated port, and brings it up.
func (ep *OvsEndpoint) Create() error {
	netHandle, err := netlink.NewHandle()
	if err != nil {
		return err
	}
	defer netHandle.Delete()

	if !ep.BridgeExists {
		if err := ep.ovs.AddBridge(ep.BridgeName); err != nil {
			return fmt.Errorf("Could not create OVS bridge %s: %v", ep.BridgeName, err)
		}
		networkLogger().WithField("bridge", ep.BridgeName).Info("OVS bridge created")
	}

	// The OVS bridge shows up as a host link of the same name; its MTU
	// is the one propagated to the pair.
	bridgeLink, err := netHandle.LinkByName(ep.BridgeName)
	if err != nil {
		return fmt.Errorf("Could not find OVS bridge device %s: %v", ep.BridgeName, err)
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

	externalIDs := map[string]string{
		"netplumb-pid": strconv.Itoa(ep.meta.Pid),
	}
	if ep.meta.ContainerID != "" {
		externalIDs["container-id"] = ep.meta.ContainerID
	}
	if ep.meta.ContainerName != "" {
		externalIDs["container-name"] = ep.meta.ContainerName
	}

	if err := ep.ovs.AddPort(ep.BridgeName, ep.HostSide, ep.VlanID, externalIDs); err != nil {
		return fmt.Errorf("Could not add port %s to OVS bridge %s: %v", ep.HostSide, ep.BridgeName, err)
	}

	if err := netHandle.LinkSetUp(vethLink); err != nil {
		return fmt.Errorf("Could not enable %s: %v", ep.HostSide, err)
	}

	return nil
}
