// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"net"
	"strings"

	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

// TargetType identifies the kind of host network object a request refers to.
type TargetType string

const (
	// BridgeTargetType is a native Linux bridge.
	BridgeTargetType TargetType = "bridge"

	// OvsTargetType is an Open vSwitch bridge.
	OvsTargetType TargetType = "ovs-bridge"

	// PhysicalTargetType is a physical host device.
	PhysicalTargetType TargetType = "physical"

	// IpoibTargetType is an IP-over-InfiniBand parent device.
	IpoibTargetType TargetType = "ipoib"

	// DummyTargetType is a standalone dummy device.
	DummyTargetType TargetType = "dummy"

	// RouteTargetType forwards a route-table sub-command into the namespace.
	RouteTargetType TargetType = "route"

	// RuleTargetType forwards a policy-routing sub-command into the namespace.
	RuleTargetType TargetType = "rule"

	// TcTargetType forwards a traffic-control sub-command into the namespace.
	TcTargetType TargetType = "tc"
)

// String converts a target type to a string.
func (t TargetType) String() string {
	return string(t)
}

// HostTarget is the closed set of tagged variants produced by
// ResolveTarget. Each variant carries exactly the fields its
// construction branch needs.
type HostTarget interface {
	TargetType() TargetType
}

// BridgeTarget is a native Linux bridge, existing or to be created.
type BridgeTarget struct {
	Name   string
	Exists bool
}

// TargetType returns the type of the target.
func (t *BridgeTarget) TargetType() TargetType {
	return BridgeTargetType
}

// OvsTarget is an Open vSwitch bridge, existing or to be created.
type OvsTarget struct {
	Name   string
	Exists bool
}

// TargetType returns the type of the target.
func (t *OvsTarget) TargetType() TargetType {
	return OvsTargetType
}

// PhysicalTarget is a physical host device, optionally narrowed to a
// VLAN sub-device.
type PhysicalTarget struct {
	Name   string
	VlanID int
}

// TargetType returns the type of the target.
func (t *PhysicalTarget) TargetType() TargetType {
	return PhysicalTargetType
}

// IpoibTarget is an IP-over-InfiniBand parent device with an optional
// partition key.
type IpoibTarget struct {
	Name string
	Pkey int

	// DefaultContainerIfName overrides the guest interface name when
	// the request did not ask for a specific one.
	DefaultContainerIfName string
}

// TargetType returns the type of the target.
func (t *IpoibTarget) TargetType() TargetType {
	return IpoibTargetType
}

// DummyTarget is a standalone dummy device to be created.
type DummyTarget struct {
	Name string
}

// TargetType returns the type of the target.
func (t *DummyTarget) TargetType() TargetType {
	return DummyTargetType
}

// CommandTarget is one of the pass-through targets: no interface is
// built, the request's trailing arguments become a sub-command executed
// inside the namespace.
type CommandTarget struct {
	Kind TargetType
}

// TargetType returns the type of the target.
func (t *CommandTarget) TargetType() TargetType {
	return t.Kind
}

// Inventory is the read-only view of the host link inventory the
// resolver classifies against. The default implementation queries
// netlink; tests substitute a fake.
type Inventory interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
}

// BridgeLister is the OVS controller capability the resolver and the
// OVS endpoint rely on.
type BridgeLister interface {
	Installed() bool
	ListBridges() ([]string, error)
}

type netlinkInventory struct{}

func (netlinkInventory) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (netlinkInventory) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

// HostInventory returns the netlink-backed host link inventory.
func HostInventory() Inventory {
	return netlinkInventory{}
}

// macSelectorPrefix introduces a host reference selecting a device by
// its hardware address instead of its name.
const macSelectorPrefix = "mac:"

// infinibandEncapType is the encapsulation netlink reports for
// ARPHRD_INFINIBAND devices.
const infinibandEncapType = "infiniband"

func resolveMacSelector(inv Inventory, selector string) (string, error) {
	hwAddr, err := net.ParseMAC(selector)
	if err != nil {
		return "", fmt.Errorf("Could not parse MAC selector %q: %v", selector, err)
	}

	links, err := inv.LinkList()
	if err != nil {
		return "", fmt.Errorf("Could not list host links: %v", err)
	}

	for _, link := range links {
		if link.Attrs().HardwareAddr.String() == hwAddr.String() {
			return link.Attrs().Name, nil
		}
	}

	return "", notFoundErrorf("no host device with address %s", hwAddr)
}

// ResolveTarget classifies the host reference of a request into exactly
// one HostTarget variant. It is query-only: no device is mutated.
func ResolveTarget(inv Inventory, ovs BridgeLister, req *types.InterfaceRequest) (HostTarget, error) {
	name := req.HostRef

	if strings.HasPrefix(name, macSelectorPrefix) {
		resolved, err := resolveMacSelector(inv, strings.TrimPrefix(name, macSelectorPrefix))
		if err != nil {
			return nil, err
		}
		networkLogger().WithFields(map[string]interface{}{
			"selector": name,
			"device":   resolved,
		}).Debug("Resolved MAC selector")
		name = resolved
	}

	if link, err := inv.LinkByName(name); err == nil {
		return classifyExisting(ovs, name, link, req)
	}

	return classifyAbsent(ovs, name)
}

func classifyExisting(ovs BridgeLister, name string, link netlink.Link, req *types.InterfaceRequest) (HostTarget, error) {
	if _, ok := link.(*netlink.Bridge); ok {
		return &BridgeTarget{Name: name, Exists: true}, nil
	}

	if ovs != nil && ovs.Installed() {
		bridges, err := ovs.ListBridges()
		if err != nil {
			return nil, err
		}
		for _, br := range bridges {
			if br == name {
				return &OvsTarget{Name: name, Exists: true}, nil
			}
		}
	}

	if link.Attrs().EncapType == infinibandEncapType {
		return &IpoibTarget{
			Name:                   name,
			Pkey:                   req.VlanID,
			DefaultContainerIfName: "ib0",
		}, nil
	}

	return &PhysicalTarget{Name: name, VlanID: req.VlanID}, nil
}

func classifyAbsent(ovs BridgeLister, name string) (HostTarget, error) {
	switch {
	case strings.HasPrefix(name, "br"):
		return &BridgeTarget{Name: name}, nil
	case strings.HasPrefix(name, "ovs"):
		if ovs == nil || !ovs.Installed() {
			return nil, toolMissingErrorf("ovs-vsctl is not installed, cannot create bridge %s", name)
		}
		return &OvsTarget{Name: name}, nil
	// The pass-through keywords match exactly: a host device merely
	// named like one ("tc0") must still resolve as a device.
	case name == "route":
		return &CommandTarget{Kind: RouteTargetType}, nil
	case name == "rule":
		return &CommandTarget{Kind: RuleTargetType}, nil
	case name == "tc":
		return &CommandTarget{Kind: TcTargetType}, nil
	case strings.HasPrefix(name, "dummy"):
		return &DummyTarget{Name: name}, nil
	}

	return nil, fmt.Errorf("No host device %s and no known prefix matches it", name)
}
