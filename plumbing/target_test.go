// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vishvananda/netlink"

	"github.com/netplumb/netplumb/plumbing/types"
)

type fakeInventory struct {
	links map[string]netlink.Link
}

func (f *fakeInventory) LinkByName(name string) (netlink.Link, error) {
	link, ok := f.links[name]
	if !ok {
		return nil, fmt.Errorf("Link %s not found", name)
	}
	return link, nil
}

func (f *fakeInventory) LinkList() ([]netlink.Link, error) {
	var links []netlink.Link
	for _, link := range f.links {
		links = append(links, link)
	}
	return links, nil
}

type fakeOvs struct {
	installed bool
	bridges   []string
	ports     map[string][]string
	external  map[string]map[string]string
}

func (f *fakeOvs) Installed() bool {
	return f.installed
}

func (f *fakeOvs) ListBridges() ([]string, error) {
	return f.bridges, nil
}

func (f *fakeOvs) AddBridge(name string) error {
	f.bridges = append(f.bridges, name)
	return nil
}

func (f *fakeOvs) AddPort(bridge, port string, vlanID int, externalIDs map[string]string) error {
	if f.ports == nil {
		f.ports = map[string][]string{}
	}
	if f.external == nil {
		f.external = map[string]map[string]string{}
	}
	f.ports[bridge] = append(f.ports[bridge], port)
	f.external[port] = externalIDs
	return nil
}

func hostDevice(name, encap string) netlink.Link {
	link := &netlink.Device{}
	link.LinkAttrs = netlink.LinkAttrs{Name: name, EncapType: encap}
	return link
}

func TestResolveTargetAbsentPrefixes(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{}}
	ovs := &fakeOvs{installed: true}

	for _, tc := range []struct {
		hostRef string
		want    TargetType
	}{
		{"br7", BridgeTargetType},
		{"ovsbr0", OvsTargetType},
		{"route", RouteTargetType},
		{"rule", RuleTargetType},
		{"tc", TcTargetType},
		{"dummy0", DummyTargetType},
	} {
		target, err := ResolveTarget(inv, ovs, &types.InterfaceRequest{HostRef: tc.hostRef})
		assert.NoError(err, tc.hostRef)
		assert.Equal(tc.want, target.TargetType(), tc.hostRef)
	}
}

func TestResolveTargetUnknownPrefix(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{}}

	_, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "mystery0"})
	assert.Error(err)
}

func TestResolveTargetKeywordsMatchExactly(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{}}

	// An absent device merely named like a keyword is not a
	// pass-through target.
	for _, hostRef := range []string{"tc0", "tcpdump0", "router0", "rule66"} {
		_, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: hostRef})
		assert.Error(err, hostRef)
	}

	// An existing device named like a keyword resolves as a device.
	withDevice := &fakeInventory{links: map[string]netlink.Link{
		"tc0": hostDevice("tc0", "ether"),
	}}

	target, err := ResolveTarget(withDevice, &fakeOvs{}, &types.InterfaceRequest{HostRef: "tc0"})
	assert.NoError(err)
	assert.Equal(PhysicalTargetType, target.TargetType())
}

func TestResolveTargetOvsWithoutTool(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{}}

	_, err := ResolveTarget(inv, &fakeOvs{installed: false}, &types.InterfaceRequest{HostRef: "ovsbr0"})
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrToolMissing))
}

func TestResolveTargetExistingBridge(t *testing.T) {
	assert := assert.New(t)

	bridge := &netlink.Bridge{}
	bridge.LinkAttrs = netlink.LinkAttrs{Name: "br0"}
	inv := &fakeInventory{links: map[string]netlink.Link{"br0": bridge}}

	target, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "br0"})
	assert.NoError(err)

	bt, ok := target.(*BridgeTarget)
	assert.True(ok)
	assert.True(bt.Exists)
	assert.Equal("br0", bt.Name)
}

func TestResolveTargetExistingOvsBridge(t *testing.T) {
	assert := assert.New(t)

	// An OVS bridge also shows up as a plain netlink device on the
	// host, so OVS membership must be checked before falling back to
	// the physical classification.
	inv := &fakeInventory{links: map[string]netlink.Link{
		"nsb0": hostDevice("nsb0", "ether"),
	}}
	ovs := &fakeOvs{installed: true, bridges: []string{"nsb0"}}

	target, err := ResolveTarget(inv, ovs, &types.InterfaceRequest{HostRef: "nsb0"})
	assert.NoError(err)

	ot, ok := target.(*OvsTarget)
	assert.True(ok)
	assert.True(ot.Exists)
}

func TestResolveTargetPhysical(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{
		"eth0": hostDevice("eth0", "ether"),
	}}

	target, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "eth0", VlanID: 42})
	assert.NoError(err)

	pt, ok := target.(*PhysicalTarget)
	assert.True(ok)
	assert.Equal("eth0", pt.Name)
	assert.Equal(42, pt.VlanID)
}

func TestResolveTargetInfiniband(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{
		"ib0": hostDevice("ib0", "infiniband"),
	}}

	target, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "ib0", VlanID: 0x8001})
	assert.NoError(err)

	it, ok := target.(*IpoibTarget)
	assert.True(ok)
	assert.Equal("ib0", it.Name)
	assert.Equal(0x8001, it.Pkey)
}

func TestResolveTargetMacSelector(t *testing.T) {
	assert := assert.New(t)

	hwAddr, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	assert.NoError(err)

	eth1 := &netlink.Device{}
	eth1.LinkAttrs = netlink.LinkAttrs{Name: "eth1", EncapType: "ether", HardwareAddr: hwAddr}

	inv := &fakeInventory{links: map[string]netlink.Link{
		"eth0": hostDevice("eth0", "ether"),
		"eth1": eth1,
	}}

	target, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "mac:aa:bb:cc:dd:ee:ff"})
	assert.NoError(err)

	pt, ok := target.(*PhysicalTarget)
	assert.True(ok)
	assert.Equal("eth1", pt.Name)
}

func TestResolveTargetMacSelectorNotFound(t *testing.T) {
	assert := assert.New(t)

	inv := &fakeInventory{links: map[string]netlink.Link{}}

	_, err := ResolveTarget(inv, &fakeOvs{}, &types.InterfaceRequest{HostRef: "mac:aa:bb:cc:dd:ee:ff"})
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrNotFound))
}
