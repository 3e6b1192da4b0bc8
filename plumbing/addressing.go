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

// AddressingOutcome describes the addressing applied inside the
// namespace. It exists only after addressing succeeded and feeds the
// final neighbor announcement.
type AddressingOutcome struct {
	Address *net.IPNet
	Gateway net.IP

	// DhcpPidFile is the recorded client pid file, when one survives
	// the run (foreground local clients only).
	DhcpPidFile string
}

// broadcastAddr computes the directed broadcast address of an IPv4
// prefix. Returns nil for non-IPv4 prefixes.
func broadcastAddr(ipNet *net.IPNet) net.IP {
	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return nil
	}

	mask := ipNet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}

	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip4[i] | ^mask[i]
	}
	return bcast
}

// ApplyStatic configures a static address on the container interface
// inside the namespace of pid, and installs the default route when a
// gateway was requested.
func ApplyStatic(pid int, ifName string, static *types.StaticAddress) (*AddressingOutcome, error) {
	linkHandle, nsHandle, err := nsLinkHandle(pid)
	if err != nil {
		return nil, err
	}
	defer nsHandle.Close()
	defer linkHandle.Delete()

	link, err := linkHandle.LinkByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("Could not find %s inside namespace of pid %d: %v", ifName, pid, err)
	}

	addr := &netlink.Addr{
		IPNet:     static.Address,
		Broadcast: broadcastAddr(static.Address),
	}
	if err := linkHandle.AddrAdd(link, addr); err != nil {
		return nil, fmt.Errorf("Could not add address %s to %s: %v", static.Address, ifName, err)
	}

	if static.Gateway == nil {
		if err := linkHandle.LinkSetUp(link); err != nil {
			return nil, fmt.Errorf("Could not enable %s: %v", ifName, err)
		}

		return &AddressingOutcome{Address: static.Address}, nil
	}

	if err := installGateway(linkHandle, link, static.Gateway); err != nil {
		return nil, err
	}

	addressingLogger().WithFields(map[string]interface{}{
		"interface": ifName,
		"address":   static.Address.String(),
		"gateway":   static.Gateway.String(),
	}).Info("Static address applied")

	return &AddressingOutcome{
		Address: static.Address,
		Gateway: static.Gateway,
	}, nil
}

// installGateway replaces the namespace default route with one via gw,
// adding a host route to the gateway first when it is not directly
// reachable through the configured prefix.
func installGateway(linkHandle *netlink.Handle, link netlink.Link, gw net.IP) error {
	// An existing default route from a previous configuration is
	// removed best-effort; absence is not a failure.
	defaultRoute := &netlink.Route{Dst: nil}
	if err := linkHandle.RouteDel(defaultRoute); err != nil {
		addressingLogger().WithField("error", err).Debug("No previous default route to remove")
	}

	if err := linkHandle.LinkSetUp(link); err != nil {
		return fmt.Errorf("Could not enable %s: %v", link.Attrs().Name, err)
	}

	// Ensure the gateway itself is reachable before pointing the
	// default route at it.
	if routes, err := linkHandle.RouteGet(gw); err != nil || len(routes) == 0 {
		hostRoute := &netlink.Route{
			LinkIndex: link.Attrs().Index,
			Scope:     netlink.SCOPE_LINK,
			Dst:       singleHostNet(gw),
		}
		if err := linkHandle.RouteAdd(hostRoute); err != nil {
			return fmt.Errorf("Could not add host route to gateway %s: %v", gw, err)
		}
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gw,
	}
	if err := linkHandle.RouteReplace(route); err != nil {
		return fmt.Errorf("Could not replace default route via %s: %v", gw, err)
	}

	return nil
}

func singleHostNet(ip net.IP) *net.IPNet {
	bits := 8 * net.IPv6len
	if ip.To4() != nil {
		bits = 8 * net.IPv4len
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

// namespaceAddress reads back the first configured address of the given
// family on the container interface, used after DHCP clients populated
// addressing.
func namespaceAddress(pid int, ifName string, family types.AddressFamily) (*net.IPNet, error) {
	linkHandle, nsHandle, err := nsLinkHandle(pid)
	if err != nil {
		return nil, err
	}
	defer nsHandle.Close()
	defer linkHandle.Delete()

	link, err := linkHandle.LinkByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("Could not find %s inside namespace of pid %d: %v", ifName, pid, err)
	}

	nlFamily := netlink.FAMILY_V4
	if family == types.FamilyV6 {
		nlFamily = netlink.FAMILY_V6
	}

	addrs, err := linkHandle.AddrList(link, nlFamily)
	if err != nil {
		return nil, fmt.Errorf("Could not list addresses of %s: %v", ifName, err)
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	return addrs[0].IPNet, nil
}
