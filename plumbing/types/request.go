// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultContainerIfName is the interface name used inside the guest
// when the caller does not ask for a specific one.
const DefaultContainerIfName = "eth1"

// AddressFamily selects the IP address family a request operates on.
type AddressFamily int

const (
	// FamilyV4 is the IPv4 address family.
	FamilyV4 AddressFamily = iota

	// FamilyV6 is the IPv6 address family.
	FamilyV6
)

// String converts an address family to a string.
func (f AddressFamily) String() string {
	if f == FamilyV6 {
		return "v6"
	}
	return "v4"
}

// DhcpKind identifies which DHCP client strategy should obtain the lease.
type DhcpKind string

const (
	// DhcpSibling runs a client container sharing the guest network
	// namespace. No locally installed client is needed.
	DhcpSibling DhcpKind = "dhcp"

	// DhcpDhclient runs a locally installed dhclient inside the
	// namespace, daemonized with a pid file.
	DhcpDhclient DhcpKind = "dhclient"

	// DhcpUdhcpc runs a locally installed udhcpc inside the namespace.
	DhcpUdhcpc DhcpKind = "udhcpc"

	// DhcpDhcpcd runs a locally installed dhcpcd which is terminated
	// once the lease has been obtained. The lease persists, the
	// process does not.
	DhcpDhcpcd DhcpKind = "dhcpcd"
)

// valid reports whether the kind names a known client strategy.
func (k DhcpKind) valid() bool {
	switch k {
	case DhcpSibling, DhcpDhclient, DhcpUdhcpc, DhcpDhcpcd:
		return true
	}
	return false
}

// StaticAddress is a statically configured address with an optional gateway.
type StaticAddress struct {
	Address *net.IPNet
	Gateway net.IP
}

// DhcpSpec describes a DHCP-derived addressing request.
type DhcpSpec struct {
	Kind       DhcpKind
	Options    []string
	Foreground bool
}

// AddressSpec is the union of the supported addressing methods. Both
// fields nil means no addressing is applied.
type AddressSpec struct {
	Static *StaticAddress
	Dhcp   *DhcpSpec
}

// None reports whether no addressing was requested.
func (a AddressSpec) None() bool {
	return a.Static == nil && a.Dhcp == nil
}

// InterfaceRequest is the parsed, immutable description of one
// provisioning run.
type InterfaceRequest struct {
	HostRef         string
	GuestID         string
	ContainerIfName string
	LocalIfName     string
	Family          AddressFamily
	Address         AddressSpec
	MacAddress      string
	VlanID          int
	DirectPhys      bool

	// CommandArgs carries the trailing raw sub-command for the
	// route/rule/tc pass-through targets. Unused otherwise.
	CommandArgs []string
}

// ParseAddressSpec parses the address argument of a request. The accepted
// forms are a DHCP client kind with optional colon-separated options
// ("dhcp", "udhcpc:-O:staticroutes", "dhclient-f"), or a CIDR with an
// optional gateway suffix ("10.0.0.5/24@10.0.0.1").
func ParseAddressSpec(arg string, family AddressFamily) (AddressSpec, error) {
	if arg == "" {
		return AddressSpec{}, nil
	}

	fields := strings.Split(arg, ":")
	kind := fields[0]

	foreground := false
	if strings.HasSuffix(kind, "-f") {
		foreground = true
		kind = strings.TrimSuffix(kind, "-f")
	}

	if DhcpKind(kind).valid() {
		return AddressSpec{
			Dhcp: &DhcpSpec{
				Kind:       DhcpKind(kind),
				Options:    fields[1:],
				Foreground: foreground,
			},
		}, nil
	}

	// Not a client kind: must be a static CIDR, optionally with a
	// gateway appended after '@'.
	cidr := arg
	var gateway net.IP
	if idx := strings.LastIndex(arg, "@"); idx != -1 {
		cidr = arg[:idx]
		gateway = net.ParseIP(arg[idx+1:])
		if gateway == nil {
			return AddressSpec{}, fmt.Errorf("Could not parse gateway address %q", arg[idx+1:])
		}
	}

	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return AddressSpec{}, fmt.Errorf("Could not parse address %q: %v", cidr, err)
	}

	if family == FamilyV4 && ip.To4() == nil {
		return AddressSpec{}, fmt.Errorf("Address %q is not an IPv4 address", cidr)
	}

	// Keep the host bits, not the network address.
	ipNet.IP = ip

	return AddressSpec{
		Static: &StaticAddress{
			Address: ipNet,
			Gateway: gateway,
		},
	}, nil
}

// ParseMacVlan splits a MAC address argument with an optional embedded
// VLAN tag suffix ("aa:bb:cc:dd:ee:ff@42") into its parts. An empty
// argument yields an empty MAC and VLAN id 0.
func ParseMacVlan(arg string) (string, int, error) {
	if arg == "" {
		return "", 0, nil
	}

	mac := arg
	vlan := 0
	if idx := strings.LastIndex(arg, "@"); idx != -1 {
		mac = arg[:idx]
		v, err := strconv.Atoi(arg[idx+1:])
		if err != nil || v < 0 || v > 4094 {
			return "", 0, fmt.Errorf("Invalid VLAN id %q", arg[idx+1:])
		}
		vlan = v
	}

	if mac != "" {
		if _, err := net.ParseMAC(mac); err != nil {
			return "", 0, fmt.Errorf("Could not parse MAC address %q: %v", mac, err)
		}
	}

	return mac, vlan, nil
}
