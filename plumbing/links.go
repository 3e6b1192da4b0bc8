// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

func createLink(netHandle *netlink.Handle, name string, expectedLink netlink.Link) (netlink.Link, error) {
	var newLink netlink.Link

	switch expectedLink.Type() {
	case (&netlink.Bridge{}).Type():
		newLink = &netlink.Bridge{
			LinkAttrs: netlink.LinkAttrs{Name: name},
		}
	case (&netlink.Veth{}).Type():
		newLink = &netlink.Veth{
			LinkAttrs: netlink.LinkAttrs{
				Name: name,
				MTU:  expectedLink.Attrs().MTU,
			},
			PeerName: expectedLink.(*netlink.Veth).PeerName,
		}
	case (&netlink.Macvlan{}).Type():
		newLink = &netlink.Macvlan{
			LinkAttrs: netlink.LinkAttrs{
				Name:        name,
				MTU:         expectedLink.Attrs().MTU,
				ParentIndex: expectedLink.Attrs().ParentIndex,
			},
			Mode: netlink.MACVLAN_MODE_BRIDGE,
		}
	case (&netlink.Vlan{}).Type():
		newLink = &netlink.Vlan{
			LinkAttrs: netlink.LinkAttrs{
				Name:        name,
				ParentIndex: expectedLink.Attrs().ParentIndex,
			},
			VlanId: expectedLink.(*netlink.Vlan).VlanId,
		}
	case (&netlink.IPoIB{}).Type():
		newLink = &netlink.IPoIB{
			LinkAttrs: netlink.LinkAttrs{
				Name:        name,
				ParentIndex: expectedLink.Attrs().ParentIndex,
			},
			Pkey:   expectedLink.(*netlink.IPoIB).Pkey,
			Mode:   netlink.IPOIB_MODE_DATAGRAM,
			Umcast: 1,
		}
	case (&netlink.Dummy{}).Type():
		newLink = &netlink.Dummy{
			LinkAttrs: netlink.LinkAttrs{Name: name},
		}
	default:
		return nil, fmt.Errorf("Unsupported link type %s", expectedLink.Type())
	}

	if err := netHandle.LinkAdd(newLink); err != nil {
		return nil, fmt.Errorf("LinkAdd() failed for %s name %s: %v", expectedLink.Type(), name, err)
	}

	return getLinkByName(netHandle, name, expectedLink)
}

func getLinkByName(netHandle *netlink.Handle, name string, expectedLink netlink.Link) (netlink.Link, error) {
	link, err := netHandle.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("LinkByName() failed for %s name %s: %v", expectedLink.Type(), name, err)
	}

	switch expectedLink.Type() {
	case (&netlink.Bridge{}).Type():
		if l, ok := link.(*netlink.Bridge); ok {
			return l, nil
		}
	case (&netlink.Veth{}).Type():
		if l, ok := link.(*netlink.Veth); ok {
			return l, nil
		}
	case (&netlink.Macvlan{}).Type():
		if l, ok := link.(*netlink.Macvlan); ok {
			return l, nil
		}
	case (&netlink.Vlan{}).Type():
		if l, ok := link.(*netlink.Vlan); ok {
			return l, nil
		}
	case (&netlink.IPoIB{}).Type():
		if l, ok := link.(*netlink.IPoIB); ok {
			return l, nil
		}
	case (&netlink.Dummy{}).Type():
		if l, ok := link.(*netlink.Dummy); ok {
			return l, nil
		}
	default:
		return nil, fmt.Errorf("Unsupported link type %s", expectedLink.Type())
	}

	return nil, fmt.Errorf("Incorrect link type %s, expecting %s", link.Type(), expectedLink.Type())
}
