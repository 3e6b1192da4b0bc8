// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/containernetworking/plugins/pkg/ns"
	"golang.org/x/sys/unix"
)

var arpTemplate = []byte{
	0x00, 0x01, // Hardware type: ethernet
	0x08, 0x00, // Protocol: IPv4
	0x06,       // Hardware address length
	0x04,       // IPv4 address length
	0x00, 0x01, // ARP request
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Sender MAC
	0x00, 0x00, 0x00, 0x00, // Sender IP
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Target MAC (always zeros)
	0x00, 0x00, 0x00, 0x00, // Target IP
}

var bcastMAC = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// htons converts a short to network byte order as the kernel expects
// it in sockaddr_ll. Reading the big-endian bytes back through the
// host's own byte order keeps this correct on any endianness.
func htons(i uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], i)
	return binary.NativeEndian.Uint16(b[:])
}

// AnnounceAddress sends a single gratuitous ARP for the applied address
// on the container interface inside the namespace of pid. This is pure
// best effort: any failure is logged, never fatal.
func AnnounceAddress(pid int, ifName string, outcome *AddressingOutcome) {
	if outcome == nil || outcome.Address == nil {
		return
	}

	ip4 := outcome.Address.IP.To4()
	if ip4 == nil {
		addressingLogger().WithField("address", outcome.Address.String()).Debug("Skipping neighbor announcement for non-IPv4 address")
		return
	}

	nsPath := fmt.Sprintf("/proc/%d/ns/net", pid)
	err := DoNetNS(nsPath, func(_ ns.NetNS) error {
		return sendUnsolicitedARP(ifName, ip4)
	})
	if err != nil {
		addressingLogger().WithFields(map[string]interface{}{
			"interface": ifName,
			"address":   ip4.String(),
			"error":     err,
		}).Warn("Neighbor announcement failed")
		return
	}

	addressingLogger().WithFields(map[string]interface{}{
		"interface": ifName,
		"address":   ip4.String(),
	}).Debug("Neighbor announcement sent")
}

// sendUnsolicitedARP broadcasts one gratuitous ARP request for ip on
// the named interface. Must run inside the target namespace.
func sendUnsolicitedARP(ifName string, ip net.IP) error {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return fmt.Errorf("Could not find interface %s: %v", ifName, err)
	}

	sd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("Could not create packet socket: %v", err)
	}
	defer unix.Close(sd)

	pkt := make([]byte, len(arpTemplate))
	copy(pkt, arpTemplate)
	copy(pkt[8:14], iface.HardwareAddr)
	copy(pkt[14:18], ip)
	copy(pkt[24:28], ip)

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ARP),
		Ifindex:  iface.Index,
		Hatype:   unix.ARPHRD_ETHER,
		Halen:    uint8(len(bcastMAC)),
	}
	copy(sa.Addr[:], bcastMAC)

	return unix.Sendto(sd, pkt, 0, sa)
}
