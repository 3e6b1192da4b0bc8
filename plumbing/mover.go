// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vishvananda/netlink"
)

var sysClassNet = "/sys/class/net"

// wirelessPhyName returns the name of the PHY backing a wireless
// device, or an empty string for non-wireless devices. Wireless
// devices cannot be namespace-reassigned individually, only their
// PHY can.
func wirelessPhyName(ifName string) string {
	phyDir := filepath.Join(sysClassNet, ifName, "phy80211")
	if _, err := os.Stat(phyDir); err != nil {
		return ""
	}

	name, err := os.ReadFile(filepath.Join(phyDir, "name"))
	if err != nil {
		// The phy80211 directory exists, so the device is wireless
		// even if the PHY name is unreadable; fall back to the
		// symlink target.
		if target, lerr := os.Readlink(phyDir); lerr == nil {
			return filepath.Base(target)
		}
		return ""
	}

	return strings.TrimSpace(string(name))
}

// MoveToNamespace relocates the guest-side interface of an endpoint
// into the network namespace of pid, renames it to containerIfName and
// applies the requested MAC address. The three operations run in order
// and any failure aborts before addressing.
func MoveToNamespace(ep Endpoint, pid int, containerIfName, macAddress string) error {
	guestIfName := ep.GuestIfName()

	if phy := wirelessPhyName(guestIfName); phy != "" {
		networkLogger().WithFields(map[string]interface{}{
			"interface": guestIfName,
			"phy":       phy,
		}).Info("Wireless device, moving the PHY")

		if _, err := exec.LookPath("iw"); err != nil {
			return toolMissingErrorf("iw is required to move wireless device %s", guestIfName)
		}
		if _, err := runCommand("iw", "phy", phy, "set", "netns", strconv.Itoa(pid)); err != nil {
			return err
		}
	} else {
		link, err := netlink.LinkByName(guestIfName)
		if err != nil {
			return fmt.Errorf("Could not find guest interface %s: %v", guestIfName, err)
		}

		if err := netlink.LinkSetNsPid(link, pid); err != nil {
			return fmt.Errorf("Could not move %s into namespace of pid %d: %v", guestIfName, pid, err)
		}
	}

	linkHandle, nsHandle, err := nsLinkHandle(pid)
	if err != nil {
		return err
	}
	defer nsHandle.Close()
	defer linkHandle.Delete()

	link, err := linkHandle.LinkByName(guestIfName)
	if err != nil {
		return fmt.Errorf("Could not find %s inside namespace of pid %d: %v", guestIfName, pid, err)
	}

	if guestIfName != containerIfName {
		if err := linkHandle.LinkSetName(link, containerIfName); err != nil {
			return fmt.Errorf("Could not rename %s to %s: %v", guestIfName, containerIfName, err)
		}

		link, err = linkHandle.LinkByName(containerIfName)
		if err != nil {
			return fmt.Errorf("Could not find %s after rename: %v", containerIfName, err)
		}
	}

	if macAddress != "" {
		hardAddr, err := net.ParseMAC(macAddress)
		if err != nil {
			return err
		}
		if err := linkHandle.LinkSetHardwareAddr(link, hardAddr); err != nil {
			return fmt.Errorf("Could not set MAC address %s on %s: %v", macAddress, containerIfName, err)
		}
	}

	networkLogger().WithFields(map[string]interface{}{
		"interface": containerIfName,
		"pid":       pid,
	}).Info("Guest interface moved and renamed")

	return nil
}
