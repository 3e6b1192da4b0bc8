// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"runtime"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// DoNetNS is free from any call to a go routine, and it calls
// into runtime.LockOSThread(), meaning it won't be executed in a
// different thread than the one expected by the caller.
func DoNetNS(netNSPath string, cb func(ns.NetNS) error) error {
	// if netNSPath is empty, the callback function will be run in the
	// current network namespace. So skip the whole function, just call
	// cb(). cb() needs a NetNS as arg but ignored, give it a fake one.
	if netNSPath == "" {
		var netNs ns.NetNS
		return cb(netNs)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	currentNS, err := ns.GetCurrentNS()
	if err != nil {
		return err
	}
	defer currentNS.Close()

	targetNS, err := ns.GetNS(netNSPath)
	if err != nil {
		return err
	}

	if err := targetNS.Set(); err != nil {
		return err
	}
	defer currentNS.Set()

	return cb(targetNS)
}

// nsLinkHandle returns a netlink handle scoped to the network namespace
// of the given process. The caller owns both returned handles and must
// Delete()/Close() them.
func nsLinkHandle(pid int) (*netlink.Handle, netns.NsHandle, error) {
	nsHandle, err := netns.GetFromPid(pid)
	if err != nil {
		return nil, nsHandle, fmt.Errorf("Could not get network namespace of pid %d: %v", pid, err)
	}

	linkHandle, err := netlink.NewHandleAt(nsHandle)
	if err != nil {
		nsHandle.Close()
		return nil, nsHandle, fmt.Errorf("Could not get netlink handle in namespace of pid %d: %v", pid, err)
	}

	return linkHandle, nsHandle, nil
}
