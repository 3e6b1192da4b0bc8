// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"time"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// DefaultWaitInterval is the polling interval of WaitForInterface.
const DefaultWaitInterval = time.Second

// WaitForInterface polls the current network namespace until the named
// interface reports link carrier, or is enumerable on devices that do
// not expose an operational state. There is deliberately no timeout;
// the only way out is success or an external signal.
func WaitForInterface(ifName string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	logged := false
	for {
		link, err := netlink.LinkByName(ifName)
		if err == nil {
			attrs := link.Attrs()
			if attrs.OperState == netlink.OperUp ||
				attrs.RawFlags&unix.IFF_RUNNING != 0 ||
				attrs.OperState == netlink.OperUnknown {
				networkLogger().WithField("interface", ifName).Info("Interface is up")
				return
			}
		}

		if !logged {
			networkLogger().WithField("interface", ifName).Info("Waiting for interface")
			logged = true
		}

		time.Sleep(interval)
	}
}
