// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LxcLookup resolves guests through the lxc-info tool. It serves
// LXC installations where the cgroup hierarchy gave no answer.
type LxcLookup struct {
	tool string
}

// NewLxcLookup probes for lxc-info on the host.
func NewLxcLookup() *LxcLookup {
	path, err := exec.LookPath("lxc-info")
	if err != nil {
		return &LxcLookup{}
	}

	return &LxcLookup{tool: path}
}

// Available reports whether lxc-info was found on the host.
func (l *LxcLookup) Available() bool {
	return l != nil && l.tool != ""
}

// Pid asks lxc-info for the init pid of the named container.
func (l *LxcLookup) Pid(guestID string) (int, error) {
	out, err := exec.Command(l.tool, "-pH", "-n", guestID).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("Could not query lxc-info for %s: %v", guestID, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("lxc-info returned no pid for %s", guestID)
	}

	return pid, nil
}
