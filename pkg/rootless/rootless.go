// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

// Package rootless detects whether the process runs inside a rootless
// user namespace. Namespace plumbing needs real root: every netlink
// mutation and namespace move fails with EPERM otherwise, so callers
// check this once up front instead of failing half way through.
package rootless

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	isRootless bool
	hostUID    int
)

// uidMapPath is the uid mapping of the current user namespace.
var uidMapPath = "/proc/self/uid_map"

// userMapping reports whether root inside the current user namespace
// maps to a non-root user on the host.
func userMapping() (bool, int, error) {
	file, err := os.Open(uidMapPath)
	if err != nil {
		return false, 0, err
	}
	defer file.Close()

	buf := bufio.NewReader(file)
	for {
		line, _, err := buf.ReadLine()
		if err != nil {
			if err == io.EOF {
				return false, 0, nil
			}
			return false, 0, err
		}
		if line == nil {
			return false, 0, nil
		}

		ids := strings.Fields(string(line))
		if len(ids) >= 2 && ids[0] == "0" && ids[1] != "0" {
			uid, _ := strconv.Atoi(ids[1])
			return true, uid, nil
		}
	}
}

// SetRootless probes the uid mappings. Call once at startup, before
// any privileged operation is attempted.
func SetRootless() error {
	mappings, uid, err := userMapping()
	if err != nil {
		return fmt.Errorf("Could not read uid mappings: %v", err)
	}

	isRootless = mappings
	hostUID = uid

	return nil
}

// IsRootless reports whether the process runs in a rootless user
// namespace.
func IsRootless() bool {
	return isRootless
}

// GetRootlessUID returns the UID of the user in the parent user
// namespace.
func GetRootlessUID() int {
	return hostUID
}
