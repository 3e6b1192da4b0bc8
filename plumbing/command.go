// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// runCommand executes an external tool and returns its combined output.
// A non-zero exit is propagated with the tool's own diagnostic attached.
func runCommand(name string, args ...string) (string, error) {
	networkLogger().WithFields(map[string]interface{}{
		"command": name,
		"args":    strings.Join(args, " "),
	}).Debug("Running external command")

	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "%s %s failed: %s", name, strings.Join(args, " "), strings.TrimSpace(string(out)))
	}

	return string(out), nil
}

// nsExecArgs prefixes a command so it runs inside the registered
// namespace of pid via ip-netns.
func nsExecArgs(pid int, cmd []string) []string {
	return append([]string{"netns", "exec", strconv.Itoa(pid)}, cmd...)
}
