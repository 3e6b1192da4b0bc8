// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"os/exec"
)

// ForwardCommand runs the trailing request arguments verbatim as a
// route, rule or tc sub-command inside the registered namespace of pid.
// No interface is created and no addressing happens for these targets;
// the arguments are not validated beyond the existence of the
// namespace entry.
func ForwardCommand(kind TargetType, pid int, args []string) error {
	if _, err := exec.LookPath("ip"); err != nil {
		return toolMissingErrorf("ip is not installed")
	}

	var cmd []string
	switch kind {
	case RouteTargetType:
		cmd = append([]string{"ip", "route"}, args...)
	case RuleTargetType:
		cmd = append([]string{"ip", "rule"}, args...)
	case TcTargetType:
		if _, err := exec.LookPath("tc"); err != nil {
			return toolMissingErrorf("tc is not installed")
		}
		cmd = append([]string{"tc"}, args...)
	default:
		return fmt.Errorf("Unexpected pass-through target %s", kind)
	}

	networkLogger().WithFields(map[string]interface{}{
		"target": kind.String(),
		"pid":    pid,
	}).Info("Forwarding sub-command into namespace")

	_, err := runCommand("ip", nsExecArgs(pid, cmd)...)
	return err
}
