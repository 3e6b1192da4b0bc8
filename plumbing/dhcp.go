// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/netplumb/netplumb/plumbing/types"
)

// SiblingRunner launches a DHCP client container sharing the network
// namespace of the guest. Only the container-manager backend can
// provide this capability.
type SiblingRunner interface {
	RunSibling(containerID string, cmd []string) error
}

var dhcpPidFileDir = "/var/run"

func dhclientPidFile(pid int) string {
	return fmt.Sprintf("%s/dhclient.%d.pid", dhcpPidFileDir, pid)
}

func dhcpcdPidFile(ifName string) string {
	return fmt.Sprintf("%s/dhcpcd-%s.pid", dhcpPidFileDir, ifName)
}

// ValidateDhcp checks that the requested client kind can actually run,
// before any namespace mutation has happened. Local client kinds need
// their binary installed; the sibling kind needs a container manager
// that resolved the guest.
func ValidateDhcp(spec *types.DhcpSpec, sibling SiblingRunner, containerID string) error {
	switch spec.Kind {
	case types.DhcpSibling:
		if sibling == nil || containerID == "" {
			return toolMissingErrorf("the %s client kind needs a container manager, guest was not resolved through one", spec.Kind)
		}
		return nil
	case types.DhcpDhclient, types.DhcpUdhcpc, types.DhcpDhcpcd:
		if _, err := exec.LookPath(string(spec.Kind)); err != nil {
			return toolMissingErrorf("%s is not installed", spec.Kind)
		}
		return nil
	}

	return fmt.Errorf("Unknown DHCP client kind %q", spec.Kind)
}

// ApplyDhcp obtains addressing on the container interface through the
// requested client strategy. ValidateDhcp must have succeeded earlier.
func ApplyDhcp(pid int, ifName string, spec *types.DhcpSpec, sibling SiblingRunner, containerID string, family types.AddressFamily) (*AddressingOutcome, error) {
	var pidFile string
	var err error

	switch spec.Kind {
	case types.DhcpSibling:
		cmd := append([]string{"udhcpc", "-qi", ifName}, spec.Options...)
		err = sibling.RunSibling(containerID, cmd)
	case types.DhcpDhclient:
		pidFile, err = runDhclient(pid, ifName, spec)
	case types.DhcpUdhcpc:
		err = runUdhcpc(pid, ifName, spec)
	case types.DhcpDhcpcd:
		err = runDhcpcd(pid, ifName, spec)
	default:
		err = fmt.Errorf("Unknown DHCP client kind %q", spec.Kind)
	}
	if err != nil {
		return nil, err
	}

	address, err := namespaceAddress(pid, ifName, family)
	if err != nil {
		return nil, err
	}

	addressingLogger().WithFields(map[string]interface{}{
		"interface": ifName,
		"client":    string(spec.Kind),
		"address":   fmt.Sprintf("%v", address),
	}).Info("DHCP addressing applied")

	return &AddressingOutcome{Address: address, DhcpPidFile: pidFile}, nil
}

// runDhclient runs dhclient inside the namespace. The pid file is
// recorded at a conventional path and removed right away unless the
// caller asked for a foreground client.
func runDhclient(pid int, ifName string, spec *types.DhcpSpec) (string, error) {
	pidFile := dhclientPidFile(pid)

	cmd := []string{"dhclient", "-pf", pidFile}
	if spec.Foreground {
		cmd = append(cmd, "-d")
	}
	cmd = append(cmd, spec.Options...)
	cmd = append(cmd, ifName)

	if _, err := runCommand("ip", nsExecArgs(pid, cmd)...); err != nil {
		return "", err
	}

	if spec.Foreground {
		return pidFile, nil
	}

	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		addressingLogger().WithField("pid-file", pidFile).WithField("error", err).Warn("Could not remove dhclient pid file")
	}

	return "", nil
}

func runUdhcpc(pid int, ifName string, spec *types.DhcpSpec) error {
	cmd := []string{"udhcpc", "-qi", ifName}
	if spec.Foreground {
		cmd = append(cmd, "-f")
	}
	cmd = append(cmd, spec.Options...)

	_, err := runCommand("ip", nsExecArgs(pid, cmd)...)
	return err
}

// runDhcpcd obtains a lease and then deliberately terminates the
// client: the lease persists, the process does not.
func runDhcpcd(pid int, ifName string, spec *types.DhcpSpec) error {
	cmd := append([]string{"dhcpcd", "-q", ifName}, spec.Options...)

	if _, err := runCommand("ip", nsExecArgs(pid, cmd)...); err != nil {
		return err
	}

	pidFile := dhcpcdPidFile(ifName)
	data, err := os.ReadFile(pidFile)
	if err != nil {
		addressingLogger().WithField("pid-file", pidFile).Warn("No dhcpcd pid file, client left running")
		return nil
	}

	clientPid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && clientPid > 0 {
		if err := syscall.Kill(clientPid, syscall.SIGTERM); err != nil {
			addressingLogger().WithField("client-pid", clientPid).WithField("error", err).Warn("Could not terminate dhcpcd")
		}
	}

	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		addressingLogger().WithField("pid-file", pidFile).WithField("error", err).Warn("Could not remove dhcpcd pid file")
	}

	return nil
}
