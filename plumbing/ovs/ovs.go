// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

// Package ovs drives Open vSwitch through the ovs-vsctl tool.
package ovs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ovsLog = logrus.WithField("source", "netplumb")

// SetLogger sets up the logger for this package.
func SetLogger(logger *logrus.Entry) {
	fields := ovsLog.Data
	ovsLog = logger.WithFields(fields)
}

// Vsctl is an OVS controller backed by the ovs-vsctl command line
// tool. A zero-tool Vsctl reports itself not installed.
type Vsctl struct {
	tool string
}

// NewVsctl probes for ovs-vsctl on the host.
func NewVsctl() *Vsctl {
	path, err := exec.LookPath("ovs-vsctl")
	if err != nil {
		return &Vsctl{}
	}

	return &Vsctl{tool: path}
}

// Installed reports whether ovs-vsctl was found on the host.
func (v *Vsctl) Installed() bool {
	return v != nil && v.tool != ""
}

func (v *Vsctl) run(args ...string) (string, error) {
	out, err := exec.Command(v.tool, args...).CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "ovs-vsctl %s failed: %s",
			strings.Join(args, " "), strings.TrimSpace(string(out)))
	}

	return string(out), nil
}

// ListBridges reports the names of all OVS bridges on the host.
func (v *Vsctl) ListBridges() ([]string, error) {
	out, err := v.run("list-br")
	if err != nil {
		return nil, err
	}

	var bridges []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			bridges = append(bridges, line)
		}
	}

	return bridges, nil
}

// AddBridge creates an OVS bridge.
func (v *Vsctl) AddBridge(name string) error {
	ovsLog.WithField("bridge", name).Info("Creating OVS bridge")

	_, err := v.run("add-br", name)
	return err
}

// AddPort attaches a port to an OVS bridge, optionally with an access
// VLAN tag, and records the guest identity as external-ids on the
// port so operators can map ports back to containers.
func (v *Vsctl) AddPort(bridge, port string, vlanID int, externalIDs map[string]string) error {
	ovsLog.WithFields(logrus.Fields{
		"bridge": bridge,
		"port":   port,
		"vlan":   vlanID,
	}).Info("Attaching port to OVS bridge")

	args := []string{"add-port", bridge, port}
	if vlanID != 0 {
		args = append(args, "tag="+strconv.Itoa(vlanID))
	}
	if _, err := v.run(args...); err != nil {
		return err
	}

	for key, value := range externalIDs {
		setting := fmt.Sprintf("external-ids:%s=%s", key, value)
		if _, err := v.run("set", "port", port, setting); err != nil {
			return err
		}
	}

	return nil
}
