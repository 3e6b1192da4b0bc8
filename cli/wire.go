// Copyright (c) 2018 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/netplumb/netplumb/pkg/plumbtrace"
	"github.com/netplumb/netplumb/pkg/rootless"
	"github.com/netplumb/netplumb/plumbing"
	"github.com/netplumb/netplumb/plumbing/guest"
	"github.com/netplumb/netplumb/plumbing/ovs"
	"github.com/netplumb/netplumb/plumbing/types"
)

const wireArgsUsage = `<host-ref> <guest> [address|dhcp-spec] [mac[@vlan]]

   <host-ref> names the host side of the plumbing: an existing or to-be
   created Linux bridge (br*), OVS bridge (ovs*), a physical device, an
   InfiniBand parent, a dummy device (dummy*), a mac:<address> selector,
   or one of the route/rule/tc pass-through keywords followed by a raw
   sub-command.
   <guest> names the container to plumb the interface into.`

// isCommandRef matches the pass-through keywords exactly: a host
// device that merely starts with one of them ("tc0", "tcpdump0")
// keeps the regular host-ref argument layout.
func isCommandRef(ref string) bool {
	switch ref {
	case "route", "rule", "tc":
		return true
	}

	return false
}

// needsNamespaceTooling reports whether the request ends up shelling
// out through ip-netns, which only resolves namespace names under the
// conventional registry directory.
func needsNamespaceTooling(req *types.InterfaceRequest) bool {
	if len(req.CommandArgs) > 0 {
		return true
	}

	return req.Address.Dhcp != nil && req.Address.Dhcp.Kind != types.DhcpSibling
}

func parseRequest(c *cli.Context, containerIfName string) (*types.InterfaceRequest, error) {
	args := c.Args()
	if len(args) < 2 {
		return nil, fmt.Errorf("need a host reference and a guest, got %d arguments", len(args))
	}

	req := &types.InterfaceRequest{
		HostRef:         args[0],
		GuestID:         args[1],
		ContainerIfName: containerIfName,
		LocalIfName:     c.GlobalString("local-if"),
		DirectPhys:      c.GlobalBool("direct-phys"),
		Family:          types.FamilyV4,
	}
	if c.GlobalBool("6") {
		req.Family = types.FamilyV6
	}

	if isCommandRef(req.HostRef) {
		if len(args) < 3 {
			return nil, fmt.Errorf("%s needs a sub-command to forward", req.HostRef)
		}
		req.CommandArgs = args[2:]
		return req, nil
	}

	if len(args) > 2 {
		address, err := types.ParseAddressSpec(args[2], req.Family)
		if err != nil {
			return nil, err
		}
		req.Address = address
	}

	if len(args) > 3 {
		mac, vlanID, err := types.ParseMacVlan(args[3])
		if err != nil {
			return nil, err
		}
		req.MacAddress = mac
		req.VlanID = vlanID
	}

	return req, nil
}

func wireAction(c *cli.Context) error {
	ctx, err := cliContextToContext(c)
	if err != nil {
		return err
	}

	span, ctx := plumbtrace.Trace(ctx, netplumbLog, "wire", cliTags...)
	defer span.Finish()

	config, ok := c.App.Metadata["config"].(tomlConfig)
	if !ok {
		return cli.NewExitError("invalid configuration in application metadata", 1)
	}

	// An interface name is only treated as chosen when the flag or an
	// operator-overridden configuration names one; otherwise the
	// resolved target picks its default (ib0 for IPoIB parents, eth1
	// for everything else).
	containerIfName := c.GlobalString("container-if")
	if containerIfName == "" && config.Interface.ContainerIfName != types.DefaultContainerIfName {
		containerIfName = config.Interface.ContainerIfName
	}

	if c.GlobalBool("wait") {
		waitIfName := containerIfName
		if waitIfName == "" {
			waitIfName = config.Interface.ContainerIfName
		}
		plumbing.WaitForInterface(waitIfName, time.Duration(config.Interface.WaitInterval)*time.Second)
		return nil
	}

	if c.NArg() == 0 {
		cli.ShowAppHelp(c)
		return cli.NewExitError("missing arguments", 1)
	}

	// Namespace plumbing mutates host devices, fail early rather than
	// half way through the pipeline.
	if err := rootless.SetRootless(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if rootless.IsRootless() || os.Geteuid() != 0 {
		return cli.NewExitError("netplumb needs root privileges to reconfigure namespaces", 1)
	}

	req, err := parseRequest(c, containerIfName)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if config.Registry.Dir != plumbing.DefaultRegistryDir && needsNamespaceTooling(req) {
		netplumbLog.WithField("dir", config.Registry.Dir).Warn("ip-netns resolves namespace names only under " +
			plumbing.DefaultRegistryDir + ", pass-through and local DHCP clients will not find the namespace")
	}

	netplumbLog = netplumbLog.WithField("guest", req.GuestID)
	setExternalLoggers(ctx, netplumbLog)
	span.SetTag("guest", req.GuestID)

	manager := guest.NewDockerManager(config.Guest.SiblingImage)
	resolver := guest.NewResolver(guest.NewCgroupScanner(), manager, guest.NewLxcLookup())
	registry := plumbing.NewRegistry(config.Registry.Dir)

	pipeline := plumbing.NewPipeline(plumbing.HostInventory(), ovs.NewVsctl(), resolver, registry, manager)

	result, err := pipeline.Provision(ctx, req)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fields := logrus.Fields{
		"target": result.Target.String(),
		"pid":    result.Guest.Pid,
	}
	if result.GuestIfName != "" {
		fields["interface"] = result.GuestIfName
	}
	if result.Addressing != nil && result.Addressing.Address != nil {
		fields["address"] = result.Addressing.Address.String()
	}
	netplumbLog.WithFields(fields).Info("Guest wired")

	return nil
}
