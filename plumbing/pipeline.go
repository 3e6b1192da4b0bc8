// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/netplumb/netplumb/pkg/plumbtrace"
	"github.com/netplumb/netplumb/plumbing/guest"
	"github.com/netplumb/netplumb/plumbing/types"
)

// GuestResolver finds the init pid and identity of a guest.
type GuestResolver interface {
	Resolve(ctx context.Context, guestID string) (guest.Info, error)
}

// Result describes what a provisioning run ended up wiring.
type Result struct {
	Guest       guest.Info
	Target      TargetType
	HostIfName  string
	GuestIfName string
	Addressing  *AddressingOutcome
}

// Pipeline wires a guest to a host target: it decides the topology,
// publishes the guest namespace, builds the host-side device, moves
// it into the guest and configures addressing. The stage functions
// default to the real implementations and exist so tests can fail
// individual stages.
type Pipeline struct {
	inventory Inventory
	ovs       OvsController
	guests    GuestResolver
	registry  *Registry
	sibling   SiblingRunner

	buildEndpoint func(HostTarget, OvsController, *types.InterfaceRequest, int, GuestMetadata) (Endpoint, error)
	moveEndpoint  func(Endpoint, int, string, string) error
	applyStatic   func(int, string, *types.StaticAddress) (*AddressingOutcome, error)
	applyDhcp     func(int, string, *types.DhcpSpec, SiblingRunner, string, types.AddressFamily) (*AddressingOutcome, error)
	announce      func(int, string, *AddressingOutcome)
	forward       func(TargetType, int, []string) error
}

// NewPipeline builds a pipeline against the real host.
func NewPipeline(inventory Inventory, ovs OvsController, guests GuestResolver, registry *Registry, sibling SiblingRunner) *Pipeline {
	return &Pipeline{
		inventory: inventory,
		ovs:       ovs,
		guests:    guests,
		registry:  registry,
		sibling:   sibling,

		buildEndpoint: NewEndpoint,
		moveEndpoint:  MoveToNamespace,
		applyStatic:   ApplyStatic,
		applyDhcp:     ApplyDhcp,
		announce:      AnnounceAddress,
		forward:       ForwardCommand,
	}
}

// Provision performs one full wiring run for the request. The
// registry entry for the guest namespace is always retracted before
// returning, whether the run succeeded or not.
func (p *Pipeline) Provision(ctx context.Context, req *types.InterfaceRequest) (*Result, error) {
	span, ctx := plumbtrace.Trace(ctx, networkLogger(), "provision", "host-ref", req.HostRef, "guest", req.GuestID)
	defer span.Finish()

	target, err := ResolveTarget(p.inventory, p.ovs, req)
	if err != nil {
		return nil, err
	}

	info, err := p.resolveGuest(ctx, req.GuestID)
	if err != nil {
		return nil, err
	}

	if _, err := p.registry.Publish(info.Pid); err != nil {
		return nil, err
	}

	result, err := p.wire(ctx, target, info, req)
	if retractErr := p.registry.Retract(info.Pid); retractErr != nil {
		err = multierror.Append(err, retractErr).ErrorOrNil()
	}

	return result, err
}

func (p *Pipeline) resolveGuest(ctx context.Context, guestID string) (guest.Info, error) {
	span, ctx := plumbtrace.Trace(ctx, networkLogger(), "resolve-guest")
	defer span.Finish()

	return p.guests.Resolve(ctx, guestID)
}

func (p *Pipeline) wire(ctx context.Context, target HostTarget, info guest.Info, req *types.InterfaceRequest) (*Result, error) {
	if cmd, ok := target.(*CommandTarget); ok {
		span, _ := plumbtrace.Trace(ctx, networkLogger(), "forward-command", "kind", cmd.Kind.String())
		defer span.Finish()

		if err := p.forward(cmd.Kind, info.Pid, req.CommandArgs); err != nil {
			return nil, err
		}
		return &Result{Guest: info, Target: cmd.Kind}, nil
	}

	// A request may leave the guest interface name open, in which case
	// the resolved target decides: IPoIB parents carry their own
	// conventional default, everything else falls back to eth1.
	runReq := *req
	if runReq.ContainerIfName == "" {
		runReq.ContainerIfName = defaultGuestIfName(target)
	}

	// Validation that can fail must run before the host is touched.
	if runReq.Address.Dhcp != nil {
		if err := ValidateDhcp(runReq.Address.Dhcp, p.sibling, info.ContainerID); err != nil {
			return nil, err
		}
	}

	endpoint, err := p.buildEndpoint(target, p.ovs, &runReq, info.Pid, GuestMetadata{
		Pid:           info.Pid,
		ContainerID:   info.ContainerID,
		ContainerName: info.ContainerName,
	})
	if err != nil {
		return nil, err
	}

	networkLogger().WithFields(logrus.Fields{
		"target":     target.TargetType().String(),
		"host-side":  endpoint.HostIfName(),
		"guest-side": endpoint.GuestIfName(),
		"pid":        info.Pid,
	}).Info("Wiring guest interface")

	createSpan, _ := plumbtrace.Trace(ctx, networkLogger(), "create-endpoint")
	err = endpoint.Create()
	createSpan.Finish()
	if err != nil {
		return nil, err
	}

	moveSpan, _ := plumbtrace.Trace(ctx, networkLogger(), "move-endpoint")
	err = p.moveEndpoint(endpoint, info.Pid, runReq.ContainerIfName, runReq.MacAddress)
	moveSpan.Finish()
	if err != nil {
		return nil, err
	}

	outcome, err := p.configureAddressing(ctx, info, &runReq)
	if err != nil {
		return nil, err
	}

	if outcome != nil {
		p.announce(info.Pid, runReq.ContainerIfName, outcome)
	}

	return &Result{
		Guest:       info,
		Target:      target.TargetType(),
		HostIfName:  endpoint.HostIfName(),
		GuestIfName: runReq.ContainerIfName,
		Addressing:  outcome,
	}, nil
}

// defaultGuestIfName is the guest interface name used when the request
// does not pick one.
func defaultGuestIfName(target HostTarget) string {
	if t, ok := target.(*IpoibTarget); ok && t.DefaultContainerIfName != "" {
		return t.DefaultContainerIfName
	}
	return types.DefaultContainerIfName
}

func (p *Pipeline) configureAddressing(ctx context.Context, info guest.Info, req *types.InterfaceRequest) (*AddressingOutcome, error) {
	span, _ := plumbtrace.Trace(ctx, addressingLogger(), "configure-addressing")
	defer span.Finish()

	switch {
	case req.Address.Static != nil:
		return p.applyStatic(info.Pid, req.ContainerIfName, req.Address.Static)
	case req.Address.Dhcp != nil:
		return p.applyDhcp(info.Pid, req.ContainerIfName, req.Address.Dhcp, p.sibling, info.ContainerID, req.Family)
	default:
		// No address requested, the interface still comes up.
		return nil, bringUp(info.Pid, req.ContainerIfName)
	}
}

func bringUp(pid int, ifName string) error {
	linkHandle, nsHandle, err := nsLinkHandle(pid)
	if err != nil {
		return err
	}
	defer nsHandle.Close()
	defer linkHandle.Delete()

	link, err := linkHandle.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("Could not find %s in the guest namespace: %v", ifName, err)
	}

	if err := linkHandle.LinkSetUp(link); err != nil {
		return fmt.Errorf("Could not enable %s in the guest namespace: %v", ifName, err)
	}

	return nil
}
