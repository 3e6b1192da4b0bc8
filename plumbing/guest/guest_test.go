// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netplumb/netplumb/plumbing/types"
)

type fakeManager struct {
	available bool
	infos     []Info
	err       error

	calls int
}

func (f *fakeManager) Available() bool {
	return f.available
}

func (f *fakeManager) Inspect(ctx context.Context, guestID string) (Info, error) {
	f.calls++
	if f.err != nil {
		return Info{}, f.err
	}

	idx := f.calls - 1
	if idx >= len(f.infos) {
		idx = len(f.infos) - 1
	}
	return f.infos[idx], nil
}

type fakeLegacy struct {
	available bool
	pid       int
	err       error
}

func (f *fakeLegacy) Available() bool {
	return f.available
}

func (f *fakeLegacy) Pid(guestID string) (int, error) {
	return f.pid, f.err
}

// skipScanner always falls through, as on a unified-hierarchy host.
func skipScanner() *CgroupScanner {
	return &CgroupScanner{
		unifiedMode:  func() bool { return true },
		devicesMount: func() (string, error) { return "", nil },
	}
}

func TestResolveWithManager(t *testing.T) {
	assert := assert.New(t)

	manager := &fakeManager{
		available: true,
		infos:     []Info{{Pid: 4242, ContainerID: "deadbeef", ContainerName: "web"}},
	}
	resolver := NewResolver(skipScanner(), manager, nil)

	info, err := resolver.Resolve(context.Background(), "web")
	assert.NoError(err)
	assert.Equal(4242, info.Pid)
	assert.Equal("deadbeef", info.ContainerID)
	assert.Equal(1, manager.calls)
}

func TestResolveManagerRetriesSentinelPid(t *testing.T) {
	assert := assert.New(t)

	// The first two inspections report the not-started sentinel.
	manager := &fakeManager{
		available: true,
		infos:     []Info{{Pid: 0}, {Pid: 0}, {Pid: 99}},
	}
	resolver := NewResolver(skipScanner(), manager, nil)

	info, err := resolver.Resolve(context.Background(), "slowpoke")
	assert.NoError(err)
	assert.Equal(99, info.Pid)
	assert.Equal(3, manager.calls)
}

func TestResolveManagerGivesUpOnSentinelPid(t *testing.T) {
	assert := assert.New(t)

	manager := &fakeManager{
		available: true,
		infos:     []Info{{Pid: 0}},
	}
	resolver := NewResolver(skipScanner(), manager, nil)

	_, err := resolver.Resolve(context.Background(), "neverstarts")
	assert.Error(err)
	assert.Equal(pidRetries, manager.calls)
	assert.Contains(err.Error(), "not started")
}

func TestResolveManagerUnknownGuestFailsImmediately(t *testing.T) {
	assert := assert.New(t)

	manager := &fakeManager{
		available: true,
		err:       errors.New("no such container"),
	}
	resolver := NewResolver(skipScanner(), manager, nil)

	_, err := resolver.Resolve(context.Background(), "ghost")
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrNotFound))

	// An unknown guest is fatal right away, no retries.
	assert.Equal(1, manager.calls)
}

func TestResolveFallsBackToLegacy(t *testing.T) {
	assert := assert.New(t)

	legacy := &fakeLegacy{available: true, pid: 77}
	resolver := NewResolver(skipScanner(), &fakeManager{}, legacy)

	info, err := resolver.Resolve(context.Background(), "lxcguest")
	assert.NoError(err)
	assert.Equal(77, info.Pid)
}

func TestResolveLegacyFailure(t *testing.T) {
	assert := assert.New(t)

	legacy := &fakeLegacy{available: true, err: errors.New("not running")}
	resolver := NewResolver(skipScanner(), nil, legacy)

	_, err := resolver.Resolve(context.Background(), "lxcguest")
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrNotFound))
}

func TestResolveNoStrategy(t *testing.T) {
	assert := assert.New(t)

	resolver := NewResolver(skipScanner(), nil, nil)

	_, err := resolver.Resolve(context.Background(), "nowhere")
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrNotFound))
}
