// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netplumb/netplumb/plumbing/types"
)

func testScanner(mount string) *CgroupScanner {
	return &CgroupScanner{
		unifiedMode:  func() bool { return false },
		devicesMount: func() (string, error) { return mount, nil },
	}
}

func addCgroup(t *testing.T, root string, elems []string, taskFile, taskPid string) {
	dir := filepath.Join(append([]string{root}, elems...)...)
	assert.NoError(t, os.MkdirAll(dir, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, taskFile), []byte(taskPid+"\n"), 0644))
}

func TestCgroupResolve(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	addCgroup(t, root, []string{"lxc", "myguest"}, "tasks", "1234")

	pid, found, err := testScanner(root).Resolve("myguest")
	assert.NoError(err)
	assert.True(found)
	assert.Equal(1234, pid)
}

func TestCgroupResolveCgroupProcsFallback(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	addCgroup(t, root, []string{"docker", "myguest"}, "cgroup.procs", "4321")

	pid, found, err := testScanner(root).Resolve("myguest")
	assert.NoError(err)
	assert.True(found)
	assert.Equal(4321, pid)
}

func TestCgroupResolveNoMatchFallsThrough(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	addCgroup(t, root, []string{"lxc", "otherguest"}, "tasks", "1234")

	_, found, err := testScanner(root).Resolve("myguest")
	assert.NoError(err)
	assert.False(found)
}

func TestCgroupResolveLxcMonitorDuplicate(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	addCgroup(t, root, []string{"lxc", "myguest"}, "tasks", "1234")
	addCgroup(t, root, []string{"lxc.monitor", "myguest"}, "tasks", "5678")

	// The monitor match is a benign duplicate, not an ambiguity.
	pid, found, err := testScanner(root).Resolve("myguest")
	assert.NoError(err)
	assert.True(found)
	assert.Equal(1234, pid)
}

func TestCgroupResolveAmbiguous(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	addCgroup(t, root, []string{"lxc", "myguest"}, "tasks", "1234")
	addCgroup(t, root, []string{"docker", "myguest"}, "tasks", "5678")

	_, _, err := testScanner(root).Resolve("myguest")
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrAmbiguousGuest))
}

func TestCgroupResolveUnifiedSkips(t *testing.T) {
	assert := assert.New(t)

	scanner := &CgroupScanner{
		unifiedMode:  func() bool { return true },
		devicesMount: func() (string, error) { return t.TempDir(), nil },
	}

	_, found, err := scanner.Resolve("myguest")
	assert.NoError(err)
	assert.False(found)
}

func TestCgroupResolveNoDevicesHierarchy(t *testing.T) {
	assert := assert.New(t)

	_, found, err := testScanner("").Resolve("myguest")
	assert.NoError(err)
	assert.False(found)
}

func TestCgroupResolveEmptyTasks(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	dir := filepath.Join(root, "lxc", "myguest")
	assert.NoError(os.MkdirAll(dir, 0755))
	assert.NoError(os.WriteFile(filepath.Join(dir, "tasks"), []byte(""), 0644))

	_, _, err := testScanner(root).Resolve("myguest")
	assert.Error(err)
	assert.True(errors.Is(err, types.ErrNotFound))
}
