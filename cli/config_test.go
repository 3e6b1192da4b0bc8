// Copyright (c) 2018 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netplumb/netplumb/plumbing"
	"github.com/netplumb/netplumb/plumbing/guest"
	"github.com/netplumb/netplumb/plumbing/types"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	assert := assert.New(t)

	// No explicit path and no file at the default location still
	// yields a usable configuration.
	config, err := loadConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)

	config, err = loadConfiguration("")
	assert.NoError(err)
	assert.Equal(guest.DefaultSiblingImage, config.Guest.SiblingImage)
	assert.Equal(types.DefaultContainerIfName, config.Interface.ContainerIfName)
	assert.Equal(plumbing.DefaultRegistryDir, config.Registry.Dir)
	assert.Equal(1, config.Interface.WaitInterval)
}

func TestLoadConfigurationFile(t *testing.T) {
	assert := assert.New(t)

	content := `
[registry]
dir = "/run/netplumb/netns"

[guest]
sibling_image = "alpine"

[interface]
container_if_name = "net0"
wait_interval_seconds = 5

[tracing]
enabled = true
`

	path := filepath.Join(t.TempDir(), "configuration.toml")
	assert.NoError(os.WriteFile(path, []byte(content), 0644))

	config, err := loadConfiguration(path)
	assert.NoError(err)
	assert.Equal("/run/netplumb/netns", config.Registry.Dir)
	assert.Equal("alpine", config.Guest.SiblingImage)
	assert.Equal("net0", config.Interface.ContainerIfName)
	assert.Equal(5, config.Interface.WaitInterval)
	assert.True(config.Tracing.Enabled)
}

func TestLoadConfigurationPartialFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "configuration.toml")
	assert.NoError(os.WriteFile(path, []byte("[guest]\nsibling_image = \"alpine\"\n"), 0644))

	config, err := loadConfiguration(path)
	assert.NoError(err)
	assert.Equal("alpine", config.Guest.SiblingImage)

	// Unset sections keep the compiled-in defaults.
	assert.Equal(plumbing.DefaultRegistryDir, config.Registry.Dir)
	assert.Equal(types.DefaultContainerIfName, config.Interface.ContainerIfName)
}

func TestLoadConfigurationBadToml(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "configuration.toml")
	assert.NoError(os.WriteFile(path, []byte("not [valid toml"), 0644))

	_, err := loadConfiguration(path)
	assert.Error(err)
}
