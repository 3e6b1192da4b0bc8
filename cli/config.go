// Copyright (c) 2018 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/netplumb/netplumb/plumbing"
	"github.com/netplumb/netplumb/plumbing/guest"
	"github.com/netplumb/netplumb/plumbing/types"
)

// defaultConfigPath is where the configuration file is looked for when
// the --config flag does not name one. A missing file is not an error,
// the compiled-in defaults apply.
const defaultConfigPath = "/etc/netplumb/configuration.toml"

type registrySection struct {
	// Dir should stay at the conventional /var/run/netns: the
	// route/rule/tc pass-through and the local DHCP clients shell out
	// through ip-netns, which resolves namespace names only there.
	Dir string `toml:"dir"`
}

type guestSection struct {
	SiblingImage string `toml:"sibling_image"`
}

type interfaceSection struct {
	ContainerIfName string `toml:"container_if_name"`
	WaitInterval    int    `toml:"wait_interval_seconds"`
}

type tracingSection struct {
	Enabled bool `toml:"enabled"`
}

type tomlConfig struct {
	Registry  registrySection  `toml:"registry"`
	Guest     guestSection     `toml:"guest"`
	Interface interfaceSection `toml:"interface"`
	Tracing   tracingSection   `toml:"tracing"`
}

func defaultConfig() tomlConfig {
	return tomlConfig{
		Registry: registrySection{
			Dir: plumbing.DefaultRegistryDir,
		},
		Guest: guestSection{
			SiblingImage: guest.DefaultSiblingImage,
		},
		Interface: interfaceSection{
			ContainerIfName: types.DefaultContainerIfName,
			WaitInterval:    int(plumbing.DefaultWaitInterval / time.Second),
		},
	}
}

func loadConfiguration(configPath string) (tomlConfig, error) {
	config := defaultConfig()

	resolved := configPath
	if resolved == "" {
		resolved = defaultConfigPath
	}

	configData, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) && configPath == "" {
			return config, nil
		}
		return config, fmt.Errorf("Could not read configuration file %s: %v", resolved, err)
	}

	if _, err := toml.Decode(string(configData), &config); err != nil {
		return config, fmt.Errorf("Could not parse configuration file %s: %v", resolved, err)
	}

	if config.Interface.WaitInterval <= 0 {
		config.Interface.WaitInterval = int(plumbing.DefaultWaitInterval / time.Second)
	}

	return config, nil
}
