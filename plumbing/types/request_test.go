// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddressSpecStatic(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("10.1.2.3/24", FamilyV4)
	assert.NoError(err)
	assert.NotNil(spec.Static)
	assert.Nil(spec.Dhcp)
	assert.Equal("10.1.2.3/24", spec.Static.Address.String())
	assert.Nil(spec.Static.Gateway)
}

func TestParseAddressSpecStaticWithGateway(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("10.1.2.3/24@10.1.2.1", FamilyV4)
	assert.NoError(err)
	assert.NotNil(spec.Static)
	assert.Equal("10.1.2.3/24", spec.Static.Address.String())
	assert.Equal("10.1.2.1", spec.Static.Gateway.String())
}

func TestParseAddressSpecIPv6(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("2001:db8::5/64", FamilyV6)
	assert.NoError(err)
	assert.NotNil(spec.Static)
	assert.Equal("2001:db8::5/64", spec.Static.Address.String())
}

func TestParseAddressSpecFamilyMismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseAddressSpec("2001:db8::5/64", FamilyV4)
	assert.Error(err)
}

func TestParseAddressSpecDhcpKinds(t *testing.T) {
	assert := assert.New(t)

	for _, kind := range []DhcpKind{DhcpSibling, DhcpDhclient, DhcpUdhcpc, DhcpDhcpcd} {
		spec, err := ParseAddressSpec(string(kind), FamilyV4)
		assert.NoError(err)
		assert.NotNil(spec.Dhcp)
		assert.Nil(spec.Static)
		assert.Equal(kind, spec.Dhcp.Kind)
		assert.False(spec.Dhcp.Foreground)
	}
}

func TestParseAddressSpecDhcpOptions(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("udhcpc:-O:staticroutes", FamilyV4)
	assert.NoError(err)
	assert.NotNil(spec.Dhcp)
	assert.Equal(DhcpUdhcpc, spec.Dhcp.Kind)
	assert.Equal([]string{"-O", "staticroutes"}, spec.Dhcp.Options)
}

func TestParseAddressSpecDhcpForeground(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("dhclient-f", FamilyV4)
	assert.NoError(err)
	assert.NotNil(spec.Dhcp)
	assert.Equal(DhcpDhclient, spec.Dhcp.Kind)
	assert.True(spec.Dhcp.Foreground)
}

func TestParseAddressSpecEmpty(t *testing.T) {
	assert := assert.New(t)

	spec, err := ParseAddressSpec("", FamilyV4)
	assert.NoError(err)
	assert.True(spec.None())
}

func TestParseAddressSpecBadGateway(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseAddressSpec("10.1.2.3/24@not-an-ip", FamilyV4)
	assert.Error(err)
}

func TestParseAddressSpecBadCIDR(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseAddressSpec("10.1.2.3", FamilyV4)
	assert.Error(err)
}

func TestParseMacVlan(t *testing.T) {
	assert := assert.New(t)

	mac, vlan, err := ParseMacVlan("aa:bb:cc:dd:ee:ff")
	assert.NoError(err)
	assert.Equal("aa:bb:cc:dd:ee:ff", mac)
	assert.Equal(0, vlan)

	mac, vlan, err = ParseMacVlan("aa:bb:cc:dd:ee:ff@42")
	assert.NoError(err)
	assert.Equal("aa:bb:cc:dd:ee:ff", mac)
	assert.Equal(42, vlan)

	mac, vlan, err = ParseMacVlan("")
	assert.NoError(err)
	assert.Equal("", mac)
	assert.Equal(0, vlan)
}

func TestParseMacVlanInvalid(t *testing.T) {
	assert := assert.New(t)

	_, _, err := ParseMacVlan("not-a-mac")
	assert.Error(err)

	_, _, err = ParseMacVlan("aa:bb:cc:dd:ee:ff@4095")
	assert.Error(err)

	_, _, err = ParseMacVlan("aa:bb:cc:dd:ee:ff@junk")
	assert.Error(err)
}
