// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHtons(t *testing.T) {
	assert := assert.New(t)

	// Whatever the host byte order, the in-memory layout must be
	// network byte order.
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], htons(0x0806))
	assert.Equal([2]byte{0x08, 0x06}, b)

	binary.NativeEndian.PutUint16(b[:], htons(0x0001))
	assert.Equal([2]byte{0x00, 0x01}, b)

	// htons is its own inverse.
	assert.Equal(uint16(0x0806), htons(htons(0x0806)))
}

func TestAnnounceAddressSkips(t *testing.T) {
	// Nil outcomes and non-IPv4 addresses are silently skipped long
	// before any namespace or socket work.
	AnnounceAddress(1, "eth1", nil)
	AnnounceAddress(1, "eth1", &AddressingOutcome{})
	AnnounceAddress(1, "eth1", &AddressingOutcome{Address: mustCIDR(t, "2001:db8::5/64")})
}
