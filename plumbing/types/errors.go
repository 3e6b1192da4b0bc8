// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package types

import "errors"

// The error kinds the pipeline distinguishes. Every fatal error maps to
// exit code 1; the kinds exist so callers and tests can tell failure
// modes apart, not to select exit codes.
var (
	// ErrNotFound indicates a host device or guest that could not be
	// resolved by any strategy.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousGuest indicates a guest identifier matching more
	// than one control-group path.
	ErrAmbiguousGuest = errors.New("ambiguous guest")

	// ErrAlreadyInUse indicates a conflicting live device.
	ErrAlreadyInUse = errors.New("already in use")

	// ErrUnsupportedCombination indicates request options that can
	// never work together, detected before any mutation.
	ErrUnsupportedCombination = errors.New("unsupported combination")

	// ErrToolMissing indicates a required external utility that is
	// not installed, detected before use.
	ErrToolMissing = errors.New("tool missing")
)
