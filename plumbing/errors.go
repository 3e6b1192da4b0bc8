// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"fmt"

	"github.com/netplumb/netplumb/plumbing/types"
)

func notFoundErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrNotFound, fmt.Sprintf(format, args...))
}

func alreadyInUseErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrAlreadyInUse, fmt.Sprintf(format, args...))
}

func unsupportedErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrUnsupportedCombination, fmt.Sprintf(format, args...))
}

func toolMissingErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrToolMissing, fmt.Sprintf(format, args...))
}
