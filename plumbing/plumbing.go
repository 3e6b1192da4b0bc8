// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbing

import (
	"github.com/sirupsen/logrus"
)

// plumbLog is the package logger. The CLI replaces it through SetLogger
// so every subsystem entry inherits the configured formatter and level.
var plumbLog = logrus.WithField("source", "netplumb")

// SetLogger sets the logger for the plumbing package.
func SetLogger(logger *logrus.Entry) {
	plumbLog = logger.WithField("source", "netplumb")
}

func networkLogger() *logrus.Entry {
	return plumbLog.WithField("subsystem", "network")
}

func registryLogger() *logrus.Entry {
	return plumbLog.WithField("subsystem", "ns-registry")
}

func addressingLogger() *logrus.Entry {
	return plumbLog.WithField("subsystem", "addressing")
}
