// Copyright (c) 2017 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/netplumb/netplumb/pkg/plumbtrace"
	"github.com/netplumb/netplumb/plumbing"
	"github.com/netplumb/netplumb/plumbing/guest"
	"github.com/netplumb/netplumb/plumbing/ovs"
)

// name holds the name of this program.
const name = "netplumb"

const usage = "plumb extra network interfaces into running containers"

// version is the runtime version. It is set by the build.
var version = "unknown"

// commit is the git commit the runtime is compiled from.
var commit = "unknown"

var netplumbLog = logrus.WithField("source", "netplumb").WithField("name", name)

// tracing reports whether the --trace flag enabled the tracer.
var tracing = false

var cliTags = []string{"subsystem", "cli"}

var plumbCLICommands = []cli.Command{
	versionCLICommand,
}

var plumbCLIFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "path to the configuration file",
	},
	cli.StringFlag{
		Name:  "log-level",
		Value: "warn",
		Usage: "set the log level (debug, info, warn, error)",
	},
	cli.StringFlag{
		Name:  "log-format",
		Value: "text",
		Usage: "set the log format (text, json)",
	},
	cli.BoolFlag{
		Name:  "trace",
		Usage: "enable tracing",
	},
	cli.StringFlag{
		Name:  "container-if, i",
		Usage: "name the interface will carry inside the container",
	},
	cli.StringFlag{
		Name:  "local-if, l",
		Usage: "name for the host side of the interface pair",
	},
	cli.BoolFlag{
		Name:  "6",
		Usage: "configure an IPv6 address instead of IPv4",
	},
	cli.BoolFlag{
		Name:  "direct-phys",
		Usage: "move the physical device itself instead of a macvlan on top of it",
	},
	cli.BoolFlag{
		Name:  "wait",
		Usage: "wait until the container-side interface shows up, then exit",
	},
}

// cliContextToContext extracts the go context stored in the cli
// application metadata.
func cliContextToContext(c *cli.Context) (context.Context, error) {
	ctx, ok := c.App.Metadata["context"].(context.Context)
	if !ok {
		return nil, errors.New("invalid or missing context in application metadata")
	}

	return ctx, nil
}

// setExternalLoggers hands the CLI logger, now carrying the flag-set
// level and formatter, to the packages doing the actual work.
func setExternalLoggers(ctx context.Context, logger *logrus.Entry) {
	var span opentracing.Span

	if tracing {
		span, ctx = plumbtrace.Trace(ctx, logger, "setExternalLoggers", cliTags...)
	}

	plumbing.SetLogger(logger)
	guest.SetLogger(logger)
	ovs.SetLogger(logger)
	plumbtrace.SetLogger(logger)

	if tracing {
		span.Finish()
	}
}

func beforeSubcommands(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.GlobalString("log-level"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	netplumbLog.Logger.SetLevel(level)
	netplumbLog.Logger.SetOutput(os.Stderr)

	switch c.GlobalString("log-format") {
	case "text":
		// logrus default
	case "json":
		netplumbLog.Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000000000Z07:00"})
	default:
		return cli.NewExitError(fmt.Sprintf("unknown log format %q", c.GlobalString("log-format")), 1)
	}

	ctx, err := cliContextToContext(c)
	if err != nil {
		return err
	}

	config, err := loadConfiguration(c.GlobalString("config"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	c.App.Metadata["config"] = config

	if c.GlobalBool("trace") || config.Tracing.Enabled {
		tracing = true
		plumbtrace.TracingSet = true
		if _, err := plumbtrace.CreateTracer(name); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	setExternalLoggers(ctx, netplumbLog)

	return nil
}

func createPlumbApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Version = fmt.Sprintf("%s (commit %s)", version, commit)
	app.ArgsUsage = wireArgsUsage
	app.Flags = plumbCLIFlags
	app.Commands = plumbCLICommands
	app.Before = beforeSubcommands
	app.Action = wireAction
	app.Metadata = map[string]interface{}{
		"context": ctx,
	}
	app.EnableBashCompletion = true

	return app
}

func main() {
	ctx := context.Background()
	defer plumbtrace.StopTracing(ctx)

	app := createPlumbApp(ctx)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
