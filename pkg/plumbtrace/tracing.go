// Copyright (c) 2018 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package plumbtrace

import (
	"context"
	"io"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"github.com/uber/jaeger-client-go/config"
)

// Implements jaeger-client-go.Logger interface
type traceLogger struct {
}

var plumbTraceLogger = logrus.NewEntry(logrus.New())

// TracingSet states whether tracing has been enabled by the CLI.
var TracingSet = false

// tracerCloser contains a copy of the closer returned by CreateTracer()
// which is used by StopTracing().
var tracerCloser io.Closer

func (t traceLogger) Error(msg string) {
	plumbTraceLogger.Error(msg)
}

func (t traceLogger) Infof(msg string, args ...interface{}) {
	plumbTraceLogger.Infof(msg, args...)
}

// SetLogger sets the logger used to report tracing errors.
func SetLogger(logger *logrus.Entry) {
	plumbTraceLogger = logger
}

// CreateTracer creates a tracer for the given service name. When tracing
// is disabled a NOP tracer is installed so call sites do not need to care.
func CreateTracer(name string) (opentracing.Tracer, error) {
	cfg := &config.Configuration{
		ServiceName: name,

		Disabled: !TracingSet,

		Sampler: &config.SamplerConfig{
			Type:  "const",
			Param: 1,
		},

		Reporter: &config.ReporterConfig{
			LogSpans: TracingSet,
		},
	}

	logger := traceLogger{}

	tracer, closer, err := cfg.NewTracer(config.Logger(logger))
	if err != nil {
		return nil, err
	}

	// save for StopTracing()'s exclusive use
	tracerCloser = closer

	opentracing.SetGlobalTracer(tracer)

	return tracer, nil
}

// StopTracing ends all tracing, reporting the spans to the collector.
func StopTracing(ctx context.Context) {
	if !TracingSet {
		return
	}

	span := opentracing.SpanFromContext(ctx)

	if span != nil {
		span.Finish()
	}

	if tracerCloser != nil {
		tracerCloser.Close()
	}
}

// Trace creates a new tracing span based on the specified name and parent
// context. Accepts a logger to report tracing errors on and a variadic
// number of tags in key-value form (key1, value1, key2, value2, ...).
func Trace(parent context.Context, logger *logrus.Entry, name string, tags ...string) (opentracing.Span, context.Context) {
	if parent == nil {
		if logger == nil {
			logger = plumbTraceLogger
		}
		logger.WithField("type", "bug").Error("trace called before context set")
		parent = context.Background()
	}

	span, ctx := opentracing.StartSpanFromContext(parent, name)

	for i := 0; i < len(tags); i += 2 {
		if i+1 == len(tags) {
			span.SetTag(tags[i], "")
		} else {
			span.SetTag(tags[i], tags[i+1])
		}
	}

	return span, ctx
}
