// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// OTelMetrics records engine metrics through an OpenTelemetry meter.
// Instruments that fail to register degrade to no-ops.
type OTelMetrics struct {
	requests     metric.Int64Counter
	streamChunks metric.Int64Counter
	errors       metric.Int64Counter
	latency      metric.Float64Histogram
}

var _ MetricsRecorder = (*OTelMetrics)(nil)

// NewOTelMetrics builds an [OTelMetrics] on m. Passing a nil meter uses the
// global meter provider.
func NewOTelMetrics(m metric.Meter) *OTelMetrics {
	if m == nil {
		m = otel.Meter("github.com/go-a2a/taskengine")
	}

	o := &OTelMetrics{}
	var err error

	o.requests, err = m.Int64Counter("taskengine.requests",
		metric.WithDescription("Count of handled requests"),
	)
	if err != nil {
		otel.Handle(err)
		o.requests = noop.Int64Counter{}
	}

	o.streamChunks, err = m.Int64Counter("taskengine.stream_chunks",
		metric.WithDescription("Count of streamed response chunks"),
	)
	if err != nil {
		otel.Handle(err)
		o.streamChunks = noop.Int64Counter{}
	}

	o.errors, err = m.Int64Counter("taskengine.errors",
		metric.WithDescription("Count of failed requests by category"),
	)
	if err != nil {
		otel.Handle(err)
		o.errors = noop.Int64Counter{}
	}

	o.latency, err = m.Float64Histogram("taskengine.request_duration",
		metric.WithDescription("Request handling latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
		o.latency = noop.Float64Histogram{}
	}

	return o
}

func (o *OTelMetrics) RecordRequest(method, status string, stream bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
		attribute.Bool("stream", stream),
	)
	ctx := context.Background()
	o.requests.Add(ctx, 1, attrs)
	o.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

func (o *OTelMetrics) RecordStreamChunks(method string, count int) {
	o.streamChunks.Add(context.Background(), int64(count), metric.WithAttributes(
		attribute.String("method", method),
	))
}

func (o *OTelMetrics) RecordError(method, category string, stream bool) {
	o.errors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("category", category),
		attribute.Bool("stream", stream),
	))
}
