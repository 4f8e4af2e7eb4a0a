// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"

	"github.com/go-a2a/taskengine/internal/ids"
	"github.com/go-a2a/taskengine/server/task"
)

// Option represents an option for configuring the [Engine].
type Option func(*Engine)

// WithLogger sets the [*slog.Logger] for the [Engine].
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTaskStore sets the task store backing the [Engine]. The default is an
// in-memory store.
func WithTaskStore(store task.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithIDGenerator sets the id generator used when requests arrive without a
// context id.
func WithIDGenerator(gen ids.Generator) Option {
	return func(e *Engine) {
		e.ids = gen
	}
}

// WithMetrics sets the [MetricsRecorder] for the [Engine].
func WithMetrics(metrics MetricsRecorder) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithFormatter sets the [ResponseFormatter] for the [Engine].
func WithFormatter(formatter ResponseFormatter) Option {
	return func(e *Engine) {
		e.formatter = formatter
	}
}

// WithSubscriberBuffer sets the per-subscriber event channel capacity.
func WithSubscriberBuffer(buffer int) Option {
	return func(e *Engine) {
		e.subscriberBuffer = buffer
	}
}

// WithDeduplicator sets the [ResultDeduplicator] deciding which produced
// results have already been stored. The default is a fingerprint set.
func WithDeduplicator(dedup ResultDeduplicator) Option {
	return func(e *Engine) {
		e.deduplicator = dedup
	}
}

// WithoutDeduplication disables result deduplication: every produced result
// is stored, including byte-identical repeats.
func WithoutDeduplication() Option {
	return func(e *Engine) {
		e.dedupe = false
	}
}
