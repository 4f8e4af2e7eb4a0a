// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import "time"

// MetricsRecorder observes request handling. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	// RecordRequest counts one handled request with its terminal status,
	// "success" or "error".
	RecordRequest(method, status string, stream bool, elapsed time.Duration)

	// RecordStreamChunks counts the chunks of one streamed response.
	RecordStreamChunks(method string, count int)

	// RecordError counts one classified failure.
	RecordError(method, category string, stream bool)
}

type nopMetrics struct{}

var _ MetricsRecorder = nopMetrics{}

func (nopMetrics) RecordRequest(string, string, bool, time.Duration) {}
func (nopMetrics) RecordStreamChunks(string, int)                    {}
func (nopMetrics) RecordError(string, string, bool)                  {}
