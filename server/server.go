// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the task lifecycle engine: it parses JSON-RPC
// requests, routes them to the agent function or the task store, classifies
// and persists every result the function produces, and formats responses.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/internal/ids"
	"github.com/go-a2a/taskengine/server/event"
	"github.com/go-a2a/taskengine/server/task"
)

// Engine is the front door of the task lifecycle engine. It owns the task
// store, the event broadcaster, and the result pipeline, and drives them
// from raw JSON-RPC requests.
type Engine struct {
	invoker          Invoker
	store            task.Store
	broadcaster      *event.Broadcaster
	formatter        ResponseFormatter
	classifier       ErrorClassifier
	metrics          MetricsRecorder
	ids              ids.Generator
	logger           *slog.Logger
	router           *Router
	subscriberBuffer int
	dedupe           bool
	deduplicator     ResultDeduplicator
}

// New creates an Engine around the agent function behind invoker.
func New(invoker Invoker, opts ...Option) (*Engine, error) {
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}

	e := &Engine{
		invoker:          invoker,
		formatter:        NewFormatter(),
		classifier:       KindClassifier{},
		metrics:          nopMetrics{},
		ids:              ids.New(),
		logger:           slog.Default(),
		subscriberBuffer: event.DefaultSubscriberBuffer,
		dedupe:           true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = task.NewInMemoryStore()
	}

	e.broadcaster = event.NewBroadcaster(e.subscriberBuffer, e.logger)

	var pipeline ResultSink = NewResultPipeline(e.store, e.broadcaster)
	if e.dedupe {
		if e.deduplicator == nil {
			e.deduplicator = NewHashDeduplicator()
		}
		pipeline = NewDeduplicatingPipeline(pipeline, e.deduplicator)
	}

	notifier, _ := invoker.(CancelNotifier)
	handler := NewTaskHandler(e.store, e.broadcaster, notifier)
	e.router = NewRouter(handler, invoker, pipeline, NewNormalizer())

	return e, nil
}

// Store returns the engine's task store.
func (e *Engine) Store() task.Store { return e.store }

// Subscribe registers a task-update subscriber. The returned cancel func
// must be called to release the subscription.
func (e *Engine) Subscribe() (<-chan event.Event, func()) {
	return e.broadcaster.Subscribe()
}

// Handle processes one raw JSON-RPC request and returns the ordered
// response envelopes: one for a plain call, one per chunk for a streamed
// call, and a single error envelope when the request fails. The error
// envelope echoes the request id whenever one could be read from the raw
// payload.
func (e *Engine) Handle(ctx context.Context, raw jsontext.Value) []jsontext.Value {
	requestID := taskengine.ExtractRequestID(raw)

	req, err := taskengine.ParseRequest(raw, e.ids)
	if err != nil {
		e.logger.DebugContext(ctx, "request rejected", "error", err)
		return []jsontext.Value{e.formatter.FormatError(requestID, err)}
	}

	start := time.Now()
	outcome, err := e.router.Route(ctx, req)
	elapsed := time.Since(start)

	method := req.Method.String()
	if err != nil {
		e.metrics.RecordRequest(method, "error", req.Stream, elapsed)
		e.metrics.RecordError(method, e.classifier.Classify(err), req.Stream)
		e.logger.WarnContext(ctx, "request failed",
			"method", method,
			"category", e.classifier.Classify(err),
			"error", err,
		)
		return []jsontext.Value{e.formatter.FormatError(requestID, err)}
	}

	e.metrics.RecordRequest(method, "success", req.Stream, elapsed)
	if outcome.Stream {
		e.metrics.RecordStreamChunks(method, len(outcome.Chunks))
		return e.formatter.FormatStream(requestID, outcome.Chunks)
	}
	return []jsontext.Value{e.formatter.FormatSuccess(requestID, outcome.Result)}
}
