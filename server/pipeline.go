// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
	"github.com/go-a2a/taskengine/server/task"
)

// ResultSink consumes raw result payloads produced by the agent function and
// persists whatever task state they carry.
type ResultSink interface {
	StoreResult(ctx context.Context, raw jsontext.Value) error
}

// ResultPipeline classifies a raw result and routes it to the processor.
//
// Classification is ordered: a chunk carrying the explicit update members is
// a stream response even if it also looks like something else; otherwise a
// completed message call wins over the stream shape, which wins over a bare
// task record. Payloads matching nothing are ignored without error.
type ResultPipeline struct {
	extractor ResultExtractor
	processor *TaskProcessor
}

var _ ResultSink = (*ResultPipeline)(nil)

// NewResultPipeline creates a pipeline storing into store and emitting
// through emitter.
func NewResultPipeline(store task.Store, emitter event.Emitter) *ResultPipeline {
	return &ResultPipeline{
		extractor: NewExtractor(),
		processor: NewTaskProcessor(store, emitter),
	}
}

// StoreResult implements [ResultSink].
func (p *ResultPipeline) StoreResult(ctx context.Context, raw jsontext.Value) error {
	members, err := objectMembers(raw)
	if err != nil {
		return err
	}

	if hasAnyMember(members, taskengine.KeyStatusUpdate, taskengine.KeyArtifactUpdate) {
		stream, err := p.extractor.ExtractStreamResponse(raw)
		if err != nil {
			return err
		}
		if stream != nil {
			return p.processor.ProcessStreamResponse(ctx, stream)
		}
	}

	resp, err := p.extractor.ExtractSendMessageResponse(raw)
	if err != nil {
		return err
	}
	if resp != nil {
		return p.processor.ProcessSendMessageResponse(ctx, resp)
	}

	stream, err := p.extractor.ExtractStreamResponse(raw)
	if err != nil {
		return err
	}
	if stream != nil {
		return p.processor.ProcessStreamResponse(ctx, stream)
	}

	t, err := p.extractor.ExtractTask(raw)
	if err != nil {
		return err
	}
	if t != nil {
		return p.processor.ProcessTask(ctx, t)
	}

	return nil
}
