// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
)

// Invoker executes the agent function backing message calls. The result is
// whatever raw JSON the function produced; the engine classifies and stores
// it afterwards.
type Invoker interface {
	Invoke(ctx context.Context, req *taskengine.Request) (jsontext.Value, error)
}

// InvokerFunc adapts a function to the [Invoker] interface.
type InvokerFunc func(ctx context.Context, req *taskengine.Request) (jsontext.Value, error)

// Invoke implements [Invoker].
func (f InvokerFunc) Invoke(ctx context.Context, req *taskengine.Request) (jsontext.Value, error) {
	return f(ctx, req)
}

// Router dispatches parsed requests: tasks.* methods go straight to the
// task handler, message methods go through the agent function with every
// produced result stored on the way out.
type Router struct {
	handler    *TaskHandler
	invoker    Invoker
	pipeline   ResultSink
	normalizer StreamNormalizer
}

// NewRouter creates a Router.
func NewRouter(handler *TaskHandler, invoker Invoker, pipeline ResultSink, normalizer StreamNormalizer) *Router {
	return &Router{
		handler:    handler,
		invoker:    invoker,
		pipeline:   pipeline,
		normalizer: normalizer,
	}
}

// Route executes one request and returns its outcome.
func (r *Router) Route(ctx context.Context, req *taskengine.Request) (*Outcome, error) {
	switch req.Method {
	case taskengine.MethodTasksGet:
		var getReq taskengine.GetTaskRequest
		if err := json.Unmarshal(req.Params, &getReq); err != nil {
			return nil, taskengine.NewParseError(err)
		}
		return r.handler.HandleGet(ctx, &getReq)

	case taskengine.MethodTasksList:
		var listReq taskengine.ListTasksRequest
		if err := json.Unmarshal(req.Params, &listReq); err != nil {
			return nil, taskengine.NewParseError(err)
		}
		return r.handler.HandleList(ctx, &listReq)

	case taskengine.MethodTasksCancel:
		var cancelReq taskengine.CancelTaskRequest
		if err := json.Unmarshal(req.Params, &cancelReq); err != nil {
			return nil, taskengine.NewParseError(err)
		}
		return r.handler.HandleCancel(ctx, &cancelReq)

	case taskengine.MethodTasksSubscribe:
		var subReq taskengine.SubscribeToTaskRequest
		if err := json.Unmarshal(req.Params, &subReq); err != nil {
			return nil, taskengine.NewParseError(err)
		}
		return r.handler.HandleSubscribe(ctx, &subReq, req.Stream)

	default:
		if req.Stream {
			chunks, err := r.invokeStream(ctx, req)
			if err != nil {
				return nil, err
			}
			for _, chunk := range chunks {
				if err := r.pipeline.StoreResult(ctx, chunk); err != nil {
					return nil, err
				}
			}
			return StreamOutcome(chunks), nil
		}

		result, err := r.invoker.Invoke(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := r.pipeline.StoreResult(ctx, result); err != nil {
			return nil, err
		}
		return ResponseOutcome(result), nil
	}
}

// invokeStream runs the agent function and splits its result into normalized
// chunks: an array fans out element by element, an object carrying an
// "error" member aborts the stream, anything else is a single chunk.
func (r *Router) invokeStream(ctx context.Context, req *taskengine.Request) ([]jsontext.Value, error) {
	result, err := r.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.Kind() == '[' {
		var items []jsontext.Value
		if err := json.Unmarshal(result, &items); err != nil {
			return nil, taskengine.NewParseError(err)
		}
		chunks := make([]jsontext.Value, 0, len(items))
		for _, item := range items {
			chunk, err := r.normalizer.NormalizeChunk(item)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)
		}
		return chunks, nil
	}

	if message, failed := streamError(result); failed {
		return nil, taskengine.NewEngineError(message)
	}

	chunk, err := r.normalizer.NormalizeChunk(result)
	if err != nil {
		return nil, err
	}
	return []jsontext.Value{chunk}, nil
}

// streamError reports whether an object result carries an "error" member,
// returning its message when it does.
func streamError(raw jsontext.Value) (string, bool) {
	members, err := objectMembers(raw)
	if err != nil || members == nil {
		return "", false
	}
	value, ok := members["error"]
	if !ok {
		return "", false
	}
	var message string
	if err := json.Unmarshal(value, &message); err != nil {
		return "unknown", true
	}
	return message, true
}
