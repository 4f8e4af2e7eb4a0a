// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
	"github.com/go-a2a/taskengine/server/task"
)

// Outcome is the result of routing one request: a single result value, or
// an ordered set of stream chunk payloads.
type Outcome struct {
	Result any
	Chunks []jsontext.Value
	Stream bool
}

// ResponseOutcome wraps a single result.
func ResponseOutcome(result any) *Outcome {
	return &Outcome{Result: result}
}

// StreamOutcome wraps an ordered set of chunk payloads.
func StreamOutcome(chunks []jsontext.Value) *Outcome {
	return &Outcome{Chunks: chunks, Stream: true}
}

// CancelNotifier is told after a task was canceled so the agent function can
// stop in-flight work. An [Invoker] that also implements CancelNotifier gets
// notified by the cancel handler.
type CancelNotifier interface {
	NotifyCancel(ctx context.Context, req *taskengine.CancelTaskRequest) error
}

// TaskHandler serves the tasks.* methods directly from the store, without
// touching the agent function.
type TaskHandler struct {
	store    task.Store
	emitter  event.Emitter
	notifier CancelNotifier
}

// NewTaskHandler creates a TaskHandler. notifier may be nil.
func NewTaskHandler(store task.Store, emitter event.Emitter, notifier CancelNotifier) *TaskHandler {
	return &TaskHandler{store: store, emitter: emitter, notifier: notifier}
}

// HandleGet serves tasks.get.
func (h *TaskHandler) HandleGet(ctx context.Context, req *taskengine.GetTaskRequest) (*Outcome, error) {
	var historyLength *int
	if req.HistoryLength != nil {
		n := req.HistoryLength.Int()
		historyLength = &n
	}
	t, err := h.store.Get(ctx, req.ID, historyLength)
	if err != nil {
		if task.IsNotFound(err) {
			return nil, taskengine.NewInvalidArgumentError("Task not found")
		}
		return nil, taskengine.NewInternalError(err)
	}
	return ResponseOutcome(t), nil
}

// HandleList serves tasks.list.
func (h *TaskHandler) HandleList(ctx context.Context, req *taskengine.ListTasksRequest) (*Outcome, error) {
	resp, err := h.store.List(ctx, req)
	if err != nil {
		return nil, taskengine.NewInternalError(err)
	}
	return ResponseOutcome(resp), nil
}

// HandleCancel serves tasks.cancel: the task is marked canceled, the status
// transition is recorded and emitted, and the agent function is notified.
func (h *TaskHandler) HandleCancel(ctx context.Context, req *taskengine.CancelTaskRequest) (*Outcome, error) {
	t, err := h.store.Cancel(ctx, req.ID)
	if err != nil {
		if task.IsNotFound(err) {
			return nil, taskengine.NewInvalidArgumentError("Task not found")
		}
		return nil, taskengine.NewInternalError(err)
	}

	if t.Status != nil {
		ev, err := h.store.RecordStatusUpdate(ctx, t.ID, t.ContextID, *t.Status)
		if err != nil {
			return nil, taskengine.NewInternalError(err)
		}
		if ev != nil && h.emitter != nil {
			h.emitter.Emit(ev)
		}
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyCancel(ctx, req); err != nil {
			return nil, err
		}
	}

	return ResponseOutcome(t), nil
}

// HandleSubscribe serves tasks.subscribe. A streamed subscription replays
// the task's current snapshot followed by its pending update queue; a
// non-streamed call returns the snapshot alone.
func (h *TaskHandler) HandleSubscribe(ctx context.Context, req *taskengine.SubscribeToTaskRequest, stream bool) (*Outcome, error) {
	t, err := h.store.Get(ctx, req.ID, nil)
	if err != nil {
		if task.IsNotFound(err) {
			return nil, taskengine.NewInvalidArgumentError("Task not found")
		}
		return nil, taskengine.NewInternalError(err)
	}
	if !stream {
		return ResponseOutcome(t), nil
	}

	var chunks []jsontext.Value

	snapshot := &taskengine.StreamResponse{Task: t}
	if t.Status != nil {
		snapshot.StatusUpdate = &taskengine.TaskStatusUpdateEvent{
			TaskID:    t.ID,
			ContextID: t.ContextID,
			Status:    t.Status.Clone(),
		}
	}
	chunk, err := json.Marshal(snapshot)
	if err != nil {
		return nil, taskengine.NewInternalError(err)
	}
	chunks = append(chunks, chunk)

	updates, err := h.store.DrainUpdates(ctx, req.ID)
	if err != nil {
		return nil, taskengine.NewInternalError(err)
	}
	for _, update := range updates {
		var resp taskengine.StreamResponse
		switch ev := update.(type) {
		case *event.StatusEvent:
			resp.StatusUpdate = ev.Update
		case *event.ArtifactEvent:
			resp.ArtifactUpdate = ev.Update
		default:
			continue
		}
		chunk, err := json.Marshal(&resp)
		if err != nil {
			return nil, taskengine.NewInternalError(err)
		}
		chunks = append(chunks, chunk)
	}

	return StreamOutcome(chunks), nil
}
