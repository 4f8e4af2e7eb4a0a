// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task provides the authoritative task stores for the lifecycle
// engine. A store owns every Task, Message, and update record; it is the
// sole producer of task-update events and owns the merge semantics for
// partial updates.
package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
)

// Repository is the task-record surface of a store.
type Repository interface {
	// Upsert merges a task record, replacing or creating the task identified
	// by its id, and returns the stored snapshot. Upserting an identical
	// snapshot twice leaves the store unchanged and emits nothing by itself.
	// A task without an id is ignored and returns nil.
	Upsert(ctx context.Context, task *taskengine.Task) (*taskengine.Task, error)

	// Get returns a snapshot of the task, truncating history to
	// historyLength messages when non-nil.
	Get(ctx context.Context, id string, historyLength *int) (*taskengine.Task, error)

	// List returns tasks matching the request's filters, paginated.
	List(ctx context.Context, req *taskengine.ListTasksRequest) (*taskengine.ListTasksResponse, error)

	// Cancel marks the task canceled and returns its snapshot. Recording and
	// emitting the resulting status transition is the caller's concern.
	Cancel(ctx context.Context, id string) (*taskengine.Task, error)

	// InsertMessage appends a message to history. Messages are never mutated
	// or deduplicated at this layer.
	InsertMessage(ctx context.Context, message *taskengine.Message) error
}

// Recorder is the event-producing surface of a store.
type Recorder interface {
	// RecordStatusUpdate mutates the task's status and returns an event only
	// when the status actually changed (or the task is being observed for
	// the first time). A repeated identical status returns nil.
	RecordStatusUpdate(ctx context.Context, taskID, contextID string, status taskengine.TaskStatus) (event.Event, error)

	// RecordArtifactUpdate merges one artifact chunk into the task and
	// returns an event describing it. Every accepted chunk produces an
	// event, even when the artifact identity is unchanged. An empty task id
	// is tolerated: the chunk is buffered against the context id until a
	// task adopts it.
	RecordArtifactUpdate(ctx context.Context, taskID, contextID string, artifact taskengine.Artifact, appendChunk, lastChunk bool) (event.Event, error)
}

// UpdateQueue exposes the per-task queue of recorded updates.
type UpdateQueue interface {
	// DrainUpdates removes and returns the pending updates for a task, in
	// recording order.
	DrainUpdates(ctx context.Context, taskID string) ([]event.Event, error)
}

// Store is the full task-store contract consumed by the engine.
type Store interface {
	Repository
	Recorder
	UpdateQueue
}

// NotFoundError reports an operation against a task id the store does not
// know.
type NotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// IsNotFound reports whether err is a [*NotFoundError].
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// DefaultPageSize bounds tasks.list pages when the request names no size.
const DefaultPageSize = 50

func truncateHistory(task *taskengine.Task, limit int) {
	if limit <= 0 {
		task.History = nil
		return
	}
	if len(task.History) > limit {
		task.History = task.History[len(task.History)-limit:]
	}
}
