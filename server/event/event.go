// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides task-update events and their fan-out broadcaster.
// The task store is the sole producer of events; the broadcaster relays them
// to any number of independent subscribers with best-effort, at-most-once
// delivery.
package event

import (
	"fmt"

	"github.com/go-a2a/taskengine"
)

// Event is the unified interface for task-update events emitted by the task
// store.
type Event interface {
	// EventType returns the type of the event.
	EventType() string

	// TaskID returns the id of the task the event belongs to, possibly empty
	// for artifact chunks that precede task id assignment.
	TaskID() string

	// ContextID returns the context the event belongs to.
	ContextID() string

	// String returns a string representation of the event.
	String() string
}

// StatusEvent wraps a [taskengine.TaskStatusUpdateEvent] as an Event.
type StatusEvent struct {
	Update *taskengine.TaskStatusUpdateEvent
}

var _ Event = (*StatusEvent)(nil)

// EventType returns the event type for StatusEvent.
func (e *StatusEvent) EventType() string { return "task_status_update" }

// TaskID returns the task id of the underlying update.
func (e *StatusEvent) TaskID() string { return e.Update.TaskID }

// ContextID returns the context id of the underlying update.
func (e *StatusEvent) ContextID() string { return e.Update.ContextID }

// String returns a string representation of the StatusEvent.
func (e *StatusEvent) String() string {
	state := taskengine.TaskState("")
	if e.Update.Status != nil {
		state = e.Update.Status.State
	}
	return fmt.Sprintf("StatusEvent{TaskID: %s, State: %s}", e.Update.TaskID, state)
}

// ArtifactEvent wraps a [taskengine.TaskArtifactUpdateEvent] as an Event.
type ArtifactEvent struct {
	Update *taskengine.TaskArtifactUpdateEvent
}

var _ Event = (*ArtifactEvent)(nil)

// EventType returns the event type for ArtifactEvent.
func (e *ArtifactEvent) EventType() string { return "task_artifact_update" }

// TaskID returns the task id of the underlying update.
func (e *ArtifactEvent) TaskID() string { return e.Update.TaskID }

// ContextID returns the context id of the underlying update.
func (e *ArtifactEvent) ContextID() string { return e.Update.ContextID }

// String returns a string representation of the ArtifactEvent.
func (e *ArtifactEvent) String() string {
	artifactID := ""
	if e.Update.Artifact != nil {
		artifactID = e.Update.Artifact.ArtifactID
	}
	return fmt.Sprintf("ArtifactEvent{TaskID: %s, ArtifactID: %s}", e.Update.TaskID, artifactID)
}

// NewStatusEvent creates a StatusEvent.
func NewStatusEvent(update *taskengine.TaskStatusUpdateEvent) *StatusEvent {
	return &StatusEvent{Update: update}
}

// NewArtifactEvent creates an ArtifactEvent.
func NewArtifactEvent(update *taskengine.TaskArtifactUpdateEvent) *ArtifactEvent {
	return &ArtifactEvent{Update: update}
}
