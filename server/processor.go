// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
	"github.com/go-a2a/taskengine/server/task"
)

// TaskProcessor folds recognized result shapes into the task store and emits
// the resulting update events.
type TaskProcessor struct {
	store   task.Store
	emitter event.Emitter
}

// NewTaskProcessor creates a TaskProcessor over a store and an emitter.
func NewTaskProcessor(store task.Store, emitter event.Emitter) *TaskProcessor {
	return &TaskProcessor{store: store, emitter: emitter}
}

// ProcessStreamResponse stores every member of one stream chunk.
func (p *TaskProcessor) ProcessStreamResponse(ctx context.Context, stream *taskengine.StreamResponse) error {
	return p.process(ctx, stream.Task, stream.Message, stream.StatusUpdate, stream.ArtifactUpdate)
}

// ProcessSendMessageResponse stores the result of a completed message call.
func (p *TaskProcessor) ProcessSendMessageResponse(ctx context.Context, resp *taskengine.SendMessageResponse) error {
	return p.process(ctx, resp.Task, resp.Message, nil, nil)
}

// ProcessTask stores a bare task record.
func (p *TaskProcessor) ProcessTask(ctx context.Context, t *taskengine.Task) error {
	return p.process(ctx, t, nil, nil, nil)
}

// process applies the members of one result in a fixed order: the task
// record first, then the message, then the standalone updates. A whole-task
// record doubles as a status transition and one complete artifact per entry,
// so those flow through the recorder too and reach subscribers as events.
func (p *TaskProcessor) process(
	ctx context.Context,
	t *taskengine.Task,
	message *taskengine.Message,
	statusUpdate *taskengine.TaskStatusUpdateEvent,
	artifactUpdate *taskengine.TaskArtifactUpdateEvent,
) error {
	if t != nil {
		if _, err := p.store.Upsert(ctx, t); err != nil {
			return err
		}
		if t.Status != nil && t.ID != "" {
			ev, err := p.store.RecordStatusUpdate(ctx, t.ID, t.ContextID, *t.Status)
			if err != nil {
				return err
			}
			p.emit(ev)
		}
		if t.ID != "" {
			for i := range t.Artifacts {
				ev, err := p.store.RecordArtifactUpdate(ctx, t.ID, t.ContextID, t.Artifacts[i], false, true)
				if err != nil {
					return err
				}
				p.emit(ev)
			}
		}
	}

	if message != nil {
		if err := p.store.InsertMessage(ctx, message); err != nil {
			return err
		}
	}

	if statusUpdate != nil && statusUpdate.Status != nil {
		ev, err := p.store.RecordStatusUpdate(ctx, statusUpdate.TaskID, statusUpdate.ContextID, *statusUpdate.Status)
		if err != nil {
			return err
		}
		p.emit(ev)
	}

	if artifactUpdate != nil {
		artifact := taskengine.Artifact{}
		if artifactUpdate.Artifact != nil {
			artifact = *artifactUpdate.Artifact
		}
		appendChunk := artifactUpdate.Append != nil && *artifactUpdate.Append
		lastChunk := artifactUpdate.LastChunk != nil && *artifactUpdate.LastChunk
		ev, err := p.store.RecordArtifactUpdate(ctx, artifactUpdate.TaskID, artifactUpdate.ContextID, artifact, appendChunk, lastChunk)
		if err != nil {
			return err
		}
		p.emit(ev)
	}

	return nil
}

func (p *TaskProcessor) emit(ev event.Event) {
	if ev != nil && p.emitter != nil {
		p.emitter.Emit(ev)
	}
}
