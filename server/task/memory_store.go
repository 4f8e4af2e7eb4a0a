// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
)

// InMemoryStore is a [Store] kept entirely in process memory. It is safe for
// concurrent use and suitable for tests and single-process deployments.
type InMemoryStore struct {
	mu sync.RWMutex

	tasks map[string]*taskengine.Task
	order []string // insertion order of task ids, for stable listing

	// lastState tracks the last status state recorded per task so that
	// repeated identical transitions are suppressed.
	lastState map[string]taskengine.TaskState

	// updates queues recorded update events per task until drained.
	updates map[string][]event.Event

	// orphanArtifacts buffers artifact chunks that arrived without a task
	// id, keyed by context id. They are adopted by the next task upserted
	// into that context.
	orphanArtifacts map[string][]taskengine.Artifact

	// contextHistory holds messages that could not be attached to a task,
	// keyed by context id.
	contextHistory map[string][]taskengine.Message
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks:           make(map[string]*taskengine.Task),
		lastState:       make(map[string]taskengine.TaskState),
		updates:         make(map[string][]event.Event),
		orphanArtifacts: make(map[string][]taskengine.Artifact),
		contextHistory:  make(map[string][]taskengine.Message),
	}
}

// Upsert implements [Repository].
func (s *InMemoryStore) Upsert(_ context.Context, task *taskengine.Task) (*taskengine.Task, error) {
	if task == nil || task.ID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := task.Clone()
	if _, exists := s.tasks[stored.ID]; !exists {
		s.order = append(s.order, stored.ID)
	}
	s.adoptOrphansLocked(stored)
	s.tasks[stored.ID] = stored
	return stored.Clone(), nil
}

// adoptOrphansLocked moves any buffered artifact chunks for the task's
// context onto the task itself.
func (s *InMemoryStore) adoptOrphansLocked(task *taskengine.Task) {
	if task.ContextID == "" {
		return
	}
	buffered := s.orphanArtifacts[task.ContextID]
	if len(buffered) == 0 {
		return
	}
	for i := range buffered {
		mergeArtifact(task, buffered[i], false)
	}
	delete(s.orphanArtifacts, task.ContextID)
}

// Get implements [Repository].
func (s *InMemoryStore) Get(_ context.Context, id string, historyLength *int) (*taskengine.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.tasks[id]
	if !ok {
		return nil, &NotFoundError{TaskID: id}
	}
	snapshot := stored.Clone()
	if historyLength != nil {
		truncateHistory(snapshot, *historyLength)
	}
	return snapshot, nil
}

// List implements [Repository].
func (s *InMemoryStore) List(_ context.Context, req *taskengine.ListTasksRequest) (*taskengine.ListTasksResponse, error) {
	if req == nil {
		req = &taskengine.ListTasksRequest{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []taskengine.Task
	for _, id := range s.order {
		stored := s.tasks[id]
		if req.ContextID != "" && stored.ContextID != req.ContextID {
			continue
		}
		if req.Status != "" && (stored.Status == nil || stored.Status.State != req.Status) {
			continue
		}
		if req.StatusTimestampAfter != "" {
			if stored.Status == nil || stored.Status.Timestamp <= req.StatusTimestampAfter {
				continue
			}
		}
		snapshot := stored.Clone()
		if !req.IncludeArtifacts {
			snapshot.Artifacts = nil
		}
		if req.HistoryLength != nil {
			truncateHistory(snapshot, req.HistoryLength.Int())
		}
		matched = append(matched, *snapshot)
	}

	pageSize := DefaultPageSize
	if req.PageSize != nil && req.PageSize.Int() > 0 {
		pageSize = req.PageSize.Int()
	}
	offset := 0
	if req.PageToken != "" {
		if n, err := strconv.Atoi(req.PageToken); err == nil && n > 0 {
			offset = n
		}
	}

	resp := &taskengine.ListTasksResponse{
		TotalSize: len(matched),
		PageSize:  pageSize,
	}
	if offset >= len(matched) {
		return resp, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	resp.Tasks = matched[offset:end]
	if end < len(matched) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return resp, nil
}

// Cancel implements [Repository].
func (s *InMemoryStore) Cancel(_ context.Context, id string) (*taskengine.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[id]
	if !ok {
		return nil, &NotFoundError{TaskID: id}
	}
	if stored.Status == nil {
		stored.Status = &taskengine.TaskStatus{}
	}
	stored.Status.State = taskengine.TaskStateCanceled
	return stored.Clone(), nil
}

// InsertMessage implements [Repository].
func (s *InMemoryStore) InsertMessage(_ context.Context, message *taskengine.Message) error {
	if message == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := message.Clone()
	if stored.TaskID != "" {
		if t, ok := s.tasks[stored.TaskID]; ok {
			t.History = append(t.History, *stored)
			return nil
		}
	}
	s.contextHistory[stored.ContextID] = append(s.contextHistory[stored.ContextID], *stored)
	return nil
}

// ContextHistory returns the messages recorded against a context that no
// task has claimed. The slice is a copy.
func (s *InMemoryStore) ContextHistory(contextID string) []taskengine.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buffered := s.contextHistory[contextID]
	if len(buffered) == 0 {
		return nil
	}
	out := make([]taskengine.Message, len(buffered))
	copy(out, buffered)
	return out
}

// RecordStatusUpdate implements [Recorder].
func (s *InMemoryStore) RecordStatusUpdate(_ context.Context, taskID, contextID string, status taskengine.TaskStatus) (event.Event, error) {
	if taskID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		// A status update can announce a task the engine has not seen as a
		// whole record yet.
		stored = &taskengine.Task{ID: taskID, ContextID: contextID}
		s.adoptOrphansLocked(stored)
		s.tasks[taskID] = stored
		s.order = append(s.order, taskID)
	}
	stored.Status = status.Clone()

	if last, seen := s.lastState[taskID]; seen && last == status.State {
		return nil, nil
	}
	s.lastState[taskID] = status.State

	ev := event.NewStatusEvent(&taskengine.TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Status:    status.Clone(),
	})
	s.updates[taskID] = append(s.updates[taskID], ev)
	return ev, nil
}

// RecordArtifactUpdate implements [Recorder].
func (s *InMemoryStore) RecordArtifactUpdate(_ context.Context, taskID, contextID string, artifact taskengine.Artifact, appendChunk, lastChunk bool) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk := artifact.Clone()
	ev := event.NewArtifactEvent(&taskengine.TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  chunk,
		Append:    &appendChunk,
		LastChunk: &lastChunk,
	})

	if taskID == "" {
		s.orphanArtifacts[contextID] = append(s.orphanArtifacts[contextID], *artifact.Clone())
		return ev, nil
	}

	stored, ok := s.tasks[taskID]
	if !ok {
		stored = &taskengine.Task{ID: taskID, ContextID: contextID}
		s.tasks[taskID] = stored
		s.order = append(s.order, taskID)
	}
	mergeArtifact(stored, *artifact.Clone(), appendChunk)
	s.updates[taskID] = append(s.updates[taskID], ev)
	return ev, nil
}

// DrainUpdates implements [UpdateQueue].
func (s *InMemoryStore) DrainUpdates(_ context.Context, taskID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.updates[taskID]
	delete(s.updates, taskID)
	return pending, nil
}

// mergeArtifact folds one artifact chunk into the task's artifact list.
//
// Chunks carrying an artifact id merge with the existing artifact of that
// id: append mode extends its parts, otherwise the chunk replaces it.
// Chunks without an id fall back to position: append mode extends the most
// recent artifact, otherwise the chunk starts a new one.
func mergeArtifact(task *taskengine.Task, chunk taskengine.Artifact, appendChunk bool) {
	if chunk.ArtifactID != "" {
		for i := range task.Artifacts {
			if task.Artifacts[i].ArtifactID != chunk.ArtifactID {
				continue
			}
			if appendChunk {
				task.Artifacts[i].Parts = append(task.Artifacts[i].Parts, chunk.Parts...)
			} else {
				task.Artifacts[i] = chunk
			}
			return
		}
		task.Artifacts = append(task.Artifacts, chunk)
		return
	}
	if appendChunk && len(task.Artifacts) > 0 {
		last := len(task.Artifacts) - 1
		task.Artifacts[last].Parts = append(task.Artifacts[last].Parts, chunk.Parts...)
		return
	}
	task.Artifacts = append(task.Artifacts, chunk)
}
