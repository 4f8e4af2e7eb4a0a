// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
)

// statusJSON stores a TaskStatus as a JSON column.
type statusJSON struct {
	Status *taskengine.TaskStatus
}

// Value implements the driver.Valuer interface.
func (s statusJSON) Value() (driver.Value, error) {
	if s.Status == nil {
		return nil, nil
	}
	return json.Marshal(s.Status)
}

// Scan implements the sql.Scanner interface.
func (s *statusJSON) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*s = statusJSON{}
		return err
	}
	var status taskengine.TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("cannot unmarshal status column: %w", err)
	}
	s.Status = &status
	return nil
}

// artifactsJSON stores a []Artifact as a JSON column.
type artifactsJSON struct {
	Artifacts []taskengine.Artifact
}

// Value implements the driver.Valuer interface.
func (a artifactsJSON) Value() (driver.Value, error) {
	if a.Artifacts == nil {
		return nil, nil
	}
	return json.Marshal(a.Artifacts)
}

// Scan implements the sql.Scanner interface.
func (a *artifactsJSON) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*a = artifactsJSON{}
		return err
	}
	if err := json.Unmarshal(data, &a.Artifacts); err != nil {
		return fmt.Errorf("cannot unmarshal artifacts column: %w", err)
	}
	return nil
}

// messagesJSON stores a []Message as a JSON column.
type messagesJSON struct {
	Messages []taskengine.Message
}

// Value implements the driver.Valuer interface.
func (m messagesJSON) Value() (driver.Value, error) {
	if m.Messages == nil {
		return nil, nil
	}
	return json.Marshal(m.Messages)
}

// Scan implements the sql.Scanner interface.
func (m *messagesJSON) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*m = messagesJSON{}
		return err
	}
	if err := json.Unmarshal(data, &m.Messages); err != nil {
		return fmt.Errorf("cannot unmarshal messages column: %w", err)
	}
	return nil
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T as a JSON column", value)
	}
}

// TaskModel is the database row backing one task.
type TaskModel struct {
	ID        string        `gorm:"primaryKey;size:64"`
	ContextID string        `gorm:"size:64;index"`
	Seq       int64         `gorm:"autoIncrement;uniqueIndex"`
	State     string        `gorm:"size:32;index"`
	Status    statusJSON    `gorm:"type:json"`
	Artifacts artifactsJSON `gorm:"type:json"`
	History   messagesJSON  `gorm:"type:json"`
	Metadata  []byte        `gorm:"type:json"`
}

// TableName returns the table name for the TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

func newTaskModel(task *taskengine.Task) (*TaskModel, error) {
	model := &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		Status:    statusJSON{Status: task.Status},
		Artifacts: artifactsJSON{Artifacts: task.Artifacts},
		History:   messagesJSON{Messages: task.History},
	}
	if task.Status != nil {
		model.State = string(task.Status.State)
	}
	if task.Metadata != nil {
		data, err := json.Marshal(task.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode task metadata: %w", err)
		}
		model.Metadata = data
	}
	return model, nil
}

// ToTask converts the row back to a task record.
func (m *TaskModel) ToTask() (*taskengine.Task, error) {
	task := &taskengine.Task{
		ID:        m.ID,
		ContextID: m.ContextID,
		Status:    m.Status.Status,
		Artifacts: m.Artifacts.Artifacts,
		History:   m.History.Messages,
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &task.Metadata); err != nil {
			return nil, fmt.Errorf("decode task metadata: %w", err)
		}
	}
	return task, nil
}

// DatabaseStore is a [Store] that persists task records through GORM. Task
// records survive restarts; the per-task update queues, the orphan artifact
// buffer, and the status-repeat tracking are process local, since update
// events are transient by contract.
type DatabaseStore struct {
	db *gorm.DB

	mu        sync.Mutex
	lastState map[string]taskengine.TaskState
	updates   map[string][]event.Event
	orphans   map[string][]taskengine.Artifact
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for a DatabaseStore.
type DatabaseStoreConfig struct {
	DB *gorm.DB

	// AutoMigrate creates or updates the tasks table on construction.
	AutoMigrate bool
}

// NewDatabaseStore creates a DatabaseStore on an open GORM connection.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if config.AutoMigrate {
		if err := config.DB.AutoMigrate(&TaskModel{}); err != nil {
			return nil, fmt.Errorf("migrate tasks table: %w", err)
		}
	}
	return &DatabaseStore{
		db:        config.DB,
		lastState: make(map[string]taskengine.TaskState),
		updates:   make(map[string][]event.Event),
		orphans:   make(map[string][]taskengine.Artifact),
	}, nil
}

// Upsert implements [Repository].
func (s *DatabaseStore) Upsert(ctx context.Context, task *taskengine.Task) (*taskengine.Task, error) {
	if task == nil || task.ID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := task.Clone()
	s.adoptOrphansLocked(stored)

	model, err := newTaskModel(stored)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return nil, fmt.Errorf("save task %s: %w", stored.ID, err)
	}
	return stored, nil
}

// adoptOrphansLocked moves any buffered artifact chunks for the task's
// context onto the task itself.
func (s *DatabaseStore) adoptOrphansLocked(task *taskengine.Task) {
	if task.ContextID == "" {
		return
	}
	buffered := s.orphans[task.ContextID]
	if len(buffered) == 0 {
		return
	}
	for i := range buffered {
		mergeArtifact(task, buffered[i], false)
	}
	delete(s.orphans, task.ContextID)
}

func (s *DatabaseStore) loadTask(ctx context.Context, id string) (*taskengine.Task, error) {
	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return model.ToTask()
}

func (s *DatabaseStore) saveTask(ctx context.Context, task *taskengine.Task) error {
	model, err := newTaskModel(task)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// Get implements [Repository].
func (s *DatabaseStore) Get(ctx context.Context, id string, historyLength *int) (*taskengine.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if historyLength != nil {
		truncateHistory(task, *historyLength)
	}
	return task, nil
}

// List implements [Repository].
func (s *DatabaseStore) List(ctx context.Context, req *taskengine.ListTasksRequest) (*taskengine.ListTasksResponse, error) {
	if req == nil {
		req = &taskengine.ListTasksRequest{}
	}

	query := s.db.WithContext(ctx).Model(&TaskModel{}).Order("seq")
	if req.ContextID != "" {
		query = query.Where("context_id = ?", req.ContextID)
	}
	if req.Status != "" {
		query = query.Where("state = ?", string(req.Status))
	}

	var models []TaskModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var matched []taskengine.Task
	for i := range models {
		task, err := models[i].ToTask()
		if err != nil {
			return nil, err
		}
		if req.StatusTimestampAfter != "" {
			if task.Status == nil || task.Status.Timestamp <= req.StatusTimestampAfter {
				continue
			}
		}
		if !req.IncludeArtifacts {
			task.Artifacts = nil
		}
		if req.HistoryLength != nil {
			truncateHistory(task, req.HistoryLength.Int())
		}
		matched = append(matched, *task)
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
func (s *DatabaseStore) Cancel(ctx context.Context, id string) (*taskengine.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == nil {
		task.Status = &taskengine.TaskStatus{}
	}
	task.Status.State = taskengine.TaskStateCanceled
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// InsertMessage implements [Repository]. Messages without a resolvable task
// are dropped with no error; persistent context-scoped history is not part
// of the database schema.
func (s *DatabaseStore) InsertMessage(ctx context.Context, message *taskengine.Message) error {
	if message == nil || message.TaskID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.loadTask(ctx, message.TaskID)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	task.History = append(task.History, *message.Clone())
	return s.saveTask(ctx, task)
}

// RecordStatusUpdate implements [Recorder].
func (s *DatabaseStore) RecordStatusUpdate(ctx context.Context, taskID, contextID string, status taskengine.TaskStatus) (event.Event, error) {
	if taskID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		task = &taskengine.Task{ID: taskID, ContextID: contextID}
		s.adoptOrphansLocked(task)
	}
	task.Status = status.Clone()
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

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
func (s *DatabaseStore) RecordArtifactUpdate(ctx context.Context, taskID, contextID string, artifact taskengine.Artifact, appendChunk, lastChunk bool) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := event.NewArtifactEvent(&taskengine.TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact.Clone(),
		Append:    &appendChunk,
		LastChunk: &lastChunk,
	})

	if taskID == "" {
		s.orphans[contextID] = append(s.orphans[contextID], *artifact.Clone())
		return ev, nil
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		task = &taskengine.Task{ID: taskID, ContextID: contextID}
	}
	mergeArtifact(task, *artifact.Clone(), appendChunk)
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.updates[taskID] = append(s.updates[taskID], ev)
	return ev, nil
}

// DrainUpdates implements [UpdateQueue].
func (s *DatabaseStore) DrainUpdates(_ context.Context, taskID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.updates[taskID]
	delete(s.updates, taskID)
	return pending, nil
}
