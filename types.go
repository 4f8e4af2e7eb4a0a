// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"fmt"
	"strconv"
	"strings"
)

// Top-level keys that identify a payload as a stream response. Transports
// deliver stream chunks as objects carrying exactly one of these members.
const (
	KeyMessage        = "message"
	KeyTask           = "task"
	KeyStatusUpdate   = "statusUpdate"
	KeyArtifactUpdate = "artifactUpdate"
)

// Message roles.
const (
	RoleUser  Role = "ROLE_USER"
	RoleAgent Role = "ROLE_AGENT"
)

// TaskState represents the lifecycle state of a task. States are
// caller-defined: the engine records and relays them but does not enforce
// transition legality.
type TaskState string

// Well-known task states.
const (
	TaskStateSubmitted TaskState = "TASK_STATE_SUBMITTED"
	TaskStateWorking   TaskState = "TASK_STATE_WORKING"
	TaskStateCompleted TaskState = "TASK_STATE_COMPLETED"
	TaskStateFailed    TaskState = "TASK_STATE_FAILED"
	TaskStateCanceled  TaskState = "TASK_STATE_CANCELED"
)

// UnmarshalJSON accepts a JSON string or a JSON number. Some transports
// encode enum states numerically; numeric states are kept as their decimal
// string form.
func (s *TaskState) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		unquoted, err := strconv.Unquote(trimmed)
		if err != nil {
			return fmt.Errorf("task state: %w", err)
		}
		*s = TaskState(unquoted)
		return nil
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
		return fmt.Errorf("task state must be a string or integer, got %s", trimmed)
	}
	*s = TaskState(trimmed)
	return nil
}

// IsTerminal reports whether the state is one of the well-known final states.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCanceled
}

// Role represents the originator of a message. Like TaskState it tolerates
// numeric encodings.
type Role string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (r *Role) UnmarshalJSON(data []byte) error {
	var state TaskState
	if err := state.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("role must be a string or integer")
	}
	*r = Role(state)
	return nil
}

// Part represents one segment of a message or artifact: text, structured
// data, raw content, or a file reference. Unknown members are preserved for
// forward compatibility.
type Part struct {
	Text      string         `json:"text,omitzero"`
	Data      any            `json:"data,omitzero"`
	Raw       string         `json:"raw,omitzero"`
	URL       string         `json:"url,omitzero"`
	Filename  string         `json:"filename,omitzero"`
	MediaType string         `json:"mediaType,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
	Extra     map[string]any `json:",unknown"`
}

// Message represents a single conversational message from either party.
// Messages are inserted into task history and never mutated.
type Message struct {
	MessageID        string         `json:"messageId"`
	Role             Role           `json:"role"`
	Parts            []Part         `json:"parts"`
	ContextID        string         `json:"contextId,omitzero"`
	TaskID           string         `json:"taskId,omitzero"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitzero"`
	Extensions       []string       `json:"extensions,omitzero"`
	Metadata         map[string]any `json:"metadata,omitzero"`
	Extra            map[string]any `json:",unknown"`
}

// Validate ensures the message carries its required members. Decoding alone
// cannot distinguish a message from an arbitrary object, so shape probes pair
// a decode with this check.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message messageId cannot be empty")
	}
	if m.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if m.Parts == nil {
		return fmt.Errorf("message parts cannot be absent")
	}
	return nil
}

// Text returns the message's text parts joined with newlines, or the empty
// string if it has none.
func (m *Message) Text() string {
	var parts []string
	for _, part := range m.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Parts = append([]Part(nil), m.Parts...)
	clone.ReferenceTaskIDs = append([]string(nil), m.ReferenceTaskIDs...)
	clone.Extensions = append([]string(nil), m.Extensions...)
	clone.Metadata = cloneMap(m.Metadata)
	clone.Extra = cloneMap(m.Extra)
	return &clone
}

// Artifact represents a discrete output attached to a task, possibly
// delivered incrementally as chunks.
type Artifact struct {
	ArtifactID  string         `json:"artifactId,omitzero"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts,omitzero"`
	Metadata    map[string]any `json:"metadata,omitzero"`
	Extensions  []string       `json:"extensions,omitzero"`
	Extra       map[string]any `json:",unknown"`
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Parts = append([]Part(nil), a.Parts...)
	clone.Metadata = cloneMap(a.Metadata)
	clone.Extensions = append([]string(nil), a.Extensions...)
	clone.Extra = cloneMap(a.Extra)
	return &clone
}

// TaskStatus represents the current status of a task.
type TaskStatus struct {
	State     TaskState      `json:"state,omitzero"`
	Message   *Message       `json:"message,omitzero"`
	Timestamp string         `json:"timestamp,omitzero"`
	Extra     map[string]any `json:",unknown"`
}

// Clone returns a deep copy of the status.
func (s *TaskStatus) Clone() *TaskStatus {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Message = s.Message.Clone()
	clone.Extra = cloneMap(s.Extra)
	return &clone
}

// Task is the authoritative record of a unit of long-running work. The task
// id, once assigned, is immutable; the context id is stable for the life of
// the task.
type Task struct {
	ID        string         `json:"id,omitzero"`
	ContextID string         `json:"contextId,omitzero"`
	Artifacts []Artifact     `json:"artifacts,omitzero"`
	History   []Message      `json:"history,omitzero"`
	Status    *TaskStatus    `json:"status,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
	Extra     map[string]any `json:",unknown"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Artifacts != nil {
		clone.Artifacts = make([]Artifact, len(t.Artifacts))
		for i := range t.Artifacts {
			clone.Artifacts[i] = *t.Artifacts[i].Clone()
		}
	}
	if t.History != nil {
		clone.History = make([]Message, len(t.History))
		for i := range t.History {
			clone.History[i] = *t.History[i].Clone()
		}
	}
	clone.Status = t.Status.Clone()
	clone.Metadata = cloneMap(t.Metadata)
	clone.Extra = cloneMap(t.Extra)
	return &clone
}

// TaskStatusUpdateEvent notifies a task state transition. The store produces
// one event per accepted status change; repeats of an identical status are
// suppressed.
type TaskStatusUpdateEvent struct {
	ContextID string         `json:"contextId,omitzero"`
	TaskID    string         `json:"taskId,omitzero"`
	Status    *TaskStatus    `json:"status,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
	Extra     map[string]any `json:",unknown"`
}

// TaskArtifactUpdateEvent notifies one artifact update. Append marks the
// chunk as extending a previous artifact of the same identity; LastChunk
// marks the terminal chunk of a multi-part artifact. Some transports omit
// the task id on early chunks.
type TaskArtifactUpdateEvent struct {
	ContextID string         `json:"contextId,omitzero"`
	TaskID    string         `json:"taskId,omitzero"`
	LastChunk *bool          `json:"lastChunk,omitzero"`
	Append    *bool          `json:"append,omitzero"`
	Artifact  *Artifact      `json:"artifact,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
	Extra     map[string]any `json:",unknown"`
}

// StreamResponse is the transit shape of one streamed result chunk. It
// carries at most one of its four recognized members plus any unrecognized
// fields the transport attached.
type StreamResponse struct {
	Message        *Message                 `json:"message,omitzero"`
	Task           *Task                    `json:"task,omitzero"`
	StatusUpdate   *TaskStatusUpdateEvent   `json:"statusUpdate,omitzero"`
	ArtifactUpdate *TaskArtifactUpdateEvent `json:"artifactUpdate,omitzero"`
	Extra          map[string]any           `json:",unknown"`
}

// SendMessageResponse is the transit shape of a completed (non-streamed)
// message call: at most one of a reply message or a task snapshot.
type SendMessageResponse struct {
	Message *Message       `json:"message,omitzero"`
	Task    *Task          `json:"task,omitzero"`
	Extra   map[string]any `json:",unknown"`
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
