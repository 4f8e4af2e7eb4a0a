// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"fmt"
	"strconv"
	"strings"
)

// IntOrString holds a count that transports encode either as a JSON number
// or as a numeric string. It marshals as a number.
type IntOrString int

// UnmarshalJSON accepts a JSON number or a numeric JSON string.
func (n *IntOrString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		unquoted, err := strconv.Unquote(trimmed)
		if err != nil {
			return fmt.Errorf("numeric string: %w", err)
		}
		trimmed = unquoted
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return fmt.Errorf("expected a number or numeric string, got %s", string(data))
	}
	*n = IntOrString(value)
	return nil
}

// Int returns the value as a plain int.
func (n IntOrString) Int() int { return int(n) }

// SendMessageConfiguration carries optional delivery preferences for a
// message.send call.
type SendMessageConfiguration struct {
	AcceptedOutputModes []string       `json:"acceptedOutputModes,omitzero"`
	Blocking            *bool          `json:"blocking,omitzero"`
	HistoryLength       *IntOrString   `json:"historyLength,omitzero"`
	Extra               map[string]any `json:",unknown"`
}

// SendMessageRequest are the parameters of message.send and
// message.sendStream.
type SendMessageRequest struct {
	Message       Message                   `json:"message"`
	Configuration *SendMessageConfiguration `json:"configuration,omitzero"`
	Metadata      map[string]any            `json:"metadata,omitzero"`
	Tenant        string                    `json:"tenant,omitzero"`
	Extra         map[string]any            `json:",unknown"`
}

// GetTaskRequest are the parameters of tasks.get.
type GetTaskRequest struct {
	ID            string         `json:"id"`
	HistoryLength *IntOrString   `json:"historyLength,omitzero"`
	Tenant        string         `json:"tenant,omitzero"`
	Extra         map[string]any `json:",unknown"`
}

// ListTasksRequest are the parameters of tasks.list.
type ListTasksRequest struct {
	ContextID            string         `json:"contextId,omitzero"`
	HistoryLength        *IntOrString   `json:"historyLength,omitzero"`
	IncludeArtifacts     bool           `json:"includeArtifacts,omitzero"`
	PageSize             *IntOrString   `json:"pageSize,omitzero"`
	PageToken            string         `json:"pageToken,omitzero"`
	Status               TaskState      `json:"status,omitzero"`
	StatusTimestampAfter string         `json:"statusTimestampAfter,omitzero"`
	Tenant               string         `json:"tenant,omitzero"`
	Extra                map[string]any `json:",unknown"`
}

// ListTasksResponse is the result of tasks.list.
type ListTasksResponse struct {
	Tasks         []Task `json:"tasks"`
	NextPageToken string `json:"nextPageToken,omitzero"`
	TotalSize     int    `json:"totalSize"`
	PageSize      int    `json:"pageSize"`
}

// CancelTaskRequest are the parameters of tasks.cancel.
type CancelTaskRequest struct {
	ID     string         `json:"id"`
	Tenant string         `json:"tenant,omitzero"`
	Extra  map[string]any `json:",unknown"`
}

// SubscribeToTaskRequest are the parameters of tasks.subscribe.
type SubscribeToTaskRequest struct {
	ID     string         `json:"id"`
	Tenant string         `json:"tenant,omitzero"`
	Extra  map[string]any `json:",unknown"`
}
