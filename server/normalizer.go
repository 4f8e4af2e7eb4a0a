// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
)

// StreamNormalizer coerces heterogeneous stream chunks into the canonical
// stream-response shape so downstream storage and formatting see one form.
type StreamNormalizer interface {
	// NormalizeChunk wraps a bare message or task chunk in a stream-response
	// envelope. Chunks already in stream-response form, and chunks of no
	// recognizable shape, pass through unchanged.
	NormalizeChunk(raw jsontext.Value) (jsontext.Value, error)

	// IsStreamResponse reports whether the payload is an object carrying at
	// least one of the recognized stream-response members.
	IsStreamResponse(raw jsontext.Value) bool
}

// Normalizer is the default [StreamNormalizer].
type Normalizer struct{}

var _ StreamNormalizer = (*Normalizer)(nil)

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// IsStreamResponse implements [StreamNormalizer].
func (n *Normalizer) IsStreamResponse(raw jsontext.Value) bool {
	members, err := objectMembers(raw)
	if err != nil {
		return false
	}
	return hasAnyMember(members, taskengine.KeyMessage, taskengine.KeyTask, taskengine.KeyStatusUpdate, taskengine.KeyArtifactUpdate)
}

// NormalizeChunk implements [StreamNormalizer].
func (n *Normalizer) NormalizeChunk(raw jsontext.Value) (jsontext.Value, error) {
	if n.IsStreamResponse(raw) {
		return raw, nil
	}

	var message taskengine.Message
	if err := json.Unmarshal(raw, &message); err == nil && message.Validate() == nil {
		return json.Marshal(&taskengine.StreamResponse{Message: &message})
	}

	var task taskengine.Task
	if err := json.Unmarshal(raw, &task); err == nil && (task.ID != "" || task.ContextID != "") {
		return json.Marshal(&taskengine.StreamResponse{Task: &task})
	}

	return raw, nil
}
