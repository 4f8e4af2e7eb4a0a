// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
)

// ResultExtractor probes a raw result payload for the protocol shapes the
// engine knows how to store. A probe returns (nil, nil) when the payload is
// well-formed JSON that simply is not the probed shape; only syntactically
// invalid JSON is a hard error.
type ResultExtractor interface {
	ExtractStreamResponse(raw jsontext.Value) (*taskengine.StreamResponse, error)
	ExtractSendMessageResponse(raw jsontext.Value) (*taskengine.SendMessageResponse, error)
	ExtractTask(raw jsontext.Value) (*taskengine.Task, error)
}

// Extractor is the default [ResultExtractor].
type Extractor struct{}

var _ ResultExtractor = (*Extractor)(nil)

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// objectMembers decodes raw as a JSON object. A non-object payload yields a
// nil map with no error; malformed JSON yields a parse error.
func objectMembers(raw jsontext.Value) (map[string]jsontext.Value, error) {
	if !raw.IsValid() {
		return nil, taskengine.NewParseError(fmt.Errorf("invalid JSON payload"))
	}
	if raw.Kind() != '{' {
		return nil, nil
	}
	var members map[string]jsontext.Value
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, taskengine.NewParseError(err)
	}
	return members, nil
}

func hasAnyMember(members map[string]jsontext.Value, keys ...string) bool {
	for _, key := range keys {
		if _, ok := members[key]; ok {
			return true
		}
	}
	return false
}

// ExtractStreamResponse probes for a stream-response chunk: an object
// carrying at least one of the four recognized members.
func (e *Extractor) ExtractStreamResponse(raw jsontext.Value) (*taskengine.StreamResponse, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	if !hasAnyMember(members, taskengine.KeyMessage, taskengine.KeyTask, taskengine.KeyStatusUpdate, taskengine.KeyArtifactUpdate) {
		return nil, nil
	}
	var stream taskengine.StreamResponse
	if err := json.Unmarshal(raw, &stream); err != nil {
		return nil, nil
	}
	if stream.Message != nil {
		if err := stream.Message.Validate(); err != nil {
			stream.Message = nil
		}
	}
	return &stream, nil
}

// ExtractSendMessageResponse probes for a completed message call: an object
// carrying a reply message or a task snapshot.
func (e *Extractor) ExtractSendMessageResponse(raw jsontext.Value) (*taskengine.SendMessageResponse, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	if !hasAnyMember(members, taskengine.KeyMessage, taskengine.KeyTask) {
		return nil, nil
	}
	var resp taskengine.SendMessageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil
	}
	if resp.Message != nil {
		if err := resp.Message.Validate(); err != nil {
			resp.Message = nil
		}
	}
	if resp.Message == nil && resp.Task == nil {
		return nil, nil
	}
	return &resp, nil
}

// ExtractTask probes for a bare task record: an object that carries a task
// identity.
func (e *Extractor) ExtractTask(raw jsontext.Value) (*taskengine.Task, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	if !hasAnyMember(members, "id", "contextId") {
		return nil, nil
	}
	var task taskengine.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, nil
	}
	return &task, nil
}
