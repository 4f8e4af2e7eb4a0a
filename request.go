// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"bytes"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine/internal/ids"
)

// Method identifies an A2A RPC operation.
type Method string

// A2A RPC method names.
const (
	// MethodMessageSend sends a message to the agent.
	MethodMessageSend Method = "message.send"
	// MethodMessageSendStream sends a message and streams the response.
	MethodMessageSendStream Method = "message.sendStream"
	// MethodTasksGet fetches a task snapshot.
	MethodTasksGet Method = "tasks.get"
	// MethodTasksList lists tasks with optional filters and pagination.
	MethodTasksList Method = "tasks.list"
	// MethodTasksCancel cancels a task.
	MethodTasksCancel Method = "tasks.cancel"
	// MethodTasksSubscribe subscribes to a task's pending updates.
	MethodTasksSubscribe Method = "tasks.subscribe"
)

// String returns the wire name of the method.
func (m Method) String() string { return string(m) }

// ParseMethod maps a wire method name to a [Method].
func ParseMethod(value string) (Method, error) {
	switch m := Method(value); m {
	case MethodMessageSend, MethodMessageSendStream, MethodTasksGet,
		MethodTasksList, MethodTasksCancel, MethodTasksSubscribe:
		return m, nil
	default:
		return "", NewInvalidArgumentError(fmt.Sprintf("unsupported A2A request method: %s", value))
	}
}

// Request is a parsed, validated A2A request ready for routing. Params is
// always a JSON object: null params become {}, positional params become
// {"arg0": …}, and scalar params become {"value": …}.
type Request struct {
	// ID is the JSON-RPC correlation id: a string, a number, or nil.
	ID any
	// Method is the requested operation.
	Method Method
	// Params are the normalized method parameters.
	Params jsontext.Value
	// Stream reports whether the caller asked for a streamed response.
	Stream bool
	// ContextID is the conversation context the request belongs to, when one
	// could be determined at parse time.
	ContextID string
}

// ExtractRequestID pulls the JSON-RPC id out of a raw request without
// validating the rest, so error envelopes can echo the id even for requests
// that fail parsing.
func ExtractRequestID(raw jsontext.Value) any {
	var rpc JSONRPCRequest
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return nil
	}
	return rpc.ID
}

// ParseRequest validates a raw JSON-RPC request and resolves its method,
// stream flag, and context id. Messages without a context id are assigned a
// fresh one from gen so every task the call produces lands in a stable
// context.
func ParseRequest(raw jsontext.Value, gen ids.Generator) (*Request, error) {
	if gen == nil {
		gen = ids.New()
	}

	var rpc JSONRPCRequest
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return nil, NewParseError(err)
	}
	if rpc.JSONRPC != JSONRPCVersion {
		return nil, NewInvalidArgumentError(fmt.Sprintf("unsupported jsonrpc version: %q", rpc.JSONRPC))
	}
	method, err := ParseMethod(rpc.Method)
	if err != nil {
		return nil, err
	}

	params := rpc.Params
	var contextID string
	var stream bool

	switch method {
	case MethodMessageSend, MethodMessageSendStream:
		if len(params) == 0 {
			return nil, NewInvalidArgumentError(fmt.Sprintf("%s requires params", method))
		}
		var req SendMessageRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, NewParseError(err)
		}
		if req.Message.ContextID == "" {
			req.Message.ContextID = gen.NewContextID()
		}
		contextID = req.Message.ContextID
		if params, err = json.Marshal(&req); err != nil {
			return nil, NewParseError(err)
		}
		if params, err = augmentMessageParams(params, &req.Message); err != nil {
			return nil, NewParseError(err)
		}
		if method == MethodMessageSendStream {
			stream = true
		} else {
			stream = paramsBool(params, "stream") ||
				metadataBool(req.Metadata, "stream") ||
				metadataBool(req.Message.Metadata, "stream")
		}

	case MethodTasksList:
		var req ListTasksRequest
		if len(params) > 0 && json.Unmarshal(params, &req) == nil {
			contextID = req.ContextID
		}

	case MethodTasksSubscribe:
		stream = paramsBool(params, "stream")
	}

	if params, err = normalizeParams(params); err != nil {
		return nil, NewParseError(err)
	}
	if params, err = removeParam(params, "stream"); err != nil {
		return nil, NewParseError(err)
	}

	return &Request{
		ID:        rpc.ID,
		Method:    method,
		Params:    params,
		Stream:    stream,
		ContextID: contextID,
	}, nil
}

// normalizeParams coerces params into a JSON object.
func normalizeParams(params jsontext.Value) (jsontext.Value, error) {
	if len(params) == 0 {
		return jsontext.Value("{}"), nil
	}
	switch params.Kind() {
	case '{':
		return params, nil
	case 'n':
		return jsontext.Value("{}"), nil
	case '[':
		var items []jsontext.Value
		if err := json.Unmarshal(params, &items); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(&buf, `"arg%d":`, i)
			buf.Write(item)
		}
		buf.WriteByte('}')
		return jsontext.Value(buf.Bytes()), nil
	default:
		var buf bytes.Buffer
		buf.WriteString(`{"value":`)
		buf.Write(params)
		buf.WriteByte('}')
		return jsontext.Value(buf.Bytes()), nil
	}
}

// augmentMessageParams flattens the message's text parts into a top-level
// "text" param unless the caller already supplied one.
func augmentMessageParams(params jsontext.Value, message *Message) (jsontext.Value, error) {
	text := message.Text()
	if text == "" {
		return params, nil
	}
	var fields map[string]jsontext.Value
	if err := json.Unmarshal(params, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["text"]; ok {
		return params, nil
	}
	fields["text"] = jsontext.Value(mustMarshal(text))
	return json.Marshal(fields)
}

// removeParam drops a member from an object-shaped params value.
func removeParam(params jsontext.Value, key string) (jsontext.Value, error) {
	if params.Kind() != '{' {
		return params, nil
	}
	var fields map[string]jsontext.Value
	if err := json.Unmarshal(params, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields[key]; !ok {
		return params, nil
	}
	delete(fields, key)
	return json.Marshal(fields)
}

// paramsBool reads a boolean member of an object-shaped params value.
func paramsBool(params jsontext.Value, key string) bool {
	if len(params) == 0 || params.Kind() != '{' {
		return false
	}
	var fields map[string]jsontext.Value
	if err := json.Unmarshal(params, &fields); err != nil {
		return false
	}
	raw, ok := fields[key]
	if !ok {
		return false
	}
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	return value
}

func metadataBool(metadata map[string]any, key string) bool {
	value, ok := metadata[key].(bool)
	return ok && value
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
