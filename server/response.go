// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/taskengine"
)

// ResponseFormatter turns request outcomes into JSON-RPC response envelopes.
type ResponseFormatter interface {
	FormatSuccess(id any, result any) jsontext.Value
	FormatStream(id any, chunks []jsontext.Value) []jsontext.Value
	FormatError(id any, err error) jsontext.Value
}

// Formatter is the default [ResponseFormatter].
type Formatter struct{}

var _ ResponseFormatter = (*Formatter)(nil)

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter { return &Formatter{} }

// fallbackResponse is emitted when a response envelope itself cannot be
// serialized.
var fallbackResponse = jsontext.Value(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"serialization failed"}}`)

// FormatSuccess implements [ResponseFormatter].
func (f *Formatter) FormatSuccess(id any, result any) jsontext.Value {
	data, err := json.Marshal(taskengine.NewSuccessResponse(id, result))
	if err != nil {
		return fallbackResponse
	}
	return data
}

// FormatStream implements [ResponseFormatter]. Each chunk becomes its own
// success envelope tagged with the chunk's 0-based index; the last chunk is
// marked final. An empty stream formats to no envelopes.
func (f *Formatter) FormatStream(id any, chunks []jsontext.Value) []jsontext.Value {
	responses := make([]jsontext.Value, 0, len(chunks))
	for i, chunk := range chunks {
		final := i+1 == len(chunks)
		data, err := json.Marshal(taskengine.NewStreamChunkResponse(id, chunk, i, final))
		if err != nil {
			data = fallbackResponse
		}
		responses = append(responses, data)
	}
	return responses
}

// FormatError implements [ResponseFormatter].
func (f *Formatter) FormatError(id any, err error) jsontext.Value {
	code, message, data := mapJSONRPCError(err)
	response, merr := json.Marshal(taskengine.NewErrorResponse(id, code, message, data))
	if merr != nil {
		return fallbackResponse
	}
	return response
}

// mapJSONRPCError selects the JSON-RPC error code, message, and data payload
// for an engine failure.
func mapJSONRPCError(err error) (int, string, map[string]any) {
	var engineErr *taskengine.Error
	if !errors.As(err, &engineErr) {
		return taskengine.InternalErrorCode, "Internal error", map[string]any{
			"error": err.Error(),
		}
	}

	switch engineErr.Kind() {
	case taskengine.KindInvalidArgument:
		return taskengine.InvalidRequestErrorCode, "Invalid request", map[string]any{
			"error":   engineErr.Error(),
			"details": engineErr.Detail(),
		}
	case taskengine.KindFunctionNotFound:
		return taskengine.MethodNotFoundErrorCode, "Method not found", map[string]any{
			"error":    engineErr.Error(),
			"function": engineErr.Detail(),
		}
	case taskengine.KindParseError:
		details := engineErr.Detail()
		if cause := engineErr.Unwrap(); cause != nil {
			details = cause.Error()
		}
		return taskengine.JSONParseErrorCode, "Parse error", map[string]any{
			"error":   engineErr.Error(),
			"details": details,
		}
	case taskengine.KindEngineError:
		if engineErr.Unwrap() != nil {
			return taskengine.InternalErrorCode, "Internal error", map[string]any{
				"error":   engineErr.Error(),
				"context": engineErr.Detail(),
			}
		}
		return taskengine.InternalErrorCode, "Internal error", map[string]any{
			"error": engineErr.Error(),
		}
	default:
		return taskengine.InternalErrorCode, "Internal error", map[string]any{
			"error": engineErr.Error(),
		}
	}
}

// ErrorClassifier tags failures with a stable category for metrics and logs.
type ErrorClassifier interface {
	Classify(err error) string
}

// KindClassifier classifies by the engine's error kind.
type KindClassifier struct{}

var _ ErrorClassifier = (*KindClassifier)(nil)

// Classify implements [ErrorClassifier].
func (KindClassifier) Classify(err error) string {
	return taskengine.KindOf(err).String()
}
