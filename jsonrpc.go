// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the protocol version carried by every envelope.
const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	// JSONParseErrorCode indicates an invalid JSON payload.
	JSONParseErrorCode = -32700
	// InvalidRequestErrorCode indicates a request payload validation error.
	InvalidRequestErrorCode = -32600
	// MethodNotFoundErrorCode indicates the method does not exist.
	MethodNotFoundErrorCode = -32601
	// InvalidParamsErrorCode indicates invalid method parameters.
	InvalidParamsErrorCode = -32602
	// InternalErrorCode indicates an internal server error.
	InternalErrorCode = -32603
)

// JSONRPCRequest represents a JSON-RPC 2.0 request. Params stay raw until the
// method is known.
type JSONRPCRequest struct {
	// JSONRPC version, always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains parameters for the method.
	Params jsontext.Value `json:"params,omitzero"`
	// ID is a unique identifier for request/response correlation.
	// A string, a number, or null.
	ID any `json:"id,omitzero"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitzero"`
}

// JSONRPCSuccessResponse represents a successful JSON-RPC 2.0 response. The
// id member is always emitted, null when the request carried none.
type JSONRPCSuccessResponse struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      any    `json:"id"`
}

// JSONRPCErrorResponse represents a failed JSON-RPC 2.0 response.
type JSONRPCErrorResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Error   *JSONRPCError `json:"error"`
	ID      any           `json:"id"`
}

// StreamChunk is the result member of one streamed response envelope: the
// chunk payload tagged with its 0-based index and whether it is the final
// chunk of the stream.
type StreamChunk struct {
	Stream bool           `json:"stream"`
	Index  int            `json:"index"`
	Final  bool           `json:"final"`
	Chunk  jsontext.Value `json:"chunk"`
}

// NewSuccessResponse creates a success envelope for the given request id.
func NewSuccessResponse(id any, result any) *JSONRPCSuccessResponse {
	return &JSONRPCSuccessResponse{
		JSONRPC: JSONRPCVersion,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error envelope for the given request id.
func NewErrorResponse(id any, code int, message string, data any) *JSONRPCErrorResponse {
	return &JSONRPCErrorResponse{
		JSONRPC: JSONRPCVersion,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// NewStreamChunkResponse creates the envelope for one streamed chunk.
func NewStreamChunkResponse(id any, chunk jsontext.Value, index int, final bool) *JSONRPCSuccessResponse {
	return NewSuccessResponse(id, &StreamChunk{
		Stream: true,
		Index:  index,
		Final:  final,
		Chunk:  chunk,
	})
}
