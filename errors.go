// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskengine

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an [Error]. The set is closed: every
// internal failure maps to exactly one kind, and formatting falls back to
// KindInternal for anything unrecognized.
type Kind int

// Error kinds.
const (
	// KindInternal is an unclassified internal failure.
	KindInternal Kind = iota
	// KindInvalidArgument is a malformed or missing required input.
	KindInvalidArgument
	// KindFunctionNotFound means the requested capability does not exist.
	KindFunctionNotFound
	// KindParseError means a payload could not be decoded when decoding was
	// mandatory. A shape probe returning "absent" is not a parse error.
	KindParseError
	// KindToolExecution means an invoked capability failed while running.
	KindToolExecution
	// KindEngineError is a failure originating in the execution engine.
	KindEngineError
)

// String returns the stable category name used for error-code selection and
// observability tagging.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindFunctionNotFound:
		return "function_not_found"
	case KindParseError:
		return "parse_error"
	case KindToolExecution:
		return "tool_execution"
	case KindEngineError:
		return "engine_error"
	default:
		return "internal"
	}
}

// Error is the structured error type shared across the engine. Detail carries
// kind-specific context: the offending argument description, the missing
// function name, or the engine context string.
type Error struct {
	kind   Kind
	detail string
	err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.kind {
	case KindInvalidArgument:
		return fmt.Sprintf("invalid argument: %s", e.detail)
	case KindFunctionNotFound:
		return fmt.Sprintf("function not found: %s", e.detail)
	case KindParseError:
		if e.err != nil {
			return fmt.Sprintf("parse error: %v", e.err)
		}
		return fmt.Sprintf("parse error: %s", e.detail)
	case KindToolExecution:
		if e.err != nil {
			return fmt.Sprintf("tool execution failed: %s: %v", e.detail, e.err)
		}
		return fmt.Sprintf("tool execution failed: %s", e.detail)
	case KindEngineError:
		if e.err != nil {
			return fmt.Sprintf("engine error: %s: %v", e.detail, e.err)
		}
		return fmt.Sprintf("engine error: %s", e.detail)
	default:
		if e.err != nil {
			return fmt.Sprintf("internal error: %v", e.err)
		}
		return fmt.Sprintf("internal error: %s", e.detail)
	}
}

// Kind returns the failure class.
func (e *Error) Kind() Kind { return e.kind }

// Detail returns the kind-specific context string.
func (e *Error) Detail() string { return e.detail }

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.err }

// NewInvalidArgumentError reports a malformed or missing required input.
func NewInvalidArgumentError(detail string) *Error {
	return &Error{kind: KindInvalidArgument, detail: detail}
}

// NewFunctionNotFoundError reports a request for a capability that does not
// exist.
func NewFunctionNotFoundError(name string) *Error {
	return &Error{kind: KindFunctionNotFound, detail: name}
}

// NewParseError reports a mandatory decode that failed.
func NewParseError(err error) *Error {
	return &Error{kind: KindParseError, err: err}
}

// NewToolExecutionError reports a capability that failed during execution.
func NewToolExecutionError(tool string, err error) *Error {
	return &Error{kind: KindToolExecution, detail: tool, err: err}
}

// NewEngineError reports a failure originating in the execution engine.
func NewEngineError(detail string) *Error {
	return &Error{kind: KindEngineError, detail: detail}
}

// NewEngineErrorWithCause reports an engine failure with contextual detail
// and an underlying cause.
func NewEngineErrorWithCause(context string, err error) *Error {
	return &Error{kind: KindEngineError, detail: context, err: err}
}

// NewInternalError wraps an unclassified failure.
func NewInternalError(err error) *Error {
	return &Error{kind: KindInternal, err: err}
}

// KindOf returns the Kind of err, or KindInternal when err is not an [*Error].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}
