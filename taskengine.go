// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskengine provides the protocol types, request parsing, JSON-RPC
// envelope, and error taxonomy for an Agent-to-Agent (A2A) task lifecycle
// engine. The engine itself lives in the server subpackages: server wires the
// result pipeline, server/task holds the task stores, and server/event holds
// the update broadcaster.
package taskengine

// Version is the current version of the task engine.
const Version = "0.1.0"
