// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package ids provides injectable identifier generation for tasks, contexts,
// and messages. Components receive a Generator rather than reading ambient
// process state, which keeps stores and pipelines testable with deterministic
// id sequences.
package ids

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces fresh identifiers.
type Generator interface {
	// NewTaskID returns an identifier for a new task.
	NewTaskID() string
	// NewContextID returns an identifier for a new conversation context.
	NewContextID() string
	// NewMessageID returns an identifier for a new message.
	NewMessageID() string
}

// New returns the default Generator, backed by random UUIDs.
func New() Generator {
	return uuidGenerator{}
}

type uuidGenerator struct{}

func (uuidGenerator) NewTaskID() string    { return "task-" + uuid.NewString() }
func (uuidGenerator) NewContextID() string { return "ctx-" + uuid.NewString() }
func (uuidGenerator) NewMessageID() string { return "msg-" + uuid.NewString() }

// NewClock returns a Generator composing a millisecond timestamp with a
// process-local atomic counter. Ids are unique within a process and sort in
// creation order.
func NewClock() Generator {
	return &clockGenerator{}
}

type clockGenerator struct {
	counter atomic.Uint64
}

func (g *clockGenerator) next(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixMilli(), g.counter.Add(1))
}

func (g *clockGenerator) NewTaskID() string    { return g.next("task") }
func (g *clockGenerator) NewContextID() string { return g.next("ctx") }
func (g *clockGenerator) NewMessageID() string { return g.next("msg") }

// Sequence is a deterministic Generator for tests: ids are prefix-1,
// prefix-2, and so on, in call order across all three kinds.
type Sequence struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequence returns a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.counter.Add(1))
}

// NewTaskID returns the next sequential id.
func (s *Sequence) NewTaskID() string { return s.next() }

// NewContextID returns the next sequential id.
func (s *Sequence) NewContextID() string { return s.next() }

// NewMessageID returns the next sequential id.
func (s *Sequence) NewMessageID() string { return s.next() }
