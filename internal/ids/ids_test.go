// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package ids

import (
	"strings"
	"testing"
)

func TestUUIDGeneratorPrefixes(t *testing.T) {
	gen := New()
	if !strings.HasPrefix(gen.NewTaskID(), "task-") {
		t.Error("Expected task ids to carry the task- prefix")
	}
	if !strings.HasPrefix(gen.NewContextID(), "ctx-") {
		t.Error("Expected context ids to carry the ctx- prefix")
	}
	if !strings.HasPrefix(gen.NewMessageID(), "msg-") {
		t.Error("Expected message ids to carry the msg- prefix")
	}
	if gen.NewTaskID() == gen.NewTaskID() {
		t.Error("Expected distinct task ids")
	}
}

func TestClockGeneratorUnique(t *testing.T) {
	gen := NewClock()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.NewTaskID()
		if seen[id] {
			t.Fatalf("Duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSequenceDeterministic(t *testing.T) {
	gen := NewSequence("t")
	want := []string{"t-1", "t-2", "t-3"}
	got := []string{gen.NewTaskID(), gen.NewContextID(), gen.NewMessageID()}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected id %s, got %s", want[i], got[i])
		}
	}
}
