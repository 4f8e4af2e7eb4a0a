// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-a2a/taskengine"
)

func statusEvent(taskID string) Event {
	return NewStatusEvent(&taskengine.TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: "ctx-1",
		Status:    &taskengine.TaskStatus{State: taskengine.TaskStateWorking},
	})
}

func TestEmitWithoutSubscribers(t *testing.T) {
	b := NewBroadcaster(0, nil)
	// Must not block or panic.
	b.Emit(statusEvent("task-1"))
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("Expected 0 subscribers, got %d", got)
	}
}

func TestEmitDelivers(t *testing.T) {
	b := NewBroadcaster(4, nil)

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Emit(statusEvent("task-1"))

	select {
	case ev := <-ch:
		if ev.TaskID() != "task-1" {
			t.Errorf("Expected task-1, got %s", ev.TaskID())
		}
	case <-time.After(time.Second):
		t.Fatal("Expected the event to be delivered")
	}
}

func TestEmitFansOut(t *testing.T) {
	b := NewBroadcaster(4, nil)

	var channels []<-chan Event
	for i := 0; i < 3; i++ {
		ch, cancel := b.Subscribe()
		defer cancel()
		channels = append(channels, ch)
	}

	b.Emit(statusEvent("task-1"))

	for i, ch := range channels {
		select {
		case ev := <-ch:
			if ev.TaskID() != "task-1" {
				t.Errorf("Subscriber %d got wrong event %s", i, ev.TaskID())
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d missed the event", i)
		}
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	b := NewBroadcaster(1, nil)

	ch, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody reads ch; the buffer fills after one event and the rest
		// must be dropped without blocking.
		for i := 0; i < 10; i++ {
			b.Emit(statusEvent(fmt.Sprintf("task-%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}

	select {
	case ev := <-ch:
		if ev.TaskID() != "task-0" {
			t.Errorf("Expected the first event to be buffered, got %s", ev.TaskID())
		}
	default:
		t.Fatal("Expected one buffered event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBroadcaster(4, nil)

	ch, cancel := b.Subscribe()
	cancel()
	// Cancel twice must be safe.
	cancel()

	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("Expected 0 subscribers after cancel, got %d", got)
	}

	b.Emit(statusEvent("task-1"))

	if _, open := <-ch; open {
		t.Error("Expected the channel to be closed after cancel")
	}
}
