// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-a2a/taskengine"
	"github.com/go-a2a/taskengine/server/event"
)

func intPtr(n int) *taskengine.IntOrString {
	v := taskengine.IntOrString(n)
	return &v
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	task := &taskengine.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    &taskengine.TaskStatus{State: taskengine.TaskStateWorking},
	}

	first, err := store.Upsert(ctx, task)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, task)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Repeated upsert changed state (-first +second):\n%s", diff)
	}

	updates, err := store.DrainUpdates(ctx, "task-1")
	if err != nil {
		t.Fatalf("DrainUpdates failed: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("Expected no update events from upserts, got %d", len(updates))
	}
}

func TestUpsertWithoutIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	stored, err := store.Upsert(ctx, &taskengine.Task{ContextID: "ctx-1"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if stored != nil {
		t.Error("Expected a task without an id to be ignored")
	}
}

func TestUpsertReturnsIndependentSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	snapshot, err := store.Upsert(ctx, &taskengine.Task{ID: "task-1", ContextID: "ctx-1"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	snapshot.ContextID = "mutated"

	got, err := store.Get(ctx, "task-1", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ContextID != "ctx-1" {
		t.Error("Mutating the returned snapshot leaked into the store")
	}
}

func TestRecordStatusUpdateSuppressesRepeats(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	working := taskengine.TaskStatus{State: taskengine.TaskStateWorking}

	ev, err := store.RecordStatusUpdate(ctx, "task-1", "ctx-1", working)
	if err != nil {
		t.Fatalf("RecordStatusUpdate failed: %v", err)
	}
	if ev == nil {
		t.Fatal("Expected an event for the first transition")
	}

	ev, err = store.RecordStatusUpdate(ctx, "task-1", "ctx-1", working)
	if err != nil {
		t.Fatalf("RecordStatusUpdate failed: %v", err)
	}
	if ev != nil {
		t.Error("Expected a repeated identical status to be suppressed")
	}

	completed := taskengine.TaskStatus{State: taskengine.TaskStateCompleted}
	ev, err = store.RecordStatusUpdate(ctx, "task-1", "ctx-1", completed)
	if err != nil {
		t.Fatalf("RecordStatusUpdate failed: %v", err)
	}
	if ev == nil {
		t.Fatal("Expected an event for a changed status")
	}

	updates, err := store.DrainUpdates(ctx, "task-1")
	if err != nil {
		t.Fatalf("DrainUpdates failed: %v", err)
	}
	if len(updates) != 2 {
		t.Errorf("Expected 2 queued updates, got %d", len(updates))
	}
}

func TestRecordStatusUpdateCreatesTask(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if _, err := store.RecordStatusUpdate(ctx, "task-1", "ctx-1", taskengine.TaskStatus{State: taskengine.TaskStateSubmitted}); err != nil {
		t.Fatalf("RecordStatusUpdate failed: %v", err)
	}

	got, err := store.Get(ctx, "task-1", nil)
	if err != nil {
		t.Fatalf("Expected the status update to create the task: %v", err)
	}
	if got.ContextID != "ctx-1" {
		t.Errorf("Expected context ctx-1, got %q", got.ContextID)
	}
	if got.Status == nil || got.Status.State != taskengine.TaskStateSubmitted {
		t.Error("Expected the task status to reflect the update")
	}
}

func TestRecordArtifactUpdateAlwaysEmits(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	artifact := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "x"}}}
	for i := 0; i < 2; i++ {
		ev, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", artifact, false, false)
		if err != nil {
			t.Fatalf("RecordArtifactUpdate failed: %v", err)
		}
		if ev == nil {
			t.Fatal("Expected every artifact chunk to produce an event")
		}
	}
}

func TestArtifactMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("append extends by id", func(t *testing.T) {
		store := NewInMemoryStore()
		first := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "one"}}}
		second := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "two"}}}

		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", first, false, false); err != nil {
			t.Fatal(err)
		}
		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", second, true, true); err != nil {
			t.Fatal(err)
		}

		got, err := store.Get(ctx, "task-1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Artifacts) != 1 {
			t.Fatalf("Expected 1 merged artifact, got %d", len(got.Artifacts))
		}
		if len(got.Artifacts[0].Parts) != 2 {
			t.Errorf("Expected 2 parts after append, got %d", len(got.Artifacts[0].Parts))
		}
	})

	t.Run("replace by id", func(t *testing.T) {
		store := NewInMemoryStore()
		first := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "one"}}}
		second := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "replacement"}}}

		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", first, false, false); err != nil {
			t.Fatal(err)
		}
		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", second, false, true); err != nil {
			t.Fatal(err)
		}

		got, err := store.Get(ctx, "task-1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Artifacts) != 1 {
			t.Fatalf("Expected 1 artifact, got %d", len(got.Artifacts))
		}
		if got.Artifacts[0].Parts[0].Text != "replacement" {
			t.Errorf("Expected replacement, got %q", got.Artifacts[0].Parts[0].Text)
		}
	})

	t.Run("positional append without id", func(t *testing.T) {
		store := NewInMemoryStore()
		first := taskengine.Artifact{Parts: []taskengine.Part{{Text: "one"}}}
		second := taskengine.Artifact{Parts: []taskengine.Part{{Text: "two"}}}

		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", first, false, false); err != nil {
			t.Fatal(err)
		}
		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", second, true, true); err != nil {
			t.Fatal(err)
		}

		got, err := store.Get(ctx, "task-1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Artifacts) != 1 {
			t.Fatalf("Expected positional append onto the last artifact, got %d artifacts", len(got.Artifacts))
		}
		if len(got.Artifacts[0].Parts) != 2 {
			t.Errorf("Expected 2 parts, got %d", len(got.Artifacts[0].Parts))
		}
	})

	t.Run("new artifact without append", func(t *testing.T) {
		store := NewInMemoryStore()
		first := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "one"}}}
		second := taskengine.Artifact{ArtifactID: "a2", Parts: []taskengine.Part{{Text: "two"}}}

		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", first, false, false); err != nil {
			t.Fatal(err)
		}
		if _, err := store.RecordArtifactUpdate(ctx, "task-1", "ctx-1", second, false, true); err != nil {
			t.Fatal(err)
		}

		got, err := store.Get(ctx, "task-1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Artifacts) != 2 {
			t.Errorf("Expected 2 artifacts, got %d", len(got.Artifacts))
		}
	})
}

func TestOrphanArtifactAdoption(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	orphan := taskengine.Artifact{ArtifactID: "a1", Parts: []taskengine.Part{{Text: "early"}}}
	ev, err := store.RecordArtifactUpdate(ctx, "", "ctx-1", orphan, false, false)
	if err != nil {
		t.Fatalf("RecordArtifactUpdate failed: %v", err)
	}
	if ev == nil {
		t.Fatal("Expected an event even for an orphan chunk")
	}
	if ev.TaskID() != "" {
		t.Errorf("Expected an empty task id on the orphan event, got %q", ev.TaskID())
	}

	if _, err := store.Upsert(ctx, &taskengine.Task{ID: "task-1", ContextID: "ctx-1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "task-1", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].ArtifactID != "a1" {
		t.Fatalf("Expected the orphan artifact to be adopted, got %+v", got.Artifacts)
	}

	// A second task in the same context must not adopt the chunk again.
	if _, err := store.Upsert(ctx, &taskengine.Task{ID: "task-2", ContextID: "ctx-1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Get(ctx, "task-2", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(second.Artifacts) != 0 {
		t.Error("Expected the orphan buffer to be consumed on first adoption")
	}
}

func TestInsertMessage(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if _, err := store.Upsert(ctx, &taskengine.Task{ID: "task-1", ContextID: "ctx-1"}); err != nil {
		t.Fatal(err)
	}

	attached := &taskengine.Message{
		MessageID: "m1",
		Role:      taskengine.RoleAgent,
		Parts:     []taskengine.Part{{Text: "reply"}},
		TaskID:    "task-1",
	}
	if err := store.InsertMessage(ctx, attached); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	got, err := store.Get(ctx, "task-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 1 || got.History[0].MessageID != "m1" {
		t.Fatalf("Expected the message in task history, got %+v", got.History)
	}

	floating := &taskengine.Message{
		MessageID: "m2",
		Role:      taskengine.RoleAgent,
		Parts:     []taskengine.Part{{Text: "aside"}},
		ContextID: "ctx-9",
	}
	if err := store.InsertMessage(ctx, floating); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if history := store.ContextHistory("ctx-9"); len(history) != 1 || history[0].MessageID != "m2" {
		t.Fatalf("Expected the taskless message in the context log, got %+v", history)
	}
}

func TestGetHistoryTruncation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	task := &taskengine.Task{ID: "task-1", ContextID: "ctx-1"}
	for _, id := range []string{"m1", "m2", "m3"} {
		task.History = append(task.History, taskengine.Message{
			MessageID: id,
			Role:      taskengine.RoleUser,
			Parts:     []taskengine.Part{{Text: id}},
		})
	}
	if _, err := store.Upsert(ctx, task); err != nil {
		t.Fatal(err)
	}

	limit := 2
	got, err := store.Get(ctx, "task-1", &limit)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(got.History))
	}
	if got.History[0].MessageID != "m2" || got.History[1].MessageID != "m3" {
		t.Error("Expected the most recent messages to be kept")
	}

	zero := 0
	got, err = store.Get(ctx, "task-1", &zero)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 0 {
		t.Errorf("Expected empty history for a zero limit, got %d", len(got.History))
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), "missing", nil)
	if !IsNotFound(err) {
		t.Errorf("Expected a NotFoundError, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i, spec := range []struct {
		id, contextID string
		state         taskengine.TaskState
	}{
		{"task-1", "ctx-a", taskengine.TaskStateWorking},
		{"task-2", "ctx-a", taskengine.TaskStateCompleted},
		{"task-3", "ctx-b", taskengine.TaskStateCompleted},
	} {
		task := &taskengine.Task{
			ID:        spec.id,
			ContextID: spec.contextID,
			Status:    &taskengine.TaskStatus{State: spec.state},
			Artifacts: []taskengine.Artifact{{ArtifactID: "a"}},
		}
		if _, err := store.Upsert(ctx, task); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}

	t.Run("filter by context", func(t *testing.T) {
		resp, err := store.List(ctx, &taskengine.ListTasksRequest{ContextID: "ctx-a"})
		if err != nil {
			t.Fatal(err)
		}
		if resp.TotalSize != 2 || len(resp.Tasks) != 2 {
			t.Errorf("Expected 2 tasks in ctx-a, got total=%d len=%d", resp.TotalSize, len(resp.Tasks))
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		resp, err := store.List(ctx, &taskengine.ListTasksRequest{Status: taskengine.TaskStateCompleted})
		if err != nil {
			t.Fatal(err)
		}
		if resp.TotalSize != 2 {
			t.Errorf("Expected 2 completed tasks, got %d", resp.TotalSize)
		}
	})

	t.Run("artifacts stripped by default", func(t *testing.T) {
		resp, err := store.List(ctx, &taskengine.ListTasksRequest{})
		if err != nil {
			t.Fatal(err)
		}
		for _, task := range resp.Tasks {
			if len(task.Artifacts) != 0 {
				t.Error("Expected artifacts to be omitted unless requested")
			}
		}

		resp, err = store.List(ctx, &taskengine.ListTasksRequest{IncludeArtifacts: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Tasks[0].Artifacts) != 1 {
			t.Error("Expected artifacts when includeArtifacts is set")
		}
	})

	t.Run("pagination", func(t *testing.T) {
		resp, err := store.List(ctx, &taskengine.ListTasksRequest{PageSize: intPtr(2)})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Tasks) != 2 {
			t.Fatalf("Expected the first page to hold 2 tasks, got %d", len(resp.Tasks))
		}
		if resp.NextPageToken == "" {
			t.Fatal("Expected a next page token")
		}

		resp, err = store.List(ctx, &taskengine.ListTasksRequest{PageSize: intPtr(2), PageToken: resp.NextPageToken})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Tasks) != 1 {
			t.Errorf("Expected the last page to hold 1 task, got %d", len(resp.Tasks))
		}
		if resp.NextPageToken != "" {
			t.Error("Expected no token past the last page")
		}
		if resp.Tasks[0].ID != "task-3" {
			t.Errorf("Expected insertion order to be stable, got %s", resp.Tasks[0].ID)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if _, err := store.Cancel(ctx, "missing"); !IsNotFound(err) {
		t.Error("Expected cancel of an unknown task to fail")
	}

	if _, err := store.Upsert(ctx, &taskengine.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    &taskengine.TaskStatus{State: taskengine.TaskStateWorking},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Cancel(ctx, "task-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got.Status.State != taskengine.TaskStateCanceled {
		t.Errorf("Expected canceled state, got %s", got.Status.State)
	}
}

func TestDrainUpdatesEmptiesQueue(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if _, err := store.RecordStatusUpdate(ctx, "task-1", "ctx-1", taskengine.TaskStatus{State: taskengine.TaskStateWorking}); err != nil {
		t.Fatal(err)
	}

	first, err := store.DrainUpdates(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(first))
	}
	if _, ok := first[0].(*event.StatusEvent); !ok {
		t.Errorf("Expected a StatusEvent, got %T", first[0])
	}

	second, err := store.DrainUpdates(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Error("Expected the queue to be empty after draining")
	}
}

func TestListNilRequest(t *testing.T) {
	store := NewInMemoryStore()
	resp, err := store.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if diff := cmp.Diff(&taskengine.ListTasksResponse{PageSize: DefaultPageSize}, resp, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Unexpected response (-want +got):\n%s", diff)
	}
}
