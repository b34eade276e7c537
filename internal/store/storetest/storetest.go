// Package storetest holds the behaviour every store.Backend must show.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/dedezza1D/tasklife/internal/store"
	"github.com/dedezza1D/tasklife/internal/task"
)

// Run exercises b. The backend must start empty of the ids the suite creates;
// fresh random ids make that hold for shared servers too.
func Run(t *testing.T, b store.Backend) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, b) })
	t.Run("PutThenGet", func(t *testing.T) { testPutThenGet(t, b) })
	t.Run("PutOverwrites", func(t *testing.T) { testPutOverwrites(t, b) })
	t.Run("ConditionalPut", func(t *testing.T) { testConditionalPut(t, b) })
	t.Run("ConditionalPutMissing", func(t *testing.T) { testConditionalPutMissing(t, b) })
	t.Run("ConditionalPutRace", func(t *testing.T) { testConditionalPutRace(t, b) })
}

func testGetMissing(t *testing.T, b store.Backend) {
	got, found, err := b.GetTask(context.Background(), task.New("u", "t", "s").GlobalID())
	if err != nil {
		t.Fatalf("GetTask on unknown id: %v", err)
	}
	if found || got != nil {
		t.Fatalf("expected absence, got found=%v task=%+v", found, got)
	}
}

func testPutThenGet(t *testing.T, b store.Backend) {
	ctx := context.Background()
	want := task.New("u1", "render", "s3://in.mp4")

	if err := b.PutTask(ctx, want); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	got, found, err := b.GetTask(ctx, want.GlobalID())
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !found {
		t.Fatalf("expected task %s to be found", want.GlobalID())
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\n got %+v", want, got)
	}
}

func testPutOverwrites(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tk := task.New("u1", "render", "s3://in.mp4")
	if err := b.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	out := "s3://out.mp4"
	updated := tk.Clone()
	updated.State = task.StateCompleted
	updated.ResultFile = &out
	if err := b.PutTask(ctx, updated); err != nil {
		t.Fatalf("PutTask overwrite: %v", err)
	}

	got, _, err := b.GetTask(ctx, tk.GlobalID())
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !reflect.DeepEqual(updated, got) {
		t.Fatalf("overwrite mismatch:\nwant %+v\n got %+v", updated, got)
	}

	// overwrite back to no result clears it
	if err := b.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask reset: %v", err)
	}
	got, _, _ = b.GetTask(ctx, tk.GlobalID())
	if got.ResultFile != nil || got.State != task.StateQueued {
		t.Fatalf("expected full replacement, got %+v", got)
	}
}

func testConditionalPut(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tk := task.New("u1", "render", "s3://in.mp4")
	if err := b.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	started := tk.Clone()
	started.State = task.StateInProgress
	if err := b.PutTaskIfState(ctx, started, task.StateQueued); err != nil {
		t.Fatalf("PutTaskIfState: %v", err)
	}

	// replaying the same expectation must fail now that the state moved
	err := b.PutTaskIfState(ctx, started, task.StateQueued)
	if !errors.Is(err, store.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}

	got, _, err := b.GetTask(ctx, tk.GlobalID())
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.State != task.StateInProgress {
		t.Fatalf("expected state %q got %q", task.StateInProgress, got.State)
	}
}

func testConditionalPutMissing(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tk := task.New("u1", "render", "s3://in.mp4")

	err := b.PutTaskIfState(ctx, tk, task.StateQueued)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, found, _ := b.GetTask(ctx, tk.GlobalID()); found {
		t.Fatalf("conditional put must not create records")
	}
}

func testConditionalPutRace(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tk := task.New("u1", "render", "s3://in.mp4")
	if err := b.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started := tk.Clone()
			started.State = task.StateInProgress
			err := b.PutTaskIfState(ctx, started, task.StateQueued)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, store.ErrStateConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winning conditional write, got %d", wins)
	}
}
