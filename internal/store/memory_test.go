package store_test

import (
	"context"
	"testing"

	"github.com/dedezza1D/tasklife/internal/store"
	"github.com/dedezza1D/tasklife/internal/store/storetest"
	"github.com/dedezza1D/tasklife/internal/task"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	tk := task.New("u1", "render", "s3://in.mp4")
	if err := m.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	tk.State = task.StateCompleted
	got, _, _ := m.GetTask(ctx, tk.GlobalID())
	if got.State != task.StateQueued {
		t.Fatalf("stored record changed through caller pointer: %q", got.State)
	}

	got.State = task.StateInProgress
	again, _, _ := m.GetTask(ctx, tk.GlobalID())
	if again.State != task.StateQueued {
		t.Fatalf("stored record changed through returned pointer: %q", again.State)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := store.NewMemory()
	if _, _, err := m.GetTask(ctx, "x"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if err := m.PutTask(ctx, task.New("u", "t", "s")); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if m.Len() != 0 {
		t.Fatalf("expected no records, got %d", m.Len())
	}
}
