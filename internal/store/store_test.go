package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

func TestNewNATSKV_NilConn(t *testing.T) {
	if _, err := NewNATSKV(context.Background(), nil, "tasks"); err == nil {
		t.Fatalf("expected error for nil connection")
	}
}

func TestSQLite_RejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, "file:corrupt_state?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	tk := task.New("u1", "render", "s3://in.mp4")
	if err := s.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET state = 'paused' WHERE global_task_id = ?`, tk.GlobalID()); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	if _, _, err := s.GetTask(ctx, tk.GlobalID()); err == nil {
		t.Fatalf("expected error decoding unknown state")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "dynamo"}, zap.NewNop())
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestOpen_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	cases := []Config{
		{Backend: ""},
		{Backend: BackendMemory},
		{Backend: BackendSQLite, SQLitePath: "file:open_backends?mode=memory&cache=shared"},
		{Backend: BackendRedis, RedisAddr: mr.Addr()},
	}
	for _, cfg := range cases {
		t.Run("backend="+cfg.Backend, func(t *testing.T) {
			b, err := Open(context.Background(), cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer b.Close()

			tk := task.New("u1", "render", "s3://in.mp4")
			if err := b.PutTask(context.Background(), tk); err != nil {
				t.Fatalf("PutTask: %v", err)
			}
			if _, found, err := b.GetTask(context.Background(), tk.GlobalID()); err != nil || !found {
				t.Fatalf("GetTask found=%v err=%v", found, err)
			}
		})
	}
}

func TestInstrument_PassesThroughErrors(t *testing.T) {
	b := Instrument(NewMemory(), BackendMemory, nil)

	err := b.PutTaskIfState(context.Background(), task.New("u", "t", "s"), task.StateQueued)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound through decorator, got %v", err)
	}

	inner, ok := b.(interface{ Unwrap() Backend })
	if !ok {
		t.Fatalf("instrumented backend should expose Unwrap")
	}
	if _, ok := inner.Unwrap().(*Memory); !ok {
		t.Fatalf("expected *Memory underneath, got %T", inner.Unwrap())
	}
}

func TestIsWrongRevision(t *testing.T) {
	if !isWrongRevision(jetstream.ErrKeyExists) {
		t.Fatalf("ErrKeyExists must count as a revision mismatch")
	}
	wrapped := fmt.Errorf("publish: %w", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamWrongLastSequence, Code: 400})
	if !isWrongRevision(wrapped) {
		t.Fatalf("wrong-last-sequence API error must count as a revision mismatch")
	}
	if isWrongRevision(errors.New("timeout")) {
		t.Fatalf("unrelated errors are not revision mismatches")
	}
}
