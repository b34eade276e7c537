package store

import (
	"context"
	"sync"

	"github.com/dedezza1D/tasklife/internal/task"
)

// Memory is a process-local Backend. Records are copied in and out.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*task.Task)}
}

func (m *Memory) GetTask(ctx context.Context, id string) (*task.Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

func (m *Memory) PutTask(ctx context.Context, t *task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[t.GlobalTaskID] = t.Clone()
	return nil
}

func (m *Memory) PutTaskIfState(ctx context.Context, t *task.Task, expected task.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.tasks[t.GlobalTaskID]
	if !ok {
		return ErrNotFound
	}
	if cur.State != expected {
		return ErrStateConflict
	}
	m.tasks[t.GlobalTaskID] = t.Clone()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

func (m *Memory) Close() error { return nil }
