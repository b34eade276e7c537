package store

import (
	"encoding/json"
	"fmt"

	"github.com/dedezza1D/tasklife/internal/task"
)

// Key-value backends store the task as its JSON interchange shape.

func encodeTask(t *task.Task) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", t.GlobalTaskID, err)
	}
	return b, nil
}

func decodeTask(b []byte) (*task.Task, error) {
	var t task.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
