package events

import (
	"context"
	"time"

	"github.com/dedezza1D/tasklife/internal/task"
)

type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindStarted   Kind = "started"
	KindCompleted Kind = "completed"
)

const SubjectPrefix = "tasks.events."

// Subject is the NATS subject an event of kind k is published on.
func Subject(k Kind) string { return SubjectPrefix + string(k) }

// KindFor returns the event emitted when a task enters s.
func KindFor(s task.State) Kind {
	switch s {
	case task.StateInProgress:
		return KindStarted
	case task.StateCompleted:
		return KindCompleted
	default:
		return KindSubmitted
	}
}

// Event describes a committed lifecycle change. It is a notification, not a work item.
type Event struct {
	Kind         Kind       `json:"kind"`
	GlobalTaskID string     `json:"global_task_id"`
	UserUUID     string     `json:"user_uuid"`
	TaskType     string     `json:"task_type"`
	State        task.State `json:"state"`
	ResultFile   *string    `json:"result_file,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

func FromTask(t *task.Task, at time.Time) Event {
	return Event{
		Kind:         KindFor(t.State),
		GlobalTaskID: t.GlobalTaskID,
		UserUUID:     t.UserUUID,
		TaskType:     t.TaskType,
		State:        t.State,
		ResultFile:   t.ResultFile,
		OccurredAt:   at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
