package task

import "github.com/google/uuid"

// Task is a unit of asynchronous work tracked through queued -> in_progress -> completed.
// Only State and ResultFile change after creation.
type Task struct {
	GlobalTaskID string  `json:"global_task_id"`
	UserUUID     string  `json:"user_uuid"`
	TaskType     string  `json:"task_type"`
	SourceFile   string  `json:"source_file"`
	ResultFile   *string `json:"result_file,omitempty"`
	State        State   `json:"state"`
}

// New returns a queued task with a fresh random identifier and no result.
func New(userUUID, taskType, sourceFile string) *Task {
	return &Task{
		GlobalTaskID: uuid.NewString(),
		UserUUID:     userUUID,
		TaskType:     taskType,
		SourceFile:   sourceFile,
		State:        StateQueued,
	}
}

func (t *Task) GlobalID() string {
	return t.GlobalTaskID
}

func (t *Task) CanTransitionTo(requested State) bool {
	return CanTransitionState(t.State, requested)
}

func (t *Task) Clone() *Task {
	c := *t
	if t.ResultFile != nil {
		rf := *t.ResultFile
		c.ResultFile = &rf
	}
	return &c
}
