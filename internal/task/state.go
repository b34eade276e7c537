package task

import "fmt"

type State string

const (
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// transitions lists the only legal moves. Completed is terminal.
var transitions = map[State]State{
	StateQueued:     StateInProgress,
	StateInProgress: StateCompleted,
}

// CanTransitionState reports whether a task in current may move to requested.
func CanTransitionState(current, requested State) bool {
	next, ok := transitions[current]
	return ok && next == requested
}

func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateQueued, StateInProgress, StateCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown task state %q", s)
	}
}

func (s State) String() string { return string(s) }

func (s State) MarshalText() ([]byte, error) {
	if _, err := ParseState(string(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
