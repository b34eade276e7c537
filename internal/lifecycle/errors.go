package lifecycle

import (
	"errors"
	"fmt"

	"github.com/dedezza1D/tasklife/internal/task"
)

// Kind classifies why a lifecycle operation did not complete.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidTransition
	KindPersistence
	KindCreation
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindPersistence:
		return "persistence_failure"
	case KindCreation:
		return "creation_failure"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrPersistence       = &Error{Kind: KindPersistence}
	ErrCreation          = &Error{Kind: KindCreation}
	ErrBadRequest        = &Error{Kind: KindBadRequest}
)

type Error struct {
	Kind   Kind
	TaskID string
	From   task.State
	To     task.State
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Kind == KindInvalidTransition && e.From != "":
		msg = fmt.Sprintf("%s %s -> %s", msg, e.From, e.To)
	case e.Msg != "":
		msg = msg + ": " + e.Msg
	}
	if e.TaskID != "" {
		msg = fmt.Sprintf("task %s: %s", e.TaskID, msg)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}
