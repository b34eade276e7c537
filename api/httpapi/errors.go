package httpapi

import (
	"net/http"

	"github.com/dedezza1D/tasklife/internal/lifecycle"
)

type errorResponse struct {
	status int
	code   string
}

// errorTable is the only place lifecycle kinds become HTTP statuses.
var errorTable = map[lifecycle.Kind]errorResponse{
	lifecycle.KindNotFound:          {http.StatusNotFound, "task_not_found"},
	lifecycle.KindInvalidTransition: {http.StatusConflict, "task_update_rejected"},
	lifecycle.KindPersistence:       {http.StatusFailedDependency, "task_update_failure"},
	lifecycle.KindCreation:          {http.StatusFailedDependency, "task_creation_failure"},
	lifecycle.KindBadRequest:        {http.StatusBadRequest, "bad_task_request"},
}

var internalError = errorResponse{http.StatusInternalServerError, "internal_error"}

func responseFor(err error) errorResponse {
	if r, ok := errorTable[lifecycle.KindOf(err)]; ok {
		return r
	}
	return internalError
}
