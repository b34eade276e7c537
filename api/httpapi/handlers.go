package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dedezza1D/tasklife/internal/lifecycle"
	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string, details string) {
	writeJSON(w, status, apiError{Error: msg, Details: details})
}

func (s *Server) writeLifecycleErr(w http.ResponseWriter, r *http.Request, err error) {
	resp := responseFor(err)
	if resp.status >= http.StatusInternalServerError {
		s.logger.Error("unmapped lifecycle error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeErr(w, resp.status, resp.code, err.Error())
}

// taskID reads the path id; malformed ids are a bad request rather than a lookup.
func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["global_task_id"]
	if _, err := uuid.Parse(id); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_task_request", "invalid task id")
		return "", false
	}
	return id, true
}

type taskIdentifier struct {
	GlobalTaskID string `json:"global_task_id"`
}

type submitTaskRequest struct {
	UserUUID   string `json:"user_uuid"`
	TaskType   string `json:"task_type"`
	SourceFile string `json:"source_file"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_task_request", err.Error())
		return
	}

	t, err := s.tasks.Submit(r.Context(), lifecycle.SubmitParams{
		UserUUID:   req.UserUUID,
		TaskType:   req.TaskType,
		SourceFile: req.SourceFile,
	})
	if err != nil {
		s.writeLifecycleErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, taskIdentifier{GlobalTaskID: t.GlobalID()})
}

type getTaskResponse struct {
	Task task.Task `json:"task"`
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	t, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeLifecycleErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getTaskResponse{Task: *t})
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	t, err := s.tasks.Start(r.Context(), id)
	if err != nil {
		s.writeLifecycleErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, taskIdentifier{GlobalTaskID: t.GlobalID()})
}

type completeTaskRequest struct {
	ResultFile string `json:"result_file"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req completeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_task_request", err.Error())
		return
	}

	t, err := s.tasks.Complete(r.Context(), id, req.ResultFile)
	if err != nil {
		s.writeLifecycleErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, taskIdentifier{GlobalTaskID: t.GlobalID()})
}
