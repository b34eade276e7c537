package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dedezza1D/tasklife/internal/lifecycle"
	"github.com/dedezza1D/tasklife/internal/store"
	"github.com/dedezza1D/tasklife/internal/task"
	"go.uber.org/zap"
)

type testAPI struct {
	baseURL string
	client  *http.Client
	store   *store.Memory
}

func startTestServer(t *testing.T, svc TaskService, mem *store.Memory) *testAPI {
	t.Helper()
	srv := NewServer(Config{Port: "0"}, zap.NewNop(), svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.httpServer.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testAPI{
		baseURL: fmt.Sprintf("http://%s/api/v1", ln.Addr().String()),
		client:  &http.Client{Timeout: 3 * time.Second},
		store:   mem,
	}
}

func newTestAPI(t *testing.T) *testAPI {
	mem := store.NewMemory()
	return startTestServer(t, lifecycle.NewService(mem, zap.NewNop(), lifecycle.Options{}), mem)
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, a.baseURL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func (a *testAPI) submit(t *testing.T) string {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/tasks",
		`{"user_uuid":"u1","task_type":"render","source_file":"s3://in.mp4"}`)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", status, body)
	}
	var created taskIdentifier
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.GlobalTaskID == "" {
		t.Fatalf("expected non-empty global_task_id")
	}
	return created.GlobalTaskID
}

func (a *testAPI) get(t *testing.T, id string) task.Task {
	t.Helper()
	status, body := a.do(t, http.MethodGet, "/tasks/"+id, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", status, body)
	}
	var got getTaskResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	return got.Task
}

func expectError(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected %d, got %d body=%s", wantStatus, status, body)
	}
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	if e.Error != wantCode {
		t.Fatalf("expected error code %q got %q", wantCode, e.Error)
	}
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do(t, http.MethodGet, "/health", "")
	if status != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", status, body)
	}
}

func TestTasksAPI_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	// ---- Submit ----
	id := api.submit(t)
	got := api.get(t, id)
	if got.GlobalTaskID != id || got.State != task.StateQueued || got.ResultFile != nil {
		t.Fatalf("unexpected submitted task %+v", got)
	}
	if got.UserUUID != "u1" || got.TaskType != "render" || got.SourceFile != "s3://in.mp4" {
		t.Fatalf("unexpected fields %+v", got)
	}

	// ---- Start ----
	status, body := api.do(t, http.MethodPut, "/tasks/"+id+"/start", "")
	if status != http.StatusOK {
		t.Fatalf("start: expected 200, got %d body=%s", status, body)
	}
	if got := api.get(t, id); got.State != task.StateInProgress {
		t.Fatalf("expected in_progress, got %q", got.State)
	}

	status, body = api.do(t, http.MethodPut, "/tasks/"+id+"/start", "")
	expectError(t, status, body, http.StatusConflict, "task_update_rejected")

	// ---- Complete ----
	status, body = api.do(t, http.MethodPut, "/tasks/"+id+"/complete", `{"result_file":"s3://out.mp4"}`)
	if status != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d body=%s", status, body)
	}
	var ident taskIdentifier
	if err := json.Unmarshal(body, &ident); err != nil || ident.GlobalTaskID != id {
		t.Fatalf("expected identifier %s in body, got %s (%v)", id, body, err)
	}

	got = api.get(t, id)
	if got.State != task.StateCompleted || got.ResultFile == nil || *got.ResultFile != "s3://out.mp4" {
		t.Fatalf("unexpected completed task %+v", got)
	}
}

func TestTasksAPI_CompleteQueuedRejected(t *testing.T) {
	api := newTestAPI(t)
	id := api.submit(t)

	status, body := api.do(t, http.MethodPut, "/tasks/"+id+"/complete", `{"result_file":"s3://out.mp4"}`)
	expectError(t, status, body, http.StatusConflict, "task_update_rejected")

	if got := api.get(t, id); got.State != task.StateQueued || got.ResultFile != nil {
		t.Fatalf("rejected completion changed record: %+v", got)
	}
}

func TestTasksAPI_NotFound(t *testing.T) {
	api := newTestAPI(t)
	missing := task.New("u", "t", "s").GlobalID()

	status, body := api.do(t, http.MethodGet, "/tasks/"+missing, "")
	expectError(t, status, body, http.StatusNotFound, "task_not_found")

	status, body = api.do(t, http.MethodPut, "/tasks/"+missing+"/start", "")
	expectError(t, status, body, http.StatusNotFound, "task_not_found")

	status, body = api.do(t, http.MethodPut, "/tasks/"+missing+"/complete", `{"result_file":"s3://out.mp4"}`)
	expectError(t, status, body, http.StatusNotFound, "task_not_found")

	if api.store.Len() != 0 {
		t.Fatalf("no record may be created, have %d", api.store.Len())
	}
}

func TestTasksAPI_BadRequests(t *testing.T) {
	api := newTestAPI(t)
	id := api.submit(t)

	cases := []struct {
		name, method, path, body string
	}{
		{"malformed json", http.MethodPost, "/tasks", `{"user_uuid":`},
		{"missing fields", http.MethodPost, "/tasks", `{"user_uuid":"u1"}`},
		{"malformed id", http.MethodGet, "/tasks/not-a-uuid", ""},
		{"complete without body", http.MethodPut, "/tasks/" + id + "/complete", ""},
		{"complete without result", http.MethodPut, "/tasks/" + id + "/complete", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := api.do(t, tc.method, tc.path, tc.body)
			expectError(t, status, body, http.StatusBadRequest, "bad_task_request")
		})
	}
}

type brokenService struct{ err error }

func (b brokenService) Submit(context.Context, lifecycle.SubmitParams) (*task.Task, error) {
	return nil, b.err
}
func (b brokenService) Get(context.Context, string) (*task.Task, error)   { return nil, b.err }
func (b brokenService) Start(context.Context, string) (*task.Task, error) { return nil, b.err }
func (b brokenService) Complete(context.Context, string, string) (*task.Task, error) {
	return nil, b.err
}

func TestTasksAPI_StoreFailures(t *testing.T) {
	id := task.New("u", "t", "s").GlobalID()

	api := startTestServer(t, brokenService{err: &lifecycle.Error{Kind: lifecycle.KindCreation, Err: errors.New("down")}}, nil)
	status, body := api.do(t, http.MethodPost, "/tasks", `{"user_uuid":"u1","task_type":"render","source_file":"s3://in.mp4"}`)
	expectError(t, status, body, http.StatusFailedDependency, "task_creation_failure")

	api = startTestServer(t, brokenService{err: &lifecycle.Error{Kind: lifecycle.KindPersistence, Err: errors.New("down")}}, nil)
	status, body = api.do(t, http.MethodPut, "/tasks/"+id+"/start", "")
	expectError(t, status, body, http.StatusFailedDependency, "task_update_failure")

	api = startTestServer(t, brokenService{err: errors.New("surprise")}, nil)
	status, body = api.do(t, http.MethodGet, "/tasks/"+id, "")
	expectError(t, status, body, http.StatusInternalServerError, "internal_error")
}

func TestErrorTable_CoversEveryKind(t *testing.T) {
	kinds := []lifecycle.Kind{
		lifecycle.KindNotFound,
		lifecycle.KindInvalidTransition,
		lifecycle.KindPersistence,
		lifecycle.KindCreation,
		lifecycle.KindBadRequest,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		r, ok := errorTable[k]
		if !ok {
			t.Fatalf("kind %s has no mapping", k)
		}
		if seen[r.code] {
			t.Fatalf("code %q used twice", r.code)
		}
		seen[r.code] = true
	}
}
