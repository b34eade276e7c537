package task

import (
	"encoding/json"
	"testing"
)

var allStates = []State{StateQueued, StateInProgress, StateCompleted}

func TestCanTransitionState(t *testing.T) {
	allowed := map[[2]State]bool{
		{StateQueued, StateInProgress}:    true,
		{StateInProgress, StateCompleted}: true,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := allowed[[2]State{from, to}]
			if got := CanTransitionState(from, to); got != want {
				t.Fatalf("CanTransitionState(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionState_UnknownStates(t *testing.T) {
	if CanTransitionState("", StateInProgress) {
		t.Fatalf("empty current state must not transition")
	}
	if CanTransitionState(StateQueued, "paused") {
		t.Fatalf("unknown requested state must not be reachable")
	}
}

func TestNew(t *testing.T) {
	tk := New("u1", "render", "s3://in.mp4")

	if tk.State != StateQueued {
		t.Fatalf("expected state %q got %q", StateQueued, tk.State)
	}
	if tk.ResultFile != nil {
		t.Fatalf("expected no result file, got %q", *tk.ResultFile)
	}
	if tk.UserUUID != "u1" || tk.TaskType != "render" || tk.SourceFile != "s3://in.mp4" {
		t.Fatalf("unexpected fields: %+v", tk)
	}
	if tk.GlobalID() == "" || tk.GlobalID() != tk.GlobalTaskID {
		t.Fatalf("unexpected global id %q", tk.GlobalID())
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New("u", "t", "s").GlobalID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s after %d tasks", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestClone_DoesNotAliasResult(t *testing.T) {
	out := "s3://out.mp4"
	tk := New("u1", "render", "s3://in.mp4")
	tk.ResultFile = &out

	c := tk.Clone()
	*c.ResultFile = "changed"

	if *tk.ResultFile != "s3://out.mp4" {
		t.Fatalf("clone aliased result file: %q", *tk.ResultFile)
	}
}

func TestTaskJSON(t *testing.T) {
	out := "s3://out.mp4"
	tk := &Task{
		GlobalTaskID: "id-1",
		UserUUID:     "u1",
		TaskType:     "render",
		SourceFile:   "s3://in.mp4",
		ResultFile:   &out,
		State:        StateCompleted,
	}

	b, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"global_task_id":"id-1","user_uuid":"u1","task_type":"render","source_file":"s3://in.mp4","result_file":"s3://out.mp4","state":"completed"}`
	if string(b) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", b, want)
	}

	queued, _ := json.Marshal(New("u1", "render", "s3://in.mp4"))
	var m map[string]any
	if err := json.Unmarshal(queued, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["result_file"]; ok {
		t.Fatalf("result_file must be omitted while unset: %s", queued)
	}
}

func TestStateUnmarshal_RejectsUnknown(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"global_task_id":"x","state":"paused"}`), &tk)
	if err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestParseState(t *testing.T) {
	for _, s := range allStates {
		got, err := ParseState(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseState(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseState("Queued"); err == nil {
		t.Fatalf("state names are case sensitive")
	}
}
