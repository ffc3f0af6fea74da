package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/internal/workflow"
)

type stubCheckpoint struct {
	events []string
}

func (s *stubCheckpoint) SaveTaskStart(_ context.Context, run *state.RunState, index int) error {
	s.events = append(s.events, fmt.Sprintf("task_start:%d:%d", index, len(run.TaskOutput)))
	return nil
}

func (s *stubCheckpoint) SaveTaskFailure(_ context.Context, run *state.RunState, index int, _ error) error {
	s.events = append(s.events, fmt.Sprintf("task_failure:%d:%t", index, run.LoadRecovery))
	return nil
}

func (s *stubCheckpoint) Finish(_ context.Context, run *state.RunState) error {
	s.events = append(s.events, fmt.Sprintf("finish:%d", len(run.TaskOutput)))
	return nil
}

var _ CheckpointManager = (*stubCheckpoint)(nil)

// stubHandler echoes its background prefixed by its type and records the
// sub-state it was given.
type stubHandler struct {
	typ    state.TaskType
	err    error
	states []*state.CreateState
}

func (h *stubHandler) Type() state.TaskType { return h.typ }

func (h *stubHandler) NewState(task state.Task, background string) state.Stateful {
	q := task.Query
	if len(task.Queries) > 0 {
		q = strings.Join(task.Queries, ",")
	}
	return &state.CreateState{Query: q, Background: background, Control: state.Control{LoadRecovery: true, MaxRetry: 99}}
}

func (h *stubHandler) Run(_ context.Context, st state.Stateful) error {
	s := st.(*state.CreateState)
	h.states = append(h.states, s)
	if h.err != nil {
		return h.err
	}
	s.CreateOutput = fmt.Sprintf("%s(%s|%s)", h.typ, s.Query, s.Background)
	return nil
}

func (h *stubHandler) Summary(st state.Stateful) string { return st.(*state.CreateState).CreateOutput }

func newRegistry(handlers ...*stubHandler) *workflow.Registry {
	hs := make([]workflow.Handler, len(handlers))
	for i, h := range handlers {
		hs[i] = h
	}
	return workflow.NewRegistry(hs...)
}

func plan() []state.Task {
	return []state.Task{
		{Type: state.TaskSearch, Queries: []string{"a"}},
		{Type: state.TaskSearch, Queries: []string{"b"}},
		{Type: state.TaskCreate, Query: "c", Dependencies: []int{0, 1}},
	}
}

func TestExecuteJoinsDependencyOutputs(t *testing.T) {
	search := &stubHandler{typ: state.TaskSearch}
	create := &stubHandler{typ: state.TaskCreate}
	chk := &stubCheckpoint{}
	run := state.NewRunState("q", 5, "rec/T/task.json")
	run.Tasks = plan()

	ex := New(newRegistry(search, create), WithCheckpointManager(chk), WithGateAttempts(2))
	if err := ex.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"search(a|)", "search(b|)", "create(c|search(a|)\n\nsearch(b|))"}
	if fmt.Sprint(run.TaskOutput) != fmt.Sprint(want) {
		t.Fatalf("unexpected outputs: %q", run.TaskOutput)
	}
	expected := []string{"task_start:0:0", "task_start:1:1", "task_start:2:2", "finish:3"}
	if fmt.Sprint(chk.events) != fmt.Sprint(expected) {
		t.Fatalf("unexpected checkpoint events: %v", chk.events)
	}
	sub := create.states[0]
	if sub.LoadRecovery || sub.MaxRetry != 2 {
		t.Fatalf("sub-state control not reset: %+v", sub.Control)
	}
	if sub.RecoveryPath != filepath.Join("rec", "T", "create_2.json") {
		t.Fatalf("unexpected sub-state path %q", sub.RecoveryPath)
	}
}

func TestExecuteResumesAtFirstMissingOutput(t *testing.T) {
	search := &stubHandler{typ: state.TaskSearch}
	create := &stubHandler{typ: state.TaskCreate}
	run := state.NewRunState("q", 5, "")
	run.Tasks = plan()
	run.TaskOutput = []string{"earlier a", "earlier b"}
	run.LoadRecovery = true

	if err := New(newRegistry(search, create)).Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(search.states) != 0 {
		t.Fatalf("completed tasks ran again: %d", len(search.states))
	}
	if got := run.Output(); got != "create(c|earlier a\n\nearlier b)" {
		t.Fatalf("unexpected output %q", got)
	}
	if run.LoadRecovery {
		t.Fatalf("load_recovery should be cleared once execution resumes")
	}
}

func TestExecuteReturnsTaskError(t *testing.T) {
	boom := errors.New("boom")
	search := &stubHandler{typ: state.TaskSearch}
	create := &stubHandler{typ: state.TaskCreate, err: boom}
	chk := &stubCheckpoint{}
	var failures []error
	run := state.NewRunState("q", 5, "rec/T/task.json")
	run.Tasks = plan()

	ex := New(newRegistry(search, create), WithCheckpointManager(chk), WithMetrics(Metrics{
		Failure: func(_ context.Context, _ state.Task, err error) { failures = append(failures, err) },
	}))
	err := ex.Execute(context.Background(), run)

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if taskErr.Index != 2 || taskErr.Type != state.TaskCreate || !errors.Is(err, boom) {
		t.Fatalf("unexpected task error: %+v", taskErr)
	}
	if len(run.TaskOutput) != 2 || !run.LoadRecovery {
		t.Fatalf("run not marked for recovery: %+v", run)
	}
	if chk.events[len(chk.events)-1] != "task_failure:2:true" {
		t.Fatalf("expected failure checkpoint, got %v", chk.events)
	}
	if len(failures) != 1 {
		t.Fatalf("expected one failure metric, got %d", len(failures))
	}
}

func TestExecuteUnknownTaskType(t *testing.T) {
	run := state.NewRunState("q", 5, "")
	run.Tasks = []state.Task{{Type: state.TaskFormat}}

	err := New(newRegistry()).Execute(context.Background(), run)
	if !errors.Is(err, workflow.ErrUnknownTask) {
		t.Fatalf("expected unknown task error, got %v", err)
	}
}

func TestExecuteRecordsDuration(t *testing.T) {
	var seen []state.TaskType
	run := state.NewRunState("q", 5, "")
	run.Tasks = []state.Task{{Type: state.TaskCreate, Query: "c"}}

	ex := New(newRegistry(&stubHandler{typ: state.TaskCreate}), WithMetrics(Metrics{
		Duration: func(_ context.Context, task state.Task, _ time.Duration) { seen = append(seen, task.Type) },
	}))
	if err := ex.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(seen) != 1 || seen[0] != state.TaskCreate {
		t.Fatalf("unexpected duration callbacks: %v", seen)
	}
}

func TestBackground(t *testing.T) {
	run := &state.RunState{TaskOutput: []string{"zero", "one", "two"}}
	if got := Background(run, state.Task{Dependencies: []int{2, 0}}); got != "two\n\nzero" {
		t.Fatalf("unexpected background %q", got)
	}
	if got := Background(run, state.Task{}); got != "" {
		t.Fatalf("expected empty background, got %q", got)
	}
}

func TestStoreCheckpointManagerRemovesFinishedRun(t *testing.T) {
	root := t.TempDir()
	dir := checkpoint.RunDir(root, "Topic")
	run := state.NewRunState("q", 5, checkpoint.RunPath(dir))
	store := checkpoint.NewFileStore()
	mgr := NewStoreCheckpointManager(store, false)
	ctx := context.Background()

	if err := mgr.SaveTaskStart(ctx, run, 0); err != nil {
		t.Fatalf("SaveTaskStart: %v", err)
	}
	if _, err := os.Stat(run.RecoveryPath); err != nil {
		t.Fatalf("run checkpoint missing: %v", err)
	}
	if err := mgr.Finish(ctx, run); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("run directory should be removed, stat err=%v", err)
	}
}

func TestStoreCheckpointManagerKeepsFinalState(t *testing.T) {
	dir := checkpoint.RunDir(t.TempDir(), "Topic")
	run := state.NewRunState("q", 5, checkpoint.RunPath(dir))
	run.TaskOutput = []string{"report"}
	mgr := NewStoreCheckpointManager(checkpoint.NewFileStore(), true)

	if err := mgr.Finish(context.Background(), run); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	data, err := os.ReadFile(run.RecoveryPath)
	if err != nil {
		t.Fatalf("final checkpoint missing: %v", err)
	}
	var saved state.RunState
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if saved.Output() != "report" {
		t.Fatalf("unexpected saved output %q", saved.Output())
	}
}

func TestStoreCheckpointManagerRefusesForeignPath(t *testing.T) {
	run := state.NewRunState("q", 5, filepath.Join(t.TempDir(), "notes.json"))
	mgr := NewStoreCheckpointManager(checkpoint.NewFileStore(), false)
	if err := mgr.Finish(context.Background(), run); err == nil {
		t.Fatalf("expected removal outside a run checkpoint to fail")
	}
}
