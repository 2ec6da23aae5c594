package action

import (
	"sync"
	"testing"
	"time"
)

type orderedAction struct {
	Base
	out   *[]int
	mu    *sync.Mutex
	id    int
	async bool
}

func (a *orderedAction) Execute(Args) {
	a.mu.Lock()
	*a.out = append(*a.out, a.id)
	a.mu.Unlock()
}
func (a *orderedAction) Async() bool     { return a.async }
func (a *orderedAction) Mergeable() bool { return false }

func TestExecutorSharedLanePreservesSubmissionOrder(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	var mu sync.Mutex
	var out []int
	for i := 0; i < 20; i++ {
		e.Execute(&orderedAction{out: &out, mu: &mu, id: i, async: true}, LaneAuto, Args{})
	}
	e.WaitForDone()

	if len(out) != 20 {
		t.Fatalf("got %d completions, want 20", len(out))
	}
	for i, v := range out {
		if v != i {
			t.Fatalf("shared lane executed out of submission order: %v", out)
		}
	}
}

func TestExecutorLaneCurrentRunsInline(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	var mu sync.Mutex
	var out []int
	e.Execute(&orderedAction{out: &out, mu: &mu, id: 1}, LaneCurrent, Args{})

	if len(out) != 1 || out[0] != 1 {
		t.Error("LaneCurrent must execute synchronously before Execute returns")
	}
}

func TestExecutorLaneOwnRunsConcurrently(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	started := make(chan struct{})
	blocker := &blockingAction{started: started, release: make(chan struct{})}
	e.Execute(blocker, LaneOwn, Args{})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("LaneOwn action never started")
	}
	close(blocker.release)
	e.WaitForDone()
}

type blockingAction struct {
	Base
	started chan struct{}
	release chan struct{}
}

func (a *blockingAction) Execute(Args) {
	close(a.started)
	<-a.release
}
func (a *blockingAction) Async() bool     { return true }
func (a *blockingAction) Mergeable() bool { return false }

func TestExecutorClearQueueDropsUnstartedWork(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	// Occupy the shared worker so subsequent submissions queue behind it.
	hold := make(chan struct{})
	e.Execute(&holdingAction{release: hold}, LaneAuto, Args{})

	var mu sync.Mutex
	var out []int
	e.Execute(&orderedAction{out: &out, mu: &mu, id: 1, async: true}, LaneAuto, Args{})
	e.ClearQueue()
	close(hold)
	e.WaitForDone()

	mu.Lock()
	defer mu.Unlock()
	if len(out) != 0 {
		t.Errorf("ClearQueue should have dropped the queued job, ran %v", out)
	}
}

type holdingAction struct {
	Base
	release chan struct{}
}

func (a *holdingAction) Execute(Args) { <-a.release }
func (a *holdingAction) Async() bool  { return true }
func (a *holdingAction) Mergeable() bool { return false }

// mergeRecordingAction is a Mergeable action that records the Args of every
// Execute call it actually runs.
type mergeRecordingAction struct {
	Base
	mu   sync.Mutex
	runs []Args
}

func (a *mergeRecordingAction) Execute(args Args) {
	a.mu.Lock()
	a.runs = append(a.runs, args)
	a.mu.Unlock()
}
func (a *mergeRecordingAction) Async() bool     { return true }
func (a *mergeRecordingAction) Mergeable() bool { return true }

func TestExecutorMergesBurstIntoOneRunWithSummedDelta(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	// Occupy the shared worker first, the same way
	// TestExecutorClearQueueDropsUnstartedWork does, so the burst below is
	// guaranteed to still be queued (not yet dequeued) when it merges:
	// without this, whether the worker goroutine has already dequeued a's
	// first run by the time the second/third Execute calls happen is a
	// race, not a guarantee.
	hold := make(chan struct{})
	e.Execute(&holdingAction{release: hold}, LaneAuto, Args{})

	a := &mergeRecordingAction{}
	e.Execute(a, LaneAuto, Args{DeltaX: 1, DeltaY: 1})
	e.Execute(a, LaneAuto, Args{DeltaX: 2, DeltaY: 3})
	e.Execute(a, LaneAuto, Args{DeltaX: 4, DeltaY: 5})
	close(hold)
	e.WaitForDone()

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.runs) != 1 {
		t.Fatalf("expected exactly one merged run, got %d: %+v", len(a.runs), a.runs)
	}
	got := a.runs[0]
	if got.Executions != 3 {
		t.Errorf("expected Executions=3, got %d", got.Executions)
	}
	if got.DeltaX != 7 || got.DeltaY != 9 {
		t.Errorf("expected summed delta (7,9), got (%v,%v)", got.DeltaX, got.DeltaY)
	}
}

func TestExecutorMergeStateClearsAfterRunSoLaterBurstsFoldSeparately(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	a := &mergeRecordingAction{}
	e.Execute(a, LaneCurrent, Args{DeltaX: 1})
	e.Execute(a, LaneCurrent, Args{DeltaX: 1})

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.runs) != 2 {
		t.Fatalf("expected two separate runs once each prior merge has drained, got %d: %+v", len(a.runs), a.runs)
	}
}
