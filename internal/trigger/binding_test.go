package trigger

import (
	"testing"

	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/variable"
)

type countingAction struct {
	action.Base
	runs int
}

func (a *countingAction) Execute(action.Args) { a.runs++ }
func (a *countingAction) Async() bool         { return false }
func (a *countingAction) Mergeable() bool     { return false }

func newCtx() *condition.Context {
	return condition.NewContext(variable.NewStore(), nil)
}

func TestBindingOnBeginFiresOnceOnStart(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{On: OnBegin, Payload: payload}
	executor := action.NewExecutor()
	defer executor.Stop()

	b.Started(newCtx(), executor)
	if payload.runs != 1 {
		t.Errorf("OnBegin binding should fire exactly once on Started, ran %d times", payload.runs)
	}
}

func TestBindingOnUpdateFiresPerIntervalCrossing(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{On: OnUpdate, Interval: Interval{Value: 10}, Payload: payload}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Updated(ctx, executor, Delta{Unaccelerated: 25, Accelerated: 25}, 0, 0)

	if payload.runs != 2 {
		t.Errorf("accumulating 25 over an interval of 10 should fire twice, fired %d times", payload.runs)
	}
}

func TestBindingZeroIntervalFiresEveryMatchingEvent(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{On: OnUpdate, Payload: payload}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Updated(ctx, executor, Delta{Unaccelerated: 1, Accelerated: 1}, 0, 0)
	b.Updated(ctx, executor, Delta{Unaccelerated: 1, Accelerated: 1}, 0, 0)

	if payload.runs != 2 {
		t.Errorf("a zero interval should fire once per matching event, fired %d times", payload.runs)
	}
}

func TestBindingDirectionChangeResetsAccumulator(t *testing.T) {
	b := &Binding{On: OnUpdate, Interval: Interval{Value: 10}, Payload: &countingAction{}}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Updated(ctx, executor, Delta{Unaccelerated: 8, Accelerated: 8}, 0, 0)
	if b.AccumulatedDelta() != 8 {
		t.Fatalf("accumulated delta = %v, want 8", b.AccumulatedDelta())
	}
	b.Updated(ctx, executor, Delta{Unaccelerated: -3, Accelerated: -3}, 0, 0)
	if b.AccumulatedDelta() != -3 {
		t.Errorf("a sign-flipping update should restart the accumulator at the new delta alone, got %v", b.AccumulatedDelta())
	}
}

func TestBindingThresholdGatesExecution(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{
		On:        OnUpdate,
		Threshold: &geom.Range{Min: 50, Max: 1e9},
		Payload:   payload,
	}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Updated(ctx, executor, Delta{Unaccelerated: 10, Accelerated: 10}, 0, 0)
	if payload.runs != 0 {
		t.Error("a binding below its threshold should not execute")
	}

	b.Updated(ctx, executor, Delta{Unaccelerated: 60, Accelerated: 60}, 0, 0)
	if payload.runs != 1 {
		t.Errorf("once absolute accumulated delta clears the threshold, the binding should execute, ran %d times", payload.runs)
	}
}

func TestBindingResetClearsAccumulatorsAndExecutions(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{On: OnBegin, Payload: payload}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Started(ctx, executor)
	b.Reset()

	if b.AccumulatedDelta() != 0 || b.AbsoluteAccumulatedDelta() != 0 {
		t.Error("Reset should zero both accumulators")
	}
	if payload.Executions() != 0 {
		t.Error("Reset should zero the payload's execution count")
	}
}

func TestBindingOnTickOnlyFiresFromTick(t *testing.T) {
	payload := &countingAction{}
	b := &Binding{On: OnTick, Payload: payload}
	executor := action.NewExecutor()
	defer executor.Stop()
	ctx := newCtx()

	b.Updated(ctx, executor, Delta{Unaccelerated: 5, Accelerated: 5}, 0, 0)
	if payload.runs != 0 {
		t.Error("an OnTick binding must not fire from Updated, only from Tick")
	}

	b.Tick(ctx, executor, 5)
	if payload.runs != 1 {
		t.Errorf("Tick should drive an OnTick binding, fired %d times", payload.runs)
	}
}
