package trigger

import (
	"math"

	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/log"
)

var bindingLog = log.New("trigger.binding")

// Binding implements a TriggerAction: binds an action.Action to a
// lifecycle hook, with its own interval/threshold/accumulator state,
// modeled on TriggerAction::update.
type Binding struct {
	On          On
	Interval    Interval
	Accelerated bool
	Threshold   *geom.Range
	Conflicting bool

	Payload action.Action
	Lane    action.Lane

	accumulatedDelta         float64
	absoluteAccumulatedDelta float64
}

// Started fires a Begin binding exactly once, synchronously, when the
// trigger becomes Active. A Begin binding must not declare a
// threshold; that is enforced at config-load time, not here.
func (b *Binding) Started(ctx *condition.Context, executor *action.Executor) {
	b.Payload.Reset() // reset execution count in case it ran async on a previous end/cancel
	if b.On == OnBegin {
		b.tryExecute(ctx, executor, 1)
	}
}

// Updated applies one Update/Tick event's delta to the accumulator and
// fires as many times as the interval dictates.
// pointDX/pointDY is only meaningful for InputSequence payloads
// with MoveRelativeByDelta; it carries the accelerated-or-unaccelerated
// point delta, independent of the scalar interval accumulator below.
func (b *Binding) Updated(ctx *condition.Context, executor *action.Executor, delta Delta, pointDX, pointDY float64) {
	if b.On == OnTick {
		return
	}
	b.update(ctx, executor, delta, pointDX, pointDY)
}

// Tick applies a synthetic, time-based update to OnTick bindings only.
// No handler in this module calls it; the Circle coasting timer decays its
// own filter state without ticking bindings.
func (b *Binding) Tick(ctx *condition.Context, executor *action.Executor, delta float64) {
	if b.On == OnTick {
		b.update(ctx, executor, Delta{Accelerated: delta, Unaccelerated: delta}, 0, 0)
	}
}

func (b *Binding) update(ctx *condition.Context, executor *action.Executor, delta Delta, pointDX, pointDY float64) {
	unaccel := delta.Unaccelerated
	if unaccel != 0 && math.Signbit(b.accumulatedDelta) != math.Signbit(unaccel) {
		// Direction changed: restart the accumulator from this event alone.
		b.accumulatedDelta = delta.Pick(b.Accelerated)
		bindingLog.Debugf("direction changed (id: %s)", b.Payload.ID())
	} else {
		b.accumulatedDelta += delta.Pick(b.Accelerated)
		b.absoluteAccumulatedDelta += math.Abs(unaccel)
	}

	if b.On != OnUpdate && b.On != OnTick {
		return
	}

	interval := b.Interval.Value
	if interval == 0 {
		if b.Interval.Matches(unaccel) {
			b.tryExecuteWithDelta(ctx, executor, 1, pointDX, pointDY)
		}
		return
	}

	for b.Interval.Matches(b.accumulatedDelta) && math.Abs(b.accumulatedDelta/interval) >= 1 {
		b.tryExecuteWithDelta(ctx, executor, 1, pointDX, pointDY)
		if math.Signbit(b.accumulatedDelta) != math.Signbit(interval) {
			b.accumulatedDelta += interval
		} else {
			b.accumulatedDelta -= interval
		}
	}
}

// Ended fires End/EndCancel bindings on a normal terminal transition.
func (b *Binding) Ended(ctx *condition.Context, executor *action.Executor) {
	if b.On == OnEnd || b.On == OnEndCancel {
		b.tryExecute(ctx, executor, 1)
	}
	b.Reset()
}

// Cancelled fires Cancel/EndCancel bindings on an aborted gesture.
func (b *Binding) Cancelled(ctx *condition.Context, executor *action.Executor) {
	if b.On == OnCancel || b.On == OnEndCancel {
		b.tryExecute(ctx, executor, 1)
	}
	b.Reset()
}

func (b *Binding) tryExecute(ctx *condition.Context, executor *action.Executor, executions uint32) {
	b.tryExecuteWithDelta(ctx, executor, executions, 0, 0)
}

// contextSetter is implemented by action.Group, which needs the firing
// binding's condition context to gate its own members the same way the
// top-level payload is gated.
type contextSetter interface {
	SetContext(ctx *condition.Context)
}

func (b *Binding) tryExecuteWithDelta(ctx *condition.Context, executor *action.Executor, executions uint32, dx, dy float64) {
	if !b.CanExecute(ctx) {
		return
	}
	if cs, ok := b.Payload.(contextSetter); ok {
		cs.SetContext(ctx)
	}
	executor.Execute(b.Payload, b.Lane, action.Args{Executions: executions, DeltaX: dx, DeltaY: dy})
}

// CanExecute enforces the binding's threshold (on absolute accumulated
// progress) plus the payload's own condition/execution-limit.
func (b *Binding) CanExecute(ctx *condition.Context) bool {
	if b.Threshold != nil && !b.Threshold.Contains(b.absoluteAccumulatedDelta) {
		return false
	}
	return b.Payload.CanExecute(ctx)
}

// Reset clears per-gesture accumulator state; called on every activation
// and terminal transition.
func (b *Binding) Reset() {
	b.Payload.Reset()
	b.accumulatedDelta = 0
	b.absoluteAccumulatedDelta = 0
}

func (b *Binding) AbsoluteAccumulatedDelta() float64 { return b.absoluteAccumulatedDelta }
func (b *Binding) AccumulatedDelta() float64          { return b.accumulatedDelta }
