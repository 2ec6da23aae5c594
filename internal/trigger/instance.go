package trigger

import (
	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
)

// Instance is the runtime counterpart of a Config: the same immutable
// definition can only be Active once at a time.
type Instance struct {
	*Config

	state     State
	progress  bool // true once any action has actually executed, used for conflict resolution
	threshold float64
}

func NewInstance(cfg *Config) *Instance {
	return &Instance{Config: cfg, state: StateIdle}
}

func (t *Instance) State() State { return t.state }

// CanActivate reports whether this trigger's activation_condition holds.
func (t *Instance) CanActivate(ctx *condition.Context) bool {
	return t.state == StateIdle && t.ActivationCondition.Satisfied(ctx)
}

// Activate transitions Idle -> Active and fires Begin bindings.
func (t *Instance) Activate(ctx *condition.Context, executor *action.Executor) {
	t.state = StateActive
	t.progress = false
	t.threshold = 0
	for _, b := range t.Actions {
		b.Started(ctx, executor)
	}
}

// Update drives every Update/Tick binding for this trigger and records in
// t.progress whether any binding actually ran an action, for conflict
// resolution.
func (t *Instance) Update(ctx *condition.Context, executor *action.Executor, delta Delta, pointDX, pointDY float64) {
	if t.state != StateActive {
		return
	}
	for _, b := range t.Actions {
		before := b.Payload.Executions()
		b.Updated(ctx, executor, delta, pointDX, pointDY)
		if b.Payload.Executions() != before {
			t.progress = true
		}
	}
}

// CanEnd reports whether this trigger's end_condition holds; gates the
// stroke recognizer's best-match selection.
func (t *Instance) CanEnd(ctx *condition.Context) bool {
	return t.state == StateActive && t.EndCondition.Satisfied(ctx)
}

// End transitions Active -> Ended and fires End/EndCancel bindings.
func (t *Instance) End(ctx *condition.Context, executor *action.Executor) {
	if t.state != StateActive {
		return
	}
	t.state = StateEnded
	for _, b := range t.Actions {
		b.Ended(ctx, executor)
	}
	t.state = StateIdle
}

// Cancel transitions Active -> Cancelled and fires Cancel/EndCancel
// bindings.
func (t *Instance) Cancel(ctx *condition.Context, executor *action.Executor) {
	if t.state != StateActive {
		return
	}
	t.state = StateCancelled
	for _, b := range t.Actions {
		b.Cancelled(ctx, executor)
	}
	t.state = StateIdle
}

// HasProgress reports whether any binding has executed an action during
// this activation, used by the conflict-resolution rule.
func (t *Instance) HasProgress() bool { return t.progress }

// HasConflictingAction reports whether any binding opted into conflict
// resolution.
func (t *Instance) HasConflictingAction() bool {
	for _, b := range t.Actions {
		if b.Conflicting {
			return true
		}
	}
	return false
}
