package handler

import (
	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/trigger"
)

// Base wires a trigger.Set into the cross-cutting contract 
// (activate/update/end/cancel/has/active/reset) so concrete handlers only
// need to implement HandleEvent's event-classification logic.
type Base struct {
	Triggers *trigger.Set
}

func NewBase(ctx *condition.Context, executor *action.Executor) Base {
	return Base{Triggers: trigger.NewSet(ctx, executor)}
}

func (b *Base) ActivateTriggers(types ...trigger.Type) trigger.Result {
	return b.Triggers.ActivateTriggers(types...)
}

func (b *Base) UpdateTriggers(events map[trigger.Type]trigger.UpdateEvent) trigger.Result {
	return b.Triggers.UpdateTriggers(events)
}

func (b *Base) EndTriggers(types ...trigger.Type)    { b.Triggers.EndTriggers(types...) }
func (b *Base) CancelTriggers(types ...trigger.Type) { b.Triggers.CancelTriggers(types...) }

func (b *Base) HasActiveTriggers(types ...trigger.Type) bool {
	return b.Triggers.HasActiveTriggers(types...)
}

// HasActiveMask is the Types-bitmask counterpart to HasActiveTriggers, for
// callers already holding a combined mask (e.g. trigger.SinglePointMotion).
func (b *Base) HasActiveMask(mask trigger.Types) bool {
	return b.Triggers.HasActiveMask(mask)
}

func (b *Base) ActiveTriggers(types ...trigger.Type) []*trigger.Instance {
	return b.Triggers.ActiveTriggers(types...)
}

// HasActiveBlockingTriggers reports whether any currently Active trigger
// in mask requests block_events, used by handlers that must keep blocking
// an in-progress gesture even when an individual event produced no update.
func (b *Base) HasActiveBlockingTriggers(types ...trigger.Type) bool {
	for _, inst := range b.ActiveTriggers(types...) {
		if inst.BlockEvents {
			return true
		}
	}
	return false
}

func (b *Base) Reset() { b.Triggers.Reset() }

// AddTrigger registers a Config with this handler's trigger set.
func (b *Base) AddTrigger(cfg *trigger.Config) *trigger.Instance {
	return b.Triggers.Add(cfg)
}
