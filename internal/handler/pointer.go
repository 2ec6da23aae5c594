package handler

import (
	"github.com/libgrip/libgrip/internal/trigger"
)

// Pointer is the last handler in the chain: it drives the Hover trigger
// family and never blocks, since raw pointer motion must always reach the
// compositor unless an earlier handler already claimed the frame.
type Pointer struct {
	Base
}

func NewPointer(base Base) *Pointer {
	return &Pointer{Base: base}
}

// HandleMotion activates any Hover trigger whose condition now holds
// (typically keyed on pointer_position_window_percentage or window_* state)
// and keeps it updated while the condition continues to hold.
func (p *Pointer) HandleMotion(dx, dy float64) {
	if !p.HasActiveTriggers(trigger.TypeHover) {
		p.ActivateTriggers(trigger.TypeHover)
	}
	if p.HasActiveTriggers(trigger.TypeHover) {
		p.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{
			trigger.TypeHover: {PointDX: dx, PointDY: dy},
		})
	}
}

// Evaluate re-checks every Hover trigger's end_condition, ending those that
// no longer hold (e.g. the pointer left the hovered window). HandleEvent
// calls it for every event that reaches the pointer handler, motion or
// not.
func (p *Pointer) Evaluate() {
	ctx := p.Triggers.Context()
	for _, inst := range p.ActiveTriggers(trigger.TypeHover) {
		if inst.CanEnd(ctx) {
			p.Triggers.EndOne(inst)
		}
	}
}

func (p *Pointer) HandleEvent(ev Event) bool {
	if ev.Kind == EventPointerMotion {
		p.HandleMotion(ev.Delta.X, ev.Delta.Y)
	}
	p.Evaluate()
	return false
}
