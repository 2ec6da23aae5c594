package trigger

import (
	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
)

// Result is returned by the cross-cutting handler operations.
type Result struct {
	Success bool
	Block   bool
}

// Set owns the Instances registered with one handler and implements the
// cross-cutting contract: activate/update/end/cancel by type mask,
// has/active queries, conflict resolution, reset.
type Set struct {
	instances []*Instance
	ctx       *condition.Context
	executor  *action.Executor

	// OnLastTrigger is invoked with the id of a trigger that just reached
	// Ended and has SetLastTrigger set, backing the last_trigger_id /
	// time_since_last_trigger variables.
	OnLastTrigger func(id string)
}

func NewSet(ctx *condition.Context, executor *action.Executor) *Set {
	return &Set{ctx: ctx, executor: executor}
}

func (s *Set) Add(cfg *Config) *Instance {
	inst := NewInstance(cfg)
	s.instances = append(s.instances, inst)
	return inst
}

func (s *Set) All() []*Instance { return s.instances }

func (s *Set) matching(mask Types) []*Instance {
	var out []*Instance
	for _, inst := range s.instances {
		if mask.Has(inst.Type) {
			out = append(out, inst)
		}
	}
	return out
}

// ActivateTriggers scans registered triggers of a matching type whose
// activation_condition holds and marks them Active.
func (s *Set) ActivateTriggers(types ...Type) Result {
	mask := Mask(types...)
	var result Result
	for _, inst := range s.matching(mask) {
		if !inst.CanActivate(s.ctx) {
			continue
		}
		inst.Activate(s.ctx, s.executor)
		result.Success = true
		if inst.BlockEvents {
			result.Block = true
		}
	}
	if result.Success {
		s.resolveConflicts(mask)
	}
	return result
}

// UpdateTriggers drives every Active trigger's update path with a
// per-type event. events maps Type -> (delta, point delta).
func (s *Set) UpdateTriggers(events map[Type]UpdateEvent) Result {
	var result Result
	for _, inst := range s.instances {
		ev, ok := events[inst.Type]
		if !ok || inst.State() != StateActive {
			continue
		}
		inst.Update(s.ctx, s.executor, ev.Delta, ev.PointDX, ev.PointDY)
		result.Success = true
		if inst.BlockEvents {
			result.Block = true
		}
	}
	return result
}

// EndTriggers drives Active triggers matching mask to Ended.
func (s *Set) EndTriggers(types ...Type) {
	mask := Mask(types...)
	for _, inst := range s.matching(mask) {
		if inst.State() == StateActive {
			inst.End(s.ctx, s.executor)
			if inst.SetLastTrigger && s.OnLastTrigger != nil {
				s.OnLastTrigger(inst.ID)
			}
		}
	}
}

// CancelTriggers drives Active triggers matching mask to Cancelled.
func (s *Set) CancelTriggers(types ...Type) {
	mask := Mask(types...)
	for _, inst := range s.matching(mask) {
		if inst.State() == StateActive {
			inst.Cancel(s.ctx, s.executor)
		}
	}
}

// CancelOne cancels a single instance, used by the stroke recognizer.
func (s *Set) CancelOne(inst *Instance) {
	if inst.State() == StateActive {
		inst.Cancel(s.ctx, s.executor)
	}
}

// EndOne ends a single instance, used by the stroke recognizer to end the
// best-matching trigger.
func (s *Set) EndOne(inst *Instance) {
	if inst.State() == StateActive {
		inst.End(s.ctx, s.executor)
		if inst.SetLastTrigger && s.OnLastTrigger != nil {
			s.OnLastTrigger(inst.ID)
		}
	}
}

// Context exposes the condition.Context for callers (e.g. the stroke
// comparator) that need to evaluate a trigger's end_condition directly.
func (s *Set) Context() *condition.Context { return s.ctx }

func (s *Set) HasActiveTriggers(types ...Type) bool {
	return len(s.activeMatching(Mask(types...))) > 0
}

// HasActiveMask is the Types-bitmask counterpart to HasActiveTriggers, for
// callers already holding a combined mask (e.g. trigger.SinglePointMotion).
func (s *Set) HasActiveMask(mask Types) bool {
	return len(s.activeMatching(mask)) > 0
}

func (s *Set) ActiveTriggers(types ...Type) []*Instance {
	return s.activeMatching(Mask(types...))
}

// activeMatching is the mask-typed counterpart to ActiveTriggers, used
// internally where a Types bitmask is already in hand (e.g. resolveConflicts).
func (s *Set) activeMatching(mask Types) []*Instance {
	var out []*Instance
	for _, inst := range s.matching(mask) {
		if inst.State() == StateActive {
			out = append(out, inst)
		}
	}
	return out
}

// Reset cancels every Active trigger.
func (s *Set) Reset() {
	for _, inst := range s.instances {
		if inst.State() == StateActive {
			inst.Cancel(s.ctx, s.executor)
		}
	}
}

// resolveConflicts implements the conflict rule: among Active
// triggers of compatible (here: any overlapping mask) type, those that
// have made observable progress cancel those that have not, but only when
// at least one Active trigger opted into conflict resolution via a
// conflicting action.
func (s *Set) resolveConflicts(mask Types) {
	active := s.activeMatching(mask)
	hasConflicting := false
	hasProgress := false
	for _, inst := range active {
		if inst.HasConflictingAction() {
			hasConflicting = true
		}
		if inst.HasProgress() {
			hasProgress = true
		}
	}
	if !hasConflicting || !hasProgress {
		return
	}
	for _, inst := range active {
		if !inst.HasProgress() {
			s.CancelOne(inst)
		}
	}
}

// UpdateEvent is the per-type event payload fed into UpdateTriggers.
type UpdateEvent struct {
	Delta   Delta
	PointDX float64
	PointDY float64

	// Angle/AverageAngle are only meaningful for Swipe updates: the
	// current and moving-average direction in degrees, [0, 360) with Y
	// inverted so "up" is 90 degrees.
	Angle        float64
	AverageAngle float64
}
