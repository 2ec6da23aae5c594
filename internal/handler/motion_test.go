package handler

import (
	"testing"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/stroke"
	"github.com/libgrip/libgrip/internal/trigger"
)

func TestMotionSwipeFiresOnceThresholdCleared(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	_, actions := addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnUpdate)

	m.ActivateTriggers(trigger.TypeSwipe)

	delta := geom.Point{X: 5, Y: 0}
	if block := m.HandleMotion(delta, 5, 5); block {
		t.Errorf("an unthresholded Swipe update should not block by default")
	}

	if actions[trigger.OnUpdate].runs != 1 {
		t.Errorf("expected Swipe OnUpdate to fire once, ran %d times", actions[trigger.OnUpdate].runs)
	}
}

func TestMotionSwipeWithheldUntilMotionThresholdReached(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	m.MotionThreshold = func() float64 { return 100 }
	_, actions := addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnUpdate)

	m.ActivateTriggers(trigger.TypeSwipe)
	m.HandleMotion(geom.Point{X: 1, Y: 0}, 1, 1)

	if actions[trigger.OnUpdate].runs != 0 {
		t.Errorf("Swipe must not update before the accumulated motion threshold is reached, ran %d times", actions[trigger.OnUpdate].runs)
	}
}

func TestMotionInactiveWhenNoSinglePointTriggerActive(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)

	if block := m.HandleMotion(geom.Point{X: 1, Y: 1}, 1, 1); block {
		t.Errorf("motion with no active trigger should never block")
	}
}

func TestMotionOnEndingTriggersEndsBestMatchingStroke(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	deltas := []geom.Point{{X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}

	inst, actions := addTrigger(&m.Base, trigger.TypeStroke, trigger.OnEnd, trigger.OnCancel)
	inst.Config.StrokeTemplates = []stroke.Stroke{stroke.New(deltas)}

	m.ActivateTriggers(trigger.TypeStroke)
	m.strokeDeltas = deltas

	m.OnEndingTriggers(trigger.Mask(trigger.TypeStroke))

	if actions[trigger.OnEnd].runs != 1 {
		t.Errorf("a stroke matching its own template should end via OnEnd, ran %d times", actions[trigger.OnEnd].runs)
	}
	if actions[trigger.OnCancel].runs != 0 {
		t.Errorf("a matching stroke must not be cancelled, OnCancel ran %d times", actions[trigger.OnCancel].runs)
	}
}

func TestMotionOnEndingTriggersCancelsUnmatchedStroke(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	// A straight line and its exact reverse: resampled/normalized, point i
	// of one lands near point i of the other reflected across the
	// midpoint, giving a mean pointwise distance of ~1 (worked out
	// analytically) against a worst case of sqrt(8) =~ 2.83 -- a score
	// of ~0.65, below MinMatchingScore.
	template := []geom.Point{{X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}}
	observed := []geom.Point{{X: -1, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: 0}}

	inst, actions := addTrigger(&m.Base, trigger.TypeStroke, trigger.OnEnd, trigger.OnCancel)
	inst.Config.StrokeTemplates = []stroke.Stroke{stroke.New(template)}

	m.ActivateTriggers(trigger.TypeStroke)
	m.strokeDeltas = observed

	m.OnEndingTriggers(trigger.Mask(trigger.TypeStroke))

	if actions[trigger.OnEnd].runs != 0 {
		t.Errorf("a stroke with no matching template must not end via OnEnd, ran %d times", actions[trigger.OnEnd].runs)
	}
	if actions[trigger.OnCancel].runs != 1 {
		t.Errorf("an unmatched stroke should be cancelled, OnCancel ran %d times", actions[trigger.OnCancel].runs)
	}
}

func TestMotionActivateTriggersArmsSpeedSamplingForSpeedTaggedTrigger(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	inst, _ := addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnBegin)
	fast := trigger.SpeedFast
	inst.Config.Speed = &fast

	m.ActivateTriggers(trigger.TypeSwipe)

	if !m.isDeterminingSpeed {
		t.Errorf("activating a Speed-tagged Swipe trigger should arm speed sampling via OnActivatingTrigger")
	}
}

func TestMotionActivateTriggersLeavesSpeedSamplingOffForSpeedAnyTrigger(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnBegin)

	m.ActivateTriggers(trigger.TypeSwipe)

	if m.isDeterminingSpeed {
		t.Errorf("a trigger with no declared Speed requirement should not arm speed sampling")
	}
}

func TestMotionEliminateMismatchedSpeedCancelsWrongSpeedTrigger(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	fast := trigger.SpeedFast
	slow := trigger.SpeedSlow
	fastInst, fastActions := addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnCancel)
	fastInst.Config.Speed = &fast
	slowInst, slowActions := addTrigger(&m.Base, trigger.TypeSwipe, trigger.OnCancel)
	slowInst.Config.Speed = &slow

	m.ActivateTriggers(trigger.TypeSwipe)
	determined := trigger.SpeedSlow
	m.speed = &determined

	m.eliminateMismatchedSpeed()

	if fastActions[trigger.OnCancel].runs != 1 {
		t.Errorf("expected the Fast-tagged trigger to be cancelled once speed resolved Slow, ran %d times", fastActions[trigger.OnCancel].runs)
	}
	if slowActions[trigger.OnCancel].runs != 0 {
		t.Errorf("the Slow-tagged trigger matching the resolved speed must not be cancelled, ran %d times", slowActions[trigger.OnCancel].runs)
	}
}

func TestMotionEndTriggersResolvesStrokeTemplateMatch(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	deltas := []geom.Point{{X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}

	inst, actions := addTrigger(&m.Base, trigger.TypeStroke, trigger.OnEnd, trigger.OnCancel)
	inst.Config.StrokeTemplates = []stroke.Stroke{stroke.New(deltas)}

	m.ActivateTriggers(trigger.TypeStroke)
	m.strokeDeltas = deltas

	m.EndTriggers(trigger.TypeStroke)

	if actions[trigger.OnEnd].runs != 1 {
		t.Errorf("EndTriggers should resolve a matching stroke template via OnEnd, ran %d times", actions[trigger.OnEnd].runs)
	}
	if actions[trigger.OnCancel].runs != 0 {
		t.Errorf("a matching stroke must not be cancelled, OnCancel ran %d times", actions[trigger.OnCancel].runs)
	}
}

func TestMotionCancelTriggersWithUnmatchedStrokeDoesNotRecurseForever(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	template := []geom.Point{{X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}}
	observed := []geom.Point{{X: -1, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: 0}}

	inst, actions := addTrigger(&m.Base, trigger.TypeStroke, trigger.OnEnd, trigger.OnCancel)
	inst.Config.StrokeTemplates = []stroke.Stroke{stroke.New(template)}

	m.ActivateTriggers(trigger.TypeStroke)
	m.strokeDeltas = observed

	// Regression guard: OnEndingTriggers' no-match branch must call
	// Base.CancelTriggers directly, not m.CancelTriggers -- the latter
	// would re-enter OnEndingTriggers with nothing mutated in between and
	// recurse without terminating.
	m.CancelTriggers(trigger.TypeStroke)

	if actions[trigger.OnCancel].runs != 1 {
		t.Errorf("expected the unmatched stroke to be cancelled exactly once, ran %d times", actions[trigger.OnCancel].runs)
	}
}

func TestMotionReset(t *testing.T) {
	base := newTestBase()
	m := NewMotion(base)
	m.strokeDeltas = []geom.Point{{X: 1, Y: 1}}
	m.swipeUpdates = 3

	m.Reset()

	if m.strokeDeltas != nil || m.swipeUpdates != 0 {
		t.Errorf("Reset should clear stroke/swipe accumulators, got strokeDeltas=%v swipeUpdates=%d", m.strokeDeltas, m.swipeUpdates)
	}
}
