package handler

import (
	"math"
	"time"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/trigger"
)

var multitouchLog = log.New("handler.multitouch")

// tapTimeout is the maximum touch-down to touch-up duration for a tap.
const tapTimeout = 200 * time.Millisecond

// tapDisplacementFraction is the fraction of the device domain below which
// every point's total displacement must stay for a tap to be recognised.
const tapDisplacementFraction = 0.02

type pinchClassification int

const (
	pinchUnknown pinchClassification = iota
	pinchIsPinch
	pinchIsRotate
)

// touchpadPoint tracks one active finger for tap eligibility.
type touchpadPoint struct {
	downTime         time.Time
	initialPosition  geom.Point
	position         geom.Point
	lifted           bool
}

// MultiTouch handles Pinch, Rotate and Tap on top of the Motion base,
// sharing its per-point state machine for the single-point swipe case.
type MultiTouch struct {
	*Motion

	DeviceDomain float64 // diagonal size used to scale the tap displacement fraction

	classification    pinchClassification
	previousPinchScale float64
	accumulatedRotate  float64

	points map[int]*touchpadPoint
}

func NewMultiTouch(motion *Motion) *MultiTouch {
	return &MultiTouch{
		Motion:             motion,
		previousPinchScale: 1,
		points:             make(map[int]*touchpadPoint),
	}
}

// HandlePinch processes one libinput pinch/rotate update:
// disambiguates Pinch vs Rotate on the first updates, classification is
// monotone for the rest of the gesture.
func (mt *MultiTouch) HandlePinch(scale, angleDelta float64) bool {
	if !mt.HasActiveTriggers(trigger.TypePinch, trigger.TypeRotate) {
		return false
	}

	if mt.classification == pinchUnknown {
		mt.accumulatedRotate += math.Abs(angleDelta)
		scaleDelta := math.Abs(1 - scale*mt.previousPinchScale)

		switch {
		case mt.accumulatedRotate >= 10:
			mt.classification = pinchIsRotate
			multitouchLog.Debugf("classified as rotate (accumulated: %g deg)", mt.accumulatedRotate)
			mt.CancelTriggers(trigger.TypePinch)
		case scaleDelta >= 0.2:
			mt.classification = pinchIsPinch
			multitouchLog.Debugf("classified as pinch (scale delta: %g)", scaleDelta)
			mt.CancelTriggers(trigger.TypeRotate)
		default:
			mt.previousPinchScale *= scale
			return mt.HasActiveBlockingTriggers(trigger.TypePinch, trigger.TypeRotate)
		}
	}

	events := map[trigger.Type]trigger.UpdateEvent{}
	switch mt.classification {
	case pinchIsPinch:
		// Direction is derived from sign(scale - 1): In for a shrinking
		// pinch, Out for a growing one.
		direction := trigger.DirectionIn
		if scale > 1 {
			direction = trigger.DirectionOut
		}
		for _, inst := range mt.ActiveTriggers(trigger.TypePinch) {
			if inst.Direction != trigger.DirectionNone && inst.Direction != direction {
				mt.Triggers.CancelOne(inst)
			}
		}
		events[trigger.TypePinch] = trigger.UpdateEvent{
			Delta: trigger.Delta{Accelerated: scale - 1, Unaccelerated: scale - 1},
		}
	case pinchIsRotate:
		// Direction is derived from sign(angle_delta): Clockwise/
		// Counterclockwise.
		direction := trigger.DirectionClockwise
		if angleDelta < 0 {
			direction = trigger.DirectionCounterclockwise
		}
		for _, inst := range mt.ActiveTriggers(trigger.TypeRotate) {
			if inst.Direction != trigger.DirectionNone && inst.Direction != direction {
				mt.Triggers.CancelOne(inst)
			}
		}
		events[trigger.TypeRotate] = trigger.UpdateEvent{
			Delta: trigger.Delta{Accelerated: angleDelta, Unaccelerated: angleDelta},
		}
	}

	result := mt.UpdateTriggers(events)
	return result.Block
}

// TouchDown registers a new finger for tap tracking.
func (mt *MultiTouch) TouchDown(slot int, position geom.Point, now time.Time) {
	mt.points[slot] = &touchpadPoint{downTime: now, initialPosition: position, position: position}
}

// TouchMotion updates a tracked finger's live position.
func (mt *MultiTouch) TouchMotion(slot int, position geom.Point) {
	if p, ok := mt.points[slot]; ok {
		p.position = position
	}
}

// TouchUp marks a finger as lifted and, once every tracked finger has
// lifted, ends any SinglePointMotion gesture still Active (a 1-finger
// swipe/stroke/circle never gets a Pinch-style end event, so it has to end
// here) and evaluates tap eligibility over all of them.
func (mt *MultiTouch) TouchUp(slot int, now time.Time) bool {
	if p, ok := mt.points[slot]; ok {
		p.lifted = true
	}
	for _, p := range mt.points {
		if !p.lifted {
			return false
		}
	}

	if mt.HasActiveMask(trigger.SinglePointMotion) {
		mt.EndTriggers(trigger.TypeSwipe, trigger.TypeStroke, trigger.TypeCircle)
	}

	eligible := mt.canTap(now)
	mt.points = make(map[int]*touchpadPoint)
	if !eligible {
		return false
	}

	result := mt.ActivateTriggers(trigger.TypeTap)
	mt.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{
		trigger.TypeTap: {},
	})
	mt.EndTriggers(trigger.TypeTap)
	return result.Block
}

// canTap reports whether every tracked point stayed within the
// displacement limit and within the tap timeout.
func (mt *MultiTouch) canTap(now time.Time) bool {
	domain := mt.DeviceDomain
	if domain == 0 {
		domain = 1
	}
	limit := domain * tapDisplacementFraction
	for _, p := range mt.points {
		if geom.Hypot(p.position.Sub(p.initialPosition)) >= limit {
			return false
		}
		if now.Sub(p.downTime) > tapTimeout {
			return false
		}
	}
	return true
}

func (mt *MultiTouch) Reset() {
	mt.Motion.Reset()
	mt.classification = pinchUnknown
	mt.previousPinchScale = 1
	mt.accumulatedRotate = 0
	mt.points = make(map[int]*touchpadPoint)
}
