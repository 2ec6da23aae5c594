package handler

import (
	"time"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/trigger"
)

var touchscreenLog = log.New("handler.touchscreen")

// touchscreenState is the state machine driving gesture recognition:
// libinput does not expose touchscreen gestures, so the handler recognizes
// them directly from raw touch points.
type touchscreenState int

const (
	tsNone touchscreenState = iota
	tsWaitingForTouchDowns
	tsTouch
	tsHold
	tsMotionOnePointReachedThreshold
	tsMotion
	tsSwipe
	tsPinch
	tsWaitingForTouchUps
)

// motionThresholdMM is the per-point displacement that starts classifying
// a touch as motion.
const motionThresholdMM = 4.0

const (
	touchDownSettleTimeout = 50 * time.Millisecond
	touchUpSettleTimeout   = 50 * time.Millisecond
	holdIdleTimeout        = 200 * time.Millisecond
)

type tsPoint struct {
	id              int
	downTime        time.Time
	initialPosition geom.Point
	position        geom.Point
	crossedThreshold bool
}

// Touchscreen recognizes Swipe/Pinch/Tap/Hold gestures on one touchscreen
// device, one instance per device. Events are blocked by
// default ("block-first policy") until a non-blocking gesture activates.
type Touchscreen struct {
	Base

	MMToPixels float64 // device-specific scale for the 4mm motion threshold

	state      touchscreenState
	points     map[int]*tsPoint
	order      []int
	settleTimer *time.Timer
	holdTimer   *time.Timer

	// RestoreVirtualState must be set by the device supervisor: called
	// whenever the block latch releases mid-gesture so the output device
	// reflects the real touch state.
	RestoreVirtualState func()
}

func NewTouchscreen(base Base) *Touchscreen {
	return &Touchscreen{
		Base:       base,
		points:     make(map[int]*tsPoint),
		MMToPixels: 10,
	}
}

// TouchDown registers a new finger. Returns whether the frame should be
// blocked (always true in the block-first policy, until a later state says
// otherwise).
func (t *Touchscreen) TouchDown(id int, pos geom.Point, now time.Time) bool {
	t.points[id] = &tsPoint{id: id, downTime: now, initialPosition: pos, position: pos}
	t.order = append(t.order, id)

	switch t.state {
	case tsNone, tsWaitingForTouchDowns:
		t.state = tsWaitingForTouchDowns
		t.armSettle(&t.settleTimer, touchDownSettleTimeout, t.onTouchDownsSettled)
	}
	return true
}

func (t *Touchscreen) armSettle(slot **time.Timer, d time.Duration, fn func()) {
	if *slot != nil {
		(*slot).Stop()
	}
	*slot = time.AfterFunc(d, fn)
}

func (t *Touchscreen) onTouchDownsSettled() {
	if t.state != tsWaitingForTouchDowns {
		return
	}
	t.state = tsTouch
	t.armSettle(&t.holdTimer, holdIdleTimeout, t.onHoldIdle)
}

func (t *Touchscreen) onHoldIdle() {
	if t.state == tsTouch {
		t.state = tsHold
		t.ActivateTriggers(trigger.TypePress)
	}
}

// TouchMotion updates a finger's live position and drives the Touch ->
// Motion -> Swipe/Pinch transitions.
func (t *Touchscreen) TouchMotion(id int, pos geom.Point) bool {
	p, ok := t.points[id]
	if !ok {
		return t.blocking()
	}
	p.position = pos

	thresholdPx := motionThresholdMM * t.MMToPixels
	if !p.crossedThreshold && geom.Hypot(p.position.Sub(p.initialPosition)) >= thresholdPx {
		p.crossedThreshold = true
	}

	switch t.state {
	case tsTouch, tsHold:
		if p.crossedThreshold {
			t.state = tsMotionOnePointReachedThreshold
			if t.allCrossedThreshold() {
				t.enterMotion()
			}
		}
		return t.blocking()
	case tsMotionOnePointReachedThreshold:
		if t.allCrossedThreshold() {
			t.enterMotion()
		}
		return t.blocking()
	case tsSwipe, tsPinch:
		return t.updateMotion()
	default:
		return t.blocking()
	}
}

func (t *Touchscreen) allCrossedThreshold() bool {
	for _, p := range t.points {
		if !p.crossedThreshold {
			return false
		}
	}
	return true
}

// enterMotion classifies the gesture as Swipe (all deltas in the same
// octant) or Pinch (otherwise).
func (t *Touchscreen) enterMotion() {
	t.state = tsMotion
	sameOctant := true
	var firstAngle float64
	first := true
	for _, p := range t.points {
		d := p.position.Sub(p.initialPosition)
		if d.IsZero() {
			continue
		}
		angle := geom.Atan2Deg360(d)
		if first {
			firstAngle = angle
			first = false
			continue
		}
		if !trigger.OctantsSame(firstAngle, angle) {
			sameOctant = false
			break
		}
	}

	if sameOctant {
		t.state = tsSwipe
		touchscreenLog.Debugf("classified as swipe (%d points)", len(t.points))
		t.ActivateTriggers(trigger.TypeSwipe)
	} else {
		t.state = tsPinch
		touchscreenLog.Debugf("classified as pinch/rotate (%d points)", len(t.points))
		t.ActivateTriggers(trigger.TypePinch, trigger.TypeRotate)
	}
	if t.RestoreVirtualState != nil {
		t.RestoreVirtualState()
	}
}

func (t *Touchscreen) updateMotion() bool {
	var mask trigger.Types
	switch t.state {
	case tsSwipe:
		mask = trigger.Mask(trigger.TypeSwipe)
	case tsPinch:
		mask = trigger.Mask(trigger.TypePinch, trigger.TypeRotate)
	}
	result := t.UpdateTriggers(t.buildEvents(mask))
	return result.Block
}

func (t *Touchscreen) buildEvents(mask trigger.Types) map[trigger.Type]trigger.UpdateEvent {
	// Pinch scale is the current over the initial distance between the
	// first two points in touch-down order. No pinch center or rotation
	// angle is computed, so Rotate triggers get no update event here.
	// With a single point only Swipe applies.
	events := make(map[trigger.Type]trigger.UpdateEvent)
	if mask.Has(trigger.TypeSwipe) {
		for _, p := range t.points {
			events[trigger.TypeSwipe] = trigger.UpdateEvent{
				Delta: trigger.Delta{
					Accelerated:   geom.Hypot(p.position.Sub(p.initialPosition)),
					Unaccelerated: geom.Hypot(p.position.Sub(p.initialPosition)),
				},
			}
			break
		}
	}
	if mask.Has(trigger.TypePinch) && len(t.order) >= 2 {
		a, b := t.points[t.order[0]], t.points[t.order[1]]
		if a != nil && b != nil {
			distNow := geom.Hypot(a.position.Sub(b.position))
			distInitial := geom.Hypot(a.initialPosition.Sub(b.initialPosition))
			if distInitial == 0 {
				distInitial = 1
			}
			scale := distNow / distInitial
			events[trigger.TypePinch] = trigger.UpdateEvent{
				Delta: trigger.Delta{Accelerated: scale - 1, Unaccelerated: scale - 1},
			}
		}
	}
	return events
}

// TouchUp removes a finger; on the last lift, evaluates tap eligibility.
func (t *Touchscreen) TouchUp(id int, now time.Time) bool {
	p, ok := t.points[id]
	delete(t.points, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	switch t.state {
	case tsSwipe:
		t.EndTriggers(trigger.TypeSwipe)
	case tsPinch:
		t.EndTriggers(trigger.TypePinch, trigger.TypeRotate)
	case tsHold:
		t.EndTriggers(trigger.TypePress)
	}

	if len(t.points) > 0 {
		return t.blocking()
	}

	tap := ok && t.state != tsSwipe && t.state != tsPinch && !p.crossedThreshold && now.Sub(p.downTime) <= tapTimeout
	t.state = tsWaitingForTouchUps
	t.armSettle(&t.settleTimer, touchUpSettleTimeout, func() {
		if tap {
			touchscreenLog.Debugf("tap recognized")
			t.ActivateTriggers(trigger.TypeTap)
			t.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{trigger.TypeTap: {}})
			t.EndTriggers(trigger.TypeTap)
		}
		t.state = tsNone
	})
	return t.blocking()
}

// blocking implements the "block-first" policy: block unless a
// non-blocking gesture is already active.
func (t *Touchscreen) blocking() bool {
	switch t.state {
	case tsSwipe, tsPinch:
		return t.HasActiveBlockingTriggers(trigger.TypeSwipe, trigger.TypePinch, trigger.TypeRotate)
	default:
		return true
	}
}

func (t *Touchscreen) Reset() {
	t.Base.Reset()
	t.state = tsNone
	t.points = make(map[int]*tsPoint)
	t.order = nil
	if t.settleTimer != nil {
		t.settleTimer.Stop()
	}
	if t.holdTimer != nil {
		t.holdTimer.Stop()
	}
}
