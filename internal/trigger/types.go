// Package trigger implements the Trigger/TriggerAction model and its
// update semantics: activation, accumulated-delta update, interval-based
// repetition, thresholds, and terminal transitions.
package trigger

import (
	"time"

	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/stroke"
)

// Type enumerates the gesture families a Trigger can declare.
type Type int

const (
	TypePress Type = 1 << iota
	TypeClick
	TypeTap
	TypeHover
	TypePinch
	TypeRotate
	TypeSwipe
	TypeWheel
	TypeStroke
	TypeKeyboardShortcut
	TypeCircle
)

// Types is a bitmask of Type, used for handler scans ("triggers of matching
// type") and cross-cutting handler contracts.
type Types uint32

func Mask(types ...Type) Types {
	var m Types
	for _, t := range types {
		m |= Types(t)
	}
	return m
}

func (m Types) Has(t Type) bool { return m&Types(t) != 0 }

// SinglePointMotion groups the trigger types handler.Motion drives:
// Swipe, Stroke, Circle.
const SinglePointMotion = Types(TypeSwipe | TypeStroke | TypeCircle)

// MultiTouchMotion groups the trigger types handler.MultiTouch adds on top
// of handler.Motion: Pinch, Rotate, Tap.
const MultiTouchMotion = Types(TypePinch | TypeRotate | TypeTap)

// State is a Trigger's lifecycle position: Idle -> Active -> (Updating)* -> {Ended, Cancelled} -> Idle.
type State int

const (
	StateIdle State = iota
	StateActive
	StateEnded
	StateCancelled
)

// Direction is a generic direction tag; its meaning depends on Type
// (compass direction for Swipe, in/out for Pinch, clockwise/
// counterclockwise for Rotate/Circle, positive/negative for Wheel).
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
	DirectionUp
	DirectionDown
	DirectionIn
	DirectionOut
	DirectionClockwise
	DirectionCounterclockwise
	DirectionPositive
	DirectionNegative
)

// octant returns the compass sector (0-7) for a Swipe angle in [0, 360):
// sector 0 is centred on 0 degrees (Right) and the index grows
// counterclockwise in 45-degree steps, so Up (90 degrees) is sector 2.
func octant(angleDeg float64) int {
	return int((angleDeg+22.5)/45) % 8
}

// OctantsSame reports whether two angles (degrees, [0, 360)) fall in the
// same or adjacent octant, including the wrap between octant 7 and octant
// 0.
func OctantsSame(aDeg, bDeg float64) bool {
	a, b := octant(aDeg), octant(bDeg)
	diff := (a - b + 8) % 8
	return diff == 0 || diff == 1 || diff == 7
}

// MatchesSwipeAngle reports whether a Swipe trigger's declared Direction
// (Left/Right/Up/Down) is compatible with the observed angle, using the
// same octant adjacency rule as OctantsSame: exact, neighbouring, or
// wrap-adjacent octants all count.
func (d Direction) MatchesSwipeAngle(angleDeg float64) bool {
	var want int
	switch d {
	case DirectionRight:
		want = 0
	case DirectionUp:
		want = 2
	case DirectionLeft:
		want = 4
	case DirectionDown:
		want = 6
	default:
		return true
	}
	got := octant(angleDeg)
	diff := (got - want + 8) % 8
	return diff == 0 || diff == 1 || diff == 7
}

// MouseButtons optionally restricts a trigger to a specific chord.
type MouseButtons struct {
	Buttons   []uint16
	ExactOrder bool
}

// On is the lifecycle hook a TriggerAction fires at.
type On int

const (
	OnBegin On = iota
	OnUpdate
	OnTick
	OnEnd
	OnCancel
	OnEndCancel
)

// IntervalDirection filters which sign of delta an interval fires for.
type IntervalDirection int

const (
	IntervalAny IntervalDirection = iota
	IntervalPositive
	IntervalNegative
)

// Interval is the progress quantum controlling Update/Tick repetition.
type Interval struct {
	Value     float64
	Direction IntervalDirection
}

// Matches reports whether delta's sign matches the interval's direction
// filter.
func (iv Interval) Matches(delta float64) bool {
	switch iv.Direction {
	case IntervalAny:
		return true
	case IntervalPositive:
		return delta > 0
	case IntervalNegative:
		return delta < 0
	default:
		return false
	}
}

// Delta is the paired accelerated/unaccelerated magnitude of one update
// event, as libinput reports both.
type Delta struct {
	Accelerated   float64
	Unaccelerated float64
}

func (d Delta) Pick(accelerated bool) float64 {
	if accelerated {
		return d.Accelerated
	}
	return d.Unaccelerated
}

// Config is the immutable, config-loaded definition of one gesture. It
// never changes after load; runtime state lives in Instance.
type Config struct {
	ID                 string
	Type               Type
	Direction          Direction
	MouseButtons       *MouseButtons
	Threshold          *geom.Range
	ActivationCondition *condition.Condition
	EndCondition        *condition.Condition
	ResumeTimeout       time.Duration
	BlockEvents         bool
	ClearModifiers      bool
	SetLastTrigger      bool
	Actions             []*Binding
	Speed               *Speed

	// StrokeTemplates holds this trigger's stored templates, only set
	// when Type == TypeStroke.
	StrokeTemplates []stroke.Stroke
}

// Speed tags a motion trigger (Swipe/Circle) with the speed class it
// requires, used by handler.Motion's determineSpeed.
type Speed int

const (
	SpeedAny Speed = iota
	SpeedFast
	SpeedSlow
)
