// Package handler implements the trigger handler chain: motion
// (swipe/stroke/circle), multi-touch (pinch/rotate/tap), touchscreen,
// keyboard, mouse and pointer handlers, each driving a trigger.Set.
package handler

import (
	"time"

	"github.com/libgrip/libgrip/internal/geom"
)

// DeviceType mirrors the input device type enum.
type DeviceType int

const (
	DeviceKeyboard DeviceType = iota
	DeviceMouse
	DeviceTouchpad
	DeviceTouchscreen
)

// EventKind tags the libinput-level event a Handler receives. These are
// the "higher-level events derived from raw evdev frames" the glossary
// defines; the device package is responsible for producing them.
type EventKind int

const (
	EventPointerMotion EventKind = iota
	EventPointerAxis
	EventPointerButton
	EventKeyboardKey
	EventGestureSwipeBegin
	EventGestureSwipeUpdate
	EventGestureSwipeEnd
	EventGesturePinchBegin
	EventGesturePinchUpdate
	EventGesturePinchEnd
	EventGestureHold
	EventTouchDown
	EventTouchUp
	EventTouchMotion
	EventTouchFrame
	EventTouchCancel
)

// Event is the handler chain's unit of work: one libinput-derived event,
// tagged by Kind, carrying only the fields relevant to that kind.
type Event struct {
	Kind       EventKind
	DeviceName string
	DeviceType DeviceType
	Time       time.Time

	// Pointer / gesture motion.
	Delta             geom.Point
	DeltaAccelerated  geom.Point
	Fingers           int
	Scale             float64 // pinch
	AngleDelta        float64 // pinch rotation, degrees
	AxisVertical      float64
	AxisHorizontal    float64

	// Keyboard / button.
	Code  uint16
	Value int32 // 1 = down, 0 = up, 2 = repeat

	// Touch.
	SlotID   int
	Position geom.Point
	Pressure float64
}

// Handler is the contract every chain member implements:
// handle_event(event) -> block.
type Handler interface {
	HandleEvent(ev Event) bool
	Reset()
}
