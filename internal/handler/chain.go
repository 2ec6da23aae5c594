package handler

import (
	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/stroke"
	"github.com/libgrip/libgrip/internal/trigger"
	"github.com/libgrip/libgrip/internal/variable"
)

// Chain dispatches one Event through the fixed handler order: stroke
// recorder, keyboard, mouse, per-device touchpad, per-device touchscreen,
// pointer. The first handler that reports block short-circuits the rest.
type Chain struct {
	Recorder   *stroke.Recorder
	RecordingDevice string // device name the recorder is currently bound to, if any

	Keyboard *Keyboard
	Mouse    *Mouse
	Pointer  *Pointer

	touchpads    map[string]*MultiTouch
	touchscreens map[string]*Touchscreen
}

func NewChain(recorder *stroke.Recorder, keyboard *Keyboard, mouse *Mouse, pointer *Pointer) *Chain {
	return &Chain{
		Recorder:     recorder,
		Keyboard:     keyboard,
		Mouse:        mouse,
		Pointer:      pointer,
		touchpads:    make(map[string]*MultiTouch),
		touchscreens: make(map[string]*Touchscreen),
	}
}

func (c *Chain) AddTouchpad(device string, mt *MultiTouch) { c.touchpads[device] = mt }
func (c *Chain) AddTouchscreen(device string, ts *Touchscreen) { c.touchscreens[device] = ts }

// Dispatch routes ev through the chain and returns whether the originating
// frame should be blocked from the output device.
func (c *Chain) Dispatch(ev Event) bool {
	if c.Recorder.IsRecording() && ev.DeviceName == c.RecordingDevice {
		return c.feedRecorder(ev)
	}

	switch ev.DeviceType {
	case DeviceKeyboard:
		return c.dispatchKeyboard(ev)
	case DeviceMouse:
		return c.dispatchMouse(ev)
	case DeviceTouchpad:
		if mt, ok := c.touchpads[ev.DeviceName]; ok {
			if block := c.dispatchTouchpad(mt, ev); block {
				return true
			}
		}
	case DeviceTouchscreen:
		if ts, ok := c.touchscreens[ev.DeviceName]; ok {
			if block := c.dispatchTouchscreen(ts, ev); block {
				return true
			}
		}
	}

	return c.Pointer.HandleEvent(ev)
}

func (c *Chain) feedRecorder(ev Event) bool {
	switch ev.Kind {
	case EventPointerMotion, EventGestureSwipeUpdate:
		c.Recorder.Feed(ev.Delta)
	case EventTouchMotion:
		c.Recorder.Feed(ev.Delta)
	case EventTouchUp, EventGesturePinchEnd, EventGestureSwipeEnd, EventTouchCancel:
		c.Recorder.FinishOnTouchUp()
	}
	return true
}

func (c *Chain) dispatchKeyboard(ev Event) bool {
	if ev.Kind != EventKeyboardKey {
		return false
	}
	return c.Keyboard.HandleKey(ev.Code, ev.Value != 0, ev.Time)
}

func (c *Chain) dispatchMouse(ev Event) bool {
	switch ev.Kind {
	case EventPointerButton:
		return c.Mouse.HandleButton(ev.Code, ev.Value != 0, ev.Time)
	case EventPointerAxis:
		return c.Mouse.HandleAxis(ev.AxisVertical, ev.AxisHorizontal)
	}
	return false
}

func (c *Chain) dispatchTouchpad(mt *MultiTouch, ev Event) bool {
	switch ev.Kind {
	case EventPointerMotion:
		return mt.HandleMotion(ev.Delta, geom.Hypot(ev.DeltaAccelerated), geom.Hypot(ev.Delta))
	case EventGestureSwipeBegin:
		c.setFingers(mt, ev.Fingers)
		return !mt.ActivateTriggers(trigger.TypeSwipe, trigger.TypeStroke, trigger.TypeCircle).Success
	case EventGestureSwipeUpdate:
		return mt.HandleMotion(ev.Delta, geom.Hypot(ev.DeltaAccelerated), geom.Hypot(ev.Delta))
	case EventGestureSwipeEnd:
		mt.EndTriggers(trigger.TypeSwipe, trigger.TypeStroke, trigger.TypeCircle)
		return false
	case EventGesturePinchBegin:
		c.setFingers(mt, ev.Fingers)
		return !mt.ActivateTriggers(trigger.TypePinch, trigger.TypeRotate).Success
	case EventGesturePinchUpdate:
		return mt.HandlePinch(ev.Scale, ev.AngleDelta)
	case EventGesturePinchEnd:
		mt.EndTriggers(trigger.TypePinch, trigger.TypeRotate)
		return false
	case EventTouchDown:
		c.setFingers(mt, ev.Fingers)
		mt.TouchDown(ev.SlotID, ev.Position, ev.Time)
		return false
	case EventTouchMotion:
		mt.TouchMotion(ev.SlotID, ev.Position)
		return false
	case EventTouchUp:
		return mt.TouchUp(ev.SlotID, ev.Time)
	}
	return false
}

// setFingers publishes the touch's finger count to the condition variable
// store as "fingers", so an ActivationCondition can gate e.g. a 3-finger
// swipe trigger from a 2-finger one before ActivateTriggers runs.
func (c *Chain) setFingers(mt *MultiTouch, fingers int) {
	mt.Triggers.Context().Store.Set("fingers", variable.Number(float64(fingers)))
}

func (c *Chain) dispatchTouchscreen(ts *Touchscreen, ev Event) bool {
	switch ev.Kind {
	case EventTouchDown:
		return ts.TouchDown(ev.SlotID, ev.Position, ev.Time)
	case EventTouchMotion:
		return ts.TouchMotion(ev.SlotID, ev.Position)
	case EventTouchUp, EventTouchCancel:
		return ts.TouchUp(ev.SlotID, ev.Time)
	}
	return false
}

// Reset clears every handler's trigger state, used on device release and
// emergency-release activation.
func (c *Chain) Reset() {
	c.Keyboard.Reset()
	c.Mouse.Reset()
	c.Pointer.Reset()
	for _, mt := range c.touchpads {
		mt.Reset()
	}
	for _, ts := range c.touchscreens {
		ts.Reset()
	}
}
