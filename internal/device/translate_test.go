package device

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/libgrip/libgrip/internal/handler"
)

func synReport() evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}
}

func TestTranslatorBuffersUntilSynReport(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	if out := tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relX, Value: 5}, true); out != nil {
		t.Errorf("a non-SYN event should only be buffered, got %v", out)
	}
	out := tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Kind != handler.EventPointerMotion || out[0].Delta.X != 5 {
		t.Fatalf("expected one aggregated motion event with Delta.X=5, got %+v", out)
	}
}

func TestTranslatorAggregatesMultipleRelEventsInOneFrame(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relX, Value: 3}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relX, Value: 4}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relY, Value: -2}, true)
	out := tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Delta.X != 7 || out[0].Delta.Y != -2 {
		t.Fatalf("expected summed deltas X=7 Y=-2, got %+v", out)
	}
}

func TestTranslatorWheelAxisEvent(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relWheel, Value: 1}, true)
	out := tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Kind != handler.EventPointerAxis || out[0].AxisVertical != 1 {
		t.Fatalf("expected one axis event with AxisVertical=1, got %+v", out)
	}
}

func TestTranslatorZeroRelDeltaProducesNoEvent(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relX, Value: 0}, true)
	out := tr.Feed(synReport(), true)
	if len(out) != 0 {
		t.Errorf("a zero-delta frame should produce no motion event, got %+v", out)
	}
}

func TestTranslatorKeyboardKeyGoesToKeyboardEvent(t *testing.T) {
	tr := NewTranslator("kbd0", handler.DeviceKeyboard, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: 30, Value: 1}, true)
	out := tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Kind != handler.EventKeyboardKey || out[0].Code != 30 {
		t.Fatalf("expected one keyboard key event, got %+v", out)
	}
}

func TestTranslatorMouseButtonGoesToPointerButtonEvent(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: btnLeft, Value: 1}, true)
	out := tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Kind != handler.EventPointerButton || out[0].Code != btnLeft {
		t.Fatalf("expected one pointer button event, got %+v", out)
	}
}

func TestTranslatorTracksPhysicalKeyState(t *testing.T) {
	phys := NewPhysicalState()
	tr := NewTranslator("kbd0", handler.DeviceKeyboard, phys)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: 30, Value: 1}, true)
	tr.Feed(synReport(), true)
	if !phys.KeysPressed[30] {
		t.Fatalf("expected key 30 to be tracked as pressed in PhysicalState")
	}
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: 30, Value: 0}, true)
	tr.Feed(synReport(), true)
	if phys.KeysPressed[30] {
		t.Errorf("expected key 30 to be cleared from PhysicalState on release")
	}
}

func TestTranslatorIgnoresPhysicalKeyStateWhenLibevdevDisabled(t *testing.T) {
	phys := NewPhysicalState()
	tr := NewTranslator("kbd0", handler.DeviceKeyboard, phys)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: 30, Value: 1}, false)
	tr.Feed(synReport(), false)
	if phys.KeysPressed[30] {
		t.Errorf("expected no PhysicalState tracking when handleLibevdev is false")
	}
}

func TestTranslatorMultiTouchDownMotionUp(t *testing.T) {
	phys := NewPhysicalState()
	tr := NewTranslator("touchpad0", handler.DeviceTouchpad, phys)

	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: 0}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: 1}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionX, Value: 100}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionY, Value: 200}, true)
	out := tr.Feed(synReport(), true)

	var sawDown, sawMotion bool
	for _, ev := range out {
		switch ev.Kind {
		case handler.EventTouchDown:
			sawDown = true
			if ev.SlotID != 0 {
				t.Errorf("expected SlotID 0 on touch down, got %d", ev.SlotID)
			}
		case handler.EventTouchMotion:
			sawMotion = true
		}
	}
	if !sawDown {
		t.Errorf("expected an EventTouchDown in %+v", out)
	}
	if !sawMotion {
		t.Errorf("expected an EventTouchMotion in %+v", out)
	}
	if _, ok := phys.Slots[0]; !ok {
		t.Fatalf("expected slot 0 to be tracked in PhysicalState after touch down")
	}
	if phys.Slots[0].Position.X != 100 || phys.Slots[0].Position.Y != 200 {
		t.Errorf("expected tracked position (100,200), got %+v", phys.Slots[0].Position)
	}

	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: 0}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: -1}, true)
	out = tr.Feed(synReport(), true)
	if len(out) != 1 || out[0].Kind != handler.EventTouchUp {
		t.Fatalf("expected exactly one EventTouchUp, got %+v", out)
	}
	if _, ok := phys.Slots[0]; ok {
		t.Errorf("expected slot 0 to be removed from PhysicalState after lift")
	}
}

func TestTranslatorRepeatedTouchDownOnSameSlotIsIgnored(t *testing.T) {
	phys := NewPhysicalState()
	tr := NewTranslator("touchpad0", handler.DeviceTouchpad, phys)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: 0}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: 1}, true)
	tr.Feed(synReport(), true)

	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: 0}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: 1}, true)
	out := tr.Feed(synReport(), true)
	for _, ev := range out {
		if ev.Kind == handler.EventTouchDown {
			t.Errorf("a second tracking-id assignment on an already-tracked slot should not re-fire touch down")
		}
	}
}

func TestTranslatorFingerCountFromToolBits(t *testing.T) {
	tr := NewTranslator("touchpad0", handler.DeviceTouchpad, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: btnToolDoubletap, Value: 1}, true)
	tr.Feed(synReport(), true)
	if tr.fingers != 2 {
		t.Fatalf("expected fingers=2 after BTN_TOOL_DOUBLETAP down, got %d", tr.fingers)
	}
	tr.Feed(evdev.InputEvent{Type: evdev.EV_KEY, Code: btnToolDoubletap, Value: 0}, true)
	tr.Feed(synReport(), true)
	if tr.fingers != 0 {
		t.Errorf("expected fingers=0 after BTN_TOOL_DOUBLETAP release, got %d", tr.fingers)
	}
}

// moveSlot feeds one frame's worth of ABS_MT position update for slot,
// returning the resulting events.
func moveSlot(tr *Translator, slot int, x, y int32) []handler.Event {
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: int32(slot)}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionX, Value: x}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionY, Value: y}, true)
	return tr.Feed(synReport(), true)
}

func touchDownSlot(tr *Translator, slot int, x, y int32) {
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: int32(slot)}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: int32(slot + 1)}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionX, Value: x}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTPositionY, Value: y}, true)
	tr.Feed(synReport(), true)
}

func liftSlotEvents(tr *Translator, slot int) []handler.Event {
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTSlot, Value: int32(slot)}, true)
	tr.Feed(evdev.InputEvent{Type: evdev.EV_ABS, Code: absMTTrackingID, Value: -1}, true)
	return tr.Feed(synReport(), true)
}

func hasKind(out []handler.Event, kind handler.EventKind) bool {
	for _, ev := range out {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func TestTranslatorSingleFingerDragSynthesizesSwipeBeginUpdateEnd(t *testing.T) {
	tr := NewTranslator("touchpad0", handler.DeviceTouchpad, NewPhysicalState())
	touchDownSlot(tr, 0, 0, 0)

	// Below gestureMotionThreshold: no gesture classified yet.
	out := moveSlot(tr, 0, 50, 0)
	if hasKind(out, handler.EventGestureSwipeBegin) {
		t.Errorf("a sub-threshold move must not begin a gesture yet, got %+v", out)
	}

	// Crosses gestureMotionThreshold (100): should classify as Swipe (a
	// single finger always satisfies "every finger same octant").
	out = moveSlot(tr, 0, 150, 0)
	if !hasKind(out, handler.EventGestureSwipeBegin) {
		t.Fatalf("expected EventGestureSwipeBegin once the threshold is crossed, got %+v", out)
	}

	out = moveSlot(tr, 0, 160, 0)
	if !hasKind(out, handler.EventGestureSwipeUpdate) {
		t.Fatalf("expected EventGestureSwipeUpdate on the next frame's delta, got %+v", out)
	}

	out = liftSlotEvents(tr, 0)
	if !hasKind(out, handler.EventTouchUp) {
		t.Errorf("expected EventTouchUp on lift, got %+v", out)
	}
	if !hasKind(out, handler.EventGestureSwipeEnd) {
		t.Errorf("expected EventGestureSwipeEnd on lifting the classified finger, got %+v", out)
	}
}

func TestTranslatorTwoFingerOppositeMoveSynthesizesPinch(t *testing.T) {
	tr := NewTranslator("touchpad0", handler.DeviceTouchpad, NewPhysicalState())
	touchDownSlot(tr, 0, 0, 0)
	touchDownSlot(tr, 1, 200, 0)

	// Finger 0 moves left (angle ~180deg), finger 1 moves right (angle
	// ~0deg): opposite octants, so this classifies as Pinch rather than
	// Swipe once finger 0 (the primary/gestureOrder[0] finger) crosses
	// gestureMotionThreshold.
	moveSlot(tr, 1, 350, 0)
	out := moveSlot(tr, 0, -150, 0)

	if !hasKind(out, handler.EventGesturePinchBegin) {
		t.Fatalf("expected EventGesturePinchBegin for fingers moving in opposite directions, got %+v", out)
	}
	if hasKind(out, handler.EventGestureSwipeBegin) {
		t.Errorf("opposite-direction fingers must not classify as Swipe, got %+v", out)
	}

	out = liftSlotEvents(tr, 0)
	out = append(out, liftSlotEvents(tr, 1)...)
	if !hasKind(out, handler.EventGesturePinchEnd) {
		t.Errorf("expected EventGesturePinchEnd once both fingers lift, got %+v", out)
	}
}

func TestTranslatorReset(t *testing.T) {
	tr := NewTranslator("mouse0", handler.DeviceMouse, NewPhysicalState())
	tr.Feed(evdev.InputEvent{Type: evdev.EV_REL, Code: relX, Value: 1}, true)
	tr.fingers = 3
	tr.activeSlot = 2
	tr.Reset()
	if tr.fingers != 0 || tr.activeSlot != 0 || tr.buffer != nil {
		t.Errorf("expected Reset to clear buffer/activeSlot/fingers, got buffer=%v activeSlot=%d fingers=%d", tr.buffer, tr.activeSlot, tr.fingers)
	}
}
