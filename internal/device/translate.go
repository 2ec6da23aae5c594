package device

import (
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/handler"
	"github.com/libgrip/libgrip/internal/trigger"
)

// evdev axis/key codes used by the translator. Named directly rather than
// imported from evdev's constant set, since only a handful are needed and
// the package does not export every one with a friendly name.
const (
	absMTSlot        = 0x2f
	absMTPositionX   = 0x35
	absMTPositionY   = 0x36
	absMTPressure    = 0x3a
	absMTTrackingID  = 0x39
	absX             = 0x00
	absY             = 0x01
	absPressure      = 0x18

	btnToolFinger    = 0x145
	btnToolDoubletap = 0x14d
	btnToolTripletap = 0x14e
	btnToolQuadtap   = 0x14f
	btnTouch         = 0x14a
	btnLeft          = 0x110
	btnRight         = 0x111
	btnMiddle        = 0x112

	relX      = 0x00
	relY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06
)

// gestureMotionThreshold is the raw ABS_MT displacement the primary finger
// must travel from its touch-down position before a touchpad contact is
// classified as a gesture, rather than held idle or treated as a tap.
const gestureMotionThreshold = 100.0

// gestureKind is the touchpad contact's recognized gesture family, decided
// once when the primary finger crosses gestureMotionThreshold and fixed for
// the rest of the contact.
type gestureKind int

const (
	gestureKindNone gestureKind = iota
	gestureKindSwipe
	gestureKindPinch
)

// gesturePoint tracks one active touchpad finger purely for gesture
// classification, independent of PhysicalState (which only updates when
// the device's Properties ask for it): a real deployment must classify
// gestures even on a device configured not to mirror its physical state.
type gesturePoint struct {
	position geom.Point // live position, updated as ABS_MT events stream in
	previous geom.Point // position as of the last completed frame
	initial  geom.Point // position when the finger first touched down
	primed   bool
	settled  bool // initial is fixed once the touch-down frame completes
}

// Translator accumulates one device's raw evdev events between
// SYN_REPORT markers and derives the higher-level Events the handler
// chain understands: pointer motion/buttons/axis, keyboard keys, touch
// down/motion/up, and (for touchpads) Swipe/Pinch/Rotate gesture
// begin/update/end, all built from ABS_MT slot tracking. It also keeps
// PhysicalState up to date when the device's Properties ask for it.
type Translator struct {
	DeviceName string
	DeviceType handler.DeviceType
	Physical   *PhysicalState

	buffer     []evdev.InputEvent
	activeSlot int
	fingers    int

	gesturePoints   map[int]*gesturePoint
	gestureOrder    []int
	gestureKind     gestureKind
	gesturePrevDist float64
	gesturePrevAngle float64
}

func NewTranslator(name string, typ handler.DeviceType, physical *PhysicalState) *Translator {
	return &Translator{
		DeviceName:    name,
		DeviceType:    typ,
		Physical:      physical,
		gesturePoints: make(map[int]*gesturePoint),
	}
}

// Feed appends one raw event to the pending frame. When it is a
// SYN_REPORT the accumulated frame is translated and returned; otherwise
// nil is returned and the event is simply buffered.
func (t *Translator) Feed(ev evdev.InputEvent, handleLibevdev bool) []handler.Event {
	if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
		frame := t.buffer
		t.buffer = nil
		return t.translate(frame, handleLibevdev)
	}
	t.buffer = append(t.buffer, ev)
	return nil
}

func (t *Translator) translate(frame []evdev.InputEvent, handleLibevdev bool) []handler.Event {
	now := time.Now()
	var out []handler.Event
	var relDX, relDY, relWheelV, relHWheelV float64

	for _, ev := range frame {
		switch ev.Type {
		case evdev.EV_KEY:
			out = append(out, t.translateKey(ev, now, handleLibevdev)...)
		case evdev.EV_REL:
			switch ev.Code {
			case relX:
				relDX += float64(ev.Value)
			case relY:
				relDY += float64(ev.Value)
			case relWheel:
				relWheelV += float64(ev.Value)
			case relHWheel:
				relHWheelV += float64(ev.Value)
			}
		case evdev.EV_ABS:
			out = append(out, t.translateAbs(ev, now, handleLibevdev)...)
		}
	}

	if relDX != 0 || relDY != 0 {
		out = append(out, handler.Event{
			Kind: handler.EventPointerMotion, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Delta: geom.Point{X: relDX, Y: relDY}, DeltaAccelerated: geom.Point{X: relDX, Y: relDY},
		})
	}
	if relWheelV != 0 || relHWheelV != 0 {
		out = append(out, handler.Event{
			Kind: handler.EventPointerAxis, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, AxisVertical: relWheelV, AxisHorizontal: relHWheelV,
		})
	}

	out = append(out, t.deriveGesture(now)...)

	return out
}

func (t *Translator) translateKey(ev evdev.InputEvent, now time.Time, handleLibevdev bool) []handler.Event {
	if handleLibevdev {
		if ev.Value != 0 {
			t.Physical.KeysPressed[ev.Code] = true
		} else {
			delete(t.Physical.KeysPressed, ev.Code)
		}
	}

	switch ev.Code {
	case btnToolFinger:
		t.setFingers(ev.Value, 1)
		return nil
	case btnToolDoubletap:
		t.setFingers(ev.Value, 2)
		return nil
	case btnToolTripletap:
		t.setFingers(ev.Value, 3)
		return nil
	case btnToolQuadtap:
		t.setFingers(ev.Value, 4)
		return nil
	case btnTouch:
		return nil
	case btnLeft, btnRight, btnMiddle:
		return []handler.Event{{
			Kind: handler.EventPointerButton, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Code: ev.Code, Value: ev.Value,
		}}
	default:
		if t.DeviceType == handler.DeviceKeyboard {
			return []handler.Event{{
				Kind: handler.EventKeyboardKey, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
				Time: now, Code: ev.Code, Value: ev.Value,
			}}
		}
		return []handler.Event{{
			Kind: handler.EventPointerButton, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Code: ev.Code, Value: ev.Value,
		}}
	}
}

func (t *Translator) setFingers(value int32, n int) {
	if value != 0 {
		t.fingers = n
	} else if t.fingers == n {
		t.fingers = 0
	}
}

func (t *Translator) translateAbs(ev evdev.InputEvent, now time.Time, handleLibevdev bool) []handler.Event {
	switch ev.Code {
	case absMTSlot:
		t.activeSlot = int(ev.Value)
		return nil
	case absMTTrackingID:
		if ev.Value == -1 {
			t.gestureTouchUp(t.activeSlot)
			return t.liftSlot(t.activeSlot, now)
		}
		t.gestureTouchDown(t.activeSlot)
		return t.touchDown(t.activeSlot, now, handleLibevdev)
	case absMTPositionX, absX:
		t.gestureUpdatePosition(t.activeSlot, geom.Point{X: float64(ev.Value)}, true, false)
		return t.updatePosition(t.activeSlot, &geom.Point{X: float64(ev.Value)}, true, false, now, handleLibevdev)
	case absMTPositionY, absY:
		t.gestureUpdatePosition(t.activeSlot, geom.Point{Y: float64(ev.Value)}, false, true)
		return t.updatePosition(t.activeSlot, &geom.Point{Y: float64(ev.Value)}, false, true, now, handleLibevdev)
	case absMTPressure, absPressure:
		return t.updatePressure(t.activeSlot, float64(ev.Value), handleLibevdev)
	}
	return nil
}

// gestureTouchDown starts tracking slot for gesture classification. Only
// touchpads run gesture classification; touchscreens recognize gestures
// directly in handler.Touchscreen from Touch events instead.
func (t *Translator) gestureTouchDown(slot int) {
	if t.DeviceType != handler.DeviceTouchpad {
		return
	}
	if _, ok := t.gesturePoints[slot]; ok {
		return
	}
	t.gesturePoints[slot] = &gesturePoint{}
	t.gestureOrder = append(t.gestureOrder, slot)
}

func (t *Translator) gestureUpdatePosition(slot int, delta geom.Point, hasX, hasY bool) {
	gp, ok := t.gesturePoints[slot]
	if !ok {
		return
	}
	if hasX {
		gp.position.X = delta.X
	}
	if hasY {
		gp.position.Y = delta.Y
	}
	if !gp.settled {
		// X and Y arrive as separate events, so within the touch-down
		// frame initial follows both until the frame completes.
		gp.initial = gp.position
		gp.previous = gp.position
		gp.primed = true
	}
}

func (t *Translator) gestureTouchUp(slot int) {
	if _, ok := t.gesturePoints[slot]; !ok {
		return
	}
	delete(t.gesturePoints, slot)
	for i, o := range t.gestureOrder {
		if o == slot {
			t.gestureOrder = append(t.gestureOrder[:i], t.gestureOrder[i+1:]...)
			break
		}
	}
}

// deriveGesture runs once per completed frame: it advances whichever
// classification state the touchpad contact is in (idle, classifying,
// Swipe, Pinch/Rotate) and returns the Gesture* events, if any, that
// transition implies.
func (t *Translator) deriveGesture(now time.Time) []handler.Event {
	if t.DeviceType != handler.DeviceTouchpad {
		return nil
	}

	if len(t.gesturePoints) == 0 {
		return t.endGesture(now)
	}

	frameDeltas := make(map[int]geom.Point, len(t.gesturePoints))
	for slot, gp := range t.gesturePoints {
		if !gp.primed {
			continue
		}
		gp.settled = true
		frameDeltas[slot] = gp.position.Sub(gp.previous)
		gp.previous = gp.position
	}

	if t.gestureKind == gestureKindNone {
		return t.classifyGesture(now)
	}
	return t.updateGesture(frameDeltas, now)
}

// primaryPoint is the first finger that touched down, the one swipe
// distance is dead-reckoned from.
func (t *Translator) primaryPoint() (*gesturePoint, bool) {
	if len(t.gestureOrder) == 0 {
		return nil, false
	}
	gp, ok := t.gesturePoints[t.gestureOrder[0]]
	return gp, ok
}

// classifyGesture decides Swipe (every tracked finger moving in the same
// octant from its initial position) vs Pinch/Rotate (otherwise), once the
// primary finger has crossed gestureMotionThreshold. A single finger always
// satisfies "same octant" trivially, so one-finger contacts always classify
// as Swipe, letting the Swipe/Stroke/Circle triggers' own activation
// conditions (and ActivateTriggers' speed gating) decide which applies.
func (t *Translator) classifyGesture(now time.Time) []handler.Event {
	primary, ok := t.primaryPoint()
	if !ok || geom.Hypot(primary.position.Sub(primary.initial)) < gestureMotionThreshold {
		return nil
	}

	sameOctant := true
	var firstAngle float64
	first := true
	for _, gp := range t.gesturePoints {
		d := gp.position.Sub(gp.initial)
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

	eventKind := handler.EventGesturePinchBegin
	t.gestureKind = gestureKindPinch
	if sameOctant {
		eventKind = handler.EventGestureSwipeBegin
		t.gestureKind = gestureKindSwipe
	} else {
		t.gesturePrevDist, t.gesturePrevAngle = t.pinchDistAngle()
	}

	return []handler.Event{{
		Kind: eventKind, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
		Time: now, Fingers: t.fingers,
	}}
}

// pinchDistAngle computes the distance and angle, in degrees, between the
// first two tracked fingers, used as the raw Pinch/Rotate signal.
func (t *Translator) pinchDistAngle() (float64, float64) {
	if len(t.gestureOrder) < 2 {
		return 0, 0
	}
	a, ok := t.gesturePoints[t.gestureOrder[0]]
	if !ok {
		return 0, 0
	}
	b, ok := t.gesturePoints[t.gestureOrder[1]]
	if !ok {
		return 0, 0
	}
	d := a.position.Sub(b.position)
	return geom.Hypot(d), geom.Atan2Deg360(d)
}

func (t *Translator) updateGesture(frameDeltas map[int]geom.Point, now time.Time) []handler.Event {
	switch t.gestureKind {
	case gestureKindSwipe:
		if len(t.gestureOrder) == 0 {
			return nil
		}
		d, ok := frameDeltas[t.gestureOrder[0]]
		if !ok || d.IsZero() {
			return nil
		}
		return []handler.Event{{
			Kind: handler.EventGestureSwipeUpdate, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Delta: d, DeltaAccelerated: d, Fingers: t.fingers,
		}}
	case gestureKindPinch:
		dist, angle := t.pinchDistAngle()
		scale := 1.0
		if t.gesturePrevDist != 0 {
			scale = dist / t.gesturePrevDist
		}
		angleDelta := angle - t.gesturePrevAngle
		for angleDelta > 180 {
			angleDelta -= 360
		}
		for angleDelta < -180 {
			angleDelta += 360
		}
		t.gesturePrevDist = dist
		t.gesturePrevAngle = angle
		if scale == 1 && angleDelta == 0 {
			return nil
		}
		return []handler.Event{{
			Kind: handler.EventGesturePinchUpdate, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Scale: scale, AngleDelta: angleDelta, Fingers: t.fingers,
		}}
	}
	return nil
}

// endGesture fires the matching End event once the last finger has lifted,
// if the contact ever classified into a gesture, and resets classification
// state for the next contact.
func (t *Translator) endGesture(now time.Time) []handler.Event {
	kind := t.gestureKind
	t.gestureKind = gestureKindNone
	t.gestureOrder = nil
	t.gesturePrevDist = 0
	t.gesturePrevAngle = 0

	switch kind {
	case gestureKindSwipe:
		return []handler.Event{{
			Kind: handler.EventGestureSwipeEnd, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Fingers: t.fingers,
		}}
	case gestureKindPinch:
		return []handler.Event{{
			Kind: handler.EventGesturePinchEnd, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
			Time: now, Fingers: t.fingers,
		}}
	}
	return nil
}

func (t *Translator) touchDown(slot int, now time.Time, handleLibevdev bool) []handler.Event {
	if _, ok := t.Physical.Slots[slot]; ok {
		return nil
	}
	tp := &TouchPoint{ID: slot, DownTime: now}
	if handleLibevdev {
		t.Physical.Slots[slot] = tp
	}
	return []handler.Event{{
		Kind: handler.EventTouchDown, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
		Time: now, SlotID: slot, Fingers: t.fingers,
	}}
}

func (t *Translator) liftSlot(slot int, now time.Time) []handler.Event {
	delete(t.Physical.Slots, slot)
	return []handler.Event{{
		Kind: handler.EventTouchUp, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
		Time: now, SlotID: slot, Fingers: t.fingers,
	}}
}

func (t *Translator) updatePosition(slot int, delta *geom.Point, hasX, hasY bool, now time.Time, handleLibevdev bool) []handler.Event {
	if !handleLibevdev {
		return nil
	}
	tp, ok := t.Physical.Slots[slot]
	if !ok {
		tp = &TouchPoint{ID: slot, DownTime: now}
		t.Physical.Slots[slot] = tp
	}
	if hasX {
		tp.Position.X = delta.X
	}
	if hasY {
		tp.Position.Y = delta.Y
	}
	if tp.InitialPosition.IsZero() {
		tp.InitialPosition = tp.Position
	}
	return []handler.Event{{
		Kind: handler.EventTouchMotion, DeviceName: t.DeviceName, DeviceType: t.DeviceType,
		Time: now, SlotID: slot, Position: tp.Position, Fingers: t.fingers,
	}}
}

func (t *Translator) updatePressure(slot int, pressure float64, handleLibevdev bool) []handler.Event {
	if !handleLibevdev {
		return nil
	}
	if tp, ok := t.Physical.Slots[slot]; ok {
		tp.Pressure = pressure
	}
	return nil
}

func (t *Translator) Reset() {
	t.buffer = nil
	t.activeSlot = 0
	t.fingers = 0
	t.gesturePoints = make(map[int]*gesturePoint)
	t.gestureOrder = nil
	t.gestureKind = gestureKindNone
	t.gesturePrevDist = 0
	t.gesturePrevAngle = 0
}
