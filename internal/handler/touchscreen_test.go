package handler

import (
	"testing"
	"time"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/trigger"
)

func newTouchscreen() *Touchscreen {
	base := newTestBase()
	ts := NewTouchscreen(base)
	ts.MMToPixels = 1 // 1 pixel per mm keeps the 4mm threshold a small, test-friendly number
	return ts
}

func TestTouchscreenBlocksByDefaultBeforeSettling(t *testing.T) {
	ts := newTouchscreen()
	now := time.Now()

	if block := ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now); !block {
		t.Errorf("touch-down should block under the block-first policy, got false")
	}
}

func TestTouchscreenSingleFingerMotionClassifiedAsSwipe(t *testing.T) {
	ts := newTouchscreen()
	_, actions := addTrigger(&ts.Base, trigger.TypeSwipe, trigger.OnBegin)
	now := time.Now()

	ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now)
	ts.onTouchDownsSettled() // simulate the settle timer firing immediately

	ts.TouchMotion(0, geom.Point{X: 10, Y: 0})

	if ts.state != tsSwipe {
		t.Fatalf("expected state tsSwipe, got %v", ts.state)
	}
	if actions[trigger.OnBegin].runs != 1 {
		t.Errorf("crossing the motion threshold should activate Swipe, OnBegin ran %d times", actions[trigger.OnBegin].runs)
	}
}

func TestTouchscreenTwoFingerDivergentMotionClassifiedAsPinch(t *testing.T) {
	ts := newTouchscreen()
	_, pinchActions := addTrigger(&ts.Base, trigger.TypePinch, trigger.OnBegin)
	addTrigger(&ts.Base, trigger.TypeRotate, trigger.OnBegin)
	now := time.Now()

	ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now)
	ts.TouchDown(1, geom.Point{X: 100, Y: 0}, now)
	ts.onTouchDownsSettled()

	ts.TouchMotion(0, geom.Point{X: -10, Y: 0})
	ts.TouchMotion(1, geom.Point{X: 110, Y: 0})

	if ts.state != tsPinch {
		t.Fatalf("expected state tsPinch for fingers moving apart, got %v", ts.state)
	}
	if pinchActions[trigger.OnBegin].runs != 1 {
		t.Errorf("divergent two-finger motion should activate Pinch, OnBegin ran %d times", pinchActions[trigger.OnBegin].runs)
	}
}

func TestTouchscreenHoldActivatesPressAfterIdle(t *testing.T) {
	ts := newTouchscreen()
	_, actions := addTrigger(&ts.Base, trigger.TypePress, trigger.OnBegin)
	now := time.Now()

	ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now)
	ts.onTouchDownsSettled()
	ts.onHoldIdle()

	if ts.state != tsHold {
		t.Fatalf("expected state tsHold, got %v", ts.state)
	}
	if actions[trigger.OnBegin].runs != 1 {
		t.Errorf("idle timeout while touching should activate Press, OnBegin ran %d times", actions[trigger.OnBegin].runs)
	}
}

func TestTouchscreenTapRecognizedOnQuickLift(t *testing.T) {
	ts := newTouchscreen()
	_, actions := addTrigger(&ts.Base, trigger.TypeTap, trigger.OnEnd)
	now := time.Now()

	ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now)
	ts.onTouchDownsSettled()
	ts.TouchUp(0, now.Add(20*time.Millisecond))

	time.Sleep(touchUpSettleTimeout + 30*time.Millisecond)

	if actions[trigger.OnEnd].runs != 1 {
		t.Errorf("a quick, small lift should be recognized as a tap once the settle timer fires, OnEnd ran %d times", actions[trigger.OnEnd].runs)
	}
	if ts.state != tsNone {
		t.Errorf("state should return to tsNone after the tap settles, got %v", ts.state)
	}
}

func TestTouchscreenReset(t *testing.T) {
	ts := newTouchscreen()
	now := time.Now()
	ts.TouchDown(0, geom.Point{X: 0, Y: 0}, now)

	ts.Reset()

	if ts.state != tsNone || len(ts.points) != 0 || ts.order != nil {
		t.Errorf("Reset should clear state/points/order, got state=%v points=%v order=%v", ts.state, ts.points, ts.order)
	}
}
