package device

import (
	"time"

	"github.com/libgrip/libgrip/internal/geom"
)

// TouchKind classifies a touch point by pressure, per Properties'
// finger/thumb/palm thresholds.
type TouchKind int

const (
	TouchFinger TouchKind = iota
	TouchThumb
	TouchPalm
)

// TouchPoint is a per-slot record of one active contact.
type TouchPoint struct {
	ID              int
	DownTime        time.Time
	InitialPosition geom.Point
	Position        geom.Point
	Pressure        float64
	Valid           bool
	Kind            TouchKind
}

// Classify sets Valid/Kind from Pressure against props' thresholds:
// valid iff pressure is in [finger, palm), thumb iff pressure >= thumb.
func (t *TouchPoint) Classify(props Properties) {
	t.Valid = t.Pressure >= props.FingerPressure && t.Pressure < props.PalmPressure
	switch {
	case t.Pressure >= props.PalmPressure:
		t.Kind = TouchPalm
	case t.Pressure >= props.ThumbPressure:
		t.Kind = TouchThumb
	default:
		t.Kind = TouchFinger
	}
}

// PhysicalState mirrors the real device's currently-asserted state: keys
// down, modifier mask, and active touch slots.
type PhysicalState struct {
	KeysPressed map[uint16]bool
	Modifiers   uint64
	Slots       map[int]*TouchPoint
}

func NewPhysicalState() *PhysicalState {
	return &PhysicalState{KeysPressed: make(map[uint16]bool), Slots: make(map[int]*TouchPoint)}
}

// Neutral reports whether no keys are pressed and no touch is active,
// the precondition for grabbing a device or releasing it cleanly.
func (p *PhysicalState) Neutral() bool {
	return len(p.KeysPressed) == 0 && len(p.Slots) == 0
}

// VirtualState mirrors what the output mirror currently asserts; it can
// lag the real state while a gesture is blocking frames.
type VirtualState struct {
	KeysPressed map[uint16]bool
	Slots       map[int]*TouchPoint
}

func NewVirtualState() *VirtualState {
	return &VirtualState{KeysPressed: make(map[uint16]bool), Slots: make(map[int]*TouchPoint)}
}
