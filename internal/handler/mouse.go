package handler

import (
	"time"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/trigger"
)

var mouseLog = log.New("handler.mouse")

// clickTimeout bounds how long a button may be held and still count as a
// Click rather than a Press-and-hold.
const clickTimeout = 300 * time.Millisecond

// wheelIdleTimeout ends an active Wheel trigger once no axis event has
// arrived for this long, so a repeater action stops firing after the
// wheel stops turning.
const wheelIdleTimeout = 400 * time.Millisecond

// Mouse drives Press, Click and Wheel triggers on mouse button and axis
// events; motion itself belongs to Pointer.
type Mouse struct {
	Base

	down      map[uint16]time.Time
	wheelIdle *time.Timer
}

func NewMouse(base Base) *Mouse {
	return &Mouse{Base: base, down: make(map[uint16]time.Time)}
}

// HandleButton processes one button press/release.
func (m *Mouse) HandleButton(code uint16, pressed bool, now time.Time) bool {
	if pressed {
		m.down[code] = now
		block := false
		if result := m.ActivateTriggers(trigger.TypePress); result.Success {
			m.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{trigger.TypePress: {}})
			block = block || result.Block
		}
		if result := m.ActivateTriggers(trigger.TypeClick); result.Success {
			block = block || result.Block
		}
		return block
	}

	downAt, wasDown := m.down[code]
	delete(m.down, code)

	if m.HasActiveTriggers(trigger.TypePress) {
		m.EndTriggers(trigger.TypePress)
	}
	if m.HasActiveTriggers(trigger.TypeClick) {
		if wasDown && now.Sub(downAt) <= clickTimeout {
			mouseLog.Debugf("click recognized on button %d", code)
			m.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{trigger.TypeClick: {}})
			m.EndTriggers(trigger.TypeClick)
		} else {
			m.CancelTriggers(trigger.TypeClick)
		}
	}
	return m.HasActiveBlockingTriggers(trigger.TypePress, trigger.TypeClick)
}

// HandleAxis processes one wheel/scroll event. Vertical/horizontal carry
// the cumulative step count since the last event; direction follows sign.
func (m *Mouse) HandleAxis(vertical, horizontal float64) bool {
	if vertical == 0 && horizontal == 0 {
		return false
	}
	if !m.HasActiveTriggers(trigger.TypeWheel) {
		result := m.ActivateTriggers(trigger.TypeWheel)
		if !result.Success {
			return false
		}
	}

	direction := geom.Point{X: horizontal, Y: vertical}
	result := m.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{
		trigger.TypeWheel: {
			Delta:   trigger.Delta{Accelerated: vertical + horizontal, Unaccelerated: vertical + horizontal},
			PointDX: direction.X,
			PointDY: direction.Y,
		},
	})

	if m.wheelIdle != nil {
		m.wheelIdle.Stop()
	}
	m.wheelIdle = time.AfterFunc(wheelIdleTimeout, func() {
		m.EndTriggers(trigger.TypeWheel)
	})

	return result.Block
}

func (m *Mouse) Reset() {
	m.Base.Reset()
	m.down = make(map[uint16]time.Time)
	if m.wheelIdle != nil {
		m.wheelIdle.Stop()
	}
}
