package handler

import (
	"time"

	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/trigger"
)

var keyboardLog = log.New("handler.keyboard")

// Keyboard drives KeyboardShortcut triggers. Every new key press
// (autorepeat excluded) tries to activate them, gated only by each
// trigger's activation_condition; the declared chord does not have to be
// fully pressed first. An Active trigger ends as soon as any key of its
// chord is released. A release is blocked while a blocking trigger is
// still Active after it, including the release of a key outside the chord.
type Keyboard struct {
	Base

	pressed map[uint16]bool
}

func NewKeyboard(base Base) *Keyboard {
	return &Keyboard{Base: base, pressed: make(map[uint16]bool)}
}

// HandleKey processes one key press/release. down is true for a press or
// autorepeat, false for a release.
func (k *Keyboard) HandleKey(code uint16, down bool, now time.Time) bool {
	wasPressed := k.pressed[code]
	if down {
		k.pressed[code] = true
	} else {
		delete(k.pressed, code)
	}

	block := false
	if down && !wasPressed {
		result := k.ActivateTriggers(trigger.TypeKeyboardShortcut)
		if result.Success {
			k.UpdateTriggers(map[trigger.Type]trigger.UpdateEvent{
				trigger.TypeKeyboardShortcut: {},
			})
			block = block || result.Block
		}
	}

	if !down {
		active := k.ActiveTriggers(trigger.TypeKeyboardShortcut)
		for _, inst := range active {
			if !k.chordHeld(inst) {
				keyboardLog.Debugf("shortcut %s released", inst.ID)
				k.EndTriggers(trigger.TypeKeyboardShortcut)
				break
			}
		}
		if k.HasActiveBlockingTriggers(trigger.TypeKeyboardShortcut) {
			block = true
		}
	}

	return block
}

// chordHeld reports whether every key of a trigger's declared chord is
// still held down. KeyboardShortcut triggers reuse the MouseButtons field
// as a code list since both are "a set of codes, optionally ordered".
func (k *Keyboard) chordHeld(inst *trigger.Instance) bool {
	if inst.MouseButtons == nil {
		return false
	}
	for _, code := range inst.MouseButtons.Buttons {
		if !k.pressed[uint16(code)] {
			return false
		}
	}
	return true
}

func (k *Keyboard) Reset() {
	k.Base.Reset()
	k.pressed = make(map[uint16]bool)
}
