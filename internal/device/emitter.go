package device

import (
	"fmt"
	"sync"

	"github.com/bendahl/uinput"
)

// ActionEmitter implements action.Emitter on top of bendahl/uinput's typed
// device API: a synthetic keyboard for EmitKey and a synthetic mouse for
// EmitRelativeMotion, kept separate from the raw-ioctl Mirror devices in
// virtual.go. Mirror clones one real device's exact capability set for
// frame-for-frame replay; ActionEmitter is the fixed-capability device
// action.InputSequence writes synthetic, gesture-triggered input onto,
// which is exactly the scenario bendahl/uinput's typed constructors are
// built for.
type ActionEmitter struct {
	mu  sync.Mutex
	kbd uinput.Keyboard
	ms  uinput.Mouse
}

func NewActionEmitter(name string) (*ActionEmitter, error) {
	kbd, err := uinput.CreateKeyboard("/dev/uinput", []byte(name+" (actions-keyboard)"))
	if err != nil {
		return nil, fmt.Errorf("create action keyboard: %w", err)
	}
	ms, err := uinput.CreateMouse("/dev/uinput", []byte(name+" (actions-mouse)"))
	if err != nil {
		kbd.Close()
		return nil, fmt.Errorf("create action mouse: %w", err)
	}
	return &ActionEmitter{kbd: kbd, ms: ms}, nil
}

func (e *ActionEmitter) EmitKey(code uint16, down bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch code {
	case btnLeft:
		e.clickOrHold(e.ms.LeftPress, e.ms.LeftRelease, down)
	case btnRight:
		e.clickOrHold(e.ms.RightPress, e.ms.RightRelease, down)
	case btnMiddle:
		e.clickOrHold(e.ms.MiddlePress, e.ms.MiddleRelease, down)
	default:
		if down {
			e.kbd.KeyDown(int(code))
		} else {
			e.kbd.KeyUp(int(code))
		}
	}
}

func (e *ActionEmitter) clickOrHold(press, release func() error, down bool) {
	if down {
		press()
	} else {
		release()
	}
}

func (e *ActionEmitter) EmitRelativeMotion(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dx > 0 {
		e.ms.MoveRight(int32(dx))
	} else if dx < 0 {
		e.ms.MoveLeft(int32(-dx))
	}
	if dy > 0 {
		e.ms.MoveDown(int32(dy))
	} else if dy < 0 {
		e.ms.MoveUp(int32(-dy))
	}
}

func (e *ActionEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	kerr := e.kbd.Close()
	merr := e.ms.Close()
	if kerr != nil {
		return kerr
	}
	return merr
}
