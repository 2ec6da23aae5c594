package action

import (
	"time"

	"github.com/libgrip/libgrip/internal/condition"
)

// KeyEvent is one synthetic key or button transition an InputSequence item
// emits. Down=true presses, false releases.
type KeyEvent struct {
	Code uint16
	Down bool
}

// Emitter synthesizes key/button/motion events onto the virtual output
// device. Implemented by internal/device; kept as an interface here so the
// action package never depends on uinput directly.
type Emitter interface {
	EmitKey(code uint16, down bool)
	EmitRelativeMotion(dx, dy float64)
}

// InputSequence replays a fixed list of synthetic key/button events, in
// order, each as its own EV_SYN-delimited frame.
type InputSequence struct {
	Base
	Emitter Emitter
	Events  []KeyEvent
	// MoveRelativeByDelta, if true, emits a relative pointer motion scaled
	// by the accumulated delta instead of (or alongside) Events.
	MoveRelativeByDelta bool
	DeltaMultiplier     float64
}

func (a *InputSequence) Execute(args Args) {
	for _, ev := range a.Events {
		a.Emitter.EmitKey(ev.Code, ev.Down)
	}
	if a.MoveRelativeByDelta {
		mult := a.DeltaMultiplier
		if mult == 0 {
			mult = 1
		}
		a.Emitter.EmitRelativeMotion(args.DeltaX*mult, args.DeltaY*mult)
	}
}

func (a *InputSequence) Async() bool { return false }

// Mergeable reports true only for the relative-motion form: a burst of
// per-update motion events queued faster than the executor drains them can
// safely collapse into one EmitRelativeMotion call with the summed delta. A
// fixed KeyEvent sequence must not merge: dropping a run would drop a
// discrete key press.
func (a *InputSequence) Mergeable() bool { return a.MoveRelativeByDelta }

// CommandRunner spawns a shell command. Process spawning is an external
// collaborator; this is the interface contract only.
type CommandRunner interface {
	Start(command string) error
}

// Command runs a shell command through the external process runner. Always
// async: spawning is inherently not bounded to the event-loop microsecond
// budget.
type Command struct {
	Base
	Runner  CommandRunner
	Command string
}

func (a *Command) Execute(args Args) {
	_ = a.Runner.Start(a.Command)
}

func (a *Command) Async() bool     { return true }
func (a *Command) Mergeable() bool { return false }

// ShortcutInvoker triggers a compositor-bound global shortcut by name.
// Compositor integration is an external collaborator; this is the
// interface contract only.
type ShortcutInvoker interface {
	InvokeShortcut(component, shortcut string) error
}

// GlobalShortcut asks the compositor to invoke one of its own registered
// shortcuts, used to bridge gestures into compositor-native actions.
type GlobalShortcut struct {
	Base
	Invoker   ShortcutInvoker
	Component string
	Shortcut  string
}

func (a *GlobalShortcut) Execute(args Args) {
	_ = a.Invoker.InvokeShortcut(a.Component, a.Shortcut)
}

func (a *GlobalShortcut) Async() bool     { return false }
func (a *GlobalShortcut) Mergeable() bool { return false }

// Sleep pauses the executing lane for Duration. Since it always runs off
// the event thread lane (Auto/Own), coroutine-like suspension is achieved
// by yielding the action to a pool thread rather than suspending the event
// loop.
type Sleep struct {
	Base
	Duration time.Duration
}

func (a *Sleep) Execute(args Args) { time.Sleep(a.Duration) }
func (a *Sleep) Async() bool       { return true }
func (a *Sleep) Mergeable() bool   { return false }

// GroupMode selects how a Group executes its members.
type GroupMode int

const (
	// GroupAll executes every member whose condition is satisfied.
	GroupAll GroupMode = iota
	// GroupFirst executes only the first member whose condition is
	// satisfied.
	GroupFirst
)

// Group runs a nested set of actions together.
type Group struct {
	Base
	Mode    GroupMode
	Members []Action
	ctx     *condition.Context
}

// SetContext lets the executing TriggerAction hand the Group its condition
// context so members can be gated the same way the top-level action is.
func (a *Group) SetContext(ctx *condition.Context) { a.ctx = ctx }

func (a *Group) Execute(args Args) {
	switch a.Mode {
	case GroupAll:
		for _, m := range a.Members {
			if m.CanExecute(a.ctx) {
				m.AboutToExecute()
				m.Execute(args)
			}
		}
	case GroupFirst:
		for _, m := range a.Members {
			if m.CanExecute(a.ctx) {
				m.AboutToExecute()
				m.Execute(args)
				break
			}
		}
	}
}

// Async is conservative: true if any member is async, regardless of that
// member's own condition, rather than silently under-reporting asyncness.
func (a *Group) Async() bool {
	for _, m := range a.Members {
		if m.Async() {
			return true
		}
	}
	return false
}

func (a *Group) Mergeable() bool { return false }

func (a *Group) Reset() {
	a.Base.Reset()
	for _, m := range a.Members {
		m.Reset()
	}
}
