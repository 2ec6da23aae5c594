package handler

import (
	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/trigger"
	"github.com/libgrip/libgrip/internal/variable"
)

// countingAction is a minimal action.Action used across handler tests to
// count how many times a binding actually fired.
type countingAction struct {
	action.Base
	runs int
}

func (a *countingAction) Execute(action.Args) { a.runs++ }
func (a *countingAction) Async() bool         { return false }
func (a *countingAction) Mergeable() bool     { return false }

func newTestBase() Base {
	return NewBase(condition.NewContext(variable.NewStore(), nil), action.NewExecutor())
}

// addTrigger registers a minimally-configured Config: one binding per On
// hook, each driving its own countingAction, returned for assertions.
func addTrigger(b *Base, typ trigger.Type, on ...trigger.On) (*trigger.Instance, map[trigger.On]*countingAction) {
	actions := make(map[trigger.On]*countingAction, len(on))
	bindings := make([]*trigger.Binding, 0, len(on))
	for _, hook := range on {
		payload := &countingAction{}
		actions[hook] = payload
		bindings = append(bindings, &trigger.Binding{On: hook, Payload: payload, Lane: action.LaneCurrent})
	}
	cfg := &trigger.Config{ID: "t", Type: typ, Actions: bindings}
	return b.AddTrigger(cfg), actions
}
