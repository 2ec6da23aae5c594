// Package action implements the Action model: a polymorphic payload
// (InputSequence, Command, GlobalShortcut, Sleep, Group), its
// condition/execution-limit/executions bookkeeping, and the
// three-lane ActionExecutor.
package action

import (
	"github.com/libgrip/libgrip/internal/condition"
)

// Args is what a trigger passes into Execute: how many times the action was
// scheduled (relevant only when Mergeable()) and the accumulated point delta
// for InputSequence relative-motion items.
type Args struct {
	Executions uint32
	DeltaX     float64
	DeltaY     float64
}

// Action is the common interface every payload variant implements.
type Action interface {
	// Execute runs the payload. Must not be called directly; only the
	// ActionExecutor invokes it, and possibly off the event thread.
	Execute(args Args)
	Async() bool
	Mergeable() bool
	Reset()

	ID() string
	Condition() *condition.Condition
	CanExecute(ctx *condition.Context) bool
	AboutToExecute()
	Executions() uint32
}

// Base is embedded by every concrete Action and implements the bookkeeping
// common to all of them.
type Base struct {
	IDValue        string
	ExecutionLimit uint32
	Cond           *condition.Condition

	executions uint32
}

func (b *Base) ID() string                        { return b.IDValue }
func (b *Base) Condition() *condition.Condition    { return b.Cond }
func (b *Base) Executions() uint32                 { return b.executions }
func (b *Base) AboutToExecute()                    { b.executions++ }
func (b *Base) Reset()                             { b.executions = 0 }

func (b *Base) CanExecute(ctx *condition.Context) bool {
	if b.ExecutionLimit != 0 && b.executions >= b.ExecutionLimit {
		return false
	}
	return b.Cond.Satisfied(ctx)
}
