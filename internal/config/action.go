package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/libgrip/libgrip/internal/action"
)

// Collaborators bundles the runtime-provided implementations config.Build
// wires into every decoded action.Action: the synthetic input emitter, the
// external process runner, and the compositor shortcut invoker. None of
// them are config's concern beyond passing them through.
type Collaborators struct {
	Emitter  action.Emitter
	Runner   action.CommandRunner
	Shortcut action.ShortcutInvoker
}

// ActionSpec decodes one action node, a tagged union keyed by whichever of
// `input`/`command`/`shortcut`/`sleep`/`group` is present.
type ActionSpec struct {
	pos Position

	id             string
	executionLimit uint32
	cond           *ConditionSpec

	kind string

	inputEvents         []action.KeyEvent
	moveRelativeByDelta bool
	deltaMultiplier     float64

	command string

	shortcutComponent string
	shortcutName      string

	sleepDuration time.Duration

	groupMode    action.GroupMode
	groupMembers []*ActionSpec
}

type rawAction struct {
	ID             string          `yaml:"id"`
	ExecutionLimit uint32          `yaml:"execution_limit"`
	Condition      *ConditionSpec  `yaml:"condition"`
	Input          []rawKeyEvent   `yaml:"input"`
	MoveByDelta    bool            `yaml:"move_relative_by_delta"`
	DeltaMultiplier float64        `yaml:"delta_multiplier"`
	Command        string          `yaml:"command"`
	Shortcut       *rawShortcut    `yaml:"shortcut"`
	SleepMS        int64           `yaml:"sleep_ms"`
	GroupMode      string          `yaml:"group_mode"`
	Group          []*ActionSpec   `yaml:"group"`
}

type rawKeyEvent struct {
	Key  string `yaml:"key"`
	Down *bool  `yaml:"down"`
}

type rawShortcut struct {
	Component string `yaml:"component"`
	Name      string `yaml:"name"`
}

func (a *ActionSpec) UnmarshalYAML(node *yaml.Node) error {
	a.pos = Position{Line: node.Line, Column: node.Column}

	var raw rawAction
	if err := node.Decode(&raw); err != nil {
		return newError(ErrInvalidNodeType, a.pos, "action: %v", err)
	}

	a.id = raw.ID
	a.executionLimit = raw.ExecutionLimit
	a.cond = raw.Condition

	switch {
	case len(raw.Input) > 0 || raw.MoveByDelta:
		a.kind = "input"
		a.moveRelativeByDelta = raw.MoveByDelta
		a.deltaMultiplier = raw.DeltaMultiplier
		for _, ke := range raw.Input {
			code, ok := keyCodeByName[ke.Key]
			if !ok {
				return newError(ErrInvalidValue, a.pos, "action.input: unknown key %q", ke.Key)
			}
			down := true
			if ke.Down != nil {
				down = *ke.Down
			}
			a.inputEvents = append(a.inputEvents, action.KeyEvent{Code: code, Down: down})
		}
	case raw.Command != "":
		a.kind = "command"
		a.command = raw.Command
	case raw.Shortcut != nil:
		a.kind = "shortcut"
		a.shortcutComponent = raw.Shortcut.Component
		a.shortcutName = raw.Shortcut.Name
	case raw.SleepMS > 0:
		a.kind = "sleep"
		a.sleepDuration = time.Duration(raw.SleepMS) * time.Millisecond
	case len(raw.Group) > 0:
		a.kind = "group"
		a.groupMembers = raw.Group
		if raw.GroupMode == "first" {
			a.groupMode = action.GroupFirst
		}
	default:
		return newError(ErrInvalidNodeType, a.pos, "action: none of input/command/shortcut/sleep/group present")
	}

	return nil
}

// Build converts the decoded spec into a runtime action.Action, wiring in
// the collaborators the payload needs.
func (a *ActionSpec) Build(col Collaborators) action.Action {
	base := action.Base{IDValue: a.id, ExecutionLimit: a.executionLimit, Cond: a.cond.Build()}

	switch a.kind {
	case "input":
		return &action.InputSequence{
			Base: base, Emitter: col.Emitter, Events: a.inputEvents,
			MoveRelativeByDelta: a.moveRelativeByDelta, DeltaMultiplier: a.deltaMultiplier,
		}
	case "command":
		return &action.Command{Base: base, Runner: col.Runner, Command: a.command}
	case "shortcut":
		return &action.GlobalShortcut{Base: base, Invoker: col.Shortcut, Component: a.shortcutComponent, Shortcut: a.shortcutName}
	case "sleep":
		return &action.Sleep{Base: base, Duration: a.sleepDuration}
	case "group":
		members := make([]action.Action, len(a.groupMembers))
		for i, m := range a.groupMembers {
			members[i] = m.Build(col)
		}
		g := &action.Group{Base: base, Mode: a.groupMode, Members: members}
		return g
	default:
		return &action.Sleep{Base: base, Duration: 0}
	}
}
