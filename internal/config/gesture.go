package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/stroke"
	"github.com/libgrip/libgrip/internal/trigger"
)

var typeByName = map[string]trigger.Type{
	"press": trigger.TypePress, "click": trigger.TypeClick, "tap": trigger.TypeTap,
	"hover": trigger.TypeHover, "pinch": trigger.TypePinch, "rotate": trigger.TypeRotate,
	"swipe": trigger.TypeSwipe, "wheel": trigger.TypeWheel, "stroke": trigger.TypeStroke,
	"keyboard_shortcut": trigger.TypeKeyboardShortcut, "circle": trigger.TypeCircle,
}

var directionByName = map[string]trigger.Direction{
	"left": trigger.DirectionLeft, "right": trigger.DirectionRight,
	"up": trigger.DirectionUp, "down": trigger.DirectionDown,
	"in": trigger.DirectionIn, "out": trigger.DirectionOut,
	"clockwise": trigger.DirectionClockwise, "counterclockwise": trigger.DirectionCounterclockwise,
	"positive": trigger.DirectionPositive, "negative": trigger.DirectionNegative,
}

var onByName = map[string]trigger.On{
	"begin": trigger.OnBegin, "update": trigger.OnUpdate, "tick": trigger.OnTick,
	"end": trigger.OnEnd, "cancel": trigger.OnCancel, "end_cancel": trigger.OnEndCancel,
}

var laneByName = map[string]action.Lane{
	"auto": action.LaneAuto, "current": action.LaneCurrent, "own": action.LaneOwn,
}

// BindingSpec decodes one `actions[]` entry: the lifecycle hook it fires
// at plus the action payload and its own interval/threshold.
type BindingSpec struct {
	pos Position

	on          trigger.On
	intervalVal float64
	intervalDir trigger.IntervalDirection
	accelerated bool
	threshold   *geom.Range
	conflicting bool
	lane        action.Lane

	payload *ActionSpec
}

type rawBinding struct {
	On          string       `yaml:"on"`
	Interval    *rawInterval `yaml:"interval"`
	Accelerated bool         `yaml:"accelerated"`
	Threshold   *[2]float64  `yaml:"threshold"`
	Conflicting bool         `yaml:"conflicting"`
	Lane        string       `yaml:"lane"`
}

type rawInterval struct {
	Value     float64 `yaml:"value"`
	Direction string  `yaml:"direction"`
}

func (b *BindingSpec) UnmarshalYAML(node *yaml.Node) error {
	b.pos = Position{Line: node.Line, Column: node.Column}

	var raw rawBinding
	if err := node.Decode(&raw); err != nil {
		return newError(ErrInvalidNodeType, b.pos, "action binding: %v", err)
	}
	var payload ActionSpec
	if err := node.Decode(&payload); err != nil {
		return newError(ErrInvalidNodeType, b.pos, "action binding payload: %v", err)
	}
	b.payload = &payload

	on, ok := onByName[raw.On]
	if !ok {
		return newError(ErrInvalidValue, b.pos, "action binding: unknown 'on' value %q", raw.On)
	}
	b.on = on

	if on == trigger.OnBegin && raw.Threshold != nil {
		return newError(ErrInvalidValue, b.pos, "action binding: a Begin binding must not declare a threshold")
	}

	if raw.Interval != nil {
		b.intervalVal = raw.Interval.Value
		switch raw.Interval.Direction {
		case "+", "positive":
			b.intervalDir = trigger.IntervalPositive
		case "-", "negative":
			b.intervalDir = trigger.IntervalNegative
		default:
			b.intervalDir = trigger.IntervalAny
		}
	}
	b.accelerated = raw.Accelerated
	if raw.Threshold != nil {
		b.threshold = &geom.Range{Min: raw.Threshold[0], Max: raw.Threshold[1]}
	}
	b.conflicting = raw.Conflicting
	b.lane = action.LaneAuto
	if lane, ok := laneByName[raw.Lane]; ok {
		b.lane = lane
	}
	return nil
}

func (b *BindingSpec) Build(col Collaborators) *trigger.Binding {
	return &trigger.Binding{
		On:          b.on,
		Interval:    trigger.Interval{Value: b.intervalVal, Direction: b.intervalDir},
		Accelerated: b.accelerated,
		Threshold:   b.threshold,
		Conflicting: b.conflicting,
		Payload:     b.payload.Build(col),
		Lane:        b.lane,
	}
}

// GestureSpec decodes one entry of a handler's `gestures` list into a
// trigger.Config.
type GestureSpec struct {
	pos Position

	id                  string
	typ                 trigger.Type
	direction           trigger.Direction
	mouseButtons        *trigger.MouseButtons
	threshold           *geom.Range
	activationCondition *ConditionSpec
	endCondition        *ConditionSpec
	resumeTimeoutMS     int64
	blockEvents         bool
	clearModifiers      bool
	setLastTrigger      bool
	actions             []*BindingSpec
	speed               *trigger.Speed
	strokeTemplates     []string
}

type rawGesture struct {
	ID                  string        `yaml:"id"`
	Type                string        `yaml:"type"`
	Direction           string        `yaml:"direction"`
	MouseButtons        []string      `yaml:"mouse_buttons"`
	ExactOrder          bool          `yaml:"exact_order"`
	Threshold           *[2]float64   `yaml:"threshold"`
	ActivationCondition *ConditionSpec `yaml:"activation_condition"`
	EndCondition        *ConditionSpec `yaml:"end_condition"`
	ResumeTimeoutMS     int64         `yaml:"resume_timeout_ms"`
	BlockEvents         bool          `yaml:"block_events"`
	ClearModifiers      bool          `yaml:"clear_modifiers"`
	SetLastTrigger      bool          `yaml:"set_last_trigger"`
	Actions             []*BindingSpec `yaml:"actions"`
	Speed               string        `yaml:"speed"`
	StrokeTemplates     []string      `yaml:"stroke_templates"`
}

func (g *GestureSpec) UnmarshalYAML(node *yaml.Node) error {
	g.pos = Position{Line: node.Line, Column: node.Column}

	var raw rawGesture
	if err := node.Decode(&raw); err != nil {
		return newError(ErrInvalidNodeType, g.pos, "gesture: %v", err)
	}
	if raw.ID == "" {
		return newError(ErrMissingProperty, g.pos, "gesture: missing 'id'")
	}
	typ, ok := typeByName[raw.Type]
	if !ok {
		return newError(ErrInvalidValue, g.pos, "gesture %q: unknown type %q", raw.ID, raw.Type)
	}

	g.id = raw.ID
	g.typ = typ
	g.direction = directionByName[raw.Direction]
	g.activationCondition = raw.ActivationCondition
	g.endCondition = raw.EndCondition
	g.resumeTimeoutMS = raw.ResumeTimeoutMS
	g.blockEvents = raw.BlockEvents
	g.clearModifiers = raw.ClearModifiers
	g.setLastTrigger = raw.SetLastTrigger
	g.actions = raw.Actions
	g.strokeTemplates = raw.StrokeTemplates

	switch raw.Speed {
	case "fast":
		s := trigger.SpeedFast
		g.speed = &s
	case "slow":
		s := trigger.SpeedSlow
		g.speed = &s
	}

	if raw.Threshold != nil {
		g.threshold = &geom.Range{Min: raw.Threshold[0], Max: raw.Threshold[1]}
	}

	if len(raw.MouseButtons) > 0 {
		codes := make([]uint16, 0, len(raw.MouseButtons))
		for _, name := range raw.MouseButtons {
			code, ok := keyCodeByName[name]
			if !ok {
				return newError(ErrInvalidValue, g.pos, "gesture %q: unknown mouse button %q", raw.ID, name)
			}
			codes = append(codes, code)
		}
		g.mouseButtons = &trigger.MouseButtons{Buttons: codes, ExactOrder: raw.ExactOrder}
	}

	for _, b := range raw.Actions {
		if b.on == trigger.OnBegin && g.threshold != nil {
			return newError(ErrInvalidValue, g.pos, "gesture %q: a Begin binding must not declare a threshold", raw.ID)
		}
	}

	return nil
}

// Build converts the decoded spec into a runtime *trigger.Config. For a
// Stroke gesture it also decodes g.strokeTemplates from the base64 wire
// format; that step needs no collaborators but is kept out of
// UnmarshalYAML to keep parse errors and data errors distinguishable.
func (g *GestureSpec) Build(col Collaborators) (*trigger.Config, *MultiError) {
	errs := newMultiError()

	bindings := make([]*trigger.Binding, 0, len(g.actions))
	for _, b := range g.actions {
		bindings = append(bindings, b.Build(col))
	}

	var templates []stroke.Stroke
	if g.typ == trigger.TypeStroke {
		for _, encoded := range g.strokeTemplates {
			s, err := stroke.Decode(encoded)
			if err != nil {
				errs.add(newError(ErrInvalidValue, g.pos, "gesture %q: invalid stroke template: %v", g.id, err))
				continue
			}
			templates = append(templates, s)
		}
	}

	cfg := &trigger.Config{
		ID:                  g.id,
		Type:                g.typ,
		Direction:           g.direction,
		MouseButtons:        g.mouseButtons,
		Threshold:           g.threshold,
		ActivationCondition: g.activationCondition.Build(),
		EndCondition:        g.endCondition.Build(),
		ResumeTimeout:       time.Duration(g.resumeTimeoutMS) * time.Millisecond,
		BlockEvents:         g.blockEvents,
		ClearModifiers:      g.clearModifiers,
		SetLastTrigger:      g.setLastTrigger,
		Actions:             bindings,
		Speed:               g.speed,
		StrokeTemplates:     templates,
	}
	if errs.HasErrors() {
		return cfg, errs
	}
	return cfg, nil
}
