// Package condition evaluates a Condition variant against a
// variable.Store: VariableComparison leaves and All/Any/None groups, each
// with an optional negate flag.
package condition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/libgrip/libgrip/internal/variable"
)

// Op is a comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpContains
	OpBetween
	OpOneOf
	OpRegexMatches
)

// GroupMode is the aggregation rule for a Group condition.
type GroupMode int

const (
	GroupAll GroupMode = iota
	GroupAny
	GroupNone
)

// ProcessRunner executes a shell command and returns its trimmed stdout.
// Context.resolve calls it synchronously on the goroutine that evaluates
// the condition, which for activation and end conditions is the event
// path; the call is not moved onto an action lane.
type ProcessRunner interface {
	Run(command string) (string, error)
}

// ValueSource is a Condition operand: a literal, a variable reference, or a
// lazily evaluated shell command whose result is cached in the resolving
// Context and reused by every later evaluation through that Context.
type ValueSource struct {
	Literal     variable.Value
	VariableRef string
	Command     string
}

func Literal(v variable.Value) ValueSource       { return ValueSource{Literal: v} }
func VarRef(name string) ValueSource             { return ValueSource{VariableRef: name} }
func Cmd(command string) ValueSource             { return ValueSource{Command: command} }

// Context carries the command-result cache and the collaborators needed to
// resolve operands. The cache is never cleared: a command runs at most once
// per Context.
type Context struct {
	Store   *variable.Store
	Runner  ProcessRunner
	cmdCache map[string]variable.Value
}

func NewContext(store *variable.Store, runner ProcessRunner) *Context {
	return &Context{Store: store, Runner: runner, cmdCache: make(map[string]variable.Value)}
}

func (c *Context) resolve(vs ValueSource) variable.Value {
	switch {
	case vs.VariableRef != "":
		v, ok := c.Store.Get(vs.VariableRef)
		if !ok {
			return variable.None()
		}
		return v
	case vs.Command != "":
		if cached, ok := c.cmdCache[vs.Command]; ok {
			return cached
		}
		out := variable.None()
		if c.Runner != nil {
			if result, err := c.Runner.Run(vs.Command); err == nil {
				out = variable.String(result)
			}
		}
		c.cmdCache[vs.Command] = out
		return out
	default:
		return vs.Literal
	}
}

// Condition is the tagged union of VariableComparison and Group.
type Condition struct {
	// Leaf (VariableComparison) fields.
	Variable string
	Op       Op
	Values   []ValueSource

	// Group fields.
	Mode    GroupMode
	Members []*Condition
	isGroup bool

	Negate bool
}

func NewComparison(variableName string, op Op, values ...ValueSource) *Condition {
	return &Condition{Variable: variableName, Op: op, Values: values}
}

func NewGroup(mode GroupMode, members ...*Condition) *Condition {
	return &Condition{Mode: mode, Members: members, isGroup: true}
}

func (c *Condition) WithNegate(negate bool) *Condition {
	c.Negate = negate
	return c
}

// Satisfied evaluates the condition tree against ctx, applying negate at
// every level.
func (c *Condition) Satisfied(ctx *Context) bool {
	if c == nil {
		return true
	}
	var result bool
	if c.isGroup {
		result = c.evalGroup(ctx)
	} else {
		result = c.evalComparison(ctx)
	}
	if c.Negate {
		return !result
	}
	return result
}

func (c *Condition) evalGroup(ctx *Context) bool {
	switch c.Mode {
	case GroupAll:
		for _, m := range c.Members {
			if !m.Satisfied(ctx) {
				return false
			}
		}
		return true
	case GroupAny:
		for _, m := range c.Members {
			if m.Satisfied(ctx) {
				return true
			}
		}
		return false
	case GroupNone:
		for _, m := range c.Members {
			if m.Satisfied(ctx) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c *Condition) evalComparison(ctx *Context) bool {
	left, ok := ctx.Store.Get(c.Variable)
	if !ok || left.IsNone() {
		return false
	}

	values := make([]variable.Value, len(c.Values))
	for i, vs := range c.Values {
		values[i] = ctx.resolve(vs)
	}

	switch c.Op {
	case OpNotEqual:
		return !compareEqual(left, firstOrNone(values))
	case OpOneOf:
		for _, v := range values {
			if compareEqual(left, v) {
				return true
			}
		}
		return false
	case OpBetween:
		if len(values) < 2 {
			return false
		}
		lo, hi := values[0], values[1]
		return compareOrdered(left, lo) >= 0 && compareOrdered(left, hi) <= 0
	default:
		return compareByType(left, firstOrNone(values), c.Op)
	}
}

func firstOrNone(values []variable.Value) variable.Value {
	if len(values) == 0 {
		return variable.None()
	}
	return values[0]
}

// compareByType dispatches on the left operand's type.
func compareByType(left, right variable.Value, op Op) bool {
	switch left.Kind {
	case variable.KindNumber:
		return compareNumbers(left.Number, right.Number, op)
	case variable.KindString:
		return compareStrings(left.Str, right, op)
	case variable.KindFlags:
		return compareFlags(left.Flags, right.Flags, op)
	case variable.KindPoint:
		return compareNumbers(left.X, right.X, op) && compareNumbers(left.Y, right.Y, op)
	case variable.KindBool:
		if op == OpEqual {
			return left.Bool == right.Bool
		}
		return false
	case variable.KindEnum:
		if op == OpEqual {
			return left.Enum == right.Enum
		}
		return false
	default:
		return false
	}
}

func compareEqual(left, right variable.Value) bool {
	return compareByType(left, right, OpEqual)
}

// compareOrdered returns -1/0/1, used only by Between which needs a total
// order over numbers and points (componentwise via X).
func compareOrdered(left, right variable.Value) int {
	var l, r float64
	switch left.Kind {
	case variable.KindPoint:
		l, r = left.X, right.X
	default:
		l, r = left.Number, right.Number
	}
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func compareNumbers(l, r float64, op Op) bool {
	switch op {
	case OpEqual:
		return l == r
	case OpLess:
		return l < r
	case OpLessEqual:
		return l <= r
	case OpGreater:
		return l > r
	case OpGreaterEqual:
		return l >= r
	default:
		return false
	}
}

func compareStrings(l string, right variable.Value, op Op) bool {
	switch op {
	case OpEqual:
		return l == right.Str
	case OpContains:
		return strings.Contains(l, right.Str)
	case OpRegexMatches:
		re, err := regexp.Compile(right.Str)
		if err != nil {
			return false
		}
		return re.MatchString(l)
	default:
		return false
	}
}

// compareFlags implements = (exact mask) and Contains ((left & right) ==
// right).
func compareFlags(l, r uint64, op Op) bool {
	switch op {
	case OpEqual:
		return l == r
	case OpContains:
		return (l & r) == r
	default:
		return false
	}
}

func (op Op) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpContains:
		return "contains"
	case OpBetween:
		return "between"
	case OpOneOf:
		return "one_of"
	case OpRegexMatches:
		return "regex_matches"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}
