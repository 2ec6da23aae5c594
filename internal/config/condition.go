package config

import (
	"gopkg.in/yaml.v3"

	"github.com/libgrip/libgrip/internal/condition"
)

// ConditionSpec decodes one condition node: either a comparison leaf
// (`{variable: ..., op: ..., value: ...}` / `{variable: ..., one_of: [...]}`
// / `{variable: ..., between: [lo, hi]}`) or a group (`all`/`any`/`none`:
// [...]), each optionally wrapped with `not: true`.
type ConditionSpec struct {
	pos Position

	variable string
	op       condition.Op
	values   []ValueSpec

	mode    condition.GroupMode
	isGroup bool
	members []*ConditionSpec

	negate bool
}

func (c *ConditionSpec) UnmarshalYAML(node *yaml.Node) error {
	c.pos = Position{Line: node.Line, Column: node.Column}

	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return newError(ErrInvalidNodeType, c.pos, "condition: expected a mapping: %v", err)
	}

	if negate, ok := raw["not"]; ok {
		var b bool
		if err := negate.Decode(&b); err == nil {
			c.negate = b
		}
	}

	for key, mode := range map[string]condition.GroupMode{
		"all": condition.GroupAll, "any": condition.GroupAny, "none": condition.GroupNone,
	} {
		if n, ok := raw[key]; ok {
			var specs []*ConditionSpec
			if err := n.Decode(&specs); err != nil {
				return newError(ErrInvalidNodeType, c.pos, "condition.%s: %v", key, err)
			}
			c.isGroup, c.mode, c.members = true, mode, specs
			return nil
		}
	}

	varNode, ok := raw["variable"]
	if !ok {
		return newError(ErrMissingProperty, c.pos, "condition: missing 'variable' and no group key present")
	}
	if err := varNode.Decode(&c.variable); err != nil {
		return newError(ErrInvalidValue, c.pos, "condition.variable: %v", err)
	}

	return c.decodeComparison(raw)
}

func (c *ConditionSpec) decodeComparison(raw map[string]yaml.Node) error {
	ops := map[string]condition.Op{
		"equals": condition.OpEqual, "not_equals": condition.OpNotEqual,
		"less_than": condition.OpLess, "less_than_or_equal": condition.OpLessEqual,
		"greater_than": condition.OpGreater, "greater_than_or_equal": condition.OpGreaterEqual,
		"contains": condition.OpContains, "matches": condition.OpRegexMatches,
	}
	for key, op := range ops {
		if n, ok := raw[key]; ok {
			var v ValueSpec
			if err := n.Decode(&v); err != nil {
				return newError(ErrInvalidValue, c.pos, "condition.%s: %v", key, err)
			}
			c.op, c.values = op, []ValueSpec{v}
			return nil
		}
	}
	if n, ok := raw["one_of"]; ok {
		var vs []ValueSpec
		if err := n.Decode(&vs); err != nil {
			return newError(ErrInvalidValue, c.pos, "condition.one_of: %v", err)
		}
		c.op, c.values = condition.OpOneOf, vs
		return nil
	}
	if n, ok := raw["between"]; ok {
		var vs []ValueSpec
		if err := n.Decode(&vs); err != nil || len(vs) != 2 {
			return newError(ErrInvalidValue, c.pos, "condition.between: expected exactly 2 values")
		}
		c.op, c.values = condition.OpBetween, vs
		return nil
	}
	return newError(ErrMissingProperty, c.pos, "condition: no comparison operator found for variable %q", c.variable)
}

// Build converts the decoded spec into a runtime *condition.Condition.
func (c *ConditionSpec) Build() *condition.Condition {
	if c == nil {
		return nil
	}
	var out *condition.Condition
	if c.isGroup {
		members := make([]*condition.Condition, len(c.members))
		for i, m := range c.members {
			members[i] = m.Build()
		}
		out = condition.NewGroup(c.mode, members...)
	} else {
		values := make([]condition.ValueSource, len(c.values))
		for i, v := range c.values {
			values[i] = v.ValueSource
		}
		out = condition.NewComparison(c.variable, c.op, values...)
	}
	return out.WithNegate(c.negate)
}
