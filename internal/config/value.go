package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/variable"
)

// ValueSpec is a YAML node that can decode as a literal scalar, a `$name`
// variable reference, or a `{command: "..."}` mapping; wherever a literal
// value is accepted the config format also accepts these two forms.
type ValueSpec struct {
	condition.ValueSource
	pos Position
}

func (v *ValueSpec) UnmarshalYAML(node *yaml.Node) error {
	v.pos = Position{Line: node.Line, Column: node.Column}

	if node.Kind == yaml.MappingNode {
		var cmd struct {
			Command string `yaml:"command"`
		}
		if err := node.Decode(&cmd); err != nil {
			return err
		}
		v.ValueSource = condition.Cmd(cmd.Command)
		return nil
	}

	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if strings.HasPrefix(raw, "$") {
		v.ValueSource = condition.VarRef(strings.TrimPrefix(raw, "$"))
		return nil
	}
	v.ValueSource = condition.Literal(literalFromScalar(raw))
	return nil
}

// literalFromScalar infers a variable.Value's dynamic type from a YAML
// scalar's text the way the decoder must, since the document carries no
// separate type annotation: bool, then number, then plain string.
func literalFromScalar(raw string) variable.Value {
	switch raw {
	case "true":
		return variable.Bool(true)
	case "false":
		return variable.Bool(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return variable.Number(n)
	}
	return variable.String(raw)
}
