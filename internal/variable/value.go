package variable

import "fmt"

// Kind is the dynamic type of a Value: boolean, number, point, string,
// flags, or enum.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindPoint
	KindString
	KindFlags
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindPoint:
		return "point"
	case KindString:
		return "string"
	case KindFlags:
		return "flags"
	case KindEnum:
		return "enum"
	default:
		return "none"
	}
}

// Value is a typed, immutable cell produced either by a Variable read, a
// condition literal, or a cached command result.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	X, Y   float64
	Str    string
	Flags  uint64
	Enum   string
}

func None() Value              { return Value{Kind: KindNone} }
func Bool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value   { return Value{Kind: KindNumber, Number: n} }
func Point(x, y float64) Value { return Value{Kind: KindPoint, X: x, Y: y} }
func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Flags(f uint64) Value     { return Value{Kind: KindFlags, Flags: f} }
func Enum(s string) Value      { return Value{Kind: KindEnum, Enum: s} }

func (v Value) IsNone() bool { return v.Kind == KindNone }

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindPoint:
		return fmt.Sprintf("(%g, %g)", v.X, v.Y)
	case KindString:
		return v.Str
	case KindFlags:
		return fmt.Sprintf("0x%x", v.Flags)
	case KindEnum:
		return v.Enum
	default:
		return "<none>"
	}
}
