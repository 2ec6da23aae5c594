// Package config decodes the YAML gesture/device-rule tree into the
// runtime model (trigger.Config, condition.Condition, action.Action), with
// position-tagged errors and a crash-loop sentinel guard.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Position is a (line, column) location in the source YAML document,
// carried on every ConfigError the way a parser error normally reports it.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	if p.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ErrorKind enumerates the recognized configuration error shapes.
type ErrorKind int

const (
	ErrDuplicateSetItem ErrorKind = iota
	ErrInvalidValue
	ErrInvalidNodeType
	ErrMissingProperty
	ErrInvalidVariable
	ErrDeprecatedFeature
)

// Severity distinguishes a hard load failure from a warning that is
// collected but never aborts the load.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// ConfigError is one problem found while decoding a configuration
// document, tagged with its kind, source position and severity.
type ConfigError struct {
	Kind     ErrorKind
	Severity Severity
	Position Position
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

func newError(kind ErrorKind, pos Position, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Severity: SeverityError, Position: pos, Message: fmt.Sprintf(format, args...)}
}

func newWarning(pos Position, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: ErrDeprecatedFeature, Severity: SeverityWarning, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// MultiError aggregates every ConfigError found during one load, built on
// hashicorp/go-multierror so callers can still use errors.Is/As through it.
type MultiError struct {
	inner *multierror.Error
}

func newMultiError() *MultiError {
	return &MultiError{inner: &multierror.Error{
		ErrorFormat: func(es []error) string {
			lines := make([]string, len(es))
			for i, e := range es {
				lines[i] = e.Error()
			}
			return strings.Join(lines, "\n")
		},
	}}
}

func (m *MultiError) add(err *ConfigError) {
	m.inner = multierror.Append(m.inner, err)
}

// Errors returns every hard error (Severity == SeverityError) collected.
func (m *MultiError) Errors() []*ConfigError {
	return m.filter(SeverityError)
}

// Warnings returns every deprecated-feature or other soft issue collected;
// these never prevent a load from succeeding.
func (m *MultiError) Warnings() []*ConfigError {
	return m.filter(SeverityWarning)
}

func (m *MultiError) filter(sev Severity) []*ConfigError {
	var out []*ConfigError
	for _, e := range m.inner.Errors {
		if ce, ok := e.(*ConfigError); ok && ce.Severity == sev {
			out = append(out, ce)
		}
	}
	return out
}

// HasErrors reports whether any hard (non-warning) error was collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors()) > 0
}

func (m *MultiError) Error() string {
	return m.inner.Error()
}

// Unwrap exposes the underlying multierror.Error so errors.Is/As traverse
// through it as usual.
func (m *MultiError) Unwrap() error {
	return m.inner.ErrorOrNil()
}
