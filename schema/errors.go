package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFrozen is returned when a linked registry is modified.
var ErrFrozen = errors.New("registry is linked and read-only")

// ErrNotLinked is returned when a registry is queried before Link.
var ErrNotLinked = errors.New("registry is not linked")

// UnknownTypeError reports a type name that was never registered.
type UnknownTypeError struct {
	Name        string
	Referrer    string // Field path referencing the type, empty for direct lookups
	Suggestions []string
}

func (e *UnknownTypeError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "unknown type %q", e.Name)

	if e.Referrer != "" {
		fmt.Fprintf(&b, " referenced by %s", e.Referrer)
	}

	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}

	return b.String()
}

// DuplicateError reports a name registered twice in the same scope.
type DuplicateError struct {
	What  string // "type", "field", "wire name"
	Name  string
	Owner string
}

func (e *DuplicateError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("duplicate %s %q", e.What, e.Name)
	}

	return fmt.Sprintf("duplicate %s %q in %s", e.What, e.Name, e.Owner)
}

// DefinitionError reports a malformed type or field definition.
type DefinitionError struct {
	Type    string
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Message)
	case e.Type != "":
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	default:
		return e.Message
	}
}
