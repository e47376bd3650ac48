package model

import (
	"errors"
	"fmt"
	"strings"

	"fhir-engine/schema"
)

// CardinalityError reports a value whose shape does not fit the field:
// a sequence for a single-valued field or a scalar for a repeated one.
type CardinalityError struct {
	Type   string
	Field  string
	Min    int
	Max    int
	Reason string
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s.%s (%s): %s", e.Type, e.Field, schema.FormatCardinality(e.Min, e.Max), e.Reason)
}

// TypeMismatchError reports a value not assignable to the field's declared types.
type TypeMismatchError struct {
	Type     string
	Field    string
	Expected []string
	Value    any
	Err      error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("%s.%s: %T is not assignable to %s", e.Type, e.Field, e.Value, strings.Join(e.Expected, " | "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

// OwnershipError reports an attempt to attach an instance that already
// belongs to another tree, or to attach an instance beneath itself.
type OwnershipError struct {
	Type   string
	Field  string
	Reason string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Reason)
}

// UnknownFieldError reports a name that is neither a field nor a choice variant.
type UnknownFieldError struct {
	Type        string
	Field       string
	Suggestions []string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("%s has no field %q", e.Type, e.Field)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}

	return msg
}

var errNotChoice = errors.New("field is not a choice slot")
