package codec

import (
	"fmt"
	"strings"

	"fhir-engine/diagnostic"
)

// DecodeError is one structural problem found while decoding.
type DecodeError struct {
	Path    string // Element path, empty for document-level problems
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Path == "" {
		return msg
	}

	return e.Path + ": " + msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeErrors collects every problem of one decode.
type DecodeErrors []*DecodeError

func (e DecodeErrors) Error() string {
	switch len(e) {
	case 0:
		return "no decode errors"
	case 1:
		return e[0].Error()
	}

	parts := make([]string, len(e))
	for n, err := range e {
		parts[n] = err.Error()
	}

	return fmt.Sprintf("%d decode errors: %s", len(e), strings.Join(parts, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e DecodeErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for n, err := range e {
		errs[n] = err
	}

	return errs
}

// Diagnostics reports the errors as DecodeError diagnostics.
func (e DecodeErrors) Diagnostics(typeName string) *diagnostic.Diagnostics {
	diags := &diagnostic.Diagnostics{}

	for _, err := range e {
		msg := err.Message
		if err.Err != nil {
			msg += ": " + err.Err.Error()
		}

		diags.AddError(diagnostic.CodeDecodeError, msg, typeName, err.Path)
	}

	return diags
}

// orNil returns nil for an empty list so callers can compare against nil.
func (e DecodeErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}

	return e
}
