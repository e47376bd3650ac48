package diagnostic

import (
	"fmt"
	"strings"

	"fhir-engine/internal/common"
)

// Issue codes shared by the validator, the codecs and the definition loader.
const (
	CodeMissingRequiredField   = "MissingRequiredField"
	CodeTooManyValues          = "TooManyValues"
	CodeInvalidCode            = "InvalidCode"
	CodeAmbiguousChoiceValue   = "AmbiguousChoiceValue"
	CodeTypeMismatch           = "TypeMismatch"
	CodeWrongResourceType      = "WrongResourceType"
	CodeUnknownElement         = "UnknownElement"
	CodeTerminologyUnavailable = "TerminologyUnavailable"
	CodeDecodeError            = "DecodeError"
	CodeInvalidDefinition      = "InvalidDefinition"
	CodeDuplicateDefinition    = "DuplicateDefinition"
	CodeUnknownType            = "UnknownType"
)

// Severity orders issues from informational to blocking.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Diagnostic is one issue found in a document or a definition set.
type Diagnostic struct {
	Severity Severity
	Code     string // One of the Code constants
	Message  string
	// Type names the resource, datatype or backbone element the issue
	// belongs to, FieldPath the offending element ("Task.input[0].value[x]").
	Type      string
	FieldPath string
	// Suggestions are known names close to an unknown one.
	Suggestions []string
}

// Diagnostics collects the issues of one pass, split by severity. The zero
// value is empty and ready to use.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Add files diag under its severity.
func (d *Diagnostics) Add(diag Diagnostic) {
	switch diag.Severity {
	case SeverityError:
		d.Errors = append(d.Errors, diag)
	case SeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

func (d *Diagnostics) AddError(code, message, typeName, fieldPath string) {
	d.add(SeverityError, code, message, typeName, fieldPath)
}

func (d *Diagnostics) AddWarning(code, message, typeName, fieldPath string) {
	d.add(SeverityWarning, code, message, typeName, fieldPath)
}

func (d *Diagnostics) AddInfo(code, message, typeName, fieldPath string) {
	d.add(SeverityInfo, code, message, typeName, fieldPath)
}

func (d *Diagnostics) add(severity Severity, code, message, typeName, fieldPath string) {
	d.Add(Diagnostic{Severity: severity, Code: code, Message: message, Type: typeName, FieldPath: fieldPath})
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// IsValid is the negation of HasErrors; warnings do not invalidate.
func (d *Diagnostics) IsValid() bool {
	return !d.HasErrors()
}

// Merge appends every issue of other.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// All returns every issue, errors first, then warnings, then infos.
func (d *Diagnostics) All() []Diagnostic {
	all := make([]Diagnostic, 0, d.Len())
	all = append(all, d.Errors...)
	all = append(all, d.Warnings...)

	return append(all, d.Infos...)
}

// ByCode filters All by issue code.
func (d *Diagnostics) ByCode(code string) []Diagnostic {
	var res []Diagnostic

	for _, diag := range d.All() {
		if diag.Code == code {
			res = append(res, diag)
		}
	}

	return res
}

// Codes lists the distinct issue codes in the order of All.
func (d *Diagnostics) Codes() []string {
	var codes []string

	seen := make(map[string]bool)

	for _, diag := range d.All() {
		if !seen[diag.Code] {
			seen[diag.Code] = true
			codes = append(codes, diag.Code)
		}
	}

	return codes
}

// Error returns the error issues as an *Error, or nil when there are none.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	return &Error{Issues: append([]Diagnostic(nil), d.Errors...)}
}

// Error carries error issues through APIs that return a plain error.
type Error struct {
	Issues []Diagnostic
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for n, issue := range e.Issues {
		parts[n] = issue.String()
	}

	return strings.Join(parts, "; ")
}

// String renders "[Type] path: [Code] message (did you mean X?)", leaving
// out the parts that are empty.
func (d Diagnostic) String() string {
	msg := d.Message
	if d.Code != "" {
		msg = "[" + d.Code + "] " + msg
	}

	if len(d.Suggestions) > 0 {
		msg = fmt.Sprintf("%s (did you mean %s?)", msg, strings.Join(d.Suggestions, ", "))
	}

	var where []string

	if d.Type != "" {
		where = append(where, "["+d.Type+"]")
	}

	if d.FieldPath != "" {
		where = append(where, d.FieldPath)
	}

	if len(where) == 0 {
		return msg
	}

	return strings.Join(where, " ") + ": " + msg
}
