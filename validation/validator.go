package validation

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"fhir-engine/diagnostic"
	"fhir-engine/internal/fhirpath"
	"fhir-engine/internal/logging"
	"fhir-engine/internal/match"
	"fhir-engine/model"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

// Names of the coded datatypes whose codes are checked against bindings.
const (
	codingType          = "Coding"
	codeableConceptType = "CodeableConcept"
)

// Validator checks instances. The zero value is not usable; use New.
// A Validator holds no per-call state and may be shared.
type Validator struct {
	terminology Terminology
	log         logrus.FieldLogger
}

// Option configures a Validator.
type Option func(*Validator)

// WithTerminology sets the service used for value sets without embedded codes.
func WithTerminology(t Terminology) Option {
	return func(v *Validator) {
		v.terminology = t
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(v *Validator) {
		v.log = logging.OrDiscard(l)
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{log: logging.Discard()}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate checks inst against rt with a default Validator.
func Validate(inst *model.Instance, rt *schema.ResourceType) *diagnostic.Diagnostics {
	return New().Validate(inst, rt)
}

// Validate checks inst against rt and returns every issue found.
func (v *Validator) Validate(inst *model.Instance, rt *schema.ResourceType) *diagnostic.Diagnostics {
	diags := &diagnostic.Diagnostics{}

	if inst == nil || rt == nil {
		diags.AddError(diagnostic.CodeWrongResourceType, "nothing to validate", "", "")
		return diags
	}

	if inst.Type() != rt {
		diags.AddError(diagnostic.CodeWrongResourceType,
			fmt.Sprintf("instance of %s can not be validated as %s", inst.Type().Name, rt.Name),
			rt.Name, rt.Name)

		return diags
	}

	w := &walker{validator: v, diags: diags}
	w.instance(inst, fhirpath.New(rt.Name))

	v.log.WithFields(logrus.Fields{
		"type":     rt.Name,
		"errors":   len(diags.Errors),
		"warnings": len(diags.Warnings),
	}).Debug("validated instance")

	return diags
}

// walker carries the diagnostics of one Validate call.
type walker struct {
	validator *Validator
	diags     *diagnostic.Diagnostics
}

func (w *walker) instance(inst *model.Instance, path fhirpath.Path) {
	rt := inst.Type()

	for _, c := range inst.ChoiceConflicts() {
		w.diags.AddError(diagnostic.CodeAmbiguousChoiceValue,
			fmt.Sprintf("choice slot holds more than one variant: %s", strings.Join(c.Variants, ", ")),
			rt.Name, path.Choice(c.Field.WireName).String())
	}

	for _, f := range rt.Fields {
		w.field(inst, f, path)
	}

	for _, u := range inst.Unknown() {
		// "_status" holds the id and extensions of status.
		if sibling, ok := strings.CutPrefix(u.Name, "_"); ok {
			if _, _, defined := rt.FieldByWireName(sibling); defined {
				continue
			}
		}

		w.diags.Add(diagnostic.Diagnostic{
			Severity:    diagnostic.SeverityInfo,
			Code:        diagnostic.CodeUnknownElement,
			Message:     fmt.Sprintf("element %q is not defined for %s and was preserved as is", u.Name, rt.Name),
			Type:        rt.Name,
			FieldPath:   path.Field(u.Name).String(),
			Suggestions: match.Suggest(u.Name, rt.WireNames(), 2),
		})
	}
}

func (w *walker) field(inst *model.Instance, f *schema.FieldDescriptor, parent fhirpath.Path) {
	rt := inst.Type()

	path := parent.Field(f.WireName)
	if f.Choice {
		path = parent.Choice(f.WireName)
	}

	variant, value, ok := inst.ActiveVariant(f.Name)

	var values []any
	if ok {
		values = asList(value)
	}

	switch count := len(values); {
	case count == 0 && f.IsRequired():
		w.diags.AddError(diagnostic.CodeMissingRequiredField,
			fmt.Sprintf("required field %s (%s) is missing", f.Name, f.Cardinality()),
			rt.Name, path.String())
	case count < f.Min:
		w.diags.AddError(diagnostic.CodeMissingRequiredField,
			fmt.Sprintf("field %s (%s) needs at least %d values, found %d", f.Name, f.Cardinality(), f.Min, count),
			rt.Name, path.String())
	case f.Max != schema.Unbounded && count > f.Max:
		w.diags.AddError(diagnostic.CodeTooManyValues,
			fmt.Sprintf("field %s (%s) allows at most %d values, found %d", f.Name, f.Cardinality(), f.Max, count),
			rt.Name, path.String())
	}

	for n, item := range values {
		at := path
		if f.IsRepeated() {
			at = path.Index(n)
		}

		w.value(rt, f, variant, item, at)
	}
}

func (w *walker) value(owner *schema.ResourceType, f *schema.FieldDescriptor, variant *schema.Variant, value any, path fhirpath.Path) {
	if variant.IsPrimitive() {
		if _, err := primitive.CoerceWith(variant.Primitive, value, primitive.CategoryNative); err != nil {
			w.diags.AddError(diagnostic.CodeTypeMismatch, err.Error(), owner.Name, path.String())
			return
		}

		if variant.Primitive.IsCoded() && f.Binding != nil {
			if code, ok := value.(string); ok {
				w.binding(owner, f, []coding{{code: code}}, path)
			}
		}

		return
	}

	child, ok := value.(*model.Instance)
	if !ok {
		w.diags.AddError(diagnostic.CodeTypeMismatch,
			fmt.Sprintf("%T stored where %s is declared", value, variant.TypeName), owner.Name, path.String())

		return
	}

	if f.Binding != nil {
		switch child.Type().Name {
		case codingType:
			w.binding(owner, f, []coding{codingOf(child)}, path)
		case codeableConceptType:
			w.binding(owner, f, codingsOf(child), path)
		}
	}

	w.instance(child, path)
}

type coding struct {
	system, code string
}

func codingOf(inst *model.Instance) coding {
	system, _ := inst.Get("system")
	code, _ := inst.Get("code")

	s, _ := system.(string)
	c, _ := code.(string)

	return coding{system: s, code: c}
}

func codingsOf(concept *model.Instance) []coding {
	items, _ := concept.Get("coding")

	var codings []coding

	for _, item := range asList(items) {
		if inst, ok := item.(*model.Instance); ok {
			codings = append(codings, codingOf(inst))
		}
	}

	return codings
}

// binding checks that at least one of the codings is a member of the
// field's value set. Codings without a code are ignored; a concept carrying
// only text is not checked.
func (w *walker) binding(owner *schema.ResourceType, f *schema.FieldDescriptor, codings []coding, path fhirpath.Path) {
	b := f.Binding
	if b.Strength == schema.BindingNone {
		return
	}

	var checked []string

	for _, c := range codings {
		if c.code == "" {
			continue
		}

		member, known := w.member(b, c)
		if !known {
			w.diags.AddInfo(diagnostic.CodeTerminologyUnavailable,
				fmt.Sprintf("membership of %q in %s (%s binding) could not be checked", c.code, valueSetName(b), b.Strength),
				owner.Name, path.String())

			return
		}

		if member {
			return
		}

		checked = append(checked, c.String())
	}

	if len(checked) == 0 {
		return
	}

	msg := fmt.Sprintf("%s is not in %s (%s binding)", strings.Join(checked, ", "), valueSetName(b), b.Strength)

	switch b.Strength {
	case schema.BindingRequired:
		w.diags.AddError(diagnostic.CodeInvalidCode, msg, owner.Name, path.String())
	case schema.BindingExtensible, schema.BindingPreferred:
		w.diags.AddWarning(diagnostic.CodeInvalidCode, msg, owner.Name, path.String())
	default:
		w.diags.AddInfo(diagnostic.CodeInvalidCode, msg, owner.Name, path.String())
	}
}

// member answers from the embedded codes, then from the terminology. known
// is false when neither can answer.
func (w *walker) member(b *schema.Binding, c coding) (member, known bool) {
	if b.HasCodes() {
		return b.Allows(c.system, c.code), true
	}

	t := w.validator.terminology
	if t == nil || b.ValueSet == "" {
		return false, false
	}

	ok, err := t.Contains(b.ValueSet, c.system, c.code)
	if err != nil {
		w.validator.log.WithError(err).WithField("valueSet", b.ValueSet).Debug("terminology lookup failed")
		return false, false
	}

	return ok, true
}

func (c coding) String() string {
	if c.system == "" {
		return fmt.Sprintf("%q", c.code)
	}

	return fmt.Sprintf("%s#%s", c.system, c.code)
}

func valueSetName(b *schema.Binding) string {
	if b.ValueSet != "" {
		return b.ValueSet
	}

	return "the allowed codes"
}

func asList(value any) []any {
	switch t := value.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}
