package definitions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"fhir-engine/diagnostic"
	"fhir-engine/internal/logging"
	"fhir-engine/schema"
)

// Build validates files, registers their types in reg and links it. The
// registry is left unlinked when any error is reported.
func Build(reg *schema.Registry, files []*File, log logrus.FieldLogger) *diagnostic.Diagnostics {
	log = logging.OrDiscard(log)

	res := Validate(files...)
	if res.HasErrors() {
		log.WithField("errors", len(res.Errors)).Error("invalid definition files")
		return res
	}

	count := 0

	for _, f := range files {
		for i := range f.Types {
			td := &f.Types[i]

			rt, err := ToResourceType(td)
			if err == nil {
				err = reg.Register(rt)
			}

			if err != nil {
				addError(res, td.Name, err)
				continue
			}

			count++
		}
	}

	if res.HasErrors() {
		log.WithField("errors", len(res.Errors)).Error("failed to register definitions")
		return res
	}

	if err := reg.Link(); err != nil {
		for _, e := range flatten(err) {
			addError(res, "", e)
		}

		log.WithField("errors", len(res.Errors)).Error("failed to link definitions")

		return res
	}

	log.WithFields(logrus.Fields{
		"files": len(files),
		"types": count,
	}).Debug("definitions registered")

	return res
}

// ToResourceType converts a type definition. Fields without a max hold one
// value; valid_codes without a binding are enforced as a required binding.
func ToResourceType(td *TypeDef) (*schema.ResourceType, error) {
	kind, ok := schema.ParseTypeKind(td.Kind)
	if !ok {
		return nil, &schema.DefinitionError{Type: td.Name, Message: fmt.Sprintf("unknown kind %q", td.Kind)}
	}

	fields := make([]*schema.FieldDescriptor, 0, len(td.Fields))

	for i := range td.Fields {
		f, err := toField(td, &td.Fields[i])
		if err != nil {
			return nil, err
		}

		fields = append(fields, f)
	}

	return schema.NewResourceType(td.Name, kind, fields...), nil
}

func toField(td *TypeDef, fd *FieldDef) (*schema.FieldDescriptor, error) {
	maxCard := 1
	if fd.Max.Set {
		maxCard = fd.Max.Value
	}

	var f *schema.FieldDescriptor

	if fd.IsChoice() {
		f = schema.NewChoiceField(fd.Name, fd.Min, maxCard, fd.Type...)
	} else {
		f = schema.NewField(fd.Name, fd.Min, maxCard, fd.Type.First())
	}

	if fd.WireName != "" {
		f.WireName = strings.TrimSuffix(fd.WireName, schema.ChoiceSuffix)
	}

	f.Path = strings.TrimSuffix(fd.Path, schema.ChoiceSuffix)

	if fd.Binding == nil && len(fd.ValidCodes) == 0 {
		return f, nil
	}

	b := &schema.Binding{Strength: schema.BindingRequired}

	if fd.Binding != nil {
		strength, ok := schema.ParseBindingStrength(fd.Binding.Strength)
		if !ok {
			return nil, &schema.DefinitionError{Type: td.Name, Field: fd.Name, Message: fmt.Sprintf("unknown binding strength %q", fd.Binding.Strength)}
		}

		b.Strength = strength
		b.ValueSet = fd.Binding.ValueSet
	}

	if len(fd.ValidCodes) > 0 {
		b.AllowedCodes = make(map[string][]string, len(fd.ValidCodes))
		for system, codes := range fd.ValidCodes {
			b.AllowedCodes[system] = append([]string(nil), codes...)
		}
	}

	return f.WithBinding(b), nil
}

func addError(res *diagnostic.Diagnostics, typeName string, err error) {
	var (
		unknown *schema.UnknownTypeError
		dup     *schema.DuplicateError
		def     *schema.DefinitionError
	)

	switch {
	case errors.As(err, &unknown):
		res.Add(diagnostic.Diagnostic{
			Severity:    diagnostic.SeverityError,
			Code:        diagnostic.CodeUnknownType,
			Message:     unknown.Error(),
			Type:        orDefault(typeName, ownerOf(unknown.Referrer)),
			FieldPath:   unknown.Referrer,
			Suggestions: unknown.Suggestions,
		})
	case errors.As(err, &dup):
		res.AddError(diagnostic.CodeDuplicateDefinition, dup.Error(), orDefault(typeName, dup.Owner), dup.Owner)
	case errors.As(err, &def):
		res.AddError(diagnostic.CodeInvalidDefinition, def.Error(), orDefault(typeName, def.Type), def.Type)
	default:
		res.AddError(diagnostic.CodeInvalidDefinition, err.Error(), typeName, "")
	}
}

// flatten splits the joined errors of Registry.Link.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}

		return out
	}

	if inner := errors.Unwrap(err); inner != nil {
		if _, ok := inner.(interface{ Unwrap() []error }); ok {
			return flatten(inner)
		}
	}

	return []error{err}
}

// ownerOf returns the type part of a field path ("Task.Input" for
// "Task.Input.value").
func ownerOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		return path[:i]
	}

	return path
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}

	return def
}
