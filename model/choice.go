package model

import (
	"fhir-engine/schema"
)

// SetVariant assigns a choice slot through one variant, clearing whatever
// variant was populated before. variant is a declared type name ("string",
// "Quantity") or a variant name ("valueString").
func (i *Instance) SetVariant(slot, variant string, value any) error {
	f, v, err := i.variant(slot, variant)
	if err != nil {
		return err
	}

	if isNil(value) {
		i.clear(f, nil)
		return nil
	}

	return i.Set(v.Name, value)
}

// ActiveVariant returns the populated variant of a choice slot and its value.
// For a non-choice field it returns the field's only variant when populated.
func (i *Instance) ActiveVariant(slot string) (*schema.Variant, any, bool) {
	f, ok := i.rt.Field(slot)
	if !ok {
		return nil, nil, false
	}

	for n := range f.Variants {
		v := &f.Variants[n]

		if value, ok := i.values[storageKey(f, v)]; ok {
			if seq, isSeq := value.([]any); isSeq {
				value = append([]any(nil), seq...)
			}

			return v, value, true
		}
	}

	return nil, nil, false
}

// ChoiceConflict names a choice slot with more than one populated variant.
type ChoiceConflict struct {
	Field    *schema.FieldDescriptor
	Variants []string
}

// ChoiceConflicts lists the choice slots holding more than one variant. The
// setters never produce one; a non-empty result means the instance was
// corrupted outside of this package's API.
func (i *Instance) ChoiceConflicts() []ChoiceConflict {
	var conflicts []ChoiceConflict

	for _, f := range i.rt.Fields {
		if !f.Choice {
			continue
		}

		var populated []string

		for _, v := range f.Variants {
			if _, ok := i.values[v.Name]; ok {
				populated = append(populated, v.Name)
			}
		}

		if len(populated) > 1 {
			conflicts = append(conflicts, ChoiceConflict{Field: f, Variants: populated})
		}
	}

	return conflicts
}

func (i *Instance) variant(slot, variant string) (*schema.FieldDescriptor, *schema.Variant, error) {
	f, _, err := i.lookup(slot)
	if err != nil {
		return nil, nil, err
	}

	if !f.Choice {
		return nil, nil, &TypeMismatchError{Type: i.rt.Name, Field: f.Name, Expected: f.Types, Value: variant, Err: errNotChoice}
	}

	if v, ok := f.VariantByType(variant); ok {
		return f, v, nil
	}

	if v, ok := f.VariantByName(variant); ok {
		return f, v, nil
	}

	return nil, nil, &UnknownFieldError{Type: i.rt.Name, Field: f.Name + "[" + variant + "]", Suggestions: variantNames(f)}
}

func variantNames(f *schema.FieldDescriptor) []string {
	names := make([]string, len(f.Variants))
	for n, v := range f.Variants {
		names[n] = v.TypeName
	}

	return names
}
