package schema

import (
	"fhir-engine/internal/common"
)

// TypeKind represents the kind of a registered type.
type TypeKind int

const (
	TypeKindUnknown  TypeKind = iota
	TypeKindComplex           // general-purpose datatype (Coding, Period, Extension)
	TypeKindBackbone          // element type owned by an enclosing type (Task.Input)
	TypeKindResource          // resource (Task, Measure)
	TypeKindAbstract          // abstract base only usable polymorphically (Resource)
)

// String returns a human-readable representation of the TypeKind.
func (k TypeKind) String() string {
	switch k {
	case TypeKindComplex:
		return "complex"
	case TypeKindBackbone:
		return "backbone"
	case TypeKindResource:
		return "resource"
	case TypeKindAbstract:
		return "abstract"
	default:
		return common.UnknownStr
	}
}

// ParseTypeKind parses the names produced by TypeKind.String.
func ParseTypeKind(s string) (TypeKind, bool) {
	for k := TypeKindComplex; k <= TypeKindAbstract; k++ {
		if k.String() == s {
			return k, true
		}
	}

	return TypeKindUnknown, false
}

// ResourceType describes a resource, datatype or backbone element.
type ResourceType struct {
	Name   string             // Qualified name, e.g. "Measure.Group.Population"
	Kind   TypeKind           // Kind of type
	Parent string             // Enclosing type for backbone elements
	Fields []*FieldDescriptor // Fields in declared order

	byName   map[string]*FieldDescriptor
	byWire   map[string]wireRef
	children []*ResourceType
	linked   bool
}

// wireRef points at a field and, for choice fields, one of its variants.
type wireRef struct {
	field   *FieldDescriptor
	variant int
}

// NewResourceType creates a type with the given fields in declared order.
func NewResourceType(name string, kind TypeKind, fields ...*FieldDescriptor) *ResourceType {
	return &ResourceType{
		Name:   name,
		Kind:   kind,
		Fields: fields,
	}
}

// ShortName returns the last segment of the qualified name.
func (t *ResourceType) ShortName() string {
	return common.LastSegment(t.Name)
}

// IsResource returns true for resources (not datatypes or backbone elements).
func (t *ResourceType) IsResource() bool {
	return t.Kind == TypeKindResource
}

// IsLinked returns true once the owning registry resolved every field type.
func (t *ResourceType) IsLinked() bool {
	return t.linked
}

// Field returns a field by logical name. Choice variant names ("valueString")
// resolve to their choice field.
func (t *ResourceType) Field(name string) (*FieldDescriptor, bool) {
	if f, ok := t.byName[name]; ok {
		return f, true
	}

	for _, f := range t.Fields {
		if _, ok := f.VariantByName(name); ok {
			return f, true
		}
	}

	return nil, false
}

// FieldByWireName resolves a serialized element name. For choice fields the
// returned variant is the one the wire name selects; otherwise it is the
// field's only variant.
func (t *ResourceType) FieldByWireName(wire string) (*FieldDescriptor, *Variant, bool) {
	ref, ok := t.byWire[wire]
	if !ok || len(ref.field.Variants) == 0 {
		return nil, nil, false
	}

	return ref.field, &ref.field.Variants[ref.variant], true
}

// FieldNames returns the logical field names in declared order.
func (t *ResourceType) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}

	return names
}

// WireNames returns every accepted wire name, choice variants included.
func (t *ResourceType) WireNames() []string {
	var names []string

	for _, f := range t.Fields {
		if f.Choice {
			for _, v := range f.Variants {
				names = append(names, v.WireName)
			}

			continue
		}

		names = append(names, f.WireName)
	}

	return names
}

// Nested returns the backbone types owned by this type, in registration order.
func (t *ResourceType) Nested() []*ResourceType {
	return t.children
}

// indexFields rebuilds the logical-name index. It reports the first duplicate.
func (t *ResourceType) indexFields() error {
	t.byName = make(map[string]*FieldDescriptor, len(t.Fields))

	for _, f := range t.Fields {
		if f == nil {
			return &DefinitionError{Type: t.Name, Message: "nil field descriptor"}
		}

		if _, dup := t.byName[f.Name]; dup {
			return &DuplicateError{What: "field", Name: f.Name, Owner: t.Name}
		}

		t.byName[f.Name] = f
		f.owner = t
	}

	return nil
}

// indexWireNames builds the wire-name index once variants are resolved.
func (t *ResourceType) indexWireNames() error {
	t.byWire = make(map[string]wireRef)

	for _, f := range t.Fields {
		for i, v := range f.Variants {
			if prev, dup := t.byWire[v.WireName]; dup {
				return &DuplicateError{
					What:  "wire name",
					Name:  v.WireName,
					Owner: t.Name + " (" + prev.field.Name + ", " + f.Name + ")",
				}
			}

			t.byWire[v.WireName] = wireRef{field: f, variant: i}
		}
	}

	return nil
}
