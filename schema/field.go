package schema

import (
	"strconv"
	"strings"

	"fhir-engine/internal/common"
	"fhir-engine/primitive"
)

// Unbounded is the Max value of a field declared with cardinality "*".
const Unbounded = -1

// ChoiceSuffix marks polymorphic fields in definitions ("value[x]").
const ChoiceSuffix = "[x]"

// FieldDescriptor describes one field of a ResourceType.
type FieldDescriptor struct {
	Name     string   // Logical name used by model accessors (local_end)
	WireName string   // Serialized name (end); for choice fields the slot prefix (value)
	Path     string   // Element path, e.g. "MolecularSequence.variant.end"
	Min      int      // Minimum number of values
	Max      int      // Maximum number of values, Unbounded for "*"
	Types    []string // Declared type names in declared order
	Binding  *Binding // Terminology binding, nil when the field is not coded
	Choice   bool     // Polymorphic slot whose wire name expands per variant

	// Variants are resolved by Registry.Link. Non-choice fields get exactly one.
	Variants []Variant

	owner *ResourceType
}

// Variant is one concrete type a field slot may hold.
type Variant struct {
	TypeName  string             // Declared type name ("string", "CodeableConcept", "Task.Input")
	Name      string             // Logical variant name, "valueString" for choices, the field name otherwise
	WireName  string             // Wire name, "valueString" for choices, the field wire name otherwise
	Primitive primitive.KindEnum // Set when TypeName is a primitive
	Type      *ResourceType      // Set when TypeName is a registered type
}

// IsPrimitive reports whether the variant holds a primitive value.
func (v *Variant) IsPrimitive() bool {
	return v.Primitive.IsValid()
}

// TypeSuffix returns the suffix used to build choice wire names.
func (v *Variant) TypeSuffix() string {
	if v.IsPrimitive() {
		return v.Primitive.TypeSuffix()
	}

	return common.UpperFirst(common.LastSegment(v.TypeName))
}

// NewField creates a single-typed field whose wire name equals its name
// unless the name carries the "local_" rename prefix.
func NewField(name string, minCard, maxCard int, typeName string) *FieldDescriptor {
	return &FieldDescriptor{
		Name:     name,
		WireName: DefaultWireName(name),
		Min:      minCard,
		Max:      maxCard,
		Types:    []string{typeName},
	}
}

// NewChoiceField creates a polymorphic field; name is the slot prefix ("value").
func NewChoiceField(name string, minCard, maxCard int, typeNames ...string) *FieldDescriptor {
	name = strings.TrimSuffix(name, ChoiceSuffix)

	return &FieldDescriptor{
		Name:     name,
		WireName: DefaultWireName(name),
		Min:      minCard,
		Max:      maxCard,
		Types:    typeNames,
		Choice:   true,
	}
}

// WithBinding attaches a binding and returns the field for chaining.
func (f *FieldDescriptor) WithBinding(b *Binding) *FieldDescriptor {
	f.Binding = b
	return f
}

// DefaultWireName strips the reserved-word rename prefix: "local_end" is sent as "end".
func DefaultWireName(name string) string {
	return strings.TrimPrefix(name, LocalPrefix)
}

// LocalPrefix renames fields whose wire name collides with a reserved word.
const LocalPrefix = "local_"

// Owner returns the type declaring the field.
func (f *FieldDescriptor) Owner() *ResourceType {
	return f.owner
}

// IsRepeated reports whether the field holds a sequence.
func (f *FieldDescriptor) IsRepeated() bool {
	return f.Max == Unbounded || f.Max > 1
}

// IsRequired reports whether at least one value must be present.
func (f *FieldDescriptor) IsRequired() bool {
	return f.Min >= 1
}

// IsChoice reports whether the field is a polymorphic slot.
func (f *FieldDescriptor) IsChoice() bool {
	return f.Choice
}

// IsRenamed reports whether the logical name differs from the wire name.
func (f *FieldDescriptor) IsRenamed() bool {
	return !f.Choice && f.Name != f.WireName
}

// AllowsCount reports whether n values satisfy the field's cardinality.
func (f *FieldDescriptor) AllowsCount(n int) bool {
	if n < f.Min {
		return false
	}

	return f.Max == Unbounded || n <= f.Max
}

// Cardinality renders the cardinality as "min..max".
func (f *FieldDescriptor) Cardinality() string {
	return FormatCardinality(f.Min, f.Max)
}

// ElementPath returns the path used in issues; choice slots end in "[x]".
func (f *FieldDescriptor) ElementPath() string {
	if f.Choice && !strings.HasSuffix(f.Path, ChoiceSuffix) {
		return f.Path + ChoiceSuffix
	}

	return f.Path
}

// VariantByName finds a choice variant by its logical name ("valueString").
func (f *FieldDescriptor) VariantByName(name string) (*Variant, bool) {
	if !f.Choice {
		return nil, false
	}

	for i := range f.Variants {
		if f.Variants[i].Name == name {
			return &f.Variants[i], true
		}
	}

	return nil, false
}

// VariantByType finds a variant by declared type name ("string", "Quantity").
func (f *FieldDescriptor) VariantByType(typeName string) (*Variant, bool) {
	for i := range f.Variants {
		if f.Variants[i].TypeName == typeName {
			return &f.Variants[i], true
		}
	}

	return nil, false
}

// SingleVariant returns the only variant of a non-choice field.
func (f *FieldDescriptor) SingleVariant() *Variant {
	if f.Choice || len(f.Variants) != 1 {
		return nil
	}

	return &f.Variants[0]
}

// resolveVariants builds the variants once every referenced type is known.
func (f *FieldDescriptor) resolveVariants(lookup func(string) (*ResourceType, error)) error {
	if len(f.Types) == 0 {
		return &DefinitionError{Type: f.ownerName(), Field: f.Name, Message: "field declares no type"}
	}

	if !f.Choice && len(f.Types) > 1 {
		f.Choice = true
	}

	variants := make([]Variant, 0, len(f.Types))

	for _, tn := range f.Types {
		v := Variant{TypeName: tn, Name: f.Name, WireName: f.WireName}

		if k := primitive.FromName(tn); k.IsValid() {
			v.Primitive = k
		} else {
			rt, err := lookup(tn)
			if err != nil {
				return err
			}

			v.Type = rt
		}

		if f.Choice {
			v.Name = f.Name + v.TypeSuffix()
			v.WireName = f.WireName + v.TypeSuffix()
		}

		variants = append(variants, v)
	}

	f.Variants = variants

	return nil
}

func (f *FieldDescriptor) ownerName() string {
	if f.owner == nil {
		return ""
	}

	return f.owner.Name
}

// FormatCardinality renders min and max the way definitions write them ("0..*").
func FormatCardinality(minCard, maxCard int) string {
	hi := "*"
	if maxCard != Unbounded {
		hi = strconv.Itoa(maxCard)
	}

	return strconv.Itoa(minCard) + ".." + hi
}

// ParseMax parses a max cardinality: "*" or a non-negative integer.
func ParseMax(s string) (int, bool) {
	if s == "*" {
		return Unbounded, true
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}
