package definitions

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"fhir-engine/internal/common"
	"fhir-engine/schema"
)

// File is one definition file.
type File struct {
	Version string    `yaml:"version,omitempty"`
	Types   []TypeDef `yaml:"types"`

	// Source names the file in diagnostics; it is not part of the YAML.
	Source string `yaml:"-"`
}

// TypeDef defines one resource, datatype or backbone element.
type TypeDef struct {
	Name   string     `yaml:"name" validate:"required,typename"`
	Kind   string     `yaml:"kind" validate:"required,oneof=complex backbone resource abstract"`
	Fields []FieldDef `yaml:"fields,omitempty"`
}

// FieldDef defines one field. Names ending in "[x]" or listing several
// types declare a choice slot.
type FieldDef struct {
	Name       string                   `yaml:"name" validate:"required,fieldname"`
	WireName   string                   `yaml:"wire_name,omitempty" validate:"omitempty,fieldname"`
	Path       string                   `yaml:"path,omitempty"`
	Min        int                      `yaml:"min,omitempty" validate:"gte=0"`
	Max        MaxOccurs                `yaml:"max,omitempty"`
	Type       StringOrArray            `yaml:"type" validate:"required,min=1,dive,required,typename"`
	ValidCodes map[string]StringOrArray `yaml:"valid_codes,omitempty" validate:"omitempty,dive,keys,required,endkeys,min=1"`
	Binding    *BindingDef              `yaml:"binding,omitempty"`
}

// BindingDef is the binding of a coded field.
type BindingDef struct {
	Strength string `yaml:"strength" validate:"required,oneof=example preferred extensible required"`
	ValueSet string `yaml:"value_set,omitempty" validate:"omitempty,uri"`
}

// IsChoice reports whether the field declares a choice slot.
func (f *FieldDef) IsChoice() bool {
	return len(f.Type) > 1 || strings.HasSuffix(f.Name, schema.ChoiceSuffix)
}

// StringOrArray holds one or more strings written either as a scalar or a
// sequence.
type StringOrArray []string

// UnmarshalYAML accepts either a single string or an array of strings.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		err := node.Decode(&arr)
		if err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("line %d: expected string or array, got %v", node.Line, node.Kind)
	}
}

// MarshalYAML outputs a single string if length is 1, otherwise an array.
func (s StringOrArray) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}

	return []string(s), nil
}

// First returns the first element or empty string if empty.
func (s StringOrArray) First() string {
	if v, ok := common.First(s); ok {
		return v
	}

	return ""
}

// IsSingle returns true if the array has exactly one element.
func (s StringOrArray) IsSingle() bool {
	return common.IsSingle(s)
}

// Contains returns true if the array contains the given string.
func (s StringOrArray) Contains(str string) bool {
	return slices.Contains(s, str)
}

// MaxOccurs is a max cardinality written as a number or "*". The zero
// value means the key was omitted.
type MaxOccurs struct {
	Value int
	Set   bool
}

// Unbounded is the MaxOccurs of a field written with max "*".
var Unbounded = MaxOccurs{Value: schema.Unbounded, Set: true}

// Max returns a MaxOccurs of n.
func Max(n int) MaxOccurs {
	return MaxOccurs{Value: n, Set: true}
}

// UnmarshalYAML accepts a non-negative integer or "*".
func (m *MaxOccurs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: max must be a number or \"*\"", node.Line)
	}

	n, ok := schema.ParseMax(node.Value)
	if !ok {
		return fmt.Errorf("line %d: invalid max %q", node.Line, node.Value)
	}

	*m = MaxOccurs{Value: n, Set: true}

	return nil
}

// MarshalYAML writes "*" or the number.
func (m MaxOccurs) MarshalYAML() (any, error) {
	if m.Value == schema.Unbounded {
		return "*", nil
	}

	return m.Value, nil
}

// IsZero lets omitempty drop an omitted max.
func (m MaxOccurs) IsZero() bool {
	return !m.Set
}

func (m MaxOccurs) String() string {
	if !m.Set {
		return "1"
	}

	if m.Value == schema.Unbounded {
		return "*"
	}

	return strconv.Itoa(m.Value)
}
