package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fhir-engine/internal/match"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

// Instance holds the field values of one resource, datatype or backbone element.
//
// Scalar fields store one canonical primitive (bool, int64, decimal.Decimal,
// string) or *Instance; repeated fields store []any of those. Choice slots
// store their value under the populated variant's name ("valueString").
type Instance struct {
	rt      *schema.ResourceType
	values  map[string]any
	unknown []UnknownElement
	owner   *Instance
}

// UnknownElement is wire data that matched no field. Codecs store it in
// their own representation and re-emit it on encode.
type UnknownElement struct {
	Name  string
	Value any
}

// Entry is one populated field, as reported by Range.
type Entry struct {
	Field   *schema.FieldDescriptor
	Variant *schema.Variant
	Value   any // Scalar value, or []any for repeated fields
}

// New creates an empty instance of rt.
func New(rt *schema.ResourceType) *Instance {
	if rt == nil {
		panic("model: nil resource type")
	}

	return &Instance{
		rt:     rt,
		values: make(map[string]any),
	}
}

// Type returns the type backing the instance.
func (i *Instance) Type() *schema.ResourceType {
	return i.rt
}

// Owner returns the instance this one is attached to, or nil for a root.
func (i *Instance) Owner() *Instance {
	return i.owner
}

// IsEmpty reports whether no field and no unknown element is populated.
func (i *Instance) IsEmpty() bool {
	return len(i.values) == 0 && len(i.unknown) == 0
}

// Get returns the value of a field. For a choice slot name it returns the
// active variant's value; a variant name returns that variant's value only.
// Repeated fields return a copy of the stored sequence.
func (i *Instance) Get(name string) (any, bool) {
	f, v, err := i.lookup(name)
	if err != nil {
		return nil, false
	}

	if f.Choice && v == nil {
		_, value, ok := i.ActiveVariant(f.Name)
		return value, ok
	}

	value, ok := i.values[storageKey(f, v)]
	if !ok {
		return nil, false
	}

	if seq, isSeq := value.([]any); isSeq {
		return append([]any(nil), seq...), true
	}

	return value, true
}

// Has reports whether a field (or any variant of a choice slot) is populated.
func (i *Instance) Has(name string) bool {
	_, ok := i.Get(name)
	return ok
}

// Len returns the number of values a field holds: 0, 1 or the sequence length.
func (i *Instance) Len(name string) int {
	value, ok := i.Get(name)
	if !ok {
		return 0
	}

	if seq, isSeq := value.([]any); isSeq {
		return len(seq)
	}

	return 1
}

// Set assigns a field. Repeated fields take a slice and single-valued
// fields a scalar, otherwise a CardinalityError is returned. A nil value
// clears the field. For a choice slot name the variant is inferred from the
// value; a variant name selects the variant explicitly.
func (i *Instance) Set(name string, value any) error {
	f, v, err := i.lookup(name)
	if err != nil {
		return err
	}

	if isNil(value) {
		i.clear(f, v)
		return nil
	}

	if !f.IsRepeated() {
		if isSequence(value) {
			return i.cardinalityError(f, "a sequence can not be assigned to a single-valued field")
		}

		if v == nil {
			if v, err = i.inferVariant(f, value); err != nil {
				return err
			}
		}

		converted, err := i.convert(f, v, value, f.Name)
		if err != nil {
			return err
		}

		if err := i.adoptAll(f, []any{converted}); err != nil {
			return err
		}

		i.store(f, v, converted)

		return nil
	}

	items, ok := toSlice(value)
	if !ok {
		return i.cardinalityError(f, "a scalar can not be assigned to a repeated field")
	}

	if len(items) == 0 {
		i.clear(f, v)
		return nil
	}

	if v == nil {
		if v, err = i.inferVariant(f, items[0]); err != nil {
			return err
		}
	}

	converted := make([]any, len(items))

	for n, item := range items {
		c, err := i.convert(f, v, item, fmt.Sprintf("%s[%d]", f.Name, n))
		if err != nil {
			return err
		}

		converted[n] = c
	}

	if err := i.adoptAll(f, converted); err != nil {
		return err
	}

	i.store(f, v, converted)

	return nil
}

// Append adds one value to a repeated field.
func (i *Instance) Append(name string, value any) error {
	f, v, err := i.lookup(name)
	if err != nil {
		return err
	}

	if !f.IsRepeated() {
		return i.cardinalityError(f, "values can only be appended to a repeated field")
	}

	if isNil(value) {
		return &TypeMismatchError{Type: i.rt.Name, Field: f.Name, Expected: f.Types, Value: value}
	}

	if v == nil {
		if active, _, ok := i.ActiveVariant(f.Name); ok && f.Choice {
			v = active
		} else if v, err = i.inferVariant(f, value); err != nil {
			return err
		}
	}

	converted, err := i.convert(f, v, value, fmt.Sprintf("%s[%d]", f.Name, i.Len(v.Name)))
	if err != nil {
		return err
	}

	current, _ := i.values[storageKey(f, v)].([]any)

	if err := i.adoptAll(f, append(append([]any(nil), current...), converted)); err != nil {
		return err
	}

	i.store(f, v, append(current, converted))

	return nil
}

// Clear removes a field's value. Clearing a choice slot clears every variant.
func (i *Instance) Clear(name string) error {
	f, v, err := i.lookup(name)
	if err != nil {
		return err
	}

	i.clear(f, v)

	return nil
}

// Range calls fn for every populated field in declared order until fn
// returns false.
func (i *Instance) Range(fn func(Entry) bool) {
	for _, f := range i.rt.Fields {
		for n := range f.Variants {
			v := &f.Variants[n]

			value, ok := i.values[storageKey(f, v)]
			if !ok {
				continue
			}

			if seq, isSeq := value.([]any); isSeq {
				value = append([]any(nil), seq...)
			}

			if !fn(Entry{Field: f, Variant: v, Value: value}) {
				return
			}
		}
	}
}

// Unknown returns the preserved wire elements that matched no field.
func (i *Instance) Unknown() []UnknownElement {
	return append([]UnknownElement(nil), i.unknown...)
}

// AddUnknown preserves a wire element that matched no field.
func (i *Instance) AddUnknown(name string, value any) {
	i.unknown = append(i.unknown, UnknownElement{Name: name, Value: value})
}

// SetUnknown replaces the preserved element called name, or adds it when
// there is none. A nil value removes it.
func (i *Instance) SetUnknown(name string, value any) {
	for n, u := range i.unknown {
		if u.Name != name {
			continue
		}

		if value == nil {
			i.unknown = append(i.unknown[:n], i.unknown[n+1:]...)
		} else {
			i.unknown[n].Value = value
		}

		return
	}

	if value != nil {
		i.AddUnknown(name, value)
	}
}

// ClearUnknown drops every preserved unknown element.
func (i *Instance) ClearUnknown() {
	i.unknown = nil
}

// lookup resolves a field or choice variant name. The variant is nil when
// name is a choice slot name.
func (i *Instance) lookup(name string) (*schema.FieldDescriptor, *schema.Variant, error) {
	f, ok := i.rt.Field(name)
	if !ok {
		return nil, nil, &UnknownFieldError{
			Type:        i.rt.Name,
			Field:       name,
			Suggestions: match.Suggest(name, knownNames(i.rt), 3),
		}
	}

	if len(f.Variants) == 0 {
		return nil, nil, &UnknownFieldError{Type: i.rt.Name, Field: name}
	}

	if f.Choice {
		v, _ := f.VariantByName(name)
		return f, v, nil
	}

	return f, &f.Variants[0], nil
}

// inferVariant picks the choice variant a value belongs to: the variant of
// the instance's type, or the variant of the kind the value's Go type maps
// to. Otherwise the first primitive variant taking the value as is wins,
// then the first one able to convert it.
func (i *Instance) inferVariant(f *schema.FieldDescriptor, value any) (*schema.Variant, error) {
	if child, ok := value.(*Instance); ok {
		for n := range f.Variants {
			if assignable(f.Variants[n].Type, child.rt) {
				return &f.Variants[n], nil
			}
		}

		return nil, &TypeMismatchError{Type: i.rt.Name, Field: f.Name, Expected: f.Types, Value: value}
	}

	for _, kind := range preferredKinds(value) {
		for n := range f.Variants {
			v := &f.Variants[n]
			if v.Primitive != kind {
				continue
			}

			if _, err := primitive.Coerce(kind, value); err == nil {
				return v, nil
			}
		}
	}

	for _, allowed := range []primitive.CategoryEnum{primitive.CategoryNative, primitive.CategoryAll} {
		for n := range f.Variants {
			v := &f.Variants[n]
			if !v.IsPrimitive() {
				continue
			}

			if _, err := primitive.CoerceWith(v.Primitive, value, allowed); err == nil {
				return v, nil
			}
		}
	}

	return nil, &TypeMismatchError{Type: i.rt.Name, Field: f.Name, Expected: f.Types, Value: value}
}

// preferredKinds lists the kinds a Go value is inferred as before variant
// order is considered, best first.
func preferredKinds(value any) []primitive.KindEnum {
	switch value.(type) {
	case string:
		return []primitive.KindEnum{primitive.KindString, primitive.KindMarkdown}
	case bool:
		return []primitive.KindEnum{primitive.KindBoolean}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return []primitive.KindEnum{primitive.KindInteger, primitive.KindUnsignedInt, primitive.KindPositiveInt, primitive.KindDecimal}
	case float32, float64, decimal.Decimal, *decimal.Decimal:
		return []primitive.KindEnum{primitive.KindDecimal}
	case []byte:
		return []primitive.KindEnum{primitive.KindBase64Binary}
	case time.Time:
		return []primitive.KindEnum{primitive.KindDateTime, primitive.KindInstant}
	case uuid.UUID:
		return []primitive.KindEnum{primitive.KindUUID}
	default:
		return nil
	}
}

func (i *Instance) convert(f *schema.FieldDescriptor, v *schema.Variant, value any, at string) (any, error) {
	if v.IsPrimitive() {
		if _, isInstance := value.(*Instance); isInstance {
			return nil, &TypeMismatchError{Type: i.rt.Name, Field: at, Expected: []string{v.TypeName}, Value: value}
		}

		c, err := primitive.Coerce(v.Primitive, value)
		if err != nil {
			return nil, &TypeMismatchError{Type: i.rt.Name, Field: at, Expected: []string{v.TypeName}, Value: value, Err: err}
		}

		return c, nil
	}

	child, ok := value.(*Instance)
	if !ok || !assignable(v.Type, child.rt) {
		return nil, &TypeMismatchError{Type: i.rt.Name, Field: at, Expected: []string{v.TypeName}, Value: value}
	}

	return child, nil
}

// adoptAll checks that every instance in values can be attached to field f:
// unowned (or already owned by this slot), not an ancestor of i and not
// listed twice.
func (i *Instance) adoptAll(f *schema.FieldDescriptor, values []any) error {
	current := make(map[*Instance]bool)

	for _, key := range slotKeys(f) {
		for _, old := range asList(i.values[key]) {
			if child, ok := old.(*Instance); ok {
				current[child] = true
			}
		}
	}

	seen := make(map[*Instance]bool, len(values))

	for _, value := range values {
		child, ok := value.(*Instance)
		if !ok {
			continue
		}

		if seen[child] {
			return &OwnershipError{Type: i.rt.Name, Field: f.Name, Reason: "the same instance is listed twice"}
		}

		seen[child] = true

		if child.owner != nil && !current[child] {
			return &OwnershipError{Type: i.rt.Name, Field: f.Name, Reason: "instance of " + child.rt.Name + " is already attached to " + child.owner.rt.Name}
		}

		for a := i; a != nil; a = a.owner {
			if a == child {
				return &OwnershipError{Type: i.rt.Name, Field: f.Name, Reason: "an instance can not contain itself"}
			}
		}
	}

	return nil
}

// store replaces the slot's value, releasing instances no longer referenced.
func (i *Instance) store(f *schema.FieldDescriptor, v *schema.Variant, value any) {
	keep := make(map[*Instance]bool)

	for _, item := range asList(value) {
		if child, ok := item.(*Instance); ok {
			keep[child] = true
			child.owner = i
		}
	}

	for _, key := range slotKeys(f) {
		i.release(i.values[key], keep)
		delete(i.values, key)
	}

	i.values[storageKey(f, v)] = value
}

func (i *Instance) clear(f *schema.FieldDescriptor, v *schema.Variant) {
	keys := slotKeys(f)
	if f.Choice && v != nil {
		keys = []string{v.Name}
	}

	for _, key := range keys {
		i.release(i.values[key], nil)
		delete(i.values, key)
	}
}

func (i *Instance) release(value any, keep map[*Instance]bool) {
	for _, item := range asList(value) {
		if child, ok := item.(*Instance); ok && !keep[child] && child.owner == i {
			child.owner = nil
		}
	}
}

func (i *Instance) cardinalityError(f *schema.FieldDescriptor, reason string) error {
	return &CardinalityError{Type: i.rt.Name, Field: f.Name, Min: f.Min, Max: f.Max, Reason: reason}
}

// assignable reports whether an instance of actual fits a slot declared as decl.
// Abstract slots (Resource) take any resource.
func assignable(decl, actual *schema.ResourceType) bool {
	if decl == nil || actual == nil {
		return false
	}

	if decl == actual {
		return true
	}

	return decl.Kind == schema.TypeKindAbstract && actual.IsResource()
}

// knownNames lists logical and wire names once each, for suggestions.
func knownNames(rt *schema.ResourceType) []string {
	seen := make(map[string]bool)

	var names []string

	for _, name := range append(rt.FieldNames(), rt.WireNames()...) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

func storageKey(f *schema.FieldDescriptor, v *schema.Variant) string {
	if f.Choice && v != nil {
		return v.Name
	}

	return f.Name
}

// slotKeys returns every storage key a field may occupy.
func slotKeys(f *schema.FieldDescriptor) []string {
	if !f.Choice {
		return []string{f.Name}
	}

	keys := make([]string, len(f.Variants))
	for n, v := range f.Variants {
		keys[n] = v.Name
	}

	return keys
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

func isNil(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// isSequence reports whether value is a Go slice or array other than []byte,
// which is the scalar form of base64Binary.
func isSequence(value any) bool {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}

	return rv.Type().Elem().Kind() != reflect.Uint8
}

func toSlice(value any) ([]any, bool) {
	if seq, ok := value.([]any); ok {
		return seq, true
	}

	if !isSequence(value) {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	items := make([]any, rv.Len())

	for n := range items {
		items[n] = rv.Index(n).Interface()
	}

	return items, true
}
