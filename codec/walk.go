package codec

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"fhir-engine/internal/fhirpath"
	"fhir-engine/model"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

const resourceTypeKey = "resourceType"

// resourceName is the resourceType of an encoded resource. Its type tells
// resources apart from elements declaring a resourceType field of their own.
type resourceName string

// extensionPrefix marks the sibling holding a primitive's id and extensions
// ("_status" next to "status").
const extensionPrefix = "_"

// dialect is the part of a wire format the shared walk can not decide.
type dialect interface {
	// encodeLeaf renders a canonical primitive as a wire tree leaf.
	encodeLeaf(kind primitive.KindEnum, value any) (any, error)
	// decodeLeaf converts a wire leaf to its canonical primitive. ext carries
	// data attached to the primitive (id, extension) to be preserved.
	decodeLeaf(kind primitive.KindEnum, raw any) (value any, ext *model.Object, err error)
	// resourceOf splits a polymorphic resource value into type name and body.
	resourceOf(raw *model.Object) (name string, body *model.Object, ok bool)
	// singleAsSequence reports whether a lone value may stand for a sequence.
	singleAsSequence() bool
}

// encodeInstance builds the wire tree of inst: keys are wire names in
// declared order, followed by the preserved unknown elements.
func encodeInstance(d dialect, inst *model.Instance) (*model.Object, error) {
	obj := model.NewObject()

	if inst.Type().IsResource() {
		obj.Set(resourceTypeKey, resourceName(inst.Type().Name))
	}

	unknown := inst.Unknown()

	stored := make(map[string]any, len(unknown))
	for _, u := range unknown {
		stored[u.Name] = u.Value
	}

	spread := make(map[string][]any)

	var err error

	inst.Range(func(e model.Entry) bool {
		var value any

		value, err = encodeValue(d, e.Variant, e.Value)
		if err != nil {
			err = fmt.Errorf("%s.%s: %w", inst.Type().Name, e.Variant.WireName, err)
			return false
		}

		key := e.Variant.WireName

		if seq, isSeq := value.([]any); isSeq {
			if values, exts, ok := spreadExtensions(seq, stored[extensionPrefix+key]); ok {
				value = values
				spread[extensionPrefix+key] = exts
			}
		}

		obj.Set(key, value)

		return true
	})

	if err != nil {
		return nil, err
	}

	for _, u := range unknown {
		if _, taken := obj.Get(u.Name); taken {
			continue
		}

		value := u.Value

		if exts, ok := spread[u.Name]; ok {
			value = exts
		} else if sibling, isExt := strings.CutPrefix(u.Name, extensionPrefix); isExt {
			// Every item of the sibling carries extensions only.
			if _, has := obj.Get(sibling); !has && isField(inst.Type(), sibling) {
				if values, exts, ok := spreadExtensions(nil, value); ok {
					obj.Set(sibling, values)
					value = exts
				}
			}
		}

		obj.Set(u.Name, value)
	}

	return obj, nil
}

// spreadExtensions restores index-aligned wire arrays from values and the
// stored "_key" list, in which an item without a value is wrapped as
// []any{ext}. ok is false when stored holds no such item.
func spreadExtensions(values []any, stored any) (wireValues, wireExts []any, ok bool) {
	items, isSeq := stored.([]any)
	if !isSeq {
		return nil, nil, false
	}

	next := 0

	for _, item := range items {
		if wrapped, isWrapped := item.([]any); isWrapped && len(wrapped) == 1 {
			wireValues = append(wireValues, nil)
			wireExts = append(wireExts, wrapped[0])
			ok = true

			continue
		}

		if next < len(values) {
			wireValues = append(wireValues, values[next])
			next++
		} else {
			wireValues = append(wireValues, nil)
		}

		wireExts = append(wireExts, item)
	}

	if !ok {
		return nil, nil, false
	}

	wireValues = append(wireValues, values[next:]...)

	for len(wireExts) < len(wireValues) {
		wireExts = append(wireExts, nil)
	}

	return wireValues, wireExts, true
}

func encodeValue(d dialect, v *schema.Variant, value any) (any, error) {
	switch t := value.(type) {
	case []any:
		out := make([]any, len(t))

		for n, item := range t {
			encoded, err := encodeValue(d, v, item)
			if err != nil {
				return nil, err
			}

			out[n] = encoded
		}

		return out, nil
	case *model.Instance:
		return encodeInstance(d, t)
	default:
		return d.encodeLeaf(v.Primitive, t)
	}
}

// decoder walks a wire tree against the registry and collects errors.
type decoder struct {
	reg    *schema.Registry
	d      dialect
	limits Limits
	log    logrus.FieldLogger
	errs   DecodeErrors
}

func (dec *decoder) fail(path fhirpath.Path, err error, format string, args ...any) {
	dec.errs = append(dec.errs, &DecodeError{
		Path:    path.String(),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	})
}

// root decodes a top-level wire object.
func (dec *decoder) root(obj *model.Object, rt *schema.ResourceType) *model.Instance {
	return dec.instance(obj, rt, fhirpath.New(rt.Name), 1)
}

func (dec *decoder) instance(obj *model.Object, rt *schema.ResourceType, path fhirpath.Path, depth int) *model.Instance {
	if depth > dec.limits.MaxDepth {
		dec.fail(path, nil, "elements are nested deeper than %d levels", dec.limits.MaxDepth)
		return nil
	}

	inst := model.New(rt)

	var sparse []sparseField

	for _, key := range obj.Keys() {
		raw, _ := obj.Get(key)

		if key == resourceTypeKey && rt.IsResource() {
			if name, _ := raw.(string); name != rt.Name {
				dec.fail(path, nil, "resourceType %v does not match %s", raw, rt.Name)
			}

			continue
		}

		f, v, ok := rt.FieldByWireName(key)
		if !ok {
			if slot := choiceSlot(rt, key); slot != nil {
				dec.fail(path.Field(key), nil, "%s is not a variant of %s (allowed: %s)",
					key, slot.ElementPath(), strings.Join(slot.Types, ", "))

				continue
			}

			dec.log.WithFields(logrus.Fields{"type": rt.Name, "element": key}).Debug("preserving unknown element")
			inst.AddUnknown(key, raw)

			continue
		}

		if gaps, size := dec.field(inst, f, v, key, raw, path.Field(key), depth); len(gaps) > 0 {
			sparse = append(sparse, sparseField{key: key, gaps: gaps, size: size})
		}
	}

	for _, sf := range sparse {
		dec.alignExtensions(inst, sf, path.Field(sf.key))
	}

	return inst
}

// sparseField is a repeated field whose wire array had items that left no
// value in the instance: nulls, extension-only primitives or invalid items.
type sparseField struct {
	key  string
	gaps map[int]bool // wire index -> item was null
	size int          // wire array length
}

// alignExtensions rewrites the "_key" sibling of a sparse field so its items
// follow the stored values. An extension of an item without a value is kept
// in place wrapped as []any{ext}; encodeInstance turns it back into a null
// value next to its extension.
func (dec *decoder) alignExtensions(inst *model.Instance, sf sparseField, path fhirpath.Path) {
	name := extensionPrefix + sf.key

	var exts []any

	for _, u := range inst.Unknown() {
		if u.Name == name {
			exts = asList(u.Value)
			break
		}
	}

	at := func(n int) any {
		if n < len(exts) {
			return exts[n]
		}

		return nil
	}

	aligned := make([]any, 0, len(exts))

	for n := range sf.size {
		ext := at(n)

		null, isGap := sf.gaps[n]
		if !isGap {
			aligned = append(aligned, ext)
			continue
		}

		if ext == nil {
			if null {
				dec.fail(path.Index(n), nil, "null is not a valid value without an extension")
			}

			continue
		}

		aligned = append(aligned, []any{ext})
	}

	if len(exts) > sf.size {
		aligned = append(aligned, exts[sf.size:]...)
	}

	for len(aligned) > 0 && aligned[len(aligned)-1] == nil {
		aligned = aligned[:len(aligned)-1]
	}

	if len(aligned) == 0 {
		inst.SetUnknown(name, nil)
		return
	}

	inst.SetUnknown(name, aligned)
}

// field decodes the wire value of one field. For a repeated field it returns
// the wire indexes that produced no value and the wire array length.
func (dec *decoder) field(inst *model.Instance, f *schema.FieldDescriptor, v *schema.Variant, key string, raw any, path fhirpath.Path, depth int) (map[int]bool, int) {
	if raw == nil {
		dec.fail(path, nil, "null is not a valid value")
		return nil, 0
	}

	if f.Choice && inst.Has(f.Name) {
		dec.fail(path, nil, "%s already holds another variant", f.ElementPath())
		return nil, 0
	}

	if !f.IsRepeated() {
		if seq, isSeq := raw.([]any); isSeq {
			if !dec.d.singleAsSequence() || len(seq) != 1 {
				dec.fail(path, nil, "expected a single value for %s (%s), found %d", f.Name, f.Cardinality(), len(seq))
				return nil, 0
			}

			raw = seq[0]
		}

		value, ext, ok := dec.value(raw, v, path, depth+1)
		if ext != nil {
			inst.AddUnknown(extensionPrefix+key, ext)
		}

		if ok && value != nil {
			dec.set(inst, v, value, path)
		}

		return nil, 0
	}

	items, isSeq := raw.([]any)
	if !isSeq {
		if !dec.d.singleAsSequence() {
			dec.fail(path, nil, "expected an array for %s (%s)", f.Name, f.Cardinality())
			return nil, 0
		}

		items = []any{raw}
	}

	if len(items) > dec.limits.MaxItems {
		dec.fail(path, nil, "%d values exceed the limit of %d", len(items), dec.limits.MaxItems)
		return nil, 0
	}

	values := make([]any, 0, len(items))
	exts := make([]any, len(items))
	hasExt := false

	var gaps map[int]bool

	gap := func(n int, null bool) {
		if gaps == nil {
			gaps = make(map[int]bool)
		}

		gaps[n] = null
	}

	for n, item := range items {
		if item == nil {
			gap(n, true)
			continue
		}

		value, ext, ok := dec.value(item, v, path.Index(n), depth+1)
		if ext != nil {
			exts[n] = ext
			hasExt = true
		}

		if ok && value != nil {
			values = append(values, value)
		} else {
			gap(n, false)
		}
	}

	if hasExt {
		inst.AddUnknown(extensionPrefix+key, exts)
	}

	if len(values) > 0 {
		dec.set(inst, v, values, path)
	}

	return gaps, len(items)
}

func (dec *decoder) set(inst *model.Instance, v *schema.Variant, value any, path fhirpath.Path) {
	if err := inst.Set(v.Name, value); err != nil {
		dec.fail(path, err, "can not assign %s", v.TypeName)
	}
}

// value decodes one item. ok is false when an error was recorded.
func (dec *decoder) value(item any, v *schema.Variant, path fhirpath.Path, depth int) (value any, ext *model.Object, ok bool) {
	if v.IsPrimitive() {
		value, ext, err := dec.d.decodeLeaf(v.Primitive, item)
		if err != nil {
			dec.fail(path, err, "invalid %s", v.TypeName)
			return nil, ext, false
		}

		return value, ext, true
	}

	obj, isObj := item.(*model.Object)
	if !isObj {
		dec.fail(path, nil, "expected an object for %s, found %T", v.TypeName, item)
		return nil, nil, false
	}

	rt := v.Type

	if rt.Kind == schema.TypeKindAbstract {
		name, body, found := dec.d.resourceOf(obj)
		if !found {
			dec.fail(path, nil, "a %s value must name its resource type", v.TypeName)
			return nil, nil, false
		}

		resolved, err := dec.reg.ResolveResource(name)
		if err != nil {
			dec.fail(path, err, "can not decode %s", v.TypeName)
			return nil, nil, false
		}

		rt, obj = resolved, body
	}

	child := dec.instance(obj, rt, path, depth)
	if child == nil {
		return nil, nil, false
	}

	return child, nil, true
}

func isField(rt *schema.ResourceType, wireName string) bool {
	_, _, ok := rt.FieldByWireName(wireName)
	return ok
}

// choiceSlot finds the choice field whose naming pattern key follows
// (value, valueFoo) without naming one of its variants.
func choiceSlot(rt *schema.ResourceType, key string) *schema.FieldDescriptor {
	for _, f := range rt.Fields {
		if !f.Choice {
			continue
		}

		rest, ok := strings.CutPrefix(key, f.WireName)
		if !ok {
			continue
		}

		if rest == "" || unicode.IsUpper([]rune(rest)[0]) {
			return f
		}
	}

	return nil
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
