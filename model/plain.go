package model

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"fhir-engine/primitive"
)

// ToPlain converts the instance to an ordered tree keyed by logical names:
// nested instances become *Object, repeated fields []any and primitives keep
// their canonical Go values. Choice slots appear under the variant name.
func (i *Instance) ToPlain() *Object {
	obj := NewObject()

	i.Range(func(e Entry) bool {
		obj.Set(e.Variant.Name, plainValue(e.Value))
		return true
	})

	return obj
}

func plainValue(value any) any {
	switch t := value.(type) {
	case *Instance:
		return t.ToPlain()
	case []any:
		out := make([]any, len(t))
		for n, item := range t {
			out[n] = plainValue(item)
		}

		return out
	default:
		return t
	}
}

// Hash returns a content hash of the instance: its type name, every populated
// field and the preserved unknown elements, nested instances included. Equal
// instances hash alike.
func (i *Instance) Hash() uint64 {
	d := xxhash.New()
	hashInstance(d, i)

	return d.Sum64()
}

func hashInstance(d *xxhash.Digest, i *Instance) {
	_, _ = d.WriteString(i.rt.Name + "{")

	i.Range(func(e Entry) bool {
		_, _ = d.WriteString(e.Variant.Name + ":")
		hashValue(d, e.Value)

		return true
	})

	for _, u := range i.unknown {
		_, _ = d.WriteString("?" + u.Name + ":")
		hashValue(d, u.Value)
	}

	_, _ = d.WriteString("}")
}

// hashValue writes value so that values equalValue accepts as equal write
// the same bytes. Object keys are hashed sorted.
func hashValue(d *xxhash.Digest, value any) {
	switch t := value.(type) {
	case *Instance:
		hashInstance(d, t)
	case *Object:
		keys := t.Keys()
		sort.Strings(keys)

		_, _ = d.WriteString("{")

		for _, key := range keys {
			_, _ = d.WriteString(key + ":")
			hashValue(d, t.values[key])
			_, _ = d.WriteString(",")
		}

		_, _ = d.WriteString("}")
	case []any:
		_, _ = d.WriteString("[")

		for _, item := range t {
			hashValue(d, item)
			_, _ = d.WriteString(",")
		}

		_, _ = d.WriteString("]")
	case decimal.Decimal:
		_, _ = d.WriteString("d" + primitive.FormatDecimal(t))
	default:
		_, _ = fmt.Fprintf(d, "%T:%v", t, t)
	}
}

// Equal reports whether two instances have the same type, the same field
// values (decimals compared with their precision) and the same unknown data,
// at every level.
func (i *Instance) Equal(other *Instance) bool {
	if i == nil || other == nil {
		return i == other
	}

	return equalInstance(i, other)
}

func equalInstance(a, b *Instance) bool {
	if a.rt != b.rt || len(a.values) != len(b.values) || len(a.unknown) != len(b.unknown) {
		return false
	}

	for key, va := range a.values {
		vb, ok := b.values[key]
		if !ok || !equalValue(va, vb) {
			return false
		}
	}

	for n, u := range a.unknown {
		if u.Name != b.unknown[n].Name || !equalValue(u.Value, b.unknown[n].Value) {
			return false
		}
	}

	return true
}

func equalValue(a, b any) bool {
	switch ta := a.(type) {
	case *Instance:
		tb, ok := b.(*Instance)
		return ok && (ta == tb || (ta != nil && tb != nil && equalInstance(ta, tb)))
	case *Object:
		tb, ok := b.(*Object)
		if !ok || ta.Len() != tb.Len() {
			return false
		}

		keysA, keysB := ta.Keys(), tb.Keys()
		sort.Strings(keysA)
		sort.Strings(keysB)

		for n := range keysA {
			if keysA[n] != keysB[n] || !equalValue(ta.values[keysA[n]], tb.values[keysB[n]]) {
				return false
			}
		}

		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}

		for n := range ta {
			if !equalValue(ta[n], tb[n]) {
				return false
			}
		}

		return true
	case decimal.Decimal:
		tb, ok := b.(decimal.Decimal)
		return ok && primitive.FormatDecimal(ta) == primitive.FormatDecimal(tb)
	case []byte:
		tb, ok := b.([]byte)
		return ok && bytes.Equal(ta, tb)
	default:
		if a == nil || b == nil || !reflect.TypeOf(a).Comparable() {
			return reflect.DeepEqual(a, b)
		}

		return a == b
	}
}

// Clone returns a deep copy that is not attached to any owner. Preserved
// unknown data is copied too.
func (i *Instance) Clone() *Instance {
	c := New(i.rt)

	for key, value := range i.values {
		c.values[key] = cloneValue(value, c)
	}

	if i.unknown != nil {
		c.unknown = make([]UnknownElement, len(i.unknown))
		for n, u := range i.unknown {
			c.unknown[n] = UnknownElement{Name: u.Name, Value: cloneValue(u.Value, nil)}
		}
	}

	return c
}

func cloneValue(value any, owner *Instance) any {
	switch t := value.(type) {
	case *Instance:
		child := t.Clone()
		child.owner = owner

		return child
	case *Object:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for n, item := range t {
			out[n] = cloneValue(item, owner)
		}

		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return t
	}
}
