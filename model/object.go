package model

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"fhir-engine/primitive"
)

// Object is an insertion-ordered key/value map. It is the plain form of an
// instance and the tree the codecs build before writing bytes.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}

	delete(o.values, key)

	for n, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:n], o.keys[n+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}

	c := &Object{keys: append([]string(nil), o.keys...), values: make(map[string]any, len(o.values))}

	for key, value := range o.values {
		c.values[key] = cloneValue(value, nil)
	}

	return c
}

// MarshalJSON writes the keys in insertion order. Decimals are written as
// JSON numbers with their precision.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for n, key := range o.keys {
		if n > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')

		v, err := json.Marshal(jsonValue(o.values[key]))
		if err != nil {
			return nil, err
		}

		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func jsonValue(value any) any {
	switch t := value.(type) {
	case decimal.Decimal:
		return json.Number(primitive.FormatDecimal(t))
	case []any:
		out := make([]any, len(t))
		for n, item := range t {
			out[n] = jsonValue(item)
		}

		return out
	default:
		return value
	}
}
