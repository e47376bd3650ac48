package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_SetGet(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	require.NoError(t, task.Set("status", "in-progress"))

	v, ok := task.Get("status")
	require.True(t, ok)
	assert.Equal(t, "in-progress", v)
	assert.True(t, task.Has("status"))
	assert.Equal(t, 1, task.Len("status"))

	_, ok = task.Get("priority")
	assert.False(t, ok)
	assert.Equal(t, 0, task.Len("priority"))

	require.NoError(t, task.Set("status", nil))
	assert.False(t, task.Has("status"))
	assert.True(t, task.IsEmpty())
}

func TestInstance_RenamedField(t *testing.T) {
	reg := newTestRegistry(t)
	variant := New(reg.MustResolve("MolecularSequence.Variant"))

	require.NoError(t, variant.Set("start", 10))
	require.NoError(t, variant.Set("local_end", int32(20)))

	end, ok := variant.Get("local_end")
	require.True(t, ok)
	assert.Equal(t, int64(20), end)

	var unknown *UnknownFieldError
	require.ErrorAs(t, variant.Set("end_", 1), &unknown)
	assert.Contains(t, unknown.Suggestions, "end")
}

func TestInstance_Cardinality(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	var cardErr *CardinalityError

	err := task.Set("status", []string{"draft", "ready"})
	require.ErrorAs(t, err, &cardErr)
	assert.Equal(t, "status", cardErr.Field)
	assert.False(t, task.Has("status"))

	input := New(reg.MustResolve("Task.Input"))
	require.ErrorAs(t, task.Set("input", input), &cardErr)
	require.ErrorAs(t, task.Append("status", "draft"), &cardErr)
}

func TestInstance_TypeMismatchIsAtomic(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	require.NoError(t, task.Set("status", "draft"))

	var mismatch *TypeMismatchError

	require.ErrorAs(t, task.Set("status", 42), &mismatch)
	require.ErrorAs(t, task.Set("status", " bad code "), &mismatch)
	require.ErrorAs(t, task.Set("code", "not-a-coding"), &mismatch)
	require.ErrorAs(t, task.Set("code", New(reg.MustResolve("Task.Input"))), &mismatch)

	status, _ := task.Get("status")
	assert.Equal(t, "draft", status)
	assert.False(t, task.Has("code"))

	// A failing element leaves the whole sequence untouched.
	first := New(reg.MustResolve("Task.Input"))
	require.NoError(t, task.Set("input", []*Instance{first}))
	require.ErrorAs(t, task.Set("input", []any{New(reg.MustResolve("Task.Input")), "oops"}), &mismatch)
	assert.Equal(t, "input[1]", mismatch.Field)
	assert.Equal(t, 1, task.Len("input"))
}

func TestInstance_RepeatedFields(t *testing.T) {
	reg := newTestRegistry(t)
	seq := New(reg.MustResolve("MolecularSequence"))

	a := New(reg.MustResolve("MolecularSequence.Variant"))
	b := New(reg.MustResolve("MolecularSequence.Variant"))

	require.NoError(t, seq.Append("variant", a))
	require.NoError(t, seq.Append("variant", b))
	assert.Equal(t, 2, seq.Len("variant"))
	assert.Same(t, seq, a.Owner())

	got, _ := seq.Get("variant")
	items := got.([]any)
	items[0] = nil

	again, _ := seq.Get("variant")
	assert.Same(t, a, again.([]any)[0], "Get returns a copy of the sequence")

	require.NoError(t, seq.Set("variant", []*Instance{b}))
	assert.Nil(t, a.Owner(), "replaced instances are released")
	assert.Same(t, seq, b.Owner())

	require.NoError(t, seq.Set("variant", []any{}))
	assert.False(t, seq.Has("variant"))
	assert.Nil(t, b.Owner())
}

func TestInstance_Ownership(t *testing.T) {
	reg := newTestRegistry(t)

	task1 := New(reg.MustResolve("Task"))
	task2 := New(reg.MustResolve("Task"))
	input := New(reg.MustResolve("Task.Input"))

	require.NoError(t, task1.Append("input", input))

	var owned *OwnershipError
	require.ErrorAs(t, task2.Append("input", input), &owned)
	require.ErrorAs(t, task1.Append("input", input), &owned)
	require.ErrorAs(t, task1.Set("contained", []any{task1}), &owned)

	require.NoError(t, task1.Set("input", []any{input}), "re-assigning the same slot keeps ownership")
	require.NoError(t, task1.Clear("input"))
	assert.Nil(t, input.Owner())
	require.NoError(t, task2.Append("input", input))

	require.NoError(t, task1.Append("contained", task2))
	assert.Same(t, task1, task2.Owner())
}

func TestInstance_ContainedAcceptsAnyResource(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	require.NoError(t, task.Append("contained", New(reg.MustResolve("MolecularSequence"))))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, task.Append("contained", New(reg.MustResolve("Coding"))), &mismatch)
}

func TestInstance_Range(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	require.NoError(t, task.Set("priority", "routine"))
	require.NoError(t, task.Set("status", "draft"))
	require.NoError(t, task.Set("id", "t1"))

	var names []string
	task.Range(func(e Entry) bool {
		names = append(names, e.Field.Name)
		return true
	})

	assert.Equal(t, []string{"id", "status", "priority"}, names)

	var first []string
	task.Range(func(e Entry) bool {
		first = append(first, e.Field.Name)
		return false
	})

	assert.Equal(t, []string{"id"}, first)
}

func TestInstance_Unknown(t *testing.T) {
	reg := newTestRegistry(t)
	task := New(reg.MustResolve("Task"))

	task.AddUnknown("futureField", "x")
	assert.False(t, task.IsEmpty())
	assert.Equal(t, []UnknownElement{{Name: "futureField", Value: "x"}}, task.Unknown())

	task.SetUnknown("futureField", "y")
	task.SetUnknown("_status", []any{"z"})
	assert.Equal(t, []UnknownElement{{Name: "futureField", Value: "y"}, {Name: "_status", Value: []any{"z"}}}, task.Unknown())

	task.SetUnknown("futureField", nil)
	assert.Equal(t, []UnknownElement{{Name: "_status", Value: []any{"z"}}}, task.Unknown())

	task.ClearUnknown()
	assert.Empty(t, task.Unknown())
}

func TestInstance_NestedUnknownData(t *testing.T) {
	reg := newTestRegistry(t)

	build := func(extra any) *Instance {
		task := New(reg.MustResolve("Task"))
		require.NoError(t, task.Set("status", "draft"))

		input := New(reg.MustResolve("Task.Input"))
		require.NoError(t, input.Set("valueString", "a"))

		if extra != nil {
			input.AddUnknown("foo", extra)
		}

		require.NoError(t, task.Append("input", input))

		return task
	}

	nested := func(baz int) *Object {
		inner := NewObject()
		inner.Set("baz", baz)

		outer := NewObject()
		outer.Set("bar", inner)

		return outer
	}

	plain, withFoo := build(nil), build(nested(1))
	assert.False(t, plain.Equal(withFoo), "unknown data below the root is compared")
	assert.NotEqual(t, plain.Hash(), withFoo.Hash())

	same := build(nested(1))
	assert.True(t, withFoo.Equal(same))
	assert.Equal(t, withFoo.Hash(), same.Hash(), "equal nested objects hash alike")

	other := build(nested(2))
	assert.False(t, withFoo.Equal(other))
	assert.NotEqual(t, withFoo.Hash(), other.Hash())

	// Key order does not matter to either.
	reordered := NewObject()
	reordered.Set("b", 2)
	reordered.Set("a", 1)

	ordered := NewObject()
	ordered.Set("a", 1)
	ordered.Set("b", 2)

	x, y := build(ordered), build(reordered)
	assert.True(t, x.Equal(y))
	assert.Equal(t, x.Hash(), y.Hash())
}

func TestInstance_CloneCopiesUnknownData(t *testing.T) {
	reg := newTestRegistry(t)

	inner := NewObject()
	inner.Set("baz", 1)

	task := New(reg.MustResolve("Task"))
	task.AddUnknown("foo", inner)
	task.AddUnknown("_alias", []any{[]any{inner}})

	clone := task.Clone()
	require.True(t, clone.Equal(task))

	copied := clone.Unknown()[0].Value.(*Object)
	assert.NotSame(t, inner, copied)

	copied.Set("baz", 2)
	assert.False(t, clone.Equal(task))

	value, _ := inner.Get("baz")
	assert.Equal(t, 1, value)

	listed := clone.Unknown()[1].Value.([]any)[0].([]any)[0].(*Object)
	assert.NotSame(t, inner, listed)
}

func TestInstance_PlainHashEqualClone(t *testing.T) {
	reg := newTestRegistry(t)

	build := func(amount string) *Instance {
		task := New(reg.MustResolve("Task"))
		require.NoError(t, task.Set("status", "draft"))

		input := New(reg.MustResolve("Task.Input"))
		require.NoError(t, input.Set("valueDecimal", decimal.RequireFromString(amount)))
		require.NoError(t, task.Append("input", input))

		return task
	}

	a, b := build("1.50"), build("1.50")
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	c := build("1.5")
	assert.False(t, a.Equal(c), "decimal precision is significant")

	plain := a.ToPlain()
	assert.Equal(t, []string{"status", "input"}, plain.Keys())

	inputs, _ := plain.Get("input")
	first := inputs.([]any)[0].(*Object)
	assert.Equal(t, []string{"valueDecimal"}, first.Keys())

	out, err := plain.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"status":"draft","input":[{"valueDecimal":1.50}]}`, string(out))

	clone := a.Clone()
	assert.True(t, clone.Equal(a))
	assert.Nil(t, clone.Owner())

	items, _ := clone.Get("input")
	assert.Same(t, clone, items.([]any)[0].(*Instance).Owner())

	require.NoError(t, clone.Set("status", "ready"))
	assert.False(t, clone.Equal(a))
	assert.NotEqual(t, clone.Hash(), a.Hash())

	var nilInstance *Instance
	assert.False(t, a.Equal(nilInstance))
}

func TestObject(t *testing.T) {
	obj := NewObject()
	obj.Set("b", 1)
	obj.Set("a", 2)
	obj.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, obj.Keys())

	v, ok := obj.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	obj.Delete("b")
	obj.Delete("missing")
	assert.Equal(t, 1, obj.Len())

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(out))
}
