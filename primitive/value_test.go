package primitive_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/primitive"
)

type taskStatus string

func TestCoerce(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6f1e8a0e-3d6b-4c3a-9d0e-6b2f3c9d1a11")
	ts := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		kind primitive.KindEnum
		in   any
		want any
	}{
		{"bool", primitive.KindBoolean, true, true},
		{"int widened", primitive.KindInteger, 5, int64(5)},
		{"uint widened", primitive.KindUnsignedInt, uint8(3), int64(3)},
		{"float to decimal", primitive.KindDecimal, 2.5, decimal.RequireFromString("2.5")},
		{"int to decimal", primitive.KindDecimal, 4, decimal.NewFromInt(4)},
		{"named string to code", primitive.KindCode, taskStatus("draft"), "draft"},
		{"time to date", primitive.KindDate, ts, "2024-03-05"},
		{"time to instant", primitive.KindInstant, ts, "2024-03-05T10:30:00Z"},
		{"bytes to base64", primitive.KindBase64Binary, []byte("hi"), "aGk="},
		{"uuid", primitive.KindUUID, id, "urn:uuid:6f1e8a0e-3d6b-4c3a-9d0e-6b2f3c9d1a11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := primitive.Coerce(tt.kind, tt.in)
			require.NoError(t, err)

			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind primitive.KindEnum
		in   any
	}{
		{"string into integer", primitive.KindInteger, "5"},
		{"int into string", primitive.KindString, 5},
		{"negative unsignedInt", primitive.KindUnsignedInt, -1},
		{"integer overflow", primitive.KindInteger, int64(1) << 40},
		{"bad code whitespace", primitive.KindCode, " draft"},
		{"bad id", primitive.KindID, "has space"},
		{"bad uuid", primitive.KindUUID, "urn:uuid:nope"},
		{"bad date", primitive.KindDate, "2024-13-01"},
		{"nil", primitive.KindString, nil},
		{"float when only native allowed", primitive.KindDecimal, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var allowed primitive.CategoryEnum = primitive.CategoryAll
			if tt.name == "float when only native allowed" {
				allowed = primitive.CategoryNative
			}

			_, err := primitive.CoerceWith(tt.kind, tt.in, allowed)
			require.Error(t, err)

			var ve *primitive.ValueError
			assert.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.kind, ve.Kind)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	v, err := primitive.Parse(primitive.KindBoolean, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = primitive.Parse(primitive.KindPositiveInt, "12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = primitive.Parse(primitive.KindPositiveInt, "0")
	assert.Error(t, err)

	v, err = primitive.Parse(primitive.KindDateTime, "2015-02-07T13:28:17-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2015-02-07T13:28:17-05:00", v)

	_, err = primitive.Parse(primitive.KindInstant, "2015-02-07")
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	t.Parallel()

	v, err := primitive.FromJSON(primitive.KindDecimal, json.Number("3.10"))
	require.NoError(t, err)
	s, err := primitive.Format(primitive.KindDecimal, v)
	require.NoError(t, err)
	assert.Equal(t, "3.10", s)

	v, err = primitive.FromJSON(primitive.KindInteger, json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = primitive.FromJSON(primitive.KindInteger, "42")
	assert.Error(t, err, "integers must be JSON numbers")

	_, err = primitive.FromJSON(primitive.KindBoolean, "true")
	assert.Error(t, err, "booleans must be JSON booleans")

	v, err = primitive.FromJSON(primitive.KindCode, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", v)
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	assert.True(t, primitive.KindDate.Accepts().Has(primitive.CategoryDatetime))
	assert.False(t, primitive.KindBoolean.Accepts().Has(primitive.CategoryStringer))
	assert.True(t, primitive.KindDecimal.Accepts().Has(primitive.CategoryFloatNumber|primitive.CategoryIntDecimal))
	assert.True(t, primitive.KindUUID.Accepts().Has(primitive.CategoryUUID))
}
