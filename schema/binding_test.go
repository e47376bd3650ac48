package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBindingStrength(t *testing.T) {
	for _, s := range []BindingStrength{BindingNone, BindingExample, BindingPreferred, BindingExtensible, BindingRequired} {
		parsed, ok := ParseBindingStrength(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}

	parsed, ok := ParseBindingStrength("")
	assert.True(t, ok)
	assert.Equal(t, BindingNone, parsed)

	_, ok = ParseBindingStrength("mandatory")
	assert.False(t, ok)
}

func TestBinding_Allows(t *testing.T) {
	b := &Binding{
		Strength: BindingRequired,
		ValueSet: "http://hl7.org/fhir/ValueSet/task-intent",
		AllowedCodes: map[string][]string{
			"http://hl7.org/fhir/task-intent":    {"order", "plan"},
			"http://hl7.org/fhir/request-intent": {"proposal"},
		},
	}

	assert.True(t, b.HasCodes())
	assert.True(t, b.Allows("http://hl7.org/fhir/task-intent", "order"))
	assert.False(t, b.Allows("http://hl7.org/fhir/task-intent", "proposal"))
	assert.True(t, b.Allows("", "proposal"))
	assert.False(t, b.Allows("", "unknown"))
	assert.Equal(t, []string{"http://hl7.org/fhir/request-intent", "http://hl7.org/fhir/task-intent"}, b.Systems())

	var none *Binding
	assert.False(t, none.HasCodes())
	assert.False(t, none.Allows("", "order"))
	assert.Nil(t, none.Systems())
}
