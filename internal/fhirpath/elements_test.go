package fhirpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/schema"
)

func TestElements(t *testing.T) {
	reg := schema.NewRegistry()

	require.NoError(t, reg.Register(schema.NewResourceType("ExampleScenario", schema.TypeKindResource,
		schema.NewField("name", 0, 1, "string"),
		schema.NewField("process", 0, schema.Unbounded, "ExampleScenario.Process"),
	)))
	require.NoError(t, reg.Register(schema.NewResourceType("ExampleScenario.Process", schema.TypeKindBackbone,
		schema.NewField("title", 1, 1, "string"),
		schema.NewField("step", 0, schema.Unbounded, "ExampleScenario.Process.Step"),
	)))
	require.NoError(t, reg.Register(schema.NewResourceType("ExampleScenario.Process.Step", schema.TypeKindBackbone,
		schema.NewField("process", 0, schema.Unbounded, "ExampleScenario.Process"),
		schema.NewChoiceField("value[x]", 0, 1, "string", "boolean"),
	)))
	require.NoError(t, reg.Link())

	elements := Elements(reg.MustResolve("ExampleScenario"), 2)

	var paths []string
	for _, e := range elements {
		paths = append(paths, e.Path)
	}

	assert.Equal(t, []string{
		"ExampleScenario.name",
		"ExampleScenario.process",
		"ExampleScenario.process.title",
		"ExampleScenario.process.step",
		"ExampleScenario.process.step.process",
		"ExampleScenario.process.step.value[x]",
	}, paths)

	assert.Nil(t, Elements(nil, 3))
}
