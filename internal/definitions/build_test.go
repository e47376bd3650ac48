package definitions

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/diagnostic"
	"fhir-engine/schema"
)

func TestBuild(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	reg := schema.NewRegistry()
	result := Build(reg, []*File{parseNamed(t, "task.yaml", taskYAML)}, logger)
	require.True(t, result.IsValid(), "unexpected errors: %v", result.Errors)
	require.True(t, reg.Linked())

	task := reg.MustResolve("Task")
	assert.Equal(t, schema.TypeKindResource, task.Kind)

	status, ok := task.Field("status")
	require.True(t, ok)
	assert.Equal(t, "1..1", status.Cardinality())
	require.NotNil(t, status.Binding)
	assert.Equal(t, schema.BindingRequired, status.Binding.Strength)
	assert.Equal(t, "http://hl7.org/fhir/ValueSet/task-status", status.Binding.ValueSet)
	assert.True(t, status.Binding.Allows("http://hl7.org/fhir/task-status", "draft"))
	assert.False(t, status.Binding.Allows("http://hl7.org/fhir/task-status", "paused"))

	input, _ := task.Field("input")
	assert.Equal(t, "0..*", input.Cardinality())
	assert.Equal(t, "Task.input", input.Path)

	value, ok := reg.MustResolve("Task.Input").Field("value")
	require.True(t, ok)
	assert.True(t, value.Choice)
	assert.Equal(t, "Task.Input.value[x]", value.ElementPath())

	_, v, ok := reg.MustResolve("Task.Input").FieldByWireName("valueInteger")
	require.True(t, ok)
	assert.Equal(t, "integer", v.TypeName)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "definitions registered", hook.LastEntry().Message)
	assert.Equal(t, 2, hook.LastEntry().Data["types"])
}

func TestBuild_RenamedFields(t *testing.T) {
	yaml := `
types:
  - name: MolecularSequence
    kind: resource
    fields:
      - {name: variant, max: "*", type: MolecularSequence.Variant}
  - name: MolecularSequence.Variant
    kind: backbone
    fields:
      - {name: start, type: integer}
      - {name: local_end, type: integer}
      - {name: local_for, wire_name: for, path: MolecularSequence.variant.for, type: string}
`
	reg := schema.NewRegistry()
	result := Build(reg, []*File{parseNamed(t, "seq.yaml", yaml)}, nil)
	require.True(t, result.IsValid(), "unexpected errors: %v", result.Errors)

	variant := reg.MustResolve("MolecularSequence.Variant")

	end, _ := variant.Field("local_end")
	assert.Equal(t, "end", end.WireName)
	assert.Equal(t, "MolecularSequence.Variant.end", end.Path)

	f, _, ok := variant.FieldByWireName("for")
	require.True(t, ok)
	assert.Equal(t, "local_for", f.Name)
	assert.Equal(t, "MolecularSequence.variant.for", f.Path)
}

func TestBuild_ValidCodesWithoutBinding(t *testing.T) {
	yaml := `
types:
  - name: Coding
    kind: complex
    fields:
      - {name: code, type: code, valid_codes: {'http://x': [a, b]}}
      - {name: display, type: string, binding: {strength: example}}
`
	reg := schema.NewRegistry()
	result := Build(reg, []*File{parseNamed(t, "coding.yaml", yaml)}, nil)
	require.True(t, result.IsValid(), "unexpected errors: %v", result.Errors)

	code, _ := reg.MustResolve("Coding").Field("code")
	assert.Equal(t, schema.BindingRequired, code.Binding.Strength)
	assert.Equal(t, []string{"http://x"}, code.Binding.Systems())

	display, _ := reg.MustResolve("Coding").Field("display")
	assert.Equal(t, schema.BindingExample, display.Binding.Strength)
	assert.False(t, display.Binding.HasCodes())
}

func TestBuild_UnknownType(t *testing.T) {
	yaml := `
types:
  - name: Task
    kind: resource
    fields:
      - {name: input, max: "*", type: Task.Inptu}
  - name: Task.Input
    kind: backbone
    fields:
      - {name: type, type: string}
`
	logger, hook := test.NewNullLogger()

	reg := schema.NewRegistry(schema.WithLogger(logger))
	result := Build(reg, []*File{parseNamed(t, "task.yaml", yaml)}, logger)
	require.True(t, result.HasErrors())
	assert.False(t, reg.Linked())

	unknown := result.ByCode(diagnostic.CodeUnknownType)
	require.Len(t, unknown, 1)
	assert.Equal(t, "Task", unknown[0].Type)
	assert.Equal(t, "Task.input", unknown[0].FieldPath)
	assert.Equal(t, []string{"Task.Input"}, unknown[0].Suggestions)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestBuild_InvalidFilesAreNotRegistered(t *testing.T) {
	reg := schema.NewRegistry()
	result := Build(reg, []*File{parseNamed(t, "bad.yaml", "types:\n  - {name: Task}\n")}, nil)

	require.True(t, result.HasErrors())
	assert.Equal(t, 0, reg.Len())
}

func TestBuild_ConflictsWithRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	_, err := reg.Declare("Coding", schema.TypeKindResource)
	require.NoError(t, err)

	result := Build(reg, []*File{parseNamed(t, "coding.yaml", "types:\n  - {name: Coding, kind: complex}\n")}, nil)

	dups := result.ByCode(diagnostic.CodeDuplicateDefinition)
	require.Len(t, dups, 1)
	assert.Equal(t, "Coding", dups[0].Type)
}
