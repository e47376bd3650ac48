package r4

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/internal/definitions"
	"fhir-engine/schema"
)

func TestBundledDefinitionsAreValid(t *testing.T) {
	files, err := bundledFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	result := definitions.Validate(files...)
	assert.True(t, result.IsValid(), "bundled definitions: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestRegistry(t *testing.T) {
	reg := Registry()
	require.True(t, reg.Linked())
	assert.Same(t, reg, Registry())

	assert.Equal(t,
		[]string{"ExampleScenario", "InsurancePlan", "Measure", "MolecularSequence", "Task"},
		reg.Resources())

	_, err := reg.ResolveResource("Coding")
	require.Error(t, err)
}

func TestRegistry_ReservedFields(t *testing.T) {
	reg := Registry()

	task := reg.MustResolve("Task")
	names := task.FieldNames()
	require.GreaterOrEqual(t, len(names), 8)
	assert.Equal(t,
		[]string{"id", "meta", "implicitRules", "language", "text", "contained", "extension", "modifierExtension"},
		names[:8])

	coding := reg.MustResolve("Coding")
	_, ok := coding.Field(schema.FieldModifierExtension)
	assert.False(t, ok)

	input := reg.MustResolve("Task.Input")
	_, ok = input.Field(schema.FieldModifierExtension)
	assert.True(t, ok)
}

func TestRegistry_RenamedFields(t *testing.T) {
	reg := Registry()

	tests := []struct {
		typeName string
		name     string
		wire     string
		path     string
	}{
		{"Task", "local_for", "for", "Task.for"},
		{"MolecularSequence.Variant", "local_end", "end", "MolecularSequence.variant.end"},
		{"MolecularSequence.Quality", "local_end", "end", "MolecularSequence.quality.end"},
		{"MolecularSequence.Quality", "local_method", "method", "MolecularSequence.quality.method"},
		{"InsurancePlan", "local_alias", "alias", "InsurancePlan.alias"},
		{"Period", "local_end", "end", "Period.end"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName+"."+tt.name, func(t *testing.T) {
			f, _, ok := reg.MustResolve(tt.typeName).FieldByWireName(tt.wire)
			require.True(t, ok)
			assert.Equal(t, tt.name, f.Name)
			assert.Equal(t, tt.path, f.Path)
		})
	}
}

func TestRegistry_RecursiveBackbones(t *testing.T) {
	step := Registry().MustResolve("ExampleScenario.Process.Step")

	process, ok := step.Field("process")
	require.True(t, ok)
	assert.Same(t, Registry().MustResolve("ExampleScenario.Process"), process.Variants[0].Type)
}

func TestNewRegistry_ExtraDefinitions(t *testing.T) {
	dir := t.TempDir()

	extra := filepath.Join(dir, "basic.yaml")
	require.NoError(t, os.WriteFile(extra, []byte(`
types:
  - name: Basic
    kind: resource
    fields:
      - {name: code, min: 1, type: CodeableConcept}
      - {name: subject, type: Reference}
`), 0o644))

	reg, err := NewRegistry(nil, extra)
	require.NoError(t, err)
	assert.Contains(t, reg.Resources(), "Basic")
	assert.NotSame(t, Registry(), reg)

	clash := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(clash, []byte("types:\n  - {name: Task, kind: resource}\n"), 0o644))

	_, err = NewRegistry(nil, clash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type Task is already defined")

	_, err = NewRegistry(nil, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
