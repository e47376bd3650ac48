package definitions

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/schema"
)

const taskYAML = `
types:
  - name: Task
    kind: resource
    fields:
      - name: status
        path: Task.status
        min: 1
        type: code
        binding:
          strength: required
          value_set: http://hl7.org/fhir/ValueSet/task-status
        valid_codes:
          http://hl7.org/fhir/task-status: [draft, in-progress, completed]
      - name: input
        max: "*"
        type: Task.Input
  - name: Task.Input
    kind: backbone
    fields:
      - name: value[x]
        min: 1
        type: [string, integer, boolean]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(taskYAML))
	require.NoError(t, err)

	assert.Equal(t, "1", f.Version)
	require.Len(t, f.Types, 2)

	task := f.Types[0]
	assert.Equal(t, "Task", task.Name)
	assert.Equal(t, "resource", task.Kind)
	require.Len(t, task.Fields, 2)

	status := task.Fields[0]
	assert.Equal(t, 1, status.Min)
	assert.Equal(t, Max(1), status.Max)
	assert.Equal(t, StringOrArray{"code"}, status.Type)
	assert.Equal(t, "required", status.Binding.Strength)
	assert.Equal(t, StringOrArray{"draft", "in-progress", "completed"}, status.ValidCodes["http://hl7.org/fhir/task-status"])
	assert.False(t, status.IsChoice())

	assert.Equal(t, Unbounded, task.Fields[1].Max)

	value := f.Types[1].Fields[0]
	assert.True(t, value.IsChoice())
	assert.Equal(t, StringOrArray{"string", "integer", "boolean"}, value.Type)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "bad max",
			yaml: "types:\n  - name: Task\n    kind: resource\n    fields:\n      - {name: a, type: code, max: many}\n",
			msg:  `invalid max "many"`,
		},
		{
			name: "type as mapping",
			yaml: "types:\n  - name: Task\n    kind: resource\n    fields:\n      - {name: a, type: {x: y}}\n",
			msg:  "expected string or array",
		},
		{
			name: "not YAML",
			yaml: "types: [",
			msg:  "failed to parse definition YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	f, err := Parse([]byte(taskYAML))
	require.NoError(t, err)

	data, err := Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `max: '*'`)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskYAML), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Source)
	assert.Len(t, f.Types, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read definition file")
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/b.yaml":  {Data: []byte("types:\n  - {name: Coding, kind: complex, fields: [{name: code, type: code}]}\n")},
		"defs/a.yaml":  {Data: []byte(taskYAML)},
		"defs/notes.md": {Data: []byte("not a definition")},
	}

	files, err := LoadFS(fsys, "defs/*.yaml")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "defs/a.yaml", files[0].Source)
	assert.Equal(t, "defs/b.yaml", files[1].Source)

	fsys["defs/c.yaml"] = &fstest.MapFile{Data: []byte("types: [")}

	_, err = LoadFS(fsys, "defs/*.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}

func TestMaxOccurs(t *testing.T) {
	assert.Equal(t, "*", Unbounded.String())
	assert.Equal(t, "3", Max(3).String())
	assert.Equal(t, "1", MaxOccurs{}.String())
	assert.True(t, MaxOccurs{}.IsZero())
	assert.Equal(t, schema.Unbounded, Unbounded.Value)
}
