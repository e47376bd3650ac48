package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fhir-engine/schema"
)

// newTestRegistry builds a cut-down Task and MolecularSequence schema with
// narrative, contained resources and primitive extensions.
func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()

	types := []*schema.ResourceType{
		schema.NewResourceType("Extension", schema.TypeKindComplex,
			schema.NewField("url", 1, 1, "uri"),
			schema.NewChoiceField("value[x]", 0, 1, "string", "integer", "boolean"),
		),
		schema.NewResourceType("Resource", schema.TypeKindAbstract),
		schema.NewResourceType("Narrative", schema.TypeKindComplex,
			schema.NewField("status", 1, 1, "code"),
			schema.NewField("div", 1, 1, "xhtml"),
		),
		schema.NewResourceType("Coding", schema.TypeKindComplex,
			schema.NewField("system", 0, 1, "uri"),
			schema.NewField("code", 0, 1, "code"),
			schema.NewField("display", 0, 1, "string"),
		),
		schema.NewResourceType("Task", schema.TypeKindResource,
			schema.NewField("text", 0, 1, "Narrative"),
			schema.NewField("contained", 0, schema.Unbounded, "Resource"),
			schema.NewField("status", 1, 1, "code"),
			schema.NewField("priority", 0, 1, "code"),
			schema.NewField("authoredOn", 0, 1, "dateTime"),
			schema.NewField("input", 0, schema.Unbounded, "Task.Input"),
			schema.NewField("code", 0, 1, "Coding"),
		),
		schema.NewResourceType("Task.Input", schema.TypeKindBackbone,
			schema.NewChoiceField("value[x]", 1, 1, "string", "integer", "boolean", "decimal", "Coding"),
		),
		schema.NewResourceType("MolecularSequence", schema.TypeKindResource,
			schema.NewField("variant", 0, schema.Unbounded, "MolecularSequence.Variant"),
		),
		schema.NewResourceType("MolecularSequence.Variant", schema.TypeKindBackbone,
			schema.NewField("start", 0, 1, "integer"),
			schema.NewField("local_end", 0, 1, "integer"),
			schema.NewField("observedAllele", 0, 1, "string"),
		),
	}

	for _, rt := range types {
		require.NoError(t, reg.Register(rt))
	}

	require.NoError(t, reg.Link())

	return reg
}
