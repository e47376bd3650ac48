package fhirpath

import (
	"fhir-engine/schema"
)

// Element is one reachable element of a type tree.
type Element struct {
	Path  string
	Depth int
	Field *schema.FieldDescriptor
}

// Elements lists the element paths reachable from root, depth first in
// declared order. Recursive types are cut at maxDepth; extension fields are
// listed but not expanded.
func Elements(root *schema.ResourceType, maxDepth int) []Element {
	if root == nil {
		return nil
	}

	var result []Element

	buildElements(root, New(root.ShortName()), 0, maxDepth, &result)

	return result
}

func buildElements(rt *schema.ResourceType, path Path, depth, maxDepth int, result *[]Element) {
	if depth > maxDepth {
		return
	}

	for _, f := range rt.Fields {
		fieldPath := path.Field(f.WireName)
		if f.Choice {
			fieldPath = path.Choice(f.WireName)
		}

		*result = append(*result, Element{Path: fieldPath.String(), Depth: depth, Field: f})

		if f.Name == schema.FieldExtension || f.Name == schema.FieldModifierExtension {
			continue
		}

		for _, v := range f.Variants {
			if v.Type == nil || v.Type.Kind != schema.TypeKindBackbone {
				continue
			}

			buildElements(v.Type, fieldPath, depth+1, maxDepth, result)
		}
	}
}
