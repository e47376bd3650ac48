// Package schema holds the metadata every model instance is checked against:
// resource and element types, their field descriptors and terminology
// bindings, and the registry that links them.
//
// Key types:
//   - ResourceType: a named, ordered set of field descriptors (resources,
//     datatypes and nested backbone elements such as Measure.Group.Population)
//   - FieldDescriptor: logical name, wire name, cardinality, declared types,
//     resolved choice variants and binding
//   - Registry: two-phase (declare, then link) store of types keyed by
//     qualified name
//
// A Registry is built once, single-threaded, and becomes read-only after
// Link; linked registries are safe for any number of concurrent readers.
package schema
