// Package validation checks populated model instances against their types.
//
// Validation never mutates the instance and never stops at the first
// problem: every cardinality, binding and consistency issue found anywhere
// in the tree is reported as a diagnostic, with the element path of the
// offending value.
//
// Binding strength decides severity. A code outside a required binding is
// an error; extensible and preferred bindings produce warnings and example
// bindings informational notes. Codes are checked against the codes
// embedded in the field's binding first; value sets known only by URL are
// checked through an optional Terminology.
package validation
