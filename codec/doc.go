// Package codec converts model instances to and from FHIR JSON and XML.
//
// Both formats go through one descriptor-driven walk over an ordered wire
// tree (*model.Object keyed by wire names). The walk expands choice slots to
// their variant names (valueString), applies wire renames (local_end is
// sent as end), recurses into nested elements and contained resources, and
// preserves elements it does not recognize so they are written back on
// encode. The JSON and XML dialects only differ in how primitive leaves are
// written and in what goes into attributes.
//
// Decoding is permissive: structural problems are collected as DecodeErrors
// with the element path of each problem, and the partially decoded instance
// is returned alongside them. Cardinality is left to the validation package.
package codec
