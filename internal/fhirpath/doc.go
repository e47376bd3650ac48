// Package fhirpath builds and parses the simple element paths used in
// diagnostics, such as "Task.input[1].value[x]" or "Measure.group.population".
//
// Only the navigation subset of FHIRPath is supported: dotted names, an
// optional zero-based index per segment and the "[x]" choice marker.
package fhirpath
