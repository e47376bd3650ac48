// Package definitions loads FHIR type definitions from YAML files and
// registers them in a schema.Registry.
//
// A definition file lists types; each type lists its fields with the
// recognized keys name, path, min, max, type, valid_codes and binding:
//
//	version: "1"
//	types:
//	  - name: Task
//	    kind: resource
//	    fields:
//	      - name: status
//	        min: 1
//	        max: 1
//	        type: code
//	        binding:
//	          strength: required
//	          value_set: http://hl7.org/fhir/ValueSet/task-status|4.0.1
//	        valid_codes:
//	          http://hl7.org/fhir/task-status: [draft, requested, in-progress]
//	      - name: input
//	        max: "*"
//	        type: Task.Input
//	  - name: Task.Input
//	    kind: backbone
//	    fields:
//	      - name: value[x]
//	        min: 1
//	        type: [string, integer, boolean, CodeableConcept]
//
// Key functions:
//   - Parse / LoadFile / LoadFS: read definition files
//   - Validate: structural checks reported as diagnostics
//   - Build: register validated definitions and link the registry
package definitions
