// Package main provides the fhir-engine command line tool.
//
// fhir-engine works on FHIR R4 documents using the bundled type definitions:
//   - validate checks a JSON or XML document and prints an OperationOutcome
//   - convert rewrites a document between JSON and XML
//   - describe lists the elements of a type
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fhir-engine:", err)
		os.Exit(1)
	}
}
