// Package r4 bundles the FHIR R4 definitions of the supported resources
// (Task, MolecularSequence, InsurancePlan, ExampleScenario, Measure) and
// the datatypes they use.
package r4

import (
	"embed"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"fhir-engine/internal/definitions"
	"fhir-engine/schema"
)

//go:embed definitions/*.yaml
var bundled embed.FS

var (
	once     sync.Once
	registry *schema.Registry
	errBuild error
)

// Registry returns the linked registry of the bundled definitions. It is
// built on first use and shared afterwards; being linked it is read-only.
func Registry() *schema.Registry {
	reg, err := Load()
	if err != nil {
		panic(err)
	}

	return reg
}

// Load is Registry returning the build error instead of panicking.
func Load() (*schema.Registry, error) {
	once.Do(func() {
		registry, errBuild = NewRegistry(nil)
	})

	return registry, errBuild
}

// NewRegistry builds a fresh registry from the bundled definitions and the
// given extra definition files, which may add types but not redefine
// bundled ones.
func NewRegistry(log logrus.FieldLogger, extraFiles ...string) (*schema.Registry, error) {
	files, err := bundledFiles()
	if err != nil {
		return nil, err
	}

	for _, name := range extraFiles {
		f, err := definitions.LoadFile(name)
		if err != nil {
			return nil, err
		}

		files = append(files, f)
	}

	reg := schema.NewRegistry(schema.WithLogger(log))

	if diags := definitions.Build(reg, files, log); diags.HasErrors() {
		return nil, fmt.Errorf("build R4 registry: %w", diags.Error())
	}

	return reg, nil
}

func bundledFiles() ([]*definitions.File, error) {
	return definitions.LoadFS(bundled, "definitions/*.yaml")
}
