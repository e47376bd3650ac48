package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"fhir-engine/codec"
	"fhir-engine/diagnostic"
)

// errInvalid reports a document with error diagnostics; they were already
// printed as an OperationOutcome.
var errInvalid = errors.New("document is not valid")

func newValidateCmd(a *app) *cobra.Command {
	var format, typeName string

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate a JSON or XML document and print an OperationOutcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			diags, err := a.validate(data, format, typeName)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(diags.OperationOutcome(), "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode OperationOutcome")
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if diags.HasErrors() {
				return errInvalid
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "from", formatAuto, "Document format: auto, json or xml")
	cmd.Flags().StringVar(&typeName, "type", "", "Type to validate against instead of the document's resourceType")

	return cmd
}

// validate decodes and checks a document. Decode errors are reported as
// diagnostics next to the validation results of whatever could be read.
func (a *app) validate(data []byte, format, typeName string) (*diagnostic.Diagnostics, error) {
	v, err := a.validator()
	if err != nil {
		return nil, err
	}

	diags := &diagnostic.Diagnostics{}

	inst, err := a.decode(data, format, typeName)

	var decodeErrs codec.DecodeErrors

	switch {
	case errors.As(err, &decodeErrs):
		name := typeName
		if inst != nil {
			name = inst.Type().Name
		}

		diags.Merge(*decodeErrs.Diagnostics(name))
	case err != nil:
		return nil, err
	}

	if inst != nil {
		diags.Merge(*v.Validate(inst, inst.Type()))
	}

	a.log.WithField("errors", len(diags.Errors)).WithField("warnings", len(diags.Warnings)).Info("validated document")

	return diags, nil
}
