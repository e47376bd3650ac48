package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"fhir-engine/codec"
)

func newConvertCmd(a *app) *cobra.Command {
	var from, to, typeName, output string

	var indent bool

	cmd := &cobra.Command{
		Use:   "convert <file|->",
		Short: "Convert a document between JSON and XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			inst, err := a.decode(data, from, typeName)
			if err != nil {
				return errors.Wrap(err, "decode document")
			}

			var opts []codec.Option
			if indent {
				opts = append(opts, codec.WithIndent())
			}

			target, err := a.codecFor(to, nil, opts...)
			if err != nil {
				return err
			}

			out, err := target.Encode(inst)
			if err != nil {
				return errors.Wrap(err, "encode document")
			}

			if output != "" {
				return errors.Wrapf(os.WriteFile(output, out, 0o644), "write %s", output)
			}

			_, err = cmd.OutOrStdout().Write(append(out, '\n'))

			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", formatAuto, "Input format: auto, json or xml")
	cmd.Flags().StringVar(&to, "to", "", "Output format: json or xml")
	cmd.Flags().StringVar(&typeName, "type", "", "Type to decode as instead of the document's resourceType")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of standard output")
	cmd.Flags().BoolVar(&indent, "indent", false, "Indent the output")

	_ = cmd.MarkFlagRequired("to")

	return cmd
}
