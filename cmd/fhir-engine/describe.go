package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"fhir-engine/internal/fhirpath"
	"fhir-engine/schema"
)

func newDescribeCmd(a *app) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "describe <type>",
		Short: "List the elements of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.reg.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "describe")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintf(w, "%s (%s)\n", rt.Name, rt.Kind)

			for _, e := range fhirpath.Elements(rt, depth) {
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n",
					strings.Repeat("  ", e.Depth), e.Path, e.Field.Cardinality(), typesOf(e.Field), bindingOf(e.Field))
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "Maximum nesting of backbone elements to expand")

	return cmd
}

func typesOf(f *schema.FieldDescriptor) string {
	names := make([]string, len(f.Variants))
	for n, v := range f.Variants {
		names[n] = v.TypeName
	}

	return strings.Join(names, "|")
}

func bindingOf(f *schema.FieldDescriptor) string {
	if f.Binding == nil || f.Binding.Strength == schema.BindingNone {
		return ""
	}

	if f.Binding.ValueSet == "" {
		return f.Binding.Strength.String()
	}

	return f.Binding.Strength.String() + " " + f.Binding.ValueSet
}
