package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema sent as the structured response format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema()
			if err != nil {
				return err
			}

			doc, err := a.responseSchema(s).JsonString(true)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, doc)
			return err
		},
	}
}
