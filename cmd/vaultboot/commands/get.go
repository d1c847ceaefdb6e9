package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/vaultboot/pkg/provider"
)

func NewGetCommand(rt *Runtime) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch the secret once and print it",
		Long: `Fetch the secret once, print the raw value to stdout and exit.

Unlike the root command, a missing secret or field is an error here.

Examples:
  # Use in scripts
  export DB_PASSWORD=$(vaultboot get)

  # Value with its location, as JSON
  vaultboot get --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, fetcher, err := rt.resolve()
			if err != nil {
				return err
			}

			ref := provider.DefaultReference
			value, err := fetcher.Fetch(cmd.Context(), ref)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(rt.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"mount": ref.Mount,
					"path":  ref.Path,
					"field": ref.Field,
					"value": value,
				})
			}

			// Raw value without a newline, for $(...) capture
			_, err = fmt.Fprint(rt.Stdout, value)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
