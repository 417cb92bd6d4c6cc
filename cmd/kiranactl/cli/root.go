// Package cli implements the kiranactl operator commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles kiranactl. open is only called by commands that
// need the database.
func NewRootCommand(open SeederFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "kiranactl",
		Short:         "Operator tooling for the Kirana dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCommand(open), newNavCommand(), newTemplateCommand())
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
