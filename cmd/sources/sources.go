// Package sources implements the command-line interface for managing
// the scan source registry.
package sources

import (
	"github.com/spf13/cobra"
)

// Command returns the sources command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage scan sources",
		Long:  `List, add, and remove the URLs the registry scan watches.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newAddCommand())
	cmd.AddCommand(newRemoveCommand())
	return cmd
}
