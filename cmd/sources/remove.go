package sources

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/common"
)

// newRemoveCommand creates the sources remove command.
func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index|url>",
		Short: "Remove a source by its list position or exact URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			removed, ok := deps.Registry.Remove(args[0])
			if !ok {
				fmt.Printf("No source matches %q\n", args[0])
				return nil
			}
			fmt.Printf("Removed: %s\n", removed)
			return nil
		},
	}
}
