package sources

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/common"
)

// newAddCommand creates the sources add command.
func newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Add a source URL to the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			url := args[0]
			if !deps.Registry.Add(url) {
				fmt.Printf("Not added (malformed or already registered): %s\n", url)
				return nil
			}
			fmt.Printf("Added: %s\n", url)
			return nil
		},
	}
}
