package sources

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/common"
)

// newListCommand creates the sources list command.
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			urls := deps.Registry.List()
			if len(urls) == 0 {
				fmt.Println("No sources registered.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "URL"})
			for i, url := range urls {
				t.AppendRow(table.Row{i + 1, url})
			}
			t.Render()
			return nil
		},
	}
}
