// Package cmd implements the milesbot command-line interface: the root
// command and the scan, serve, and sources subcommands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/scan"
	"github.com/milesbot/milesbot/cmd/serve"
	cmdsources "github.com/milesbot/milesbot/cmd/sources"
)

var rootCmd = &cobra.Command{
	Use:   "milesbot",
	Short: "Mileage-program transfer bonus alert bot",
	Long: `milesbot watches loyalty-program sources for point transfer
bonuses and sends Telegram alerts for new promotions above a
configurable threshold.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("milesbot version %s\n", version)
		},
	})

	rootCmd.AddCommand(scan.Command())
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(cmdsources.Command())
}

// version is set at build time via -ldflags.
var version = "dev"
