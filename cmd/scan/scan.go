// Package scan implements the one-shot scan command: run every plugin
// and the registry scan once, deliver alerts, and exit.
package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/common"
)

// Command returns the scan command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and exit",
		Long: `Scan every enabled plugin and all registered sources once,
send alerts for new promotions above the bonus threshold, and exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}
			if validateErr := deps.Config.ValidateCredentials(); validateErr != nil {
				return validateErr
			}

			ctx := cmd.Context()
			runtime := common.NewRuntime(ctx, deps)
			defer runtime.Close()

			result := runtime.Scheduler.RunAll(ctx)
			deps.Logger.Info("Scan finished",
				"candidates", result.Candidates,
				"notified", result.Notified,
				"duplicates", result.Duplicates,
				"below_threshold", result.BelowThreshold,
				"invalid", result.Invalid,
				"delivery_failed", result.DeliveryFailed)

			if result.DeliveryFailed > 0 {
				return fmt.Errorf("%d alert deliveries failed", result.DeliveryFailed)
			}
			return nil
		},
	}
}
