// Package serve implements the daemon command: the cron scheduler plus
// the HTTP health and metrics server, running until interrupted.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/milesbot/milesbot/cmd/common"
	"github.com/milesbot/milesbot/internal/api"
)

const stopTimeout = 15 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon with the status HTTP server",
		Long: `Start the cron scheduler so plugins fire on their schedules, and
serve health, status, and prometheus metrics over HTTP. Runs until
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}
			if validateErr := deps.Config.ValidateCredentials(); validateErr != nil {
				return validateErr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runtime := common.NewRuntime(ctx, deps)
			defer runtime.Close()

			if startErr := runtime.Scheduler.Start(ctx); startErr != nil {
				return fmt.Errorf("failed to start scheduler: %w", startErr)
			}

			server := api.New(deps.Config.Server.Address, api.Deps{
				Seen:      runtime.Seen,
				History:   runtime.History,
				Scheduler: runtime.Scheduler,
				Gatherer:  runtime.Registry,
				Logger:    deps.Logger,
			})

			// Blocks until the signal context is cancelled or the
			// listener fails.
			err = server.Start(ctx)

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			runtime.Scheduler.Stop(stopCtx)

			deps.Logger.Info("Daemon stopped")
			return err
		},
	}
}
