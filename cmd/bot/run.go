package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"signal_bot/internal/modules/health"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run cycles on schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, runner.LoopModule(), health.Module())
		if err != nil {
			return err
		}
		if err := app.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		logger.Info("[APP] shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		err = app.Stop(stopCtx)
		logger.Sync()
		return err
	},
}
