package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cycle and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var r *runner.Runner
		app, err := newApp(ctx, fx.Populate(&r))
		if err != nil {
			return err
		}
		if err := app.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := app.Stop(stopCtx); err != nil {
				logger.Error("[APP] stop: %v", err)
			}
			logger.Sync()
		}()

		rep := r.RunCycle(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "symbols=%d failed=%d opened=%d closed=%d in %s\n",
			rep.Symbols, rep.Failed, len(rep.Opened), len(rep.Closed), rep.Duration.Round(time.Millisecond))
		if rep.Symbols > 0 && rep.Failed == rep.Symbols {
			return fmt.Errorf("all %d symbols failed", rep.Failed)
		}
		return nil
	},
}
