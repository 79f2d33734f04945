package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"signal_bot/internal/notify"
	"signal_bot/internal/store"
)

var tradesLimit int

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Print the trade log summary and the latest trades",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var st store.Store
		app, err := newApp(ctx, fx.Populate(&st))
		if err != nil {
			return err
		}
		if err := app.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = app.Stop(stopCtx)
		}()

		all, err := st.List(ctx, 0)
		if err != nil {
			return err
		}
		sum := store.Summarize(all)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total: %d | Active: %d | Wins: %d | Losses: %d | Win rate: %.0f%% | Net: %+.2fR\n",
			sum.Total, sum.Active, sum.Wins, sum.Losses, sum.WinRate*100, sum.NetR)
		fmt.Fprintf(out, "Last margin: $%s\n\n", notify.USD(sum.LastMargin))

		if tradesLimit > 0 && len(all) > tradesLimit {
			all = all[:tradesLimit]
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "OPENED\tSYMBOL\tSIDE\tENTRY\tSL\tTP\tSTATUS\tEXIT\tLEV\tMARGIN")
		for _, rec := range all {
			exit := "-"
			if rec.Status.Terminal() {
				exit = notify.Price(rec.ExitPrice)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%dx\t$%s\n",
				rec.OpenedAt.UTC().Format("2006-01-02 15:04"), rec.Symbol, rec.Side,
				notify.Price(rec.Entry), notify.Price(rec.Stop), notify.Price(rec.Target),
				rec.Status, exit, rec.Leverage, notify.USD(rec.MarginUSD))
		}
		return w.Flush()
	},
}

func init() {
	tradesCmd.Flags().IntVarP(&tradesLimit, "limit", "n", 20, "latest trades to list, 0 for all")
}
