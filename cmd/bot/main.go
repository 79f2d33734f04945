package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Futures signal bot",
	Long: `Signal bot watches a list of perpetual futures, opens paper trades on
trend pullbacks and reports every signal and every TP/SL hit to Telegram.

Commands:
  run     - run the scheduler and the admin http server
  once    - run a single cycle and exit
  trades  - print the trade log summary`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			_ = os.Setenv("CONFIG_FILE", configFile)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default configs/values_local.yaml)")
	rootCmd.AddCommand(runCmd, onceCmd, tradesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
