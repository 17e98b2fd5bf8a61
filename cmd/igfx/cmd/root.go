package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "igfx",
	Short: "An automated FX trading bot for IG Markets",
	Long: `igfx polls IG Markets for candles on a schedule, evaluates a
technical strategy per instrument and submits risk-budgeted market orders.

It provides:
  - Five technical strategies (SMA/EMA cross, RSI reversal, Alligator,
    Fibonacci retracement on ZigZag swings, and a combined filter)
  - Risk-budget position sizing with daily trade and loss ceilings
  - Optional Telegram trade alerts with human yes/no confirmation
  - Candle and trade persistence to Postgres or SQLite
  - Prometheus metrics

Complete documentation is available at https://github.com/rustyeddy/igfx`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
