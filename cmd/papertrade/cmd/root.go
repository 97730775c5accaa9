package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A paper-trading simulator for MCX-style futures",
	Long: `Papertrade simulates a commodity futures market with random-walk prices
and lets users practise trading against it with play money.

It provides tools for:
  - Serving the market, accounts and order entry over HTTP and WebSocket
  - Market, LIMIT and STOP (SL) orders with lot-based settlement
  - Replaying scripted price paths from CSV
  - Managing users and querying the trade journal`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
}
