package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and export trade records from the SQLite journal.

Subcommands:
  trades - List recent trades as Org-mode or CSV
  export - Write trades to a CSV file

Examples:
  papertrade journal trades --owner alice --limit 20
  papertrade journal trades --format csv
  papertrade journal export -o trades.csv`,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List recent trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export trades to CSV",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var (
	journalDBPath string
	journalOwner  string
	journalLimit  int
	journalFormat string
	journalOutput string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default: journal.db_path from config)")
	journalCmd.PersistentFlags().StringVar(&journalOwner, "owner", "", "only this user's trades")
	journalTradesCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "most recent N trades (0 for all)")
	journalTradesCmd.Flags().StringVar(&journalFormat, "format", "org", "output format: org or csv")
	journalExportCmd.Flags().StringVarP(&journalOutput, "output", "o", "trades.csv", "output CSV file")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.Trades(context.Background(), journalOwner, journalLimit)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	switch journalFormat {
	case "org":
		fmt.Println(journal.FormatTradesOrg(recs))
		return nil
	case "csv":
		return journal.WriteTradesCSV(os.Stdout, recs)
	default:
		return fmt.Errorf("unknown format %q", journalFormat)
	}
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.Trades(context.Background(), journalOwner, 0)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	out, err := journal.NewCSVTradeLog(journalOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", journalOutput, err)
	}
	for _, rec := range recs {
		if err := out.RecordTrade(rec); err != nil {
			out.Close()
			return fmt.Errorf("write trade %s: %w", rec.TradeID, err)
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("✓ Exported %d trade(s) to %s\n", len(recs), journalOutput)
	return nil
}
