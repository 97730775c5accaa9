package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/replay"
	"github.com/rustyeddy/papertrade/sim"
)

var replayCmd = &cobra.Command{
	Use:   "replay <prices.csv>",
	Short: "Replay a scripted price path with order events",
	Long: `Replay a CSV of prices and scripted order events against the simulator.

CSV columns:
  time,symbol,price[,event,owner,arg1,arg2,arg3]

Events:
  BUY|SELL,<owner>,<MARKET|LIMIT|STOP|SL>,<qty>[,<trigger>]
  CANCEL_ALL,<owner>

Users named in the file are created with --balance unless they already
exist in the journal. Without --db the ledger is kept in memory.

Examples:
  papertrade replay scenario.csv
  papertrade replay scenario.csv --db replay.db --event-first`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayDB         string
	replayBalance    float64
	replayEventFirst bool
	replayUsers      []string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayDB, "db", "", "SQLite journal to write to (default: in memory)")
	replayCmd.Flags().Float64Var(&replayBalance, "balance", 100000, "starting balance of created users")
	replayCmd.Flags().BoolVar(&replayEventFirst, "event-first", false, "run a row's event before applying its price")
	replayCmd.Flags().StringSliceVarP(&replayUsers, "user", "u", []string{"demo"}, "users to open before the replay")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var store journal.Store = journal.NewMemory()
	if replayDB != "" {
		s, err := journal.NewSQLite(replayDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer s.Close()
		store = s
	}

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	hist, err := market.NewHistory(cfg.Simulation.HistoryCapacity)
	if err != nil {
		return err
	}
	walk, err := market.NewWalk(cfg.Simulation.Epsilon, cfg.Simulation.RNGSeed)
	if err != nil {
		return err
	}

	clock := replay.NewClock(time.Now())
	ec := cfg.EngineConfig()
	ec.Clock = clock
	engine := sim.NewEngine(reg, walk, hist, store, ec)

	for _, u := range replayUsers {
		err := store.CreateUser(ctx, journal.User{Username: u, Balance: replayBalance, Active: true}, u)
		if err != nil && !errors.Is(err, journal.ErrUserExists) {
			return fmt.Errorf("create user %q: %w", u, err)
		}
		if _, err := engine.OpenAccount(ctx, u); err != nil {
			return err
		}
	}

	rep, err := replay.File(ctx, args[0], engine, replay.Options{
		TickThenEvent: !replayEventFirst,
		Clock:         clock,
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	fmt.Printf("Replayed %d row(s): %d order(s), %d fill(s), %d rejection(s), %d cancelled\n",
		rep.Rows, len(rep.Submitted), len(rep.Fills), len(rep.Rejected), rep.Cancelled)
	for _, f := range rep.Fills {
		fmt.Printf("  %s  %-5s %-6s %d x %s @ %.2f  balance %.2f\n",
			f.Time.Format(time.RFC3339), f.Side, f.Type, f.Quantity, f.Symbol, f.Price, f.Balance)
	}
	for _, r := range rep.Rejected {
		fmt.Printf("  rejected %s (%s): %v\n", r.Order.ID, r.Order.Owner, r.Err)
	}

	for _, u := range replayUsers {
		bal, err := engine.Balance(u)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s: balance %.2f\n", u, bal)
		positions, _ := engine.Positions(u)
		for _, p := range positions {
			fmt.Printf("  %s %d lot(s) @ %.2f  P/L %.2f\n", p.Symbol, p.Quantity, p.AvgPrice, p.UnrealizedPL)
		}
		if n := len(engine.PendingOrders(u)); n > 0 {
			fmt.Printf("  %d order(s) still pending\n", n)
		}
	}
	return nil
}
