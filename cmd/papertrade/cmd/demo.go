package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/sim"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through a LIMIT BUY from submission to fill",
	Long: `Runs a scripted scenario against an in-memory ledger and prints every step:

  1. A user starts with 100000 and a DEMO contract (lot 100) trades at 1000
  2. A LIMIT BUY for 1 lot at 990 is placed and rests in the book
  3. The price moves to 995: nothing happens
  4. The price moves to 988: the order fills at 988
  5. Cost is 988 x 100 + 500 fee, leaving 700

Example:
  papertrade demo
  papertrade demo --avg-price weighted`,
	RunE: runDemo,
}

var demoAvgPrice string

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoAvgPrice, "avg-price", "last_fill", "average price policy (last_fill or weighted)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	policy, err := sim.ParseAvgPricePolicy(demoAvgPrice)
	if err != nil {
		return err
	}

	store := journal.NewMemory()
	if err := store.CreateUser(ctx, journal.User{Username: "demo", Balance: 100000, Active: true}, "demo"); err != nil {
		return err
	}

	reg, err := market.NewRegistry(map[string]market.Instrument{
		"DEMO": {LotSize: 100, StartPrice: 1000},
	})
	if err != nil {
		return err
	}
	hist, err := market.NewHistory(market.DefaultHistoryCapacity)
	if err != nil {
		return err
	}
	walk, err := market.NewWalk(market.DefaultEpsilon, 1)
	if err != nil {
		return err
	}

	cfg := sim.DefaultConfig()
	cfg.AvgPrice = policy
	engine := sim.NewEngine(reg, walk, hist, store, cfg)
	if _, err := engine.OpenAccount(ctx, "demo"); err != nil {
		return err
	}

	printAccount := func() error {
		bal, err := engine.Balance("demo")
		if err != nil {
			return err
		}
		fmt.Printf("  Balance: %.2f\n", bal)
		positions, err := engine.Positions("demo")
		if err != nil {
			return err
		}
		for _, p := range positions {
			fmt.Printf("  Position: %s %d lot(s) @ %.2f (LTP %.2f, P/L %.2f)\n",
				p.Symbol, p.Quantity, p.AvgPrice, p.LTP, p.UnrealizedPL)
		}
		fmt.Printf("  Pending orders: %d\n", len(engine.PendingOrders("demo")))
		return nil
	}

	fmt.Println("=== Papertrade demo ===")
	fmt.Println("\nStart:")
	if err := printAccount(); err != nil {
		return err
	}

	sub, err := engine.SubmitOrder(ctx, sim.OrderRequest{
		Owner: "demo", Symbol: "DEMO", Side: sim.Buy, Type: sim.Limit, Quantity: 1, TriggerPrice: 990,
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nPlaced LIMIT BUY 1 x DEMO @ 990 (order %s)\n", sub.Order.ID)

	for _, price := range []float64{995, 988} {
		if err := engine.SetPrice("DEMO", price); err != nil {
			return err
		}
		res := engine.Evaluate(ctx)
		fmt.Printf("\nPrice -> %.2f: %d fill(s)\n", price, len(res.Fills))
		for _, f := range res.Fills {
			fmt.Printf("  Filled %s %d x %s @ %.2f, cost %.2f (fee %.2f)\n",
				f.Side, f.Quantity, f.Symbol, f.Price, f.Cost, f.Fee)
		}
		if err := printAccount(); err != nil {
			return err
		}
	}

	fmt.Println("\nTicking the market five times:")
	for range 5 {
		res := engine.TickAll(ctx)
		for _, q := range res.Quotes {
			fmt.Printf("  %s %.2f -> %.2f\n", q.Symbol, q.Prev, q.Price)
		}
	}
	if err := printAccount(); err != nil {
		return err
	}

	trades, err := store.Trades(ctx, "demo", 0)
	if err != nil {
		return err
	}
	fmt.Println("\nJournal:")
	fmt.Println(journal.FormatTradesOrg(trades))
	return nil
}
