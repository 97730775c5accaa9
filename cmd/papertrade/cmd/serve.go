package cmd

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrade/api"
	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/scheduler"
	"github.com/rustyeddy/papertrade/sim"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the market and serve the trading API",
	Long: `Start the simulated market: prices random-walk on a fixed schedule,
pending orders are checked on every tick, and the REST/WebSocket API is
served for the trading UI.

Examples:
  papertrade serve
  papertrade serve -c papertrade.yaml --addr :9090`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := bootstrapUsers(ctx, store, cfg.Users, log); err != nil {
		return err
	}

	engine, err := buildEngine(cfg, store, log)
	if err != nil {
		return err
	}

	srv := api.NewServer(engine, store, api.Options{
		AllowedOrigins:       cfg.Server.AllowedOrigins,
		CalibrationThreshold: cfg.Server.CalibrationThreshold,
	}, log)

	sched := scheduler.New(engine, srv.BroadcastTick, log)
	if err := sched.Register("@every " + cfg.Simulation.TickEvery); err != nil {
		return err
	}

	log.Info("papertrade starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("journal", cfg.Journal.Type),
		zap.Int("instruments", len(engine.Registry().Symbols())),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Serve(ctx, cfg.Server.Addr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		sched.Start(ctx)
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	return g.Wait()
}

// buildEngine wires the price model, chart history and ledger from cfg and
// backfills every chart.
func buildEngine(cfg *config.Config, store journal.Ledger, log *zap.Logger) (*sim.Engine, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	walk, err := market.NewWalk(cfg.Simulation.Epsilon, cfg.Simulation.RNGSeed)
	if err != nil {
		return nil, err
	}
	hist, err := market.NewHistory(cfg.Simulation.HistoryCapacity)
	if err != nil {
		return nil, err
	}

	ec := cfg.EngineConfig()
	ec.Logger = log
	engine := sim.NewEngine(reg, walk, hist, store, ec)
	engine.SeedHistory(walk, cfg.SeedOptions())
	return engine, nil
}
