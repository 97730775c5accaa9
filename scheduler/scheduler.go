package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/sim"
)

// DefaultSpec ticks every market once a second.
const DefaultSpec = "@every 1s"

// Ticker advances the market. *sim.Engine satisfies it.
type Ticker interface {
	TickAll(ctx context.Context) sim.TickResult
}

// Broadcaster receives the outcome of every tick.
type Broadcaster func(sim.TickResult)

// Scheduler drives the simulation clock with cron.
type Scheduler struct {
	Cron      *cron.Cron
	ticker    Ticker
	broadcast Broadcaster
	log       *zap.Logger

	mu    sync.Mutex
	ctx   context.Context
	ticks uint64
}

// New creates a Scheduler. Overlapping runs are skipped, so a slow tick
// delays the next one instead of piling up.
func New(t Ticker, b Broadcaster, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ticker:    t,
		broadcast: b,
		log:       log.Named("scheduler"),
		ctx:       context.Background(),
	}
}

// Register adds the tick job on spec, e.g. "@every 2s" or "*/5 * * * * *".
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.Cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler. Ticks run with ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped", zap.Uint64("ticks", s.Ticks()))
}

// RunNow executes one tick immediately.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	res := s.ticker.TickAll(ctx)

	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()

	for _, r := range res.Rejected {
		s.log.Debug("triggered order rejected",
			zap.String("order_id", r.Order.ID),
			zap.String("owner", r.Order.Owner),
			zap.Error(r.Err),
		)
	}
	if len(res.Fills) > 0 {
		s.log.Info("tick filled orders", zap.Int("fills", len(res.Fills)))
	}
	if s.broadcast != nil {
		s.broadcast(res)
	}
}

// Ticks returns how many ticks have run.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
