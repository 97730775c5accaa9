// sim/engine.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/pkg/id"
)

// Config holds the engine's settlement rules and collaborators.
type Config struct {
	Fee       float64
	Precision int32
	AvgPrice  AvgPricePolicy
	Clock     market.Clock
	IDs       *id.Generator
	Logger    *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		Fee:       DefaultFee,
		Precision: DefaultPrecision,
		AvgPrice:  AvgPriceLastFill,
	}
}

// Fill is the result of a settled order.
type Fill struct {
	TradeID  string    `json:"trade_id"`
	OrderID  string    `json:"order_id"`
	Owner    string    `json:"owner"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Type     OrderType `json:"type"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Gross    float64   `json:"gross"`
	Fee      float64   `json:"fee"`
	Cost     float64   `json:"cost"`
	Balance  float64   `json:"balance"`
	Time     time.Time `json:"time"`
}

// Quote is one instrument's price movement during a tick.
type Quote struct {
	Symbol string    `json:"symbol"`
	Prev   float64   `json:"prev"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Rejection is a triggered order whose settlement failed. The order is
// still pending.
type Rejection struct {
	Order Order
	Err   error
}

// TickResult reports what one tick or evaluation pass did.
type TickResult struct {
	Quotes   []Quote
	Fills    []Fill
	Rejected []Rejection
}

// Submission is the result of SubmitOrder: a Fill for market orders, a
// pending Order otherwise.
type Submission struct {
	Order *Order
	Fill  *Fill
}

// PositionView is a position marked to the current price.
type PositionView struct {
	Position
	LotSize      int     `json:"lot_size"`
	LTP          float64 `json:"ltp"`
	UnrealizedPL float64 `json:"unrealized_pl"`
}

// FillListener is told about every fill after the engine has released its
// locks, so it may call back into the engine.
type FillListener interface {
	OnFill(Fill)
}

type listenerBox struct{ l FillListener }

// Engine is the simulation context: prices, history, the pending book and
// the open accounts.
//
// mu orders ticks, evaluation, calibration and book changes against each
// other. Each Account has its own mutex for settlement; the lock order is
// always mu then account.
type Engine struct {
	reg     *market.Registry
	prices  *market.PriceStore
	walk    market.Stepper
	history *market.History
	ledger  journal.Ledger
	cfg     Config
	log     *zap.Logger

	mu   sync.Mutex
	book *Book

	accMu    sync.RWMutex
	accounts map[string]*Account

	listener atomic.Pointer[listenerBox]
}

func NewEngine(reg *market.Registry, walk market.Stepper, history *market.History, ledger journal.Ledger, cfg Config) *Engine {
	if cfg.AvgPrice == "" {
		cfg.AvgPrice = AvgPriceLastFill
	}
	if cfg.Clock == nil {
		cfg.Clock = market.RealClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = id.NewGenerator(0, cfg.Clock.Now)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		reg:      reg,
		prices:   market.NewPriceStoreFrom(reg),
		walk:     walk,
		history:  history,
		ledger:   ledger,
		cfg:      cfg,
		log:      cfg.Logger.Named("engine"),
		book:     NewBook(),
		accounts: make(map[string]*Account),
	}
}

// SetFillListener sets an optional listener notified of every fill.
func (e *Engine) SetFillListener(l FillListener) {
	if l == nil {
		e.listener.Store(nil)
		return
	}
	e.listener.Store(&listenerBox{l: l})
}

func (e *Engine) Registry() *market.Registry { return e.reg }

// SeedHistory backfills every instrument's chart from its current price.
func (e *Engine) SeedHistory(w *market.Walk, opts market.SeedOptions) {
	now := e.cfg.Clock.Now()
	for _, sym := range e.reg.Symbols() {
		p, _ := e.prices.Get(sym)
		e.history.Seed(sym, p, now, w, opts)
	}
}

func (e *Engine) GetPrice(symbol string) (float64, error) {
	return e.prices.Get(symbol)
}

// Prices returns a snapshot of every current price.
func (e *Engine) Prices() map[string]float64 {
	return e.prices.Snapshot()
}

// SetPrice overwrites the price of symbol. Later ticks walk from the new
// value. Pending orders are not evaluated until the next tick.
func (e *Engine) SetPrice(symbol string, price float64) error {
	if _, err := e.reg.Lookup(symbol); err != nil {
		return err
	}
	if !market.ValidPrice(price) {
		return &ValidationError{Message: fmt.Sprintf("price must be positive, got %v", price)}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prices.Set(symbol, price)
	e.log.Info("price calibrated", zap.String("symbol", symbol), zap.Float64("price", price))
	return nil
}

// History returns the retained candles of symbol, oldest first.
func (e *Engine) History(symbol string) ([]market.Candle, error) {
	if _, err := e.reg.Lookup(symbol); err != nil {
		return nil, err
	}
	return e.history.Points(symbol), nil
}

// Tick advances one instrument and evaluates the pending orders on it
// against the new price.
func (e *Engine) Tick(ctx context.Context, symbol string) (TickResult, error) {
	if _, err := e.reg.Lookup(symbol); err != nil {
		return TickResult{}, err
	}

	e.mu.Lock()
	q := e.advanceLocked(symbol)
	fills, rejected := e.evaluateLocked(ctx, func(o *Order) bool { return o.Symbol == symbol })
	e.mu.Unlock()

	e.notify(fills)
	return TickResult{Quotes: []Quote{q}, Fills: fills, Rejected: rejected}, nil
}

// TickAll advances every instrument, then evaluates the whole book once.
func (e *Engine) TickAll(ctx context.Context) TickResult {
	e.mu.Lock()
	syms := e.reg.Symbols()
	quotes := make([]Quote, 0, len(syms))
	for _, sym := range syms {
		quotes = append(quotes, e.advanceLocked(sym))
	}
	fills, rejected := e.evaluateLocked(ctx, nil)
	e.mu.Unlock()

	e.notify(fills)
	return TickResult{Quotes: quotes, Fills: fills, Rejected: rejected}
}

// Evaluate checks the whole book against current prices without moving them.
func (e *Engine) Evaluate(ctx context.Context) TickResult {
	e.mu.Lock()
	fills, rejected := e.evaluateLocked(ctx, nil)
	e.mu.Unlock()

	e.notify(fills)
	return TickResult{Fills: fills, Rejected: rejected}
}

func (e *Engine) advanceLocked(symbol string) Quote {
	prev, _ := e.prices.Get(symbol)
	next := e.walk.Step(prev)
	now := e.cfg.Clock.Now()

	e.prices.Set(symbol, next)
	e.history.Append(symbol, market.TickCandle(now, prev, next))
	return Quote{Symbol: symbol, Prev: prev, Price: next, Time: now}
}

func (e *Engine) evaluateLocked(ctx context.Context, filter func(*Order) bool) ([]Fill, []Rejection) {
	prices := e.prices.Snapshot()

	var (
		fills    []Fill
		rejected []Rejection
	)
	for _, o := range e.book.Evaluate(prices, filter) {
		ltp := prices[o.Symbol]
		e.log.Debug("order triggered",
			zap.String("order_id", o.ID),
			zap.String("symbol", o.Symbol),
			zap.String("type", string(o.Type)),
			zap.String("side", string(o.Side)),
			zap.Float64("trigger", o.TriggerPrice),
			zap.Float64("ltp", ltp),
		)

		fill, err := e.settleOrder(ctx, o.ID, OrderRequest{
			Owner:    o.Owner,
			Symbol:   o.Symbol,
			Side:     o.Side,
			Type:     o.Type,
			Quantity: o.Quantity,
		}, ltp)
		if err != nil {
			rejected = append(rejected, Rejection{Order: *o, Err: err})
			e.logRejection(o, err)
			if !RetainOnRejectedTrigger {
				e.book.Remove(o.ID)
			}
			continue
		}
		e.book.Remove(o.ID)
		fills = append(fills, fill)
	}
	return fills, rejected
}

func (e *Engine) logRejection(o *Order, err error) {
	fields := []zap.Field{zap.String("order_id", o.ID), zap.String("owner", o.Owner), zap.Error(err)}
	if errors.Is(err, ErrPersistenceUnavailable) {
		e.log.Warn("triggered order not settled, ledger unavailable", fields...)
		return
	}
	e.log.Debug("triggered order left pending", fields...)
}

// SubmitOrder settles a market order immediately at the current price or
// adds a LIMIT/STOP order to the book. The owner's account must be open.
func (e *Engine) SubmitOrder(ctx context.Context, req OrderRequest) (Submission, error) {
	if err := req.validate(e.reg); err != nil {
		return Submission{}, err
	}
	if _, err := e.account(req.Owner); err != nil {
		return Submission{}, err
	}

	orderID := e.cfg.IDs.New()

	if req.Type == Market {
		ltp, err := e.prices.Get(req.Symbol)
		if err != nil {
			return Submission{}, err
		}
		fill, err := e.settleOrder(ctx, orderID, req, ltp)
		if err != nil {
			return Submission{}, err
		}
		e.notify([]Fill{fill})
		return Submission{Fill: &fill}, nil
	}

	o, err := NewOrder(e.reg, orderID, req, e.cfg.Clock.Now())
	if err != nil {
		return Submission{}, err
	}

	e.mu.Lock()
	e.book.Add(o)
	e.mu.Unlock()

	e.log.Info("order queued",
		zap.String("order_id", o.ID),
		zap.String("owner", o.Owner),
		zap.String("symbol", o.Symbol),
		zap.String("type", string(o.Type)),
		zap.String("side", string(o.Side)),
		zap.Int("quantity", o.Quantity),
		zap.Float64("trigger", o.TriggerPrice),
	)
	cp := *o
	return Submission{Order: &cp}, nil
}

// CancelAll removes every pending order of owner and returns how many
// there were.
func (e *Engine) CancelAll(owner string) int {
	e.mu.Lock()
	n := e.book.CancelAll(owner)
	e.mu.Unlock()

	if n > 0 {
		e.log.Info("orders cancelled", zap.String("owner", owner), zap.Int("count", n))
	}
	return n
}

// PendingOrders returns owner's resting orders in insertion order.
func (e *Engine) PendingOrders(owner string) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Pending(owner)
}

// OpenAccount loads owner's balance and positions from the ledger. An
// account that is already open is returned as is.
func (e *Engine) OpenAccount(ctx context.Context, owner string) (*Account, error) {
	if a, err := e.account(owner); err == nil {
		return a, nil
	}

	bal, err := e.ledger.Balance(ctx, owner)
	if err != nil {
		return nil, e.ledgerErr("load balance", owner, err)
	}
	recs, err := e.ledger.Positions(ctx, owner)
	if err != nil {
		return nil, e.ledgerErr("load positions", owner, err)
	}
	positions := make([]Position, 0, len(recs))
	for _, r := range recs {
		positions = append(positions, Position{Symbol: r.Symbol, Quantity: r.Quantity, AvgPrice: r.AvgPrice})
	}

	e.accMu.Lock()
	defer e.accMu.Unlock()
	if a, ok := e.accounts[owner]; ok {
		return a, nil
	}
	a := newAccount(owner, bal, positions)
	e.accounts[owner] = a
	e.log.Info("account opened", zap.String("owner", owner), zap.Float64("balance", bal), zap.Int("positions", len(positions)))
	return a, nil
}

func (e *Engine) ledgerErr(op, owner string, err error) error {
	if errors.Is(err, journal.ErrAccountNotFound) {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, owner)
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *Engine) account(owner string) (*Account, error) {
	e.accMu.RLock()
	defer e.accMu.RUnlock()
	a, ok := e.accounts[owner]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, owner)
	}
	return a, nil
}

func (e *Engine) Balance(owner string) (float64, error) {
	a, err := e.account(owner)
	if err != nil {
		return 0, err
	}
	return a.Balance(), nil
}

// Positions returns owner's positions marked to current prices.
func (e *Engine) Positions(owner string) ([]PositionView, error) {
	a, err := e.account(owner)
	if err != nil {
		return nil, err
	}
	var out []PositionView
	for _, p := range a.Positions() {
		v := PositionView{Position: p, LotSize: 1, LTP: p.AvgPrice}
		if inst, err := e.reg.Lookup(p.Symbol); err == nil {
			v.LotSize = inst.LotSize
		}
		if ltp, err := e.prices.Get(p.Symbol); err == nil {
			v.LTP = ltp
		}
		v.UnrealizedPL = UnrealizedPL(p, v.LTP, v.LotSize)
		out = append(out, v)
	}
	return out, nil
}

// settleOrder applies one fill to the owner's account: funds check,
// ledger commit, then the in-memory update, all under the account lock.
func (e *Engine) settleOrder(ctx context.Context, orderID string, req OrderRequest, price float64) (Fill, error) {
	inst, err := e.reg.Lookup(req.Symbol)
	if err != nil {
		return Fill{}, err
	}
	a, err := e.account(req.Owner)
	if err != nil {
		return Fill{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := computeSettlement(a.balance, a.positions[req.Symbol], inst, fillTerms{
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    price,
		Fee:      e.cfg.Fee,
		Policy:   e.cfg.AvgPrice,
		Places:   e.cfg.Precision,
	})
	if err != nil {
		return Fill{}, err
	}

	fill := Fill{
		TradeID:  e.cfg.IDs.New(),
		OrderID:  orderID,
		Owner:    req.Owner,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    price,
		Gross:    s.Gross,
		Fee:      s.Fee,
		Cost:     s.Cost,
		Balance:  s.Balance,
		Time:     e.cfg.Clock.Now(),
	}

	if err := e.persist(ctx, fill, s); err != nil {
		return Fill{}, err
	}

	a.balance = s.Balance
	if s.Closed {
		delete(a.positions, req.Symbol)
	} else {
		a.positions[req.Symbol] = s.Position
	}

	e.log.Info("order filled",
		zap.String("trade_id", fill.TradeID),
		zap.String("owner", fill.Owner),
		zap.String("symbol", fill.Symbol),
		zap.String("side", string(fill.Side)),
		zap.Int("quantity", fill.Quantity),
		zap.Float64("price", fill.Price),
		zap.Float64("balance", fill.Balance),
	)
	return fill, nil
}

func (e *Engine) persist(ctx context.Context, f Fill, s settlement) error {
	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}

	err = tx.SetBalance(f.Owner, s.Balance)
	if err == nil {
		err = tx.AppendTrade(journal.TradeRecord{
			TradeID:  f.TradeID,
			OrderID:  f.OrderID,
			Time:     f.Time,
			Owner:    f.Owner,
			Symbol:   f.Symbol,
			Side:     string(f.Side),
			Type:     string(f.Type),
			Quantity: f.Quantity,
			Price:    f.Price,
			Gross:    f.Gross,
			Fee:      f.Fee,
		})
	}
	if err == nil {
		if s.Closed {
			err = tx.DeletePosition(f.Owner, f.Symbol)
		} else {
			err = tx.UpsertPosition(journal.PositionRecord{
				Owner:    f.Owner,
				Symbol:   f.Symbol,
				Quantity: s.Position.Quantity,
				AvgPrice: s.Position.AvgPrice,
			})
		}
	}
	if err != nil {
		_ = tx.Rollback()
		return &PersistenceError{Op: "write settlement", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit settlement", Err: err}
	}
	return nil
}

func (e *Engine) notify(fills []Fill) {
	box := e.listener.Load()
	if box == nil {
		return
	}
	for _, f := range fills {
		box.l.OnFill(f)
	}
}
