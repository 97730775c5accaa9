package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/sim"
)

// Engine is the part of *sim.Engine a replay drives.
type Engine interface {
	SetPrice(symbol string, price float64) error
	Evaluate(ctx context.Context) sim.TickResult
	SubmitOrder(ctx context.Context, req sim.OrderRequest) (sim.Submission, error)
	CancelAll(owner string) int
}

// Options controls how replay behaves.
type Options struct {
	// If true: set the price and evaluate the book first, then run the
	// event. An order placed on a row therefore waits for the next row
	// before it can trigger.
	TickThenEvent bool

	// Clock, when set, is moved to each row's time before the row runs,
	// so fills carry the replayed timestamps.
	Clock *Clock
}

// Report collects what a replay did.
type Report struct {
	Rows      int
	Submitted []sim.Submission
	Fills     []sim.Fill
	Rejected  []sim.Rejection
	Cancelled int
}

// Clock is a settable market.Clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// File replays the CSV at path. See CSV.
func File(ctx context.Context, path string, engine Engine, opts Options) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return CSV(ctx, f, engine, opts)
}

// CSV replays price rows and optional scripted events.
//
// CSV formats supported:
//
//  1. Prices only:
//     time,symbol,price
//
//  2. Prices + events:
//     time,symbol,price,event,owner,arg1,arg2,arg3
//
// Events (case-insensitive):
//
//	BUY|SELL:    owner  arg1=type (MARKET, LIMIT, STOP, SL)  arg2=quantity  arg3=trigger
//	CANCEL_ALL:  owner
//
// Every row calibrates symbol to price and evaluates the whole book. A
// header row starting with "time" is skipped.
func CSV(ctx context.Context, in io.Reader, engine Engine, opts Options) (*Report, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.Comment = '#'

	rep := &Report{}
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rep, nil
		}
		if err != nil {
			return rep, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := handleRow(ctx, engine, row, opts, rep); err != nil {
			return rep, fmt.Errorf("row %d: %w", line, err)
		}
		rep.Rows++
	}
}

func handleRow(ctx context.Context, engine Engine, row []string, opts Options, rep *Report) error {
	if len(row) < 3 {
		return fmt.Errorf("bad row (need at least 3 cols time,symbol,price): %v", row)
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	t, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return fmt.Errorf("bad time %q: %w", row[0], err)
	}
	symbol := row[1]
	price, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return fmt.Errorf("bad price %q: %w", row[2], err)
	}

	event := ""
	var args []string
	if len(row) >= 4 {
		event = row[3]
	}
	if len(row) >= 5 {
		args = row[4:]
	}

	if opts.Clock != nil {
		opts.Clock.Set(t)
	}

	tick := func() error {
		if err := engine.SetPrice(symbol, price); err != nil {
			return err
		}
		res := engine.Evaluate(ctx)
		rep.Fills = append(rep.Fills, res.Fills...)
		rep.Rejected = append(rep.Rejected, res.Rejected...)
		return nil
	}

	if opts.TickThenEvent {
		if err := tick(); err != nil {
			return err
		}
		if event != "" {
			return handleEvent(ctx, engine, symbol, event, args, rep)
		}
		return nil
	}

	// Event first, then tick
	if event != "" {
		if err := handleEvent(ctx, engine, symbol, event, args, rep); err != nil {
			return err
		}
	}
	return tick()
}

func handleEvent(ctx context.Context, engine Engine, symbol, event string, args []string, rep *Report) error {
	switch strings.ToUpper(event) {
	case "BUY", "SELL":
		// BUY,alice,LIMIT,1,990
		req, err := parseOrderArgs(symbol, event, args)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.ToUpper(event), err)
		}
		sub, err := engine.SubmitOrder(ctx, req)
		if err != nil {
			return err
		}
		rep.Submitted = append(rep.Submitted, sub)
		if sub.Fill != nil {
			rep.Fills = append(rep.Fills, *sub.Fill)
		}
		return nil

	case "CANCEL_ALL":
		// CANCEL_ALL,alice
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("CANCEL_ALL: missing owner")
		}
		rep.Cancelled += engine.CancelAll(args[0])
		return nil

	default:
		return fmt.Errorf("unknown event %q", event)
	}
}

func parseOrderArgs(symbol, event string, args []string) (sim.OrderRequest, error) {
	if len(args) < 3 {
		return sim.OrderRequest{}, fmt.Errorf("need owner, type, quantity")
	}
	side, err := sim.ParseSide(event)
	if err != nil {
		return sim.OrderRequest{}, err
	}
	typ, err := sim.ParseOrderType(args[1])
	if err != nil {
		return sim.OrderRequest{}, err
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return sim.OrderRequest{}, fmt.Errorf("bad quantity %q: %w", args[2], err)
	}

	req := sim.OrderRequest{
		Owner:    args[0],
		Symbol:   symbol,
		Side:     side,
		Type:     typ,
		Quantity: qty,
	}
	if typ != sim.Market {
		if len(args) < 4 || args[3] == "" {
			return sim.OrderRequest{}, fmt.Errorf("%s order needs a trigger price", typ)
		}
		req.TriggerPrice, err = strconv.ParseFloat(args[3], 64)
		if err != nil {
			return sim.OrderRequest{}, fmt.Errorf("bad trigger %q: %w", args[3], err)
		}
	}
	return req, nil
}
