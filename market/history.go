package market

import (
	"errors"
	"iter"
	"sync"
	"time"
)

const DefaultHistoryCapacity = 60

// History keeps a fixed-capacity rolling window of candles per symbol.
// Once a window is full every Append evicts exactly the oldest candle.
type History struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*ring
}

// ring is a circular buffer; head is the index of the oldest element.
type ring struct {
	buf  []Candle
	head int
	n    int
}

func (r *ring) push(c Candle) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = c
		r.n++
		return
	}
	r.buf[r.head] = c
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) slice() []Candle {
	out := make([]Candle, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func NewHistory(capacity int) (*History, error) {
	if capacity <= 0 {
		return nil, errors.New("history capacity must be positive")
	}
	return &History{
		capacity: capacity,
		series:   make(map[string]*ring),
	}, nil
}

func (h *History) Capacity() int { return h.capacity }

func (h *History) Append(symbol string, c Candle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.series[symbol]
	if !ok {
		r = &ring{buf: make([]Candle, h.capacity)}
		h.series[symbol] = r
	}
	r.push(c)
}

// Len returns the number of retained candles for symbol.
func (h *History) Len(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.series[symbol]; ok {
		return r.n
	}
	return 0
}

// Points returns the retained candles, oldest first.
func (h *History) Points(symbol string) []Candle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.series[symbol]
	if !ok {
		return nil
	}
	return r.slice()
}

// All yields the retained candles oldest first. Each range over the
// sequence reads a fresh snapshot.
func (h *History) All(symbol string) iter.Seq[Candle] {
	return func(yield func(Candle) bool) {
		for _, c := range h.Points(symbol) {
			if !yield(c) {
				return
			}
		}
	}
}

// SeedOptions controls the synthetic backfill.
type SeedOptions struct {
	Points   int
	Interval time.Duration
	Epsilon  float64
	Wick     float64
}

// Seed backfills symbol with opts.Points synthetic candles ending at now,
// spaced opts.Interval apart, random-walking from start.
func (h *History) Seed(symbol string, start float64, now time.Time, w *Walk, opts SeedOptions) {
	for _, c := range SyntheticCandles(w, start, now, opts) {
		h.Append(symbol, c)
	}
}

// SyntheticCandles generates backward-dated candles oldest first. Each
// candle opens near the previous close and its wicks extend past the body
// by at most opts.Wick.
func SyntheticCandles(w *Walk, start float64, now time.Time, opts SeedOptions) []Candle {
	if opts.Points <= 0 {
		return nil
	}
	out := make([]Candle, 0, opts.Points)
	curr := start
	for i := opts.Points - 1; i >= 0; i-- {
		o := curr * (1 + w.Uniform(-opts.Epsilon, opts.Epsilon))
		c := o * (1 + w.Uniform(-opts.Epsilon, opts.Epsilon))
		out = append(out, Candle{
			Time:  now.Add(-time.Duration(i) * opts.Interval),
			Open:  o,
			High:  max(o, c) * (1 + w.Uniform(0, opts.Wick)),
			Low:   min(o, c) * (1 - w.Uniform(0, opts.Wick)),
			Close: c,
		})
		curr = c
	}
	return out
}
