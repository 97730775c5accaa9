package market

import (
	"fmt"
	"math"
	"sync"
)

// PriceStore holds the last traded price per symbol.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]float64)}
}

// NewPriceStoreFrom seeds every instrument at its start price.
func NewPriceStoreFrom(r *Registry) *PriceStore {
	ps := NewPriceStore()
	for _, sym := range r.Symbols() {
		inst, _ := r.Lookup(sym)
		ps.prices[sym] = inst.StartPrice
	}
	return ps
}

func (ps *PriceStore) Set(symbol string, price float64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices[symbol] = price
}

func (ps *PriceStore) Get(symbol string) (float64, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return p, nil
}

// Snapshot copies the current prices.
func (ps *PriceStore) Snapshot() map[string]float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]float64, len(ps.prices))
	for k, v := range ps.prices {
		out[k] = v
	}
	return out
}

// ValidPrice reports whether p can be used as a price.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
