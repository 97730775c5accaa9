// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// Instrument is immutable reference data for a tradable contract.
type Instrument struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	LotSize    int     `json:"lot_size" yaml:"lot_size"`
	StartPrice float64 `json:"start_price" yaml:"start_price"`
}

// Instruments is the default contract table.
var Instruments = map[string]Instrument{
	"Gold 05Feb": {
		Symbol:     "Gold 05Feb",
		LotSize:    100,
		StartPrice: 134230.00,
	},
	"Silver 05Mar": {
		Symbol:     "Silver 05Mar",
		LotSize:    30,
		StartPrice: 204172.00,
	},
	"Crude Oil 18Dec": {
		Symbol:     "Crude Oil 18Dec",
		LotSize:    100,
		StartPrice: 5074.00,
	},
	"Copper 31Dec": {
		Symbol:     "Copper 31Dec",
		LotSize:    2500,
		StartPrice: 1108.50,
	},
	"Aluminium 31Dec": {
		Symbol:     "Aluminium 31Dec",
		LotSize:    5000,
		StartPrice: 280.80,
	},
	"Zinc 31Dec": {
		Symbol:     "Zinc 31Dec",
		LotSize:    5000,
		StartPrice: 303.25,
	},
	"Gold Mini 05Jan": {
		Symbol:     "Gold Mini 05Jan",
		LotSize:    10,
		StartPrice: 132605.00,
	},
	"Silver Mini 27Feb": {
		Symbol:     "Silver Mini 27Feb",
		LotSize:    1,
		StartPrice: 204660.00,
	},
	"USDINR": {
		Symbol:     "USDINR",
		LotSize:    1000,
		StartPrice: 90.36,
	},
}

// Registry is a read-only view over an instrument table.
type Registry struct {
	byName  map[string]Instrument
	symbols []string
}

// NewRegistry validates the table and returns a Registry over a copy of it.
func NewRegistry(table map[string]Instrument) (*Registry, error) {
	if len(table) == 0 {
		return nil, errors.New("instrument table is empty")
	}
	r := &Registry{byName: make(map[string]Instrument, len(table))}
	for key, inst := range table {
		if inst.Symbol == "" {
			inst.Symbol = key
		}
		if inst.Symbol != key {
			return nil, fmt.Errorf("instrument %q: symbol %q does not match key", key, inst.Symbol)
		}
		if inst.LotSize <= 0 {
			return nil, fmt.Errorf("instrument %q: lot_size must be positive", key)
		}
		if inst.StartPrice <= 0 {
			return nil, fmt.Errorf("instrument %q: start_price must be positive", key)
		}
		r.byName[key] = inst
		r.symbols = append(r.symbols, key)
	}
	sort.Strings(r.symbols)
	return r, nil
}

// DefaultRegistry wraps Instruments.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Instruments)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(symbol string) (Instrument, error) {
	inst, ok := r.byName[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return inst, nil
}

// Symbols returns every symbol in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}
