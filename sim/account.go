package sim

import (
	"sort"
	"sync"
)

// Account is an owner's cash and positions. mu serialises every
// settlement against the account.
type Account struct {
	mu        sync.Mutex
	owner     string
	balance   float64
	positions map[string]Position
}

func newAccount(owner string, balance float64, positions []Position) *Account {
	a := &Account{
		owner:     owner,
		balance:   balance,
		positions: make(map[string]Position, len(positions)),
	}
	for _, p := range positions {
		a.positions[p.Symbol] = p
	}
	return a
}

func (a *Account) Owner() string { return a.owner }

func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Positions returns the open positions sorted by symbol.
func (a *Account) Positions() []Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Position, 0, len(a.positions))
	for _, p := range a.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
