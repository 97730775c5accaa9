package market

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultEpsilon     = 0.0001
	DefaultSeedEpsilon = 0.0005
	DefaultSeedWick    = 0.0002
)

// Stepper advances a price by one tick.
type Stepper interface {
	Step(price float64) float64
}

// Walk is a multiplicative random walk: next = price * (1 + U(-eps, +eps)).
// There is no floor, so a very long run can in principle reach zero.
type Walk struct {
	mu  sync.Mutex
	rng *rand.Rand
	eps float64
}

// NewWalk returns a Walk with per-tick bound eps. A zero seed picks one
// from the clock.
func NewWalk(eps float64, seed uint64) (*Walk, error) {
	if eps <= 0 || eps >= 1 {
		return nil, fmt.Errorf("walk epsilon must be in (0, 1), got %v", eps)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Walk{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		eps: eps,
	}, nil
}

func (w *Walk) Epsilon() float64 { return w.eps }

func (w *Walk) Step(price float64) float64 {
	return price * (1 + w.Uniform(-w.eps, w.eps))
}

// Uniform draws from [lo, hi).
func (w *Walk) Uniform(lo, hi float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return lo + (hi-lo)*w.rng.Float64()
}
