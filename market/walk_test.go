package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkStepIsBounded(t *testing.T) {
	t.Parallel()

	for _, eps := range []float64{0.0001, 0.0005, 0.01} {
		w, err := NewWalk(eps, 42)
		require.NoError(t, err)

		price := 1000.0
		for i := 0; i < 10_000; i++ {
			next := w.Step(price)
			assert.LessOrEqual(t, math.Abs(next-price)/price, eps+1e-12)
			price = next
		}
	}
}

func TestWalkIsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	a, err := NewWalk(DefaultEpsilon, 7)
	require.NoError(t, err)
	b, err := NewWalk(DefaultEpsilon, 7)
	require.NoError(t, err)

	pa, pb := 5074.0, 5074.0
	for i := 0; i < 100; i++ {
		pa, pb = a.Step(pa), b.Step(pb)
	}
	assert.Equal(t, pa, pb)
}

func TestNewWalkRejectsEpsilon(t *testing.T) {
	t.Parallel()

	for _, eps := range []float64{0, -0.1, 1, 2} {
		_, err := NewWalk(eps, 1)
		assert.Error(t, err, "eps=%v", eps)
	}
}

func TestWalkUniformRange(t *testing.T) {
	t.Parallel()

	w, err := NewWalk(DefaultEpsilon, 3)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		u := w.Uniform(0, 0.0002)
		assert.GreaterOrEqual(t, u, 0.0)
		assert.Less(t, u, 0.0002)
	}
}
