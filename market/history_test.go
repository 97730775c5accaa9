package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleAt(i int) Candle {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	p := float64(100 + i)
	return Candle{Time: t0.Add(time.Duration(i) * time.Second), Open: p, High: p, Low: p, Close: p}
}

func TestHistoryFIFO(t *testing.T) {
	t.Parallel()

	const capacity = 5
	h, err := NewHistory(capacity)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		h.Append("X", candleAt(i))
	}
	assert.Equal(t, 3, h.Len("X"))

	for i := 3; i < 12; i++ {
		h.Append("X", candleAt(i))
		assert.LessOrEqual(t, h.Len("X"), capacity)
	}

	got := h.Points("X")
	require.Len(t, got, capacity)
	for i, c := range got {
		assert.Equal(t, candleAt(7+i), c)
	}
}

func TestHistorySeparateSymbols(t *testing.T) {
	t.Parallel()

	h, err := NewHistory(2)
	require.NoError(t, err)

	h.Append("A", candleAt(1))
	h.Append("B", candleAt(2))
	h.Append("B", candleAt(3))
	h.Append("B", candleAt(4))

	assert.Equal(t, []Candle{candleAt(1)}, h.Points("A"))
	assert.Equal(t, []Candle{candleAt(3), candleAt(4)}, h.Points("B"))
	assert.Nil(t, h.Points("C"))
}

func TestHistoryAllIsRestartable(t *testing.T) {
	t.Parallel()

	h, err := NewHistory(3)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		h.Append("X", candleAt(i))
	}

	var first, second []Candle
	for c := range h.All("X") {
		first = append(first, c)
	}
	for c := range h.All("X") {
		second = append(second, c)
		break
	}

	assert.Equal(t, h.Points("X"), first)
	assert.Equal(t, []Candle{candleAt(1)}, second)
}

func TestNewHistoryRejectsCapacity(t *testing.T) {
	t.Parallel()

	_, err := NewHistory(0)
	assert.Error(t, err)
}

func TestHistorySeed(t *testing.T) {
	t.Parallel()

	w, err := NewWalk(DefaultEpsilon, 11)
	require.NoError(t, err)
	h, err := NewHistory(60)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.Seed("Gold 05Feb", 134230, now, w, SeedOptions{
		Points:   60,
		Interval: 15 * time.Minute,
		Epsilon:  DefaultSeedEpsilon,
		Wick:     DefaultSeedWick,
	})

	pts := h.Points("Gold 05Feb")
	require.Len(t, pts, 60)
	assert.Equal(t, now, pts[59].Time)
	assert.Equal(t, now.Add(-59*15*time.Minute), pts[0].Time)

	prevClose := 134230.0
	for _, c := range pts {
		assert.GreaterOrEqual(t, c.High, max(c.Open, c.Close))
		assert.LessOrEqual(t, c.Low, min(c.Open, c.Close))
		assert.InDelta(t, prevClose, c.Open, prevClose*DefaultSeedEpsilon+1e-9)
		prevClose = c.Close
	}
}

func TestTickCandle(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := TickCandle(ts, 100, 99.5)
	assert.Equal(t, Candle{Time: ts, Open: 100, High: 100, Low: 99.5, Close: 99.5}, c)
}
