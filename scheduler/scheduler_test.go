package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/sim"
)

type countingTicker struct {
	n atomic.Int64
}

func (c *countingTicker) TickAll(ctx context.Context) sim.TickResult {
	c.n.Add(1)
	return sim.TickResult{
		Quotes:   []sim.Quote{{Symbol: "TEST", Prev: 1, Price: 2}},
		Rejected: []sim.Rejection{{Order: sim.Order{ID: "o1"}, Err: errors.New("no funds")}},
	}
}

func TestRunNowBroadcasts(t *testing.T) {
	t.Parallel()

	tk := &countingTicker{}
	var got []sim.TickResult
	s := New(tk, func(r sim.TickResult) { got = append(got, r) }, nil)

	s.RunNow()
	s.RunNow()

	assert.Equal(t, int64(2), tk.n.Load())
	assert.Equal(t, uint64(2), s.Ticks())
	require.Len(t, got, 2)
	assert.Equal(t, "TEST", got[0].Quotes[0].Symbol)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := New(&countingTicker{}, nil, nil)
	assert.Error(t, s.Register("every now and then"))
	assert.NoError(t, s.Register(""))
	assert.NoError(t, s.Register("*/2 * * * * *"))
}

func TestStartTicks(t *testing.T) {
	t.Parallel()

	tk := &countingTicker{}
	var broadcasts atomic.Int64
	s := New(tk, func(sim.TickResult) { broadcasts.Add(1) }, nil)
	require.NoError(t, s.Register("@every 1s"))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return tk.n.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	s.Stop()

	n := tk.n.Load()
	assert.Equal(t, n, broadcasts.Load())

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, n, tk.n.Load(), "no ticks after Stop")
}

func TestCancelledContextSkipsTick(t *testing.T) {
	t.Parallel()

	tk := &countingTicker{}
	s := New(tk, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
	defer s.Stop()

	s.RunNow()
	assert.Equal(t, int64(0), tk.n.Load())
}
