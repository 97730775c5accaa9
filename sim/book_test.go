package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id, owner, symbol string, typ OrderType, side Side, trigger float64) *Order {
	return &Order{ID: id, Owner: owner, Symbol: symbol, Type: typ, Side: side, TriggerPrice: trigger, Quantity: 1}
}

func TestBookEvaluateKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Add(order("1", "alice", "GOLD", Limit, Buy, 100))
	b.Add(order("2", "bob", "GOLD", Stop, Sell, 101))
	b.Add(order("3", "alice", "GOLD", Limit, Buy, 90))
	b.Add(order("4", "alice", "SILVER", Limit, Buy, 100))

	got := b.Evaluate(map[string]float64{"GOLD": 99}, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	// evaluation never removes anything
	assert.Equal(t, 4, b.Len())
}

func TestBookEvaluateFilter(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Add(order("1", "alice", "GOLD", Limit, Buy, 100))
	b.Add(order("2", "alice", "SILVER", Limit, Buy, 100))

	got := b.Evaluate(
		map[string]float64{"GOLD": 50, "SILVER": 50},
		func(o *Order) bool { return o.Symbol == "SILVER" },
	)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestBookRemove(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Add(order("1", "alice", "GOLD", Limit, Buy, 100))
	b.Add(order("2", "alice", "GOLD", Limit, Buy, 100))

	assert.True(t, b.Remove("1"))
	assert.False(t, b.Remove("1"))
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "2", b.Pending("")[0].ID)
}

func TestBookCancelAll(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Add(order("1", "alice", "GOLD", Limit, Buy, 100))
	b.Add(order("2", "bob", "GOLD", Limit, Buy, 100))
	b.Add(order("3", "alice", "GOLD", Stop, Sell, 90))

	assert.Equal(t, 2, b.CancelAll("alice"))
	assert.Empty(t, b.Pending("alice"))
	assert.Len(t, b.Pending("bob"), 1)

	// second cancel is a no-op
	assert.Equal(t, 0, b.CancelAll("alice"))
	assert.Equal(t, 1, b.Len())
}

func TestBookPendingReturnsCopies(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Add(order("1", "alice", "GOLD", Limit, Buy, 100))

	p := b.Pending("alice")
	p[0].TriggerPrice = 1

	assert.Equal(t, 100.0, b.Pending("alice")[0].TriggerPrice)
}
