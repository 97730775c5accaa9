package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     OrderType
		side    Side
		trigger float64
		ltp     float64
		want    bool
	}{
		{"limit buy below", Limit, Buy, 100, 99.5, true},
		{"limit buy equal", Limit, Buy, 100, 100, true},
		{"limit buy above", Limit, Buy, 100, 100.01, false},
		{"limit sell above", Limit, Sell, 100, 101, true},
		{"limit sell equal", Limit, Sell, 100, 100, true},
		{"limit sell below", Limit, Sell, 100, 99.99, false},
		{"stop buy above", Stop, Buy, 100, 100.5, true},
		{"stop buy equal", Stop, Buy, 100, 100, true},
		{"stop buy below", Stop, Buy, 100, 99, false},
		{"stop sell below", Stop, Sell, 100, 98, true},
		{"stop sell equal", Stop, Sell, 100, 100, true},
		{"stop sell above", Stop, Sell, 100, 100.2, false},
		{"market never rests", Market, Buy, 100, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Type: tt.typ, Side: tt.side, TriggerPrice: tt.trigger}
			assert.Equal(t, tt.want, Triggered(o, tt.ltp))
		})
	}
}

func TestParseOrderType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]OrderType{
		"market": Market,
		"LIMIT":  Limit,
		" stop ": Stop,
		"SL":     Stop,
	} {
		got, err := ParseOrderType(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOrderType("ioc")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestParseSide(t *testing.T) {
	t.Parallel()

	s, err := ParseSide("buy")
	assert.NoError(t, err)
	assert.Equal(t, Buy, s)

	s, err = ParseSide("Sell")
	assert.NoError(t, err)
	assert.Equal(t, Sell, s)

	_, err = ParseSide("short")
	assert.Error(t, err)
}
