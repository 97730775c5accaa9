package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	inst, err := r.Lookup("Gold 05Feb")
	require.NoError(t, err)
	assert.Equal(t, 100, inst.LotSize)
	assert.Equal(t, 134230.00, inst.StartPrice)

	_, err = r.Lookup("EUR_USD")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestRegistrySymbolsSorted(t *testing.T) {
	t.Parallel()

	syms := DefaultRegistry().Symbols()
	require.Len(t, syms, len(Instruments))
	assert.IsIncreasing(t, syms)
}

func TestNewRegistryRejectsBadTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table map[string]Instrument
	}{
		{"empty", map[string]Instrument{}},
		{"zero lot", map[string]Instrument{"X": {Symbol: "X", LotSize: 0, StartPrice: 1}}},
		{"zero price", map[string]Instrument{"X": {Symbol: "X", LotSize: 1}}},
		{"key mismatch", map[string]Instrument{"X": {Symbol: "Y", LotSize: 1, StartPrice: 1}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(tt.table)
			assert.Error(t, err)
		})
	}
}

func TestNewRegistryFillsMissingSymbol(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(map[string]Instrument{"TEST": {LotSize: 1, StartPrice: 100}})
	require.NoError(t, err)

	inst, err := r.Lookup("TEST")
	require.NoError(t, err)
	assert.Equal(t, "TEST", inst.Symbol)
}
