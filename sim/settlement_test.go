package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/market"
)

var lot1 = market.Instrument{Symbol: "TEST", LotSize: 1, StartPrice: 100}

func terms(side Side, qty int, price float64, policy AvgPricePolicy) fillTerms {
	return fillTerms{Side: side, Quantity: qty, Price: price, Fee: 0, Policy: policy, Places: DefaultPrecision}
}

func TestSettlementFundsBoundary(t *testing.T) {
	t.Parallel()

	inst := market.Instrument{Symbol: "TEST", LotSize: 100, StartPrice: 1000}
	tt := fillTerms{Side: Buy, Quantity: 1, Price: 988, Fee: DefaultFee, Policy: AvgPriceLastFill, Places: DefaultPrecision}

	// cost is 98800 + 500
	s, err := computeSettlement(99300, Position{}, inst, tt)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Balance)
	assert.Equal(t, 99300.0, s.Cost)
	assert.Equal(t, 98800.0, s.Gross)

	_, err = computeSettlement(99299.99, Position{}, inst, tt)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSettlementLifecycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy  AvgPricePolicy
		wantAvg float64
	}{
		{AvgPriceLastFill, 110},
		{AvgPriceWeighted, 106},
	}

	for _, tc := range tests {
		t.Run(string(tc.policy), func(t *testing.T) {
			bal := 10000.0

			s, err := computeSettlement(bal, Position{}, lot1, terms(Buy, 2, 100, tc.policy))
			require.NoError(t, err)
			assert.Equal(t, Position{Symbol: "TEST", Quantity: 2, AvgPrice: 100}, s.Position)
			assert.Equal(t, 9800.0, s.Balance)

			s, err = computeSettlement(s.Balance, s.Position, lot1, terms(Buy, 3, 110, tc.policy))
			require.NoError(t, err)
			assert.Equal(t, 5, s.Position.Quantity)
			assert.InDelta(t, tc.wantAvg, s.Position.AvgPrice, 1e-9)
			assert.Equal(t, 9470.0, s.Balance)

			s, err = computeSettlement(s.Balance, s.Position, lot1, terms(Sell, 5, 120, tc.policy))
			require.NoError(t, err)
			assert.True(t, s.Closed)
			assert.Equal(t, 10070.0, s.Balance)
		})
	}
}

func TestSettlementSellPartial(t *testing.T) {
	t.Parallel()

	held := Position{Symbol: "TEST", Quantity: 3, AvgPrice: 100}
	s, err := computeSettlement(0, held, lot1, terms(Sell, 1, 90, AvgPriceLastFill))
	require.NoError(t, err)
	assert.False(t, s.Closed)
	assert.Equal(t, 2, s.Position.Quantity)
	assert.Equal(t, 100.0, s.Position.AvgPrice)
	assert.Equal(t, 90.0, s.Balance)
}

func TestSettlementOversell(t *testing.T) {
	t.Parallel()

	held := Position{Symbol: "TEST", Quantity: 1, AvgPrice: 100}
	s, err := computeSettlement(0, held, lot1, terms(Sell, 4, 100, AvgPriceLastFill))
	require.NoError(t, err)
	assert.True(t, s.Closed)
	assert.Equal(t, 0, s.Position.Quantity)
	assert.Equal(t, 400.0, s.Balance)

	// selling with nothing held still credits proceeds
	s, err = computeSettlement(0, Position{}, lot1, terms(Sell, 1, 50, AvgPriceLastFill))
	require.NoError(t, err)
	assert.True(t, s.Closed)
	assert.Equal(t, 50.0, s.Balance)
}

func TestSettlementFeeOnSell(t *testing.T) {
	t.Parallel()

	held := Position{Symbol: "TEST", Quantity: 1, AvgPrice: 100}
	tt := terms(Sell, 1, 1000, AvgPriceLastFill)
	tt.Fee = DefaultFee

	s, err := computeSettlement(100, held, lot1, tt)
	require.NoError(t, err)
	assert.Equal(t, 500.0, s.Cost)
	assert.Equal(t, 600.0, s.Balance)
}

func TestSettlementRoundsBalance(t *testing.T) {
	t.Parallel()

	s, err := computeSettlement(1000, Position{}, lot1, terms(Buy, 3, 0.1, AvgPriceLastFill))
	require.NoError(t, err)
	assert.Equal(t, 999.7, s.Balance)
}

func TestParseAvgPricePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseAvgPricePolicy("")
	require.NoError(t, err)
	assert.Equal(t, AvgPriceLastFill, p)

	p, err = ParseAvgPricePolicy("Weighted")
	require.NoError(t, err)
	assert.Equal(t, AvgPriceWeighted, p)

	_, err = ParseAvgPricePolicy("fifo")
	assert.Error(t, err)
}

func TestUnrealizedPL(t *testing.T) {
	t.Parallel()

	p := Position{Symbol: "Gold 05Feb", Quantity: 2, AvgPrice: 134000}
	assert.Equal(t, 46000.0, UnrealizedPL(p, 134230, 100))
	assert.Equal(t, -20000.0, UnrealizedPL(p, 133900, 100))
}
