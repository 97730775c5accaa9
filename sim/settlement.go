package sim

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/market"
)

const (
	// DefaultFee is the flat brokerage charged on every fill, added to the
	// cost of a buy and netted off the proceeds of a sell.
	DefaultFee = 500.0

	// DefaultPrecision is the number of decimals balances are rounded to.
	DefaultPrecision int32 = 2

	// RetainOnRejectedTrigger keeps a triggered order in the book when its
	// settlement fails, so it is retried on every later tick until funds
	// suffice or it is cancelled.
	RetainOnRejectedTrigger = true
)

// AvgPricePolicy decides how a buy into an existing position moves its
// average price.
type AvgPricePolicy string

const (
	// AvgPriceLastFill overwrites the average with the latest fill price.
	AvgPriceLastFill AvgPricePolicy = "last_fill"
	// AvgPriceWeighted keeps a quantity-weighted average cost.
	AvgPriceWeighted AvgPricePolicy = "weighted"
)

func ParseAvgPricePolicy(s string) (AvgPricePolicy, error) {
	switch AvgPricePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AvgPriceLastFill:
		return AvgPriceLastFill, nil
	case AvgPriceWeighted:
		return AvgPriceWeighted, nil
	}
	return "", fmt.Errorf("avg price policy must be %q or %q, got %q", AvgPriceLastFill, AvgPriceWeighted, s)
}

// Position is an owner's holding in one symbol, in lots.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int     `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// settlement is the outcome of applying one fill to an account.
type settlement struct {
	Gross    float64
	Fee      float64
	Cost     float64 // debited on a buy, credited on a sell
	Balance  float64
	Position Position
	Closed   bool // position row must be removed
}

type fillTerms struct {
	Side     Side
	Quantity int
	Price    float64
	Fee      float64
	Policy   AvgPricePolicy
	Places   int32
}

// computeSettlement prices a fill against balance and the currently held
// position (zero value when none). It has no side effects.
func computeSettlement(balance float64, held Position, inst market.Instrument, t fillTerms) (settlement, error) {
	gross := decimal.NewFromFloat(t.Price).Mul(decimal.NewFromInt(int64(t.Quantity) * int64(inst.LotSize)))
	fee := decimal.NewFromFloat(t.Fee)
	bal := decimal.NewFromFloat(balance)

	var cost, next decimal.Decimal
	switch t.Side {
	case Buy:
		cost = gross.Add(fee)
		if bal.LessThan(cost) {
			return settlement{}, fmt.Errorf("%w: need %s, have %s",
				ErrInsufficientFunds, cost.StringFixed(t.Places), bal.StringFixed(t.Places))
		}
		next = bal.Sub(cost)
	case Sell:
		cost = gross.Sub(fee)
		next = bal.Add(cost)
	default:
		return settlement{}, &ValidationError{Message: fmt.Sprintf("invalid side %q", t.Side)}
	}

	s := settlement{
		Gross:   gross.Round(t.Places).InexactFloat64(),
		Fee:     fee.InexactFloat64(),
		Cost:    cost.Round(t.Places).InexactFloat64(),
		Balance: next.Round(t.Places).InexactFloat64(),
	}

	pos := Position{Symbol: inst.Symbol, Quantity: held.Quantity, AvgPrice: held.AvgPrice}
	if t.Side == Buy {
		qty := pos.Quantity + t.Quantity
		switch {
		case t.Policy == AvgPriceWeighted && pos.Quantity > 0:
			pos.AvgPrice = (float64(pos.Quantity)*pos.AvgPrice + float64(t.Quantity)*t.Price) / float64(qty)
		default:
			pos.AvgPrice = t.Price
		}
		pos.Quantity = qty
	} else {
		// overselling is allowed: proceeds are credited and the row goes away
		pos.Quantity -= t.Quantity
		if pos.Quantity <= 0 {
			pos.Quantity = 0
			s.Closed = true
		}
	}
	s.Position = pos
	return s, nil
}
