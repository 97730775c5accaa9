package market

import "time"

// Candle is one OHLC point of the chart history.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// TickCandle builds the candle for a single tick moving from prev to next.
func TickCandle(t time.Time, prev, next float64) Candle {
	return Candle{
		Time:  t,
		Open:  prev,
		High:  max(prev, next),
		Low:   min(prev, next),
		Close: next,
	}
}
