package market

import "fmt"

// SMA is the simple moving average of the last period closes.
func SMA(candles []Candle, period int) (float64, error) {
	if err := checkPeriod(len(candles), period); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period), nil
}

// EMA is the exponential moving average of the closes, seeded with the
// SMA of the first period candles.
func EMA(candles []Candle, period int) (float64, error) {
	if err := checkPeriod(len(candles), period); err != nil {
		return 0, err
	}

	k := 2.0 / float64(period+1)

	ema := 0.0
	for _, c := range candles[:period] {
		ema += c.Close
	}
	ema /= float64(period)

	for _, c := range candles[period:] {
		ema = (c.Close-ema)*k + ema
	}
	return ema, nil
}

func checkPeriod(n, period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if n < period {
		return fmt.Errorf("not enough candles: need %d, got %d", period, n)
	}
	return nil
}
