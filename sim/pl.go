package sim

// UnrealizedPL is the mark-to-market profit of p at ltp for an instrument
// with the given lot size.
func UnrealizedPL(p Position, ltp float64, lotSize int) float64 {
	return (ltp - p.AvgPrice) * float64(p.Quantity) * float64(lotSize)
}
