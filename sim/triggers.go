package sim

// Triggered reports whether o fires at last traded price ltp. Every
// comparison is inclusive.
//
//	LIMIT BUY   ltp <= trigger
//	LIMIT SELL  ltp >= trigger
//	STOP  BUY   ltp >= trigger
//	STOP  SELL  ltp <= trigger
func Triggered(o *Order, ltp float64) bool {
	switch o.Type {
	case Limit:
		if o.Side == Buy {
			return ltp <= o.TriggerPrice
		}
		return ltp >= o.TriggerPrice
	case Stop:
		if o.Side == Buy {
			return ltp >= o.TriggerPrice
		}
		return ltp <= o.TriggerPrice
	}
	return false
}
