package sim

// Book is the FIFO list of pending orders. It is not safe for concurrent
// use; the Engine serialises access.
type Book struct {
	orders []*Order
}

func NewBook() *Book { return &Book{} }

func (b *Book) Add(o *Order) {
	b.orders = append(b.orders, o)
}

func (b *Book) Len() int { return len(b.orders) }

// Pending returns copies of owner's orders in insertion order. An empty
// owner matches everyone.
func (b *Book) Pending(owner string) []Order {
	var out []Order
	for _, o := range b.orders {
		if owner == "" || o.Owner == owner {
			out = append(out, *o)
		}
	}
	return out
}

// Evaluate returns, in insertion order, the orders whose trigger fires at
// the given prices. Orders on symbols missing from prices are skipped, as
// are orders rejected by filter when it is non-nil. Nothing is removed.
func (b *Book) Evaluate(prices map[string]float64, filter func(*Order) bool) []*Order {
	var out []*Order
	for _, o := range b.orders {
		if filter != nil && !filter(o) {
			continue
		}
		ltp, ok := prices[o.Symbol]
		if !ok {
			continue
		}
		if Triggered(o, ltp) {
			out = append(out, o)
		}
	}
	return out
}

// Remove deletes the order with the given id and reports whether it was there.
func (b *Book) Remove(id string) bool {
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return true
		}
	}
	return false
}

// CancelAll removes every order belonging to owner and returns how many
// were removed. Cancelling an empty set is a no-op.
func (b *Book) CancelAll(owner string) int {
	kept := b.orders[:0]
	n := 0
	for _, o := range b.orders {
		if o.Owner == owner {
			n++
			continue
		}
		kept = append(kept, o)
	}
	for i := len(kept); i < len(b.orders); i++ {
		b.orders[i] = nil
	}
	b.orders = kept
	return n
}
