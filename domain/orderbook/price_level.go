package orderbook

// PriceLevel aggregates the resting orders at one price.
type PriceLevel struct {
	Price      uint64
	TotalQty   uint64
	OrderCount int
}

// Levels groups a side best price first, stopping after depth levels
// (depth <= 0 means all of them).
func (b *OrderBook) Levels(s Side, depth int) []PriceLevel {
	var out []PriceLevel
	it := b.Iter(s)
	for leaf, ok := it.Next(); ok; leaf, ok = it.Next() {
		if n := len(out); n > 0 && out[n-1].Price == leaf.Price() {
			out[n-1].TotalQty += leaf.BaseQuantity
			out[n-1].OrderCount++
			continue
		}
		if depth > 0 && len(out) == depth {
			break
		}
		out = append(out, PriceLevel{Price: leaf.Price(), TotalQty: leaf.BaseQuantity, OrderCount: 1})
	}
	return out
}

// ForEach visits every order of a side best price first until fn returns false.
func (b *OrderBook) ForEach(s Side, fn func(LeafNode) bool) {
	it := b.Iter(s)
	for leaf, ok := it.Next(); ok; leaf, ok = it.Next() {
		if !fn(leaf) {
			return
		}
	}
}
