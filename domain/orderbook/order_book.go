package orderbook

import (
	"errors"

	"github.com/Henry-E/auction-house/domain/fp32"
)

var ErrOrderTooSmall = errors.New("orderbook: order size below minimum")

// OrderBook holds the two sides of a batch auction. Orders only ever rest:
// there is no continuous matching, so crossing orders are posted as-is.
//
// OrderBook is single-writer and deterministic.
type OrderBook struct {
	Bids *Slab
	Asks *Slab

	// LastSeq is the sequence assigned to the most recently posted order.
	LastSeq uint64
}

func NewOrderBook(capacity int) *OrderBook {
	return &OrderBook{
		Bids: NewSlab(capacity),
		Asks: NewSlab(capacity),
	}
}

type NewOrderParams struct {
	Side        Side
	LimitPrice  uint64
	MaxBaseQty  uint64
	MaxQuoteQty uint64
	Owner       CallbackInfo
}

type OrderSummary struct {
	PostedOrderID Key
	TotalBaseQty  uint64
	TotalQuoteQty uint64
}

// Sizes works out the base and quote size an order would rest with. The
// base size is cut down when MaxQuoteQty cannot pay for MaxBaseQty at the
// limit price, and the order is refused when what is left falls under
// minBaseOrderSize.
func (b *OrderBook) Sizes(p NewOrderParams, minBaseOrderSize uint64) (base, quote uint64, err error) {
	base = p.MaxBaseQty
	if quote, err = fp32.Mul(base, p.LimitPrice); err != nil {
		return 0, 0, err
	}
	if quote > p.MaxQuoteQty {
		if base, err = fp32.Div(p.MaxQuoteQty, p.LimitPrice); err != nil {
			return 0, 0, err
		}
		if quote, err = fp32.Mul(base, p.LimitPrice); err != nil {
			return 0, 0, err
		}
	}
	if base == 0 || base < minBaseOrderSize {
		return 0, 0, ErrOrderTooSmall
	}
	return base, quote, nil
}

// NewOrder posts a resting order sized by Sizes.
func (b *OrderBook) NewOrder(p NewOrderParams, minBaseOrderSize uint64) (OrderSummary, error) {
	base, quote, err := b.Sizes(p, minBaseOrderSize)
	if err != nil {
		return OrderSummary{}, err
	}

	key := NewKey(p.Side, p.LimitPrice, b.LastSeq+1)
	if _, err := b.Side(p.Side).Insert(LeafNode{Key: key, BaseQuantity: base, Owner: p.Owner}); err != nil {
		return OrderSummary{}, err
	}
	b.LastSeq++

	return OrderSummary{
		PostedOrderID: key,
		TotalBaseQty:  base,
		TotalQuoteQty: quote,
	}, nil
}

// Free is how many more orders a side can take.
func (b *OrderBook) Free(s Side) int {
	t := b.Side(s)
	return t.Capacity() - t.Size()
}

func (b *OrderBook) Side(s Side) *Slab {
	if s == Bid {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) RemoveByKey(s Side, key Key) (LeafNode, bool) {
	return b.Side(s).Remove(key)
}

func (b *OrderBook) GetNode(s Side, key Key) (LeafNode, bool) {
	return b.Side(s).Get(key)
}

// FindBest returns the highest bid or the lowest ask.
func (b *OrderBook) FindBest(s Side) (LeafNode, bool) {
	if s == Bid {
		return b.Bids.Max()
	}
	return b.Asks.Min()
}

// Iter walks a side best price first.
func (b *OrderBook) Iter(s Side) *Iterator {
	return b.Side(s).Iter(s == Ask)
}

func (b *OrderBook) Resume(s Side, st Stack) (*Iterator, error) {
	return b.Side(s).Resume(s == Ask, st)
}

func (b *OrderBook) IsEmpty() bool {
	return b.Bids.IsEmpty() && b.Asks.IsEmpty()
}

func (b *OrderBook) Len() int {
	return b.Bids.Size() + b.Asks.Size()
}
