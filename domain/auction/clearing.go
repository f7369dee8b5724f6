package auction

import (
	"errors"

	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

// ClearingResult reports what one bounded discovery call did.
type ClearingResult struct {
	Steps int
	Found bool
}

// walk follows one side of the book during discovery. before is the
// iterator position just ahead of cur.
type walk struct {
	it     *orderbook.Iterator
	before orderbook.Stack
	cur    orderbook.LeafNode
}

// step pulls the next node without making it current.
func (w *walk) step() (orderbook.Stack, orderbook.LeafNode, bool, error) {
	st, err := w.it.Save()
	if err != nil {
		return st, orderbook.LeafNode{}, false, ErrSlabIteratorOverflow
	}
	leaf, ok := w.it.Next()
	return st, leaf, ok, nil
}

func (w *walk) accept(st orderbook.Stack, leaf orderbook.LeafNode) {
	w.before = st
	w.cur = leaf
}

func startWalk(book *orderbook.OrderBook, side orderbook.Side) (*walk, bool, error) {
	w := &walk{it: book.Iter(side)}
	st, leaf, ok, err := w.step()
	if err != nil || !ok {
		return w, false, err
	}
	w.accept(st, leaf)
	return w, true, nil
}

// resumeWalk restores a side from its saved stack and steps forward until
// the cursor key comes up again.
func resumeWalk(book *orderbook.OrderBook, side orderbook.Side, st orderbook.Stack, key orderbook.Key) (*walk, error) {
	it, err := book.Resume(side, st)
	if err != nil {
		if errors.Is(err, orderbook.ErrStackOverflow) {
			return nil, ErrSlabIteratorOverflow
		}
		return nil, ErrNodeKeyNotFound
	}
	w := &walk{it: it}
	for {
		st, leaf, ok, err := w.step()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNodeKeyNotFound
		}
		if leaf.Key == key {
			w.accept(st, leaf)
			return w, nil
		}
	}
}

// CalculateClearingPrice walks bids from the top and asks from the bottom,
// absorbing whichever current order has less left, until the next order on
// the advancing side would cross or that side runs out. It does at most
// limit absorption steps and leaves a cursor behind so that a later call
// continues exactly where this one stopped.
//
// The clearing price is the price of the last bid reached.
func CalculateClearingPrice(a *Auction, book *orderbook.OrderBook, now int64, limit int) (ClearingResult, error) {
	var res ClearingResult
	if err := a.checkClearingPhase(now); err != nil {
		return res, err
	}

	c := a.Cursor
	var bids, asks *walk

	if !c.Initialized() {
		var okBid, okAsk bool
		var err error
		if bids, okBid, err = startWalk(book, orderbook.Bid); err != nil {
			return res, err
		}
		if asks, okAsk, err = startWalk(book, orderbook.Ask); err != nil {
			return res, err
		}
		if !okBid || !okAsk || asks.cur.Price() > bids.cur.Price() {
			a.HasFoundClearingPrice = true
			a.FinalBidPrice = bids.cur.Price()
			a.FinalAskPrice = asks.cur.Price()
			res.Found = true
			return res, nil
		}
		c.CurrentBidKey, c.CurrentAskKey = bids.cur.Key, asks.cur.Key
	} else {
		var err error
		if bids, err = resumeWalk(book, orderbook.Bid, c.BidSearchStack, c.CurrentBidKey); err != nil {
			return res, err
		}
		if asks, err = resumeWalk(book, orderbook.Ask, c.AskSearchStack, c.CurrentAskKey); err != nil {
			return res, err
		}
	}

	for res.Steps < limit && !res.Found {
		res.Steps++
		bidRemaining, err := fp32.Sub(bids.cur.BaseQuantity, c.CurrentBidQuantityFilled)
		if err != nil {
			return res, ErrNumericalOverflow
		}
		askRemaining, err := fp32.Sub(asks.cur.BaseQuantity, c.CurrentAskQuantityFilled)
		if err != nil {
			return res, ErrNumericalOverflow
		}

		if bidRemaining >= askRemaining {
			if c.CurrentBidQuantityFilled, err = fp32.Add(c.CurrentBidQuantityFilled, askRemaining); err != nil {
				return res, ErrNumericalOverflow
			}
			if c.TotalQuantityFilledSoFar, err = fp32.Add(c.TotalQuantityFilledSoFar, askRemaining); err != nil {
				return res, ErrNumericalOverflow
			}
			st, next, ok, err := asks.step()
			if err != nil {
				return res, err
			}
			if !ok || next.Price() > bids.cur.Price() {
				res.Found = true
				break
			}
			asks.accept(st, next)
			c.CurrentAskKey = next.Key
			c.CurrentAskQuantityFilled = 0
		} else {
			if c.CurrentAskQuantityFilled, err = fp32.Add(c.CurrentAskQuantityFilled, bidRemaining); err != nil {
				return res, ErrNumericalOverflow
			}
			if c.TotalQuantityFilledSoFar, err = fp32.Add(c.TotalQuantityFilledSoFar, bidRemaining); err != nil {
				return res, ErrNumericalOverflow
			}
			st, next, ok, err := bids.step()
			if err != nil {
				return res, err
			}
			if !ok || asks.cur.Price() > next.Price() {
				res.Found = true
				break
			}
			bids.accept(st, next)
			c.CurrentBidKey = next.Key
			c.CurrentBidQuantityFilled = 0
		}
	}

	c.BidSearchStack = bids.before
	c.AskSearchStack = asks.before
	a.Cursor = c

	if res.Found {
		a.HasFoundClearingPrice = true
		a.TotalQuantityMatched = c.TotalQuantityFilledSoFar
		a.RemainingBidFills = c.TotalQuantityFilledSoFar
		a.RemainingAskFills = c.TotalQuantityFilledSoFar
		a.FinalBidPrice = bids.cur.Price()
		a.FinalAskPrice = asks.cur.Price()
		a.ClearingPrice = bids.cur.Price()
	}
	return res, nil
}
