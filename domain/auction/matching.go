package auction

import (
	"errors"

	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

type MatchResult struct {
	Side    orderbook.Side
	Removed int
	Fills   int
}

// MatchOrders takes up to limit orders off the book at the clearing price,
// bids before asks. Every order leaves the book: matched volume produces a
// Fill and whatever is left produces an Out. A bid that fills above the
// clearing price also gets the overpaid quote back inside its Out, as base
// units at its own price.
//
// The side is picked once per call, so a call that empties the bids stops
// there and the next call starts on the asks.
func MatchOrders(a *Auction, book *orderbook.OrderBook, q *eventqueue.Queue, limit int) (MatchResult, error) {
	res := MatchResult{Side: orderbook.Bid}
	if err := a.checkMatchingPhase(book.IsEmpty()); err != nil {
		return res, err
	}
	if book.Bids.IsEmpty() {
		res.Side = orderbook.Ask
	}
	side := res.Side

	remaining := &a.RemainingBidFills
	if side == orderbook.Ask {
		remaining = &a.RemainingAskFills
	}

	for i := 0; i < limit; i++ {
		node, ok := book.FindBest(side)
		if !ok {
			break
		}

		var fill uint64
		if *remaining > 0 {
			fill = min(node.BaseQuantity, *remaining)
			quote, err := a.fillQuote(side, fill)
			if err != nil {
				return res, err
			}
			if err := push(q, eventqueue.Event{
				Kind:      eventqueue.Fill,
				Side:      side,
				OrderID:   node.Key,
				BaseSize:  fill,
				QuoteSize: quote,
				Owner:     node.Owner,
			}); err != nil {
				return res, err
			}
			*remaining -= fill
			res.Fills++
		}

		out := node.BaseQuantity - fill
		if side == orderbook.Bid && fill > 0 && node.Price() > a.ClearingPrice {
			refund, err := bidRefund(fill, node.Price(), a.ClearingPrice)
			if err != nil {
				return res, err
			}
			if out, err = fp32.Add(out, refund); err != nil {
				return res, ErrNumericalOverflow
			}
		}
		if err := push(q, eventqueue.Event{
			Kind:     eventqueue.Out,
			Side:     side,
			OrderID:  node.Key,
			BaseSize: out,
			Owner:    node.Owner,
		}); err != nil {
			return res, err
		}

		if _, ok := book.RemoveByKey(side, node.Key); !ok {
			return res, ErrNodeKeyNotFound
		}
		res.Removed++
	}
	return res, nil
}

// fillQuote prices a fill. Bids pay fill at the clearing price, rounded
// down. Asks split the quote the bids paid in proportion to the matched
// volume filled so far, so the ask credits add up to exactly QuoteMatched.
func (a *Auction) fillQuote(side orderbook.Side, fill uint64) (uint64, error) {
	if side == orderbook.Bid {
		quote, err := fp32.Mul(fill, a.ClearingPrice)
		if err != nil {
			return 0, ErrNumericalOverflow
		}
		if a.QuoteMatched, err = fp32.Add(a.QuoteMatched, quote); err != nil {
			return 0, ErrNumericalOverflow
		}
		return quote, nil
	}
	before := a.TotalQuantityMatched - a.RemainingAskFills
	lo, err := fp32.Share(before, a.QuoteMatched, a.TotalQuantityMatched)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	hi, err := fp32.Share(before+fill, a.QuoteMatched, a.TotalQuantityMatched)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	return hi - lo, nil
}

// bidRefund is the quote overpaid on fill units, expressed in base units at
// the order's own price.
func bidRefund(fill, price, clearing uint64) (uint64, error) {
	paid, err := fp32.Mul(fill, price)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	owed, err := fp32.Mul(fill, clearing)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	diff, err := fp32.Sub(paid, owed)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	base, err := fp32.Div(diff, price)
	if err != nil {
		return 0, ErrNumericalOverflow
	}
	return base, nil
}

func push(q *eventqueue.Queue, e eventqueue.Event) error {
	if err := q.PushBack(e); err != nil {
		if errors.Is(err, eventqueue.ErrFull) {
			return ErrEventQueueFull
		}
		return err
	}
	return nil
}
