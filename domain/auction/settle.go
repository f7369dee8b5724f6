package auction

import (
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

// OpenOrdersLookup finds the record an event belongs to among the records a
// caller supplied for this call.
type OpenOrdersLookup interface {
	Lookup(id orderbook.CallbackInfo) (*OpenOrders, bool)
}

// Candidates is the plain map form of OpenOrdersLookup.
type Candidates map[orderbook.CallbackInfo]*OpenOrders

func (c Candidates) Lookup(id orderbook.CallbackInfo) (*OpenOrders, bool) {
	oo, ok := c[id]
	return oo, ok
}

// ConsumeResult lists what a settlement batch touched.
type ConsumeResult struct {
	Processed int
	Fills     int
	Outs      int
	Events    []eventqueue.Event
	Touched   []*OpenOrders
}

// ConsumeEvents applies up to limit queued events, oldest first, to their
// owners' balances. The batch is all or nothing: touched records are
// changed on copies that are written back, and the events popped, only when
// every event applied cleanly.
func ConsumeEvents(q *eventqueue.Queue, lookup OpenOrdersLookup, limit int, allowNoOp bool) (ConsumeResult, error) {
	var res ConsumeResult
	work := map[orderbook.CallbackInfo]*OpenOrders{}
	var order []orderbook.CallbackInfo

	for i := 0; i < limit; i++ {
		ev, ok := q.Peek(i)
		if !ok {
			break
		}

		oo, seen := work[ev.Owner]
		if !seen {
			orig, found := lookup.Lookup(ev.Owner)
			if !found {
				return ConsumeResult{}, ErrMissingOpenOrders
			}
			oo = orig.Clone()
			work[ev.Owner] = oo
			order = append(order, ev.Owner)
		}
		if oo.Side != ev.Side {
			return ConsumeResult{}, ErrUserSideDiffFromEventSide
		}

		var err error
		switch ev.Kind {
		case eventqueue.Fill:
			err = applyFill(oo, ev)
			res.Fills++
		case eventqueue.Out:
			err = applyOut(oo, ev)
			res.Outs++
		}
		if err != nil {
			return ConsumeResult{}, err
		}
		res.Processed++
		res.Events = append(res.Events, ev)
	}

	if res.Processed == 0 && !allowNoOp {
		return ConsumeResult{}, ErrNoEventsProcessed
	}

	for _, id := range order {
		orig, _ := lookup.Lookup(id)
		*orig = *work[id]
		res.Touched = append(res.Touched, orig)
	}
	q.PopN(res.Processed)
	return res, nil
}

func applyFill(oo *OpenOrders, ev eventqueue.Event) error {
	if ev.Side == orderbook.Ask {
		return oo.settle(Base, ev.BaseSize, Quote, ev.QuoteSize)
	}
	return oo.settle(Quote, ev.QuoteSize, Base, ev.BaseSize)
}

func applyOut(oo *OpenOrders, ev eventqueue.Event) error {
	if ev.Side == orderbook.Ask {
		if err := oo.unlockToFree(Base, ev.BaseSize); err != nil {
			return err
		}
	} else {
		quote, err := fp32.Mul(ev.BaseSize, ev.OrderID.Price())
		if err != nil {
			return ErrNumericalOverflow
		}
		if err := oo.unlockToFree(Quote, quote); err != nil {
			return err
		}
	}

	idx := oo.indexOf(ev.OrderID)
	if idx < 0 {
		return ErrOrderIDNotFound
	}
	oo.removeOrder(idx)
	return oo.sweepDust()
}
