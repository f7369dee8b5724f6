package auction

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Henry-E/auction-house/domain/orderbook"
)

type level struct{ price, qty uint64 }

func bookWith(t *testing.T, a *Auction, bids, asks []level) (*orderbook.OrderBook, *OpenOrders, *OpenOrders) {
	t.Helper()
	book := orderbook.NewOrderBook(512)
	bidder := newTestOpenOrders(t, a, "bidder", orderbook.Bid)
	asker := newTestOpenOrders(t, a, "asker", orderbook.Ask)
	bidder.MaxOrders, asker.MaxOrders = 255, 255
	for _, l := range bids {
		rest(t, book, bidder, px(l.price), l.qty)
	}
	for _, l := range asks {
		rest(t, book, asker, px(l.price), l.qty)
	}
	return book, bidder, asker
}

func TestClearingSingleCross(t *testing.T) {
	a := newTestAuction(t, false, false)
	book, _, _ := bookWith(t, a, []level{{100, 10}}, []level{{90, 10}})

	res, err := CalculateClearingPrice(a, book, afterDecryption, 10)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, px(100), a.ClearingPrice)
	require.Equal(t, px(100), a.FinalBidPrice)
	require.Equal(t, px(90), a.FinalAskPrice)
	require.Equal(t, uint64(10), a.TotalQuantityMatched)
	require.Equal(t, uint64(10), a.RemainingBidFills)
	require.Equal(t, uint64(10), a.RemainingAskFills)
}

func TestClearingWalksSeveralLevels(t *testing.T) {
	a := newTestAuction(t, false, false)
	book, _, _ := bookWith(t, a,
		[]level{{110, 5}, {100, 10}, {90, 5}},
		[]level{{80, 8}, {95, 6}, {105, 10}},
	)

	res, err := CalculateClearingPrice(a, book, afterDecryption, 10)
	require.NoError(t, err)
	require.Equal(t, 3, res.Steps)
	require.Equal(t, uint64(14), a.TotalQuantityMatched)
	require.Equal(t, px(100), a.ClearingPrice)
	require.Equal(t, px(95), a.FinalAskPrice)
}

func TestClearingEqualRemainingAdvancesAskFirst(t *testing.T) {
	a := newTestAuction(t, false, false)
	book, _, _ := bookWith(t, a,
		[]level{{100, 5}, {95, 5}},
		[]level{{90, 5}, {92, 5}},
	)

	res, err := CalculateClearingPrice(a, book, afterDecryption, 1)
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Equal(t, px(100), a.CurrentBidKey.Price())
	require.Equal(t, px(92), a.CurrentAskKey.Price())
	require.Equal(t, uint64(5), a.CurrentBidQuantityFilled)

	_, err = CalculateClearingPrice(a, book, afterDecryption, 10)
	require.NoError(t, err)
	require.True(t, a.HasFoundClearingPrice)
	require.Equal(t, uint64(10), a.TotalQuantityMatched)
	require.Equal(t, px(95), a.ClearingPrice)
}

func TestClearingNoCrossPossible(t *testing.T) {
	cases := map[string]struct {
		bids, asks []level
	}{
		"empty asks":    {bids: []level{{100, 1}}},
		"empty bids":    {asks: []level{{100, 1}}},
		"empty book":    {},
		"ask above bid": {bids: []level{{90, 1}}, asks: []level{{100, 1}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			a := newTestAuction(t, false, false)
			book, _, _ := bookWith(t, a, tc.bids, tc.asks)

			res, err := CalculateClearingPrice(a, book, afterDecryption, 10)
			require.NoError(t, err)
			require.True(t, res.Found)
			require.Zero(t, res.Steps)
			require.True(t, a.HasFoundClearingPrice)
			require.Zero(t, a.TotalQuantityMatched)
			require.Zero(t, a.RemainingBidFills)
		})
	}
}

func TestClearingPhaseGuards(t *testing.T) {
	a := newTestAuction(t, false, false)
	book, _, _ := bookWith(t, a, []level{{100, 10}}, []level{{90, 10}})

	_, err := CalculateClearingPrice(a, book, inDecryptionPhase, 10)
	require.ErrorIs(t, err, ErrCalcClearingPricePhaseNotActive)

	discover(t, a, book)
	_, err = CalculateClearingPrice(a, book, afterDecryption, 10)
	require.ErrorIs(t, err, ErrCalcClearingPricePhaseNotActive)
	require.True(t, a.HasFoundClearingPrice)
}

func TestClearingMissingCursorNode(t *testing.T) {
	a := newTestAuction(t, false, false)
	book, _, _ := bookWith(t, a, []level{{100, 10}, {99, 10}}, []level{{90, 5}, {91, 5}})

	_, err := CalculateClearingPrice(a, book, afterDecryption, 0)
	require.NoError(t, err)
	require.True(t, a.Initialized())

	book.RemoveByKey(orderbook.Bid, a.CurrentBidKey)
	_, err = CalculateClearingPrice(a, book, afterDecryption, 10)
	require.ErrorIs(t, err, ErrNodeKeyNotFound)
	require.False(t, a.HasFoundClearingPrice)
}

func drawLevels(t *rapid.T, label string) []level {
	n := rapid.IntRange(0, 40).Draw(t, label+"_n")
	out := make([]level, n)
	for i := range out {
		out[i] = level{
			price: rapid.Uint64Range(1, 30).Draw(t, label+"_price"),
			qty:   rapid.Uint64Range(1, 50).Draw(t, label+"_qty"),
		}
	}
	return out
}

func TestClearingResumptionIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bids := drawLevels(rt, "bid")
		asks := drawLevels(rt, "ask")
		n := rapid.IntRange(1, 120).Draw(rt, "n")

		once := newTestAuction(t, false, false)
		onceBook, _, _ := bookWith(t, once, bids, asks)
		_, err := CalculateClearingPrice(once, onceBook, afterDecryption, n)
		if err != nil {
			rt.Fatalf("single call: %v", err)
		}

		stepped := newTestAuction(t, false, false)
		steppedBook, _, _ := bookWith(t, stepped, bids, asks)
		for i := 0; i < n && !stepped.HasFoundClearingPrice; i++ {
			if _, err := CalculateClearingPrice(stepped, steppedBook, afterDecryption, 1); err != nil {
				rt.Fatalf("call %d: %v", i, err)
			}
		}

		if !reflect.DeepEqual(once, stepped) {
			rt.Fatalf("state differs:\n once    %+v\n stepped %+v", *once, *stepped)
		}
	})
}

func TestClearingConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bids := drawLevels(rt, "bid")
		asks := drawLevels(rt, "ask")
		a := newTestAuction(t, false, false)
		book, _, _ := bookWith(t, a, bids, asks)

		for !a.HasFoundClearingPrice {
			if _, err := CalculateClearingPrice(a, book, afterDecryption, 3); err != nil {
				rt.Fatalf("discovery: %v", err)
			}
		}
		if a.TotalQuantityMatched != a.TotalQuantityFilledSoFar {
			rt.Fatalf("matched %d != filled %d", a.TotalQuantityMatched, a.TotalQuantityFilledSoFar)
		}

		var bidVol, askVol uint64
		for _, l := range bids {
			bidVol += l.qty
		}
		for _, l := range asks {
			askVol += l.qty
		}
		if a.TotalQuantityMatched > min(bidVol, askVol) {
			rt.Fatalf("matched %d exceeds a side's volume", a.TotalQuantityMatched)
		}
		if a.TotalQuantityMatched > 0 && a.FinalAskPrice > a.ClearingPrice {
			rt.Fatalf("last ask %d above clearing price %d", a.FinalAskPrice, a.ClearingPrice)
		}
	})
}
