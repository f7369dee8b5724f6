package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/outbox"
	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
)

var bg = context.Background()

// runRound plays a complete plain auction: one bid at 100 for 10 against
// one ask at 90 for 10, cleared at 100.
func runRound(t *testing.T, h *harness) (bidder, asker Account) {
	t.Helper()
	h.initAuction(t, "sol-usdc")
	bidder = h.openOrders(t, "sol-usdc", "alice", orderbook.Bid)
	asker = h.openOrders(t, "sol-usdc", "bob", orderbook.Ask)
	h.order(t, bidder, px(100), 10)
	h.order(t, asker, px(90), 10)

	h.clock.Set(tEndDecrypt)
	res, err := h.svc.CalculateClearingPrice(bg, CalculateClearingPriceRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.True(t, res.Found)

	// one call per side
	for i := 0; i < 2; i++ {
		_, err = h.svc.MatchOrders(bg, MatchOrdersRequest{AuctionID: "sol-usdc", Limit: 8})
		require.NoError(t, err)
	}

	cons, err := h.svc.ConsumeEvents(bg, ConsumeEventsRequest{
		AuctionID:  "sol-usdc",
		Candidates: []string{bidder.id().String(), asker.id().String()},
		Limit:      16,
	})
	require.NoError(t, err)
	require.Equal(t, 4, cons.Processed)

	_, err = h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: bidder})
	require.NoError(t, err)
	_, err = h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: asker})
	require.NoError(t, err)
	_, err = h.svc.CloseAuctionResources(bg, CloseAuctionRequest{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	return bidder, asker
}

func TestFullRound(t *testing.T) {
	h := newHarness(t, false)
	h.initAuction(t, "sol-usdc")
	bidder := h.openOrders(t, "sol-usdc", "alice", orderbook.Bid)
	asker := h.openOrders(t, "sol-usdc", "bob", orderbook.Ask)

	phase, err := h.svc.Phase(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, auction.PhaseOrder, phase)

	h.order(t, bidder, px(100), 10)
	h.order(t, asker, px(90), 10)

	v, err := h.svc.Vaults(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, Vaults{Base: 10, Quote: 1000}, v)

	view, err := h.svc.BookView(bg, "sol-usdc", 0)
	require.NoError(t, err)
	require.Equal(t, []orderbook.PriceLevel{{Price: px(100), TotalQty: 10, OrderCount: 1}}, view.Bids)
	require.Equal(t, []orderbook.PriceLevel{{Price: px(90), TotalQty: 10, OrderCount: 1}}, view.Asks)

	h.clock.Set(tEndDecrypt)
	phase, err = h.svc.Phase(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, auction.PhaseClearingDiscovery, phase)

	_, err = h.svc.CalculateClearingPrice(bg, CalculateClearingPriceRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	a, err := h.svc.GetAuction(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, px(100), a.ClearingPrice)
	require.Equal(t, uint64(10), a.TotalQuantityMatched)

	res, err := h.svc.MatchOrders(bg, MatchOrdersRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.Equal(t, orderbook.Bid, res.Side)
	phase, err = h.svc.Phase(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, auction.PhaseMatching, phase)

	res, err = h.svc.MatchOrders(bg, MatchOrdersRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.Equal(t, orderbook.Ask, res.Side)
	phase, err = h.svc.Phase(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, auction.PhaseSettlement, phase)

	_, err = h.svc.ConsumeEvents(bg, ConsumeEventsRequest{
		AuctionID:  "sol-usdc",
		Candidates: []string{bidder.id().String(), asker.id().String()},
		Limit:      16,
	})
	require.NoError(t, err)

	oo, err := h.svc.GetOpenOrders(bg, bidder)
	require.NoError(t, err)
	require.Equal(t, uint64(10), oo.BaseTokenFree)
	require.Zero(t, oo.QuoteTokenLocked)

	hist, err := h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: bidder})
	require.NoError(t, err)
	require.Equal(t, uint64(10), hist.BaseAmountReturned)
	hist, err = h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: asker})
	require.NoError(t, err)
	require.Equal(t, uint64(1000), hist.QuoteAmountReturned)

	stored, err := h.svc.GetOrderHistory(bg, asker)
	require.NoError(t, err)
	require.Equal(t, hist, stored)
	_, err = h.svc.GetOpenOrders(bg, asker)
	require.ErrorIs(t, err, auction.ErrOpenOrdersNotFound)

	v, err = h.svc.Vaults(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, Vaults{}, v)

	_, err = h.svc.CloseAuctionResources(bg, CloseAuctionRequest{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	phase, err = h.svc.Phase(bg, "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, auction.PhaseClosed, phase)

	_, err = h.svc.BookView(bg, "sol-usdc", 0)
	require.ErrorIs(t, err, auction.ErrAuctionClosed)
	_, err = h.svc.CloseAuctionResources(bg, CloseAuctionRequest{AuctionID: "sol-usdc"})
	require.ErrorIs(t, err, auction.ErrAuctionClosed)
}

func TestRoundWritesNotifications(t *testing.T) {
	h := newHarness(t, false)
	runRound(t, h)

	var types []string
	require.NoError(t, outbox.New(h.st).Pending(func(r outbox.Record) error {
		types = append(types, r.Type)
		return nil
	}))
	require.Equal(t, []string{
		outbox.TypeClearingPriceFound,
		outbox.TypeOrderFilled, outbox.TypeOrderOut,
		outbox.TypeOrderFilled, outbox.TypeOrderOut,
		outbox.TypeOpenOrdersClosed, outbox.TypeOpenOrdersClosed,
	}, types)

	first, err := outbox.New(h.st).Get(1)
	require.NoError(t, err)
	var env outbox.Envelope
	require.NoError(t, json.Unmarshal(first.Payload, &env))
	var found outbox.ClearingPriceFound
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Equal(t, "100", found.ClearingPrice)
	require.Equal(t, uint64(10), found.TotalQuantityMatched)
}

func TestRejectedInstructionLeavesNoTrace(t *testing.T) {
	h := newHarness(t, true)
	h.initAuction(t, "sol-usdc")
	bidder := h.openOrders(t, "sol-usdc", "alice", orderbook.Bid)
	before := dump(t, h.st)
	seq := h.journal.LastSeq()

	_, err := h.svc.NewOrder(bg, NewOrderRequest{Account: bidder, LimitPrice: px(100) + 1, MaxBaseQty: 10})
	require.ErrorIs(t, err, auction.ErrLimitPriceNotAMultipleOfTick)
	_, err = h.svc.NewOrder(bg, NewOrderRequest{Account: bidder, LimitPrice: px(100), MaxBaseQty: 0})
	require.ErrorIs(t, err, auction.ErrOrderBelowMinBaseOrderSize)

	require.Equal(t, before, dump(t, h.st))
	require.Equal(t, seq, h.journal.LastSeq())

	h.order(t, bidder, px(100), 1)
	require.Equal(t, seq+1, h.journal.LastSeq())
}

func TestMissingAndDuplicateRecords(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.GetAuction(bg, "nope")
	require.ErrorIs(t, err, auction.ErrAuctionNotFound)
	_, err = h.svc.MatchOrders(bg, MatchOrdersRequest{AuctionID: "nope", Limit: 1})
	require.ErrorIs(t, err, auction.ErrAuctionNotFound)

	h.initAuction(t, "a1")
	_, err = h.svc.InitAuction(bg, InitAuctionRequest{
		ID: "a1", Authority: "x", StartOrderPhase: tStart, EndOrderPhase: tEndOrder,
		EndDecryptionPhase: tEndDecrypt, MinBaseOrderSize: 1, TickSize: 1,
	})
	require.ErrorIs(t, err, auction.ErrAuctionAlreadyExists)

	acc := h.openOrders(t, "a1", "alice", orderbook.Ask)
	_, err = h.svc.InitOpenOrders(bg, InitOpenOrdersRequest{Account: acc, MaxOrders: 2})
	require.ErrorIs(t, err, auction.ErrOpenOrdersAlreadyExists)

	_, err = h.svc.NewOrder(bg, NewOrderRequest{Account: Account{AuctionID: "a1", Owner: "bob", Side: orderbook.Ask}, LimitPrice: px(1), MaxBaseQty: 1})
	require.ErrorIs(t, err, auction.ErrOpenOrdersNotFound)

	_, err = h.svc.GetOrderHistory(bg, Account{AuctionID: "a1", Owner: "bob", Side: orderbook.Ask})
	require.ErrorIs(t, err, auction.ErrOrderHistoryNotFound)

	_, err = h.svc.ConsumeEvents(bg, ConsumeEventsRequest{AuctionID: "a1", Candidates: []string{"zz"}, Limit: 1})
	require.ErrorIs(t, err, auction.ErrMissingOpenOrders)

	list, err := h.svc.ListOpenOrders(bg, "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCancelOrderRefunds(t *testing.T) {
	h := newHarness(t, false)
	h.initAuction(t, "a1")
	bidder := h.openOrders(t, "a1", "alice", orderbook.Bid)
	sum := h.order(t, bidder, px(3), 7)

	leaf, err := h.svc.CancelOrder(bg, CancelOrderRequest{Account: bidder, OrderID: sum.PostedOrderID})
	require.NoError(t, err)
	require.Equal(t, uint64(7), leaf.BaseQuantity)

	oo, err := h.svc.GetOpenOrders(bg, bidder)
	require.NoError(t, err)
	require.Zero(t, oo.QuoteTokenLocked)
	require.Equal(t, uint64(21), oo.QuoteTokenFree)

	_, err = h.svc.CancelOrder(bg, CancelOrderRequest{Account: bidder, OrderID: sum.PostedOrderID})
	require.ErrorIs(t, err, auction.ErrOrderIDNotFound)

	view, err := h.svc.BookView(bg, "a1", 0)
	require.NoError(t, err)
	require.Empty(t, view.Bids)
}

func TestEncryptedAsks(t *testing.T) {
	h := newHarness(t, true)
	aucPub, aucPriv, err := sealbox.GenerateKey(nil)
	require.NoError(t, err)
	h.initAuction(t, "sealed", func(r *InitAuctionRequest) {
		r.AreAsksEncrypted = true
		r.EncryptionPubkey = aucPub
	})
	asker := h.openOrders(t, "sealed", "bob", orderbook.Ask)

	bobPub, bobPriv, err := sealbox.GenerateKey(nil)
	require.NoError(t, err)
	shared, err := sealbox.Precompute(aucPub, bobPriv)
	require.NoError(t, err)
	nonce := bytes.Repeat([]byte{3}, sealbox.NonceSize)
	ct, err := sealbox.Seal(shared, nonce, sealbox.EncodeOrder(px(90), 8))
	require.NoError(t, err)

	_, err = h.svc.NewOrder(bg, NewOrderRequest{Account: asker, LimitPrice: px(90), MaxBaseQty: 8})
	require.ErrorIs(t, err, auction.ErrEncryptedOrdersOnlyOnThisSide)

	idx, err := h.svc.NewEncryptedOrder(bg, NewEncryptedOrderRequest{
		Account: asker, TokenQty: 10, Pubkey: bobPub, Nonce: nonce, Ciphertext: ct,
	})
	require.NoError(t, err)
	require.Zero(t, idx)

	_, err = h.svc.DecryptOrders(bg, DecryptOrdersRequest{Account: asker, SharedKey: shared})
	require.ErrorIs(t, err, auction.ErrDecryptionPhaseNotActive)

	h.clock.Set(tEndOrder)
	auctioneerShared, err := sealbox.Precompute(bobPub, aucPriv)
	require.NoError(t, err)

	_, err = h.svc.DecryptOrders(bg, DecryptOrdersRequest{Account: asker, SharedKey: bytes.Repeat([]byte{1}, 32)})
	require.ErrorIs(t, err, auction.ErrInvalidSharedKey)

	res, err := h.svc.DecryptOrders(bg, DecryptOrdersRequest{Account: asker, SharedKey: auctioneerShared})
	require.NoError(t, err)
	require.Len(t, res.Posted, 1)
	require.Equal(t, uint64(2), res.Freed)

	oo, err := h.svc.GetOpenOrders(bg, asker)
	require.NoError(t, err)
	require.Equal(t, uint64(8), oo.BaseTokenLocked)
	require.Equal(t, uint64(2), oo.BaseTokenFree)
	require.Empty(t, oo.EncryptedOrders)
}

func TestCancelEncryptedOrderAfterDecryption(t *testing.T) {
	h := newHarness(t, false)
	h.initAuction(t, "sealed", func(r *InitAuctionRequest) {
		r.AreBidsEncrypted = true
		r.EncryptionPubkey = bytes.Repeat([]byte{7}, 32)
	})
	bidder := h.openOrders(t, "sealed", "alice", orderbook.Bid)
	_, err := h.svc.NewEncryptedOrder(bg, NewEncryptedOrderRequest{
		Account: bidder, TokenQty: 500, Pubkey: bytes.Repeat([]byte{1}, 32),
		Nonce: bytes.Repeat([]byte{2}, 24), Ciphertext: []byte("never opened"),
	})
	require.NoError(t, err)

	h.clock.Set(tEndOrder + 1)
	_, err = h.svc.CancelEncryptedOrder(bg, CancelEncryptedOrderRequest{Account: bidder, Index: 0})
	require.ErrorIs(t, err, auction.ErrOrderPhaseNotActive)

	h.clock.Set(tEndDecrypt)
	enc, err := h.svc.CancelEncryptedOrder(bg, CancelEncryptedOrderRequest{Account: bidder, Index: 0})
	require.NoError(t, err)
	require.Equal(t, uint64(500), enc.TokenQty)

	hist, err := h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: bidder})
	require.NoError(t, err)
	require.Equal(t, uint64(500), hist.QuoteAmountReturned)
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t, false)
	ctx, cancel := context.WithCancel(bg)
	cancel()
	_, err := h.svc.GetAuction(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	_, err = h.svc.MatchOrders(ctx, MatchOrdersRequest{AuctionID: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestJournalSeqCommittedWithState(t *testing.T) {
	h := newHarness(t, true)
	runRound(t, h)
	require.NoError(t, h.st.View(func(tx *store.Txn) error {
		seq, err := tx.JournalSeq()
		require.NoError(t, err)
		require.Equal(t, h.journal.LastSeq(), seq)
		return nil
	}))
}

func TestFractionalClearingPriceSettlesEveryone(t *testing.T) {
	h := newHarness(t, false)
	half := fp32.One / 2
	h.initAuction(t, "a1", func(r *InitAuctionRequest) { r.TickSize = half })
	alice := h.openOrders(t, "a1", "alice", orderbook.Bid)
	carol := h.openOrders(t, "a1", "carol", orderbook.Bid)
	bob := h.openOrders(t, "a1", "bob", orderbook.Ask)
	h.order(t, alice, 3*half, 1)
	h.order(t, carol, 3*half, 1)
	h.order(t, bob, 3*half, 2)

	v, err := h.svc.Vaults(bg, "a1")
	require.NoError(t, err)
	require.Equal(t, Vaults{Base: 2, Quote: 2}, v)

	h.clock.Set(tEndDecrypt)
	res, err := h.svc.CalculateClearingPrice(bg, CalculateClearingPriceRequest{AuctionID: "a1", Limit: 8})
	require.NoError(t, err)
	require.True(t, res.Found)
	for i := 0; i < 2; i++ {
		_, err = h.svc.MatchOrders(bg, MatchOrdersRequest{AuctionID: "a1", Limit: 8})
		require.NoError(t, err)
	}
	cons, err := h.svc.ConsumeEvents(bg, ConsumeEventsRequest{
		AuctionID:  "a1",
		Candidates: []string{alice.id().String(), carol.id().String(), bob.id().String()},
		Limit:      16,
	})
	require.NoError(t, err)
	require.Equal(t, 6, cons.Processed)

	hist, err := h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: bob})
	require.NoError(t, err)
	require.Equal(t, uint64(2), hist.QuoteAmountReturned)
	for _, acc := range []Account{alice, carol} {
		hist, err = h.svc.SettleAndCloseOpenOrders(bg, SettleAndCloseRequest{Account: acc})
		require.NoError(t, err)
		require.Equal(t, uint64(1), hist.BaseAmountReturned)
	}

	v, err = h.svc.Vaults(bg, "a1")
	require.NoError(t, err)
	require.Equal(t, Vaults{}, v)
}

func TestNotifyOutOverflow(t *testing.T) {
	st := openMemStore(t)
	tx := st.Begin()
	defer tx.Discard()

	err := notifySettled(tx, "a1", nil, []eventqueue.Event{{
		Kind:     eventqueue.Out,
		Side:     orderbook.Bid,
		OrderID:  orderbook.NewKey(orderbook.Bid, px(1<<20), 1),
		BaseSize: math.MaxUint64,
	}})
	require.ErrorIs(t, err, auction.ErrNumericalOverflow)
}
