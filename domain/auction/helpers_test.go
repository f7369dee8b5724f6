package auction

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

const (
	tStart      = 1_000
	tEndOrder   = 2_000
	tEndDecrypt = 3_000

	inOrderPhase      = tStart + 1
	inDecryptionPhase = tEndOrder + 1
	afterDecryption   = tEndDecrypt
)

func px(n uint64) uint64 { return n * fp32.One }

func newTestAuction(t *testing.T, asksEncrypted, bidsEncrypted bool) *Auction {
	t.Helper()
	var pub []byte
	if asksEncrypted || bidsEncrypted {
		pub = bytes.Repeat([]byte{7}, 32)
	}
	a, err := NewAuction(InitAuctionArgs{
		ID:                 "test-auction",
		Authority:          "auctioneer",
		BaseAsset:          "BASE",
		QuoteAsset:         "QUOTE",
		EncryptionPubkey:   pub,
		StartOrderPhase:    tStart,
		EndOrderPhase:      tEndOrder,
		EndDecryptionPhase: tEndDecrypt,
		AreAsksEncrypted:   asksEncrypted,
		AreBidsEncrypted:   bidsEncrypted,
		MinBaseOrderSize:   1,
		TickSize:           fp32.One,
	}, tStart-10)
	require.NoError(t, err)
	return a
}

func ownerID(name string) orderbook.CallbackInfo {
	var id orderbook.CallbackInfo
	copy(id[:], name)
	return id
}

func newTestOpenOrders(t *testing.T, a *Auction, owner string, side orderbook.Side) *OpenOrders {
	t.Helper()
	oo, _, err := InitOpenOrders(a, ownerID(owner), owner, side, MaxOrdersLimit, inOrderPhase)
	require.NoError(t, err)
	return oo
}

// memLedger records vault movements per owner and asset.
type memLedger struct {
	locked      map[string]uint64
	transferred map[string]uint64
	fail        error
}

func newMemLedger() *memLedger {
	return &memLedger{locked: map[string]uint64{}, transferred: map[string]uint64{}}
}

func (l *memLedger) Lock(owner string, asset Asset, amount uint64) error {
	if l.fail != nil {
		return l.fail
	}
	l.locked[owner+"/"+asset.String()] += amount
	return nil
}

func (l *memLedger) Transfer(owner string, asset Asset, amount uint64) error {
	if l.fail != nil {
		return l.fail
	}
	l.transferred[owner+"/"+asset.String()] += amount
	return nil
}

// rest puts an order straight into the book on behalf of oo, keeping its
// balances consistent with what NewOrder would have locked.
func rest(t *testing.T, book *orderbook.OrderBook, oo *OpenOrders, price, qty uint64) orderbook.Key {
	t.Helper()
	sum, err := book.NewOrder(orderbook.NewOrderParams{
		Side: oo.Side, LimitPrice: price, MaxBaseQty: qty, MaxQuoteQty: ^uint64(0), Owner: oo.ID,
	}, 1)
	require.NoError(t, err)
	oo.Orders = append(oo.Orders, sum.PostedOrderID)
	if oo.Side == orderbook.Ask {
		oo.BaseTokenLocked += sum.TotalBaseQty
	} else {
		oo.QuoteTokenLocked += sum.TotalQuoteQty
	}
	return sum.PostedOrderID
}

func discover(t *testing.T, a *Auction, book *orderbook.OrderBook) {
	t.Helper()
	_, err := CalculateClearingPrice(a, book, afterDecryption, 1_000)
	require.NoError(t, err)
	require.True(t, a.HasFoundClearingPrice)
}

func drainMatching(t *testing.T, a *Auction, book *orderbook.OrderBook, q *eventqueue.Queue) {
	t.Helper()
	for !book.IsEmpty() {
		_, err := MatchOrders(a, book, q, 1_000)
		require.NoError(t, err)
	}
}

// plainOpener treats ciphertext as plaintext but insists on the right key.
type plainOpener struct{ key []byte }

var errBadKey = errors.New("bad key")

func (o plainOpener) Open(sharedKey, nonce, ciphertext []byte) ([]byte, error) {
	if !bytes.Equal(sharedKey, o.key) {
		return nil, errBadKey
	}
	return ciphertext, nil
}
