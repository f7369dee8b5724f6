package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/infra/wal/entry"
)

const (
	tStart      = 1_000
	tEndOrder   = 2_000
	tEndDecrypt = 3_000
)

func px(n uint64) uint64 { return n * fp32.One }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(sec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(sec, 123)
}

type harness struct {
	svc     *AuctionService
	st      *store.Store
	clock   *testClock
	journal *entry.WAL
	dir     string
}

func openMemStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("state", store.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newHarness builds a service over an in-memory store. With journaled set
// the journal lives in a temp dir.
func newHarness(t *testing.T, journaled bool) *harness {
	t.Helper()
	h := &harness{st: openMemStore(t), clock: &testClock{}}
	h.clock.Set(tStart)

	if journaled {
		h.dir = t.TempDir()
		w, err := entry.Open(entry.Config{Dir: h.dir, SegmentSize: 1 << 20})
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })
		h.journal = w
	}

	svc, err := New(Options{
		Store:         h.st,
		Journal:       h.journal,
		Opener:        sealbox.Opener{},
		Clock:         h.clock.Now,
		Logger:        zerolog.Nop(),
		BookCapacity:  64,
		EventCapacity: 64,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) initAuction(t *testing.T, id string, mutate ...func(*InitAuctionRequest)) {
	t.Helper()
	req := InitAuctionRequest{
		ID:                 id,
		Authority:          "auctioneer",
		BaseAsset:          "SOL",
		QuoteAsset:         "USDC",
		StartOrderPhase:    tStart,
		EndOrderPhase:      tEndOrder,
		EndDecryptionPhase: tEndDecrypt,
		MinBaseOrderSize:   1,
		TickSize:           fp32.One,
	}
	for _, m := range mutate {
		m(&req)
	}
	_, err := h.svc.InitAuction(context.Background(), req)
	require.NoError(t, err)
}

func (h *harness) openOrders(t *testing.T, auctionID, owner string, side orderbook.Side) Account {
	t.Helper()
	acc := Account{AuctionID: auctionID, Owner: owner, Side: side}
	_, err := h.svc.InitOpenOrders(context.Background(), InitOpenOrdersRequest{Account: acc, MaxOrders: 4})
	require.NoError(t, err)
	return acc
}

func (h *harness) order(t *testing.T, acc Account, price, qty uint64) orderbook.OrderSummary {
	t.Helper()
	sum, err := h.svc.NewOrder(context.Background(), NewOrderRequest{Account: acc, LimitPrice: price, MaxBaseQty: qty})
	require.NoError(t, err)
	return sum
}

// dump returns every key and value in the store.
func dump(t *testing.T, st *store.Store) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, st.View(func(tx *store.Txn) error {
		return tx.Scan(nil, func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	}))
	return out
}
