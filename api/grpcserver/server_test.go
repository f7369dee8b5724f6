package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/service"
)

type testEnv struct {
	client *Client
	now    *atomic.Int64
}

func startServer(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open("state", store.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := &atomic.Int64{}
	now.Store(1_000)
	svc, err := service.New(service.Options{
		Store:  st,
		Opener: sealbox.Opener{},
		Clock:  func() time.Time { return time.Unix(now.Load(), 0) },
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(zerolog.Nop())))
	NewServer(svc).Register(g)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return &testEnv{client: NewClient(cc), now: now}
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, status.Code(err), err.Error())
}

func TestAuctionOverGRPC(t *testing.T) {
	ctx := context.Background()
	env := startServer(t)
	c := env.client

	a, err := c.InitAuction(ctx, &InitAuctionRequest{
		ID:                 "sol-usdc",
		Authority:          "auctioneer",
		BaseAsset:          "SOL",
		QuoteAsset:         "USDC",
		StartOrderPhase:    1_000,
		EndOrderPhase:      2_000,
		EndDecryptionPhase: 3_000,
		MinBaseOrderSize:   1,
		TickSize:           "0.5",
	})
	require.NoError(t, err)
	require.Equal(t, "0.5", a.TickSize)

	alice := Account{AuctionID: "sol-usdc", Owner: "alice", Side: "bid"}
	bob := Account{AuctionID: "sol-usdc", Owner: "bob", Side: "ask"}
	aliceOO, err := c.InitOpenOrders(ctx, &InitOpenOrdersRequest{Account: alice, MaxOrders: 2})
	require.NoError(t, err)
	bobOO, err := c.InitOpenOrders(ctx, &InitOpenOrdersRequest{Account: bob, MaxOrders: 2})
	require.NoError(t, err)

	bid, err := c.NewOrder(ctx, &NewOrderRequest{Account: alice, LimitPrice: "100.5", MaxBaseQty: 10})
	require.NoError(t, err)
	require.Equal(t, uint64(1005), bid.TotalQuoteQty)
	_, err = c.NewOrder(ctx, &NewOrderRequest{Account: bob, LimitPrice: "90", MaxBaseQty: 10})
	require.NoError(t, err)

	book, err := c.GetBook(ctx, &BookRequest{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	require.Equal(t, []PriceLevel{{Price: "100.5", TotalQty: 10, OrderCount: 1}}, book.Bids)
	require.Equal(t, []PriceLevel{{Price: "90", TotalQty: 10, OrderCount: 1}}, book.Asks)

	oo, err := c.GetOpenOrders(ctx, &alice)
	require.NoError(t, err)
	require.Equal(t, []string{bid.OrderID}, oo.Orders)
	require.Equal(t, uint64(1005), oo.QuoteTokenLocked)

	_, err = c.CalculateClearingPrice(ctx, &CrankRequest{AuctionID: "sol-usdc", Limit: 8})
	requireCode(t, err, codes.FailedPrecondition)

	env.now.Store(3_000)
	phase, err := c.GetPhase(ctx, &AuctionRef{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	require.Equal(t, "clearing_discovery", phase.Phase)

	cl, err := c.CalculateClearingPrice(ctx, &CrankRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.True(t, cl.Found)

	a, err = c.GetAuction(ctx, &AuctionRef{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	require.Equal(t, "100.5", a.ClearingPrice)
	require.Equal(t, uint64(10), a.TotalQuantityMatched)

	m, err := c.MatchOrders(ctx, &CrankRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.Equal(t, "bid", m.Side)
	m, err = c.MatchOrders(ctx, &CrankRequest{AuctionID: "sol-usdc", Limit: 8})
	require.NoError(t, err)
	require.Equal(t, "ask", m.Side)

	cons, err := c.ConsumeEvents(ctx, &ConsumeEventsRequest{
		AuctionID:  "sol-usdc",
		Candidates: []string{aliceOO.ID, bobOO.ID},
		Limit:      16,
	})
	require.NoError(t, err)
	require.Equal(t, &ConsumeEventsResponse{Processed: 4, Fills: 2, Outs: 2}, cons)

	h, err := c.SettleAndCloseOpenOrders(ctx, &bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1005), h.QuoteAmountReturned)
	h, err = c.SettleAndCloseOpenOrders(ctx, &alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10), h.BaseAmountReturned)

	_, err = c.GetOpenOrders(ctx, &alice)
	requireCode(t, err, codes.NotFound)
	h, err = c.GetOrderHistory(ctx, &alice)
	require.NoError(t, err)
	require.Equal(t, "bid", h.Side)

	a, err = c.CloseAuctionResources(ctx, &AuctionRef{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	require.True(t, a.Closed)
	phase, err = c.GetPhase(ctx, &AuctionRef{AuctionID: "sol-usdc"})
	require.NoError(t, err)
	require.Equal(t, "closed", phase.Phase)
}

func TestRejectionsMapToStatusCodes(t *testing.T) {
	ctx := context.Background()
	env := startServer(t)
	c := env.client

	_, err := c.GetAuction(ctx, &AuctionRef{AuctionID: "missing"})
	requireCode(t, err, codes.NotFound)

	_, err = c.InitAuction(ctx, &InitAuctionRequest{ID: "a1", Authority: "x", StartOrderPhase: 1_000, EndOrderPhase: 2_000, EndDecryptionPhase: 3_000, MinBaseOrderSize: 1, TickSize: "abc"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = c.InitAuction(ctx, &InitAuctionRequest{ID: "a1", Authority: "x", StartOrderPhase: 1_000, EndOrderPhase: 2_000, EndDecryptionPhase: 3_000, MinBaseOrderSize: 1, TickSize: "1"})
	require.NoError(t, err)

	acc := Account{AuctionID: "a1", Owner: "alice", Side: "up"}
	_, err = c.InitOpenOrders(ctx, &InitOpenOrdersRequest{Account: acc, MaxOrders: 1})
	requireCode(t, err, codes.InvalidArgument)

	acc.Side = "ask"
	_, err = c.InitOpenOrders(ctx, &InitOpenOrdersRequest{Account: acc, MaxOrders: 1})
	require.NoError(t, err)

	_, err = c.NewOrder(ctx, &NewOrderRequest{Account: acc, LimitPrice: "2.5", MaxBaseQty: 1})
	requireCode(t, err, codes.InvalidArgument)

	_, err = c.NewOrder(ctx, &NewOrderRequest{Account: acc, LimitPrice: "2", MaxBaseQty: 1})
	require.NoError(t, err)
	_, err = c.NewOrder(ctx, &NewOrderRequest{Account: acc, LimitPrice: "3", MaxBaseQty: 1})
	requireCode(t, err, codes.ResourceExhausted)

	_, err = c.CancelOrder(ctx, &CancelOrderRequest{Account: acc, OrderID: "not-hex"})
	requireCode(t, err, codes.InvalidArgument)
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{auction.ErrOrderPhaseIsOver, codes.FailedPrecondition},
		{auction.ErrInvalidTickSize, codes.InvalidArgument},
		{auction.ErrEventQueueFull, codes.ResourceExhausted},
		{auction.ErrInvalidSharedKey, codes.Aborted},
		{auction.ErrNumericalOverflow, codes.Internal},
		{auction.ErrMissingOpenOrders, codes.Internal},
		{auction.ErrAuctionNotFound, codes.NotFound},
		{context.Canceled, codes.Canceled},
		{service.ErrNeedsRecovery, codes.Unavailable},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, status.Code(toStatus(tc.err)), tc.err.Error())
	}
}
