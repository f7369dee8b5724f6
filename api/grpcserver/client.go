package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls AuctionHouse over any connection, always with the json
// codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InitAuction(ctx context.Context, in *InitAuctionRequest, opts ...grpc.CallOption) (*Auction, error) {
	return invoke[InitAuctionRequest, Auction](ctx, c, "InitAuction", in, opts)
}

func (c *Client) InitOpenOrders(ctx context.Context, in *InitOpenOrdersRequest, opts ...grpc.CallOption) (*OpenOrders, error) {
	return invoke[InitOpenOrdersRequest, OpenOrders](ctx, c, "InitOpenOrders", in, opts)
}

func (c *Client) NewOrder(ctx context.Context, in *NewOrderRequest, opts ...grpc.CallOption) (*NewOrderResponse, error) {
	return invoke[NewOrderRequest, NewOrderResponse](ctx, c, "NewOrder", in, opts)
}

func (c *Client) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	return invoke[CancelOrderRequest, Order](ctx, c, "CancelOrder", in, opts)
}

func (c *Client) NewEncryptedOrder(ctx context.Context, in *NewEncryptedOrderRequest, opts ...grpc.CallOption) (*NewEncryptedOrderResponse, error) {
	return invoke[NewEncryptedOrderRequest, NewEncryptedOrderResponse](ctx, c, "NewEncryptedOrder", in, opts)
}

func (c *Client) CancelEncryptedOrder(ctx context.Context, in *CancelEncryptedOrderRequest, opts ...grpc.CallOption) (*CancelEncryptedOrderResponse, error) {
	return invoke[CancelEncryptedOrderRequest, CancelEncryptedOrderResponse](ctx, c, "CancelEncryptedOrder", in, opts)
}

func (c *Client) DecryptOrders(ctx context.Context, in *DecryptOrdersRequest, opts ...grpc.CallOption) (*DecryptOrdersResponse, error) {
	return invoke[DecryptOrdersRequest, DecryptOrdersResponse](ctx, c, "DecryptOrders", in, opts)
}

func (c *Client) CalculateClearingPrice(ctx context.Context, in *CrankRequest, opts ...grpc.CallOption) (*ClearingResponse, error) {
	return invoke[CrankRequest, ClearingResponse](ctx, c, "CalculateClearingPrice", in, opts)
}

func (c *Client) MatchOrders(ctx context.Context, in *CrankRequest, opts ...grpc.CallOption) (*MatchResponse, error) {
	return invoke[CrankRequest, MatchResponse](ctx, c, "MatchOrders", in, opts)
}

func (c *Client) ConsumeEvents(ctx context.Context, in *ConsumeEventsRequest, opts ...grpc.CallOption) (*ConsumeEventsResponse, error) {
	return invoke[ConsumeEventsRequest, ConsumeEventsResponse](ctx, c, "ConsumeEvents", in, opts)
}

func (c *Client) SettleAndCloseOpenOrders(ctx context.Context, in *Account, opts ...grpc.CallOption) (*OrderHistory, error) {
	return invoke[Account, OrderHistory](ctx, c, "SettleAndCloseOpenOrders", in, opts)
}

func (c *Client) CloseAuctionResources(ctx context.Context, in *AuctionRef, opts ...grpc.CallOption) (*Auction, error) {
	return invoke[AuctionRef, Auction](ctx, c, "CloseAuctionResources", in, opts)
}

func (c *Client) GetAuction(ctx context.Context, in *AuctionRef, opts ...grpc.CallOption) (*Auction, error) {
	return invoke[AuctionRef, Auction](ctx, c, "GetAuction", in, opts)
}

func (c *Client) GetOpenOrders(ctx context.Context, in *Account, opts ...grpc.CallOption) (*OpenOrders, error) {
	return invoke[Account, OpenOrders](ctx, c, "GetOpenOrders", in, opts)
}

func (c *Client) GetOrderHistory(ctx context.Context, in *Account, opts ...grpc.CallOption) (*OrderHistory, error) {
	return invoke[Account, OrderHistory](ctx, c, "GetOrderHistory", in, opts)
}

func (c *Client) GetBook(ctx context.Context, in *BookRequest, opts ...grpc.CallOption) (*Book, error) {
	return invoke[BookRequest, Book](ctx, c, "GetBook", in, opts)
}

func (c *Client) GetPhase(ctx context.Context, in *AuctionRef, opts ...grpc.CallOption) (*PhaseResponse, error) {
	return invoke[AuctionRef, PhaseResponse](ctx, c, "GetPhase", in, opts)
}
