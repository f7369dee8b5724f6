package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "auction.v1.AuctionHouse"

// AuctionHouseServer is the method set ServiceDesc dispatches to.
type AuctionHouseServer interface {
	InitAuction(context.Context, *InitAuctionRequest) (*Auction, error)
	InitOpenOrders(context.Context, *InitOpenOrdersRequest) (*OpenOrders, error)
	NewOrder(context.Context, *NewOrderRequest) (*NewOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*Order, error)
	NewEncryptedOrder(context.Context, *NewEncryptedOrderRequest) (*NewEncryptedOrderResponse, error)
	CancelEncryptedOrder(context.Context, *CancelEncryptedOrderRequest) (*CancelEncryptedOrderResponse, error)
	DecryptOrders(context.Context, *DecryptOrdersRequest) (*DecryptOrdersResponse, error)
	CalculateClearingPrice(context.Context, *CrankRequest) (*ClearingResponse, error)
	MatchOrders(context.Context, *CrankRequest) (*MatchResponse, error)
	ConsumeEvents(context.Context, *ConsumeEventsRequest) (*ConsumeEventsResponse, error)
	SettleAndCloseOpenOrders(context.Context, *Account) (*OrderHistory, error)
	CloseAuctionResources(context.Context, *AuctionRef) (*Auction, error)

	GetAuction(context.Context, *AuctionRef) (*Auction, error)
	GetOpenOrders(context.Context, *Account) (*OpenOrders, error)
	GetOrderHistory(context.Context, *Account) (*OrderHistory, error)
	GetBook(context.Context, *BookRequest) (*Book, error)
	GetPhase(context.Context, *AuctionRef) (*PhaseResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuctionHouseServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("InitAuction", AuctionHouseServer.InitAuction),
		unary("InitOpenOrders", AuctionHouseServer.InitOpenOrders),
		unary("NewOrder", AuctionHouseServer.NewOrder),
		unary("CancelOrder", AuctionHouseServer.CancelOrder),
		unary("NewEncryptedOrder", AuctionHouseServer.NewEncryptedOrder),
		unary("CancelEncryptedOrder", AuctionHouseServer.CancelEncryptedOrder),
		unary("DecryptOrders", AuctionHouseServer.DecryptOrders),
		unary("CalculateClearingPrice", AuctionHouseServer.CalculateClearingPrice),
		unary("MatchOrders", AuctionHouseServer.MatchOrders),
		unary("ConsumeEvents", AuctionHouseServer.ConsumeEvents),
		unary("SettleAndCloseOpenOrders", AuctionHouseServer.SettleAndCloseOpenOrders),
		unary("CloseAuctionResources", AuctionHouseServer.CloseAuctionResources),
		unary("GetAuction", AuctionHouseServer.GetAuction),
		unary("GetOpenOrders", AuctionHouseServer.GetOpenOrders),
		unary("GetOrderHistory", AuctionHouseServer.GetOrderHistory),
		unary("GetBook", AuctionHouseServer.GetBook),
		unary("GetPhase", AuctionHouseServer.GetPhase),
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(method string) string { return "/" + ServiceName + "/" + method }

func unary[Req, Resp any](method string, call func(AuctionHouseServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuctionHouseServer), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}
