package grpcserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/service"
)

// Server adapts AuctionService to gRPC.
type Server struct {
	svc *service.AuctionService
}

func NewServer(svc *service.AuctionService) *Server {
	return &Server{svc: svc}
}

// Register exposes s on g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// -------------------- Commands --------------------

func (s *Server) InitAuction(ctx context.Context, req *InitAuctionRequest) (*Auction, error) {
	tick, err := parsePrice("tick_size", req.TickSize)
	if err != nil {
		return nil, err
	}
	a, err := s.svc.InitAuction(ctx, service.InitAuctionRequest{
		ID:                 req.ID,
		Authority:          req.Authority,
		BaseAsset:          req.BaseAsset,
		QuoteAsset:         req.QuoteAsset,
		EncryptionPubkey:   req.EncryptionPubkey,
		StartOrderPhase:    req.StartOrderPhase,
		EndOrderPhase:      req.EndOrderPhase,
		EndDecryptionPhase: req.EndDecryptionPhase,
		AreAsksEncrypted:   req.AreAsksEncrypted,
		AreBidsEncrypted:   req.AreBidsEncrypted,
		MinBaseOrderSize:   req.MinBaseOrderSize,
		TickSize:           tick,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return fromAuction(a), nil
}

func (s *Server) InitOpenOrders(ctx context.Context, req *InitOpenOrdersRequest) (*OpenOrders, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	oo, err := s.svc.InitOpenOrders(ctx, service.InitOpenOrdersRequest{Account: acc, MaxOrders: req.MaxOrders})
	if err != nil {
		return nil, toStatus(err)
	}
	return fromOpenOrders(oo), nil
}

func (s *Server) NewOrder(ctx context.Context, req *NewOrderRequest) (*NewOrderResponse, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice("limit_price", req.LimitPrice)
	if err != nil {
		return nil, err
	}
	sum, err := s.svc.NewOrder(ctx, service.NewOrderRequest{Account: acc, LimitPrice: price, MaxBaseQty: req.MaxBaseQty})
	if err != nil {
		return nil, toStatus(err)
	}
	return fromSummary(sum), nil
}

func (s *Server) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*Order, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	id, err := orderbook.ParseKey(req.OrderID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "order_id: %v", err)
	}
	leaf, err := s.svc.CancelOrder(ctx, service.CancelOrderRequest{Account: acc, OrderID: id})
	if err != nil {
		return nil, toStatus(err)
	}
	return &Order{
		OrderID:      leaf.Key.String(),
		Price:        fp32.Format(leaf.Price()),
		BaseQuantity: leaf.BaseQuantity,
		Owner:        leaf.Owner.String(),
	}, nil
}

func (s *Server) NewEncryptedOrder(ctx context.Context, req *NewEncryptedOrderRequest) (*NewEncryptedOrderResponse, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	idx, err := s.svc.NewEncryptedOrder(ctx, service.NewEncryptedOrderRequest{
		Account:    acc,
		TokenQty:   req.TokenQty,
		Pubkey:     req.Pubkey,
		Nonce:      req.Nonce,
		Ciphertext: req.Ciphertext,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &NewEncryptedOrderResponse{Index: idx}, nil
}

func (s *Server) CancelEncryptedOrder(ctx context.Context, req *CancelEncryptedOrderRequest) (*CancelEncryptedOrderResponse, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	enc, err := s.svc.CancelEncryptedOrder(ctx, service.CancelEncryptedOrderRequest{Account: acc, Index: req.Index})
	if err != nil {
		return nil, toStatus(err)
	}
	return &CancelEncryptedOrderResponse{TokenQty: enc.TokenQty}, nil
}

func (s *Server) DecryptOrders(ctx context.Context, req *DecryptOrdersRequest) (*DecryptOrdersResponse, error) {
	acc, err := toAccount(req.Account)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.DecryptOrders(ctx, service.DecryptOrdersRequest{Account: acc, SharedKey: req.SharedKey})
	if err != nil {
		return nil, toStatus(err)
	}
	out := &DecryptOrdersResponse{Freed: res.Freed}
	for _, sum := range res.Posted {
		out.Posted = append(out.Posted, *fromSummary(sum))
	}
	return out, nil
}

func (s *Server) CalculateClearingPrice(ctx context.Context, req *CrankRequest) (*ClearingResponse, error) {
	res, err := s.svc.CalculateClearingPrice(ctx, service.CalculateClearingPriceRequest{AuctionID: req.AuctionID, Limit: req.Limit})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClearingResponse{Steps: res.Steps, Found: res.Found}, nil
}

func (s *Server) MatchOrders(ctx context.Context, req *CrankRequest) (*MatchResponse, error) {
	res, err := s.svc.MatchOrders(ctx, service.MatchOrdersRequest{AuctionID: req.AuctionID, Limit: req.Limit})
	if err != nil {
		return nil, toStatus(err)
	}
	return &MatchResponse{Side: res.Side.String(), Fills: res.Fills, Removed: res.Removed}, nil
}

func (s *Server) ConsumeEvents(ctx context.Context, req *ConsumeEventsRequest) (*ConsumeEventsResponse, error) {
	res, err := s.svc.ConsumeEvents(ctx, service.ConsumeEventsRequest{
		AuctionID:  req.AuctionID,
		Candidates: req.Candidates,
		Limit:      req.Limit,
		AllowNoOp:  req.AllowNoOp,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ConsumeEventsResponse{Processed: res.Processed, Fills: res.Fills, Outs: res.Outs}, nil
}

func (s *Server) SettleAndCloseOpenOrders(ctx context.Context, req *Account) (*OrderHistory, error) {
	acc, err := toAccount(*req)
	if err != nil {
		return nil, err
	}
	h, err := s.svc.SettleAndCloseOpenOrders(ctx, service.SettleAndCloseRequest{Account: acc})
	if err != nil {
		return nil, toStatus(err)
	}
	return fromHistory(h), nil
}

func (s *Server) CloseAuctionResources(ctx context.Context, req *AuctionRef) (*Auction, error) {
	a, err := s.svc.CloseAuctionResources(ctx, service.CloseAuctionRequest{AuctionID: req.AuctionID})
	if err != nil {
		return nil, toStatus(err)
	}
	return fromAuction(a), nil
}

// -------------------- Queries --------------------

func (s *Server) GetAuction(ctx context.Context, req *AuctionRef) (*Auction, error) {
	a, err := s.svc.GetAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromAuction(a), nil
}

func (s *Server) GetOpenOrders(ctx context.Context, req *Account) (*OpenOrders, error) {
	acc, err := toAccount(*req)
	if err != nil {
		return nil, err
	}
	oo, err := s.svc.GetOpenOrders(ctx, acc)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromOpenOrders(oo), nil
}

func (s *Server) GetOrderHistory(ctx context.Context, req *Account) (*OrderHistory, error) {
	acc, err := toAccount(*req)
	if err != nil {
		return nil, err
	}
	h, err := s.svc.GetOrderHistory(ctx, acc)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromHistory(h), nil
}

func (s *Server) GetBook(ctx context.Context, req *BookRequest) (*Book, error) {
	v, err := s.svc.BookView(ctx, req.AuctionID, req.Depth)
	if err != nil {
		return nil, toStatus(err)
	}
	return &Book{Bids: fromLevels(v.Bids), Asks: fromLevels(v.Asks)}, nil
}

func (s *Server) GetPhase(ctx context.Context, req *AuctionRef) (*PhaseResponse, error) {
	p, err := s.svc.Phase(ctx, req.AuctionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PhaseResponse{Phase: p.String()}, nil
}

// -------------------- Converters --------------------

func toAccount(a Account) (service.Account, error) {
	side, err := orderbook.ParseSide(a.Side)
	if err != nil {
		return service.Account{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return service.Account{AuctionID: a.AuctionID, Owner: a.Owner, Side: side}, nil
}

func parsePrice(field, v string) (uint64, error) {
	p, err := fp32.Parse(v)
	if err != nil {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s: %v", field, err))
	}
	return p, nil
}

func fromAuction(a *auction.Auction) *Auction {
	return &Auction{
		ID:                    a.ID,
		Authority:             a.Authority,
		BaseAsset:             a.BaseAsset,
		QuoteAsset:            a.QuoteAsset,
		StartOrderPhase:       a.StartOrderPhase,
		EndOrderPhase:         a.EndOrderPhase,
		EndDecryptionPhase:    a.EndDecryptionPhase,
		AreAsksEncrypted:      a.AreAsksEncrypted,
		AreBidsEncrypted:      a.AreBidsEncrypted,
		MinBaseOrderSize:      a.MinBaseOrderSize,
		TickSize:              fp32.Format(a.TickSize),
		HasFoundClearingPrice: a.HasFoundClearingPrice,
		ClearingPrice:         fp32.Format(a.ClearingPrice),
		TotalQuantityMatched:  a.TotalQuantityMatched,
		Closed:                a.Closed,
	}
}

func fromOpenOrders(oo *auction.OpenOrders) *OpenOrders {
	out := &OpenOrders{
		ID:               oo.ID.String(),
		Owner:            oo.Owner,
		AuctionID:        oo.AuctionID,
		Side:             oo.Side.String(),
		MaxOrders:        oo.MaxOrders,
		Orders:           make([]string, 0, len(oo.Orders)),
		EncryptedOrders:  len(oo.EncryptedOrders),
		QuoteTokenLocked: oo.QuoteTokenLocked,
		QuoteTokenFree:   oo.QuoteTokenFree,
		BaseTokenLocked:  oo.BaseTokenLocked,
		BaseTokenFree:    oo.BaseTokenFree,
	}
	for _, k := range oo.Orders {
		out.Orders = append(out.Orders, k.String())
	}
	return out
}

func fromSummary(sum orderbook.OrderSummary) *NewOrderResponse {
	return &NewOrderResponse{
		OrderID:       sum.PostedOrderID.String(),
		TotalBaseQty:  sum.TotalBaseQty,
		TotalQuoteQty: sum.TotalQuoteQty,
	}
}

func fromHistory(h *auction.OrderHistory) *OrderHistory {
	return &OrderHistory{
		OpenOrdersID:        h.OpenOrdersID.String(),
		Owner:               h.Owner,
		AuctionID:           h.AuctionID,
		Side:                h.Side.String(),
		QuoteAmountReturned: h.QuoteAmountReturned,
		BaseAmountReturned:  h.BaseAmountReturned,
	}
}

func fromLevels(levels []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, PriceLevel{Price: fp32.Format(l.Price), TotalQty: l.TotalQty, OrderCount: l.OrderCount})
	}
	return out
}
