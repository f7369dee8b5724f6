package service

import (
	"context"
	"errors"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/ledger"
	"github.com/Henry-E/auction-house/infra/store"
)

// BookView is one auction's resting orders aggregated by price, best
// first on each side.
type BookView struct {
	Bids []orderbook.PriceLevel
	Asks []orderbook.PriceLevel
}

// Vaults holds what the auction custodies and what its ledger says it owes.
type Vaults struct {
	Base  uint64
	Quote uint64
}

func (s *AuctionService) view(ctx context.Context, fn func(tx *store.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.View(fn)
}

func (s *AuctionService) GetAuction(ctx context.Context, id string) (*auction.Auction, error) {
	var a *auction.Auction
	err := s.view(ctx, func(tx *store.Txn) (err error) {
		a, err = loadAuction(tx, id)
		return err
	})
	return a, err
}

func (s *AuctionService) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	var out []*auction.Auction
	err := s.view(ctx, func(tx *store.Txn) (err error) {
		out, err = tx.Auctions()
		return err
	})
	return out, err
}

func (s *AuctionService) GetOpenOrders(ctx context.Context, acc Account) (*auction.OpenOrders, error) {
	var oo *auction.OpenOrders
	err := s.view(ctx, func(tx *store.Txn) (err error) {
		oo, err = loadOpenOrders(tx, acc)
		return err
	})
	return oo, err
}

func (s *AuctionService) ListOpenOrders(ctx context.Context, auctionID string) ([]*auction.OpenOrders, error) {
	var out []*auction.OpenOrders
	err := s.view(ctx, func(tx *store.Txn) error {
		if _, err := loadAuction(tx, auctionID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListOpenOrders(auctionID)
		return err
	})
	return out, err
}

func (s *AuctionService) GetOrderHistory(ctx context.Context, acc Account) (*auction.OrderHistory, error) {
	var h *auction.OrderHistory
	err := s.view(ctx, func(tx *store.Txn) error {
		var err error
		h, err = tx.OrderHistory(acc.AuctionID, acc.id())
		if errors.Is(err, store.ErrNotFound) {
			return auction.ErrOrderHistoryNotFound
		}
		return err
	})
	return h, err
}

// BookView returns up to depth price levels per side (all when depth <= 0).
func (s *AuctionService) BookView(ctx context.Context, auctionID string, depth int) (BookView, error) {
	var v BookView
	err := s.view(ctx, func(tx *store.Txn) error {
		m, err := loadMarket(tx, auctionID)
		if err != nil {
			return err
		}
		v.Bids = m.book.Levels(orderbook.Bid, depth)
		v.Asks = m.book.Levels(orderbook.Ask, depth)
		return nil
	})
	return v, err
}

// Phase reports where the auction stands at the service clock.
func (s *AuctionService) Phase(ctx context.Context, auctionID string) (auction.Phase, error) {
	var p auction.Phase
	err := s.view(ctx, func(tx *store.Txn) error {
		a, err := loadAuction(tx, auctionID)
		if err != nil {
			return err
		}
		if a.Closed {
			p = auction.PhaseClosed
			return nil
		}
		m, err := loadMarket(tx, auctionID)
		if err != nil {
			return err
		}
		p = a.Phase(s.clock().Unix(), m.book.IsEmpty(), m.queue.IsEmpty())
		return nil
	})
	return p, err
}

func (s *AuctionService) Vaults(ctx context.Context, auctionID string) (Vaults, error) {
	var v Vaults
	err := s.view(ctx, func(tx *store.Txn) error {
		if _, err := loadAuction(tx, auctionID); err != nil {
			return err
		}
		led := ledger.New(tx, auctionID)
		var err error
		if v.Base, err = led.Vault(auction.Base); err != nil {
			return err
		}
		v.Quote, err = led.Vault(auction.Quote)
		return err
	})
	return v, err
}
