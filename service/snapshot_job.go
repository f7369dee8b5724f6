package service

import (
	"context"
	"time"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/snapshot"
)

// Snapshot captures one auction as of the last committed instruction.
func (s *AuctionService) Snapshot(ctx context.Context, auctionID string) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	err := s.view(ctx, func(tx *store.Txn) error {
		a, err := loadAuction(tx, auctionID)
		if err != nil {
			return err
		}
		seq, err := tx.JournalSeq()
		if err != nil {
			return err
		}

		snap = &snapshot.Snapshot{
			Seq:     seq,
			Created: s.clock(),
			Auction: snapshot.AuctionEntry{
				ID:                   a.ID,
				BaseAsset:            a.BaseAsset,
				QuoteAsset:           a.QuoteAsset,
				Phase:                auction.PhaseClosed.String(),
				ClearingPrice:        a.ClearingPrice,
				TotalQuantityMatched: a.TotalQuantityMatched,
				Closed:               a.Closed,
			},
		}

		if !a.Closed {
			m, err := loadMarket(tx, auctionID)
			if err != nil {
				return err
			}
			snap.Auction.Phase = a.Phase(s.clock().Unix(), m.book.IsEmpty(), m.queue.IsEmpty()).String()
			for _, side := range []orderbook.Side{orderbook.Bid, orderbook.Ask} {
				m.book.ForEach(side, func(leaf orderbook.LeafNode) bool {
					snap.Orders = append(snap.Orders, snapshot.OrderEntry{
						ID:    leaf.Key.String(),
						Side:  int(side),
						Price: leaf.Price(),
						Qty:   leaf.BaseQuantity,
						Owner: leaf.Owner.String(),
					})
					return true
				})
			}
		}

		list, err := tx.ListOpenOrders(auctionID)
		if err != nil {
			return err
		}
		for _, oo := range list {
			snap.Accounts = append(snap.Accounts, snapshot.AccountEntry{
				ID:          oo.ID.String(),
				Owner:       oo.Owner,
				Side:        int(oo.Side),
				Orders:      oo.NumOrders(),
				Encrypted:   len(oo.EncryptedOrders),
				BaseLocked:  oo.BaseTokenLocked,
				BaseFree:    oo.BaseTokenFree,
				QuoteLocked: oo.QuoteTokenLocked,
				QuoteFree:   oo.QuoteTokenFree,
			})
		}
		return nil
	})
	return snap, err
}

// SnapshotAll writes a snapshot of every auction that is not closed.
func (s *AuctionService) SnapshotAll(ctx context.Context, w *snapshot.Writer) (int, error) {
	auctions, err := s.ListAuctions(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range auctions {
		if a.Closed {
			continue
		}
		snap, err := s.Snapshot(ctx, a.ID)
		if err != nil {
			return n, err
		}
		if _, err := w.Write(snap); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// RunSnapshotJob snapshots every interval until ctx is done.
func (s *AuctionService) RunSnapshotJob(ctx context.Context, dir string, interval time.Duration) error {
	w := &snapshot.Writer{Dir: dir}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.SnapshotAll(ctx, w)
			if err != nil {
				s.log.Error().Err(err).Msg("snapshot failed")
				continue
			}
			s.log.Debug().Int("auctions", n).Msg("snapshots written")
		}
	}
}
