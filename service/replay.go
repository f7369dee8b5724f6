package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/infra/wal/entry"
)

/*
Recover brings the store up to date with the journal in dir.

Records above the store's journal sequence are executed again with the
clock pinned to the time each was first executed, and each is committed
together with its sequence. A fresh store therefore replays the whole
journal from genesis and ends up identical to the live store.

IMPORTANT:
- This MUST run before accepting traffic
- The outbox is rebuilt as part of the state, never replayed on its own
*/
func (s *AuctionService) Recover(ctx context.Context, dir string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var from uint64
	if err := s.st.View(func(tx *store.Txn) (err error) {
		from, err = tx.JournalSeq()
		return err
	}); err != nil {
		return 0, err
	}

	applied := 0
	lastSeq, err := entry.Replay(dir, from, func(rec *entry.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.replayRecord(rec); err != nil {
			return fmt.Errorf("replay seq %d (%s): %w", rec.Seq, rec.Type, err)
		}
		applied++
		return nil
	})
	if err != nil {
		return applied, err
	}
	if lastSeq < from {
		return applied, fmt.Errorf("store has applied seq %d but journal ends at %d", from, lastSeq)
	}

	s.seq.Resume(lastSeq)
	s.broken = nil

	s.log.Info().Uint64("from", from).Uint64("last_seq", lastSeq).Int("applied", applied).Msg("journal replay completed")
	return applied, nil
}

func (s *AuctionService) replayRecord(rec *entry.Record) error {
	now := time.Unix(0, rec.Time)
	tx := s.st.Begin()
	defer tx.Discard()

	if err := s.dispatch(tx, now, rec.Type, rec.Data); err != nil {
		return err
	}
	if err := tx.SetJournalSeq(rec.Seq); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *AuctionService) dispatch(tx *store.Txn, now time.Time, typ entry.RecordType, data []byte) error {
	switch typ {
	case entry.RecordInitAuction:
		return rerun(tx, now, data, s.initAuction)
	case entry.RecordInitOpenOrders:
		return rerun(tx, now, data, s.initOpenOrders)
	case entry.RecordNewOrder:
		return rerun(tx, now, data, s.newOrder)
	case entry.RecordCancelOrder:
		return rerun(tx, now, data, s.cancelOrder)
	case entry.RecordNewEncryptedOrder:
		return rerun(tx, now, data, s.newEncryptedOrder)
	case entry.RecordCancelEncryptedOrder:
		return rerun(tx, now, data, s.cancelEncryptedOrder)
	case entry.RecordDecryptOrders:
		return rerun(tx, now, data, s.decryptOrders)
	case entry.RecordCalculateClearingPrice:
		return rerun(tx, now, data, s.calculateClearingPrice)
	case entry.RecordMatchOrders:
		return rerun(tx, now, data, s.matchOrders)
	case entry.RecordConsumeEvents:
		return rerun(tx, now, data, s.consumeEvents)
	case entry.RecordSettleAndCloseOpenOrders:
		return rerun(tx, now, data, s.settleAndClose)
	case entry.RecordCloseAuctionResources:
		return rerun(tx, now, data, s.closeAuction)
	default:
		return fmt.Errorf("unknown record type %d", typ)
	}
}

func rerun[Req, Resp any](tx *store.Txn, now time.Time, data []byte, run func(*store.Txn, time.Time, Req) (Resp, error)) error {
	var req Req
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	_, err := run(tx, now, req)
	return err
}
