package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/ledger"
	"github.com/Henry-E/auction-house/infra/metrics"
	"github.com/Henry-E/auction-house/infra/outbox"
	"github.com/Henry-E/auction-house/infra/sequence"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/infra/wal/entry"
)

// ErrNeedsRecovery is returned once a journaled instruction failed to
// commit. The journal is ahead of the store until the process restarts and
// replays it.
var ErrNeedsRecovery = errors.New("service: store behind journal, restart to recover")

const (
	DefaultBookCapacity  = 4096
	DefaultEventCapacity = 1024
)

type Options struct {
	Store *store.Store
	// Journal may be nil, then instructions are not journaled.
	Journal       *entry.WAL
	Opener        auction.Opener
	Clock         func() time.Time
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
	BookCapacity  int
	EventCapacity int
}

type AuctionService struct {
	mu      sync.RWMutex
	st      *store.Store
	journal *entry.WAL
	seq     *sequence.Sequencer
	opener  auction.Opener
	clock   func() time.Time
	log     zerolog.Logger
	metrics *metrics.Metrics

	bookCapacity  int
	eventCapacity int

	broken error
}

func New(opts Options) (*AuctionService, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Opener == nil {
		return nil, errors.New("service: opener is required")
	}
	s := &AuctionService{
		st:            opts.Store,
		journal:       opts.Journal,
		seq:           sequence.New(0),
		opener:        opts.Opener,
		clock:         opts.Clock,
		log:           opts.Logger.With().Str("module", "service").Logger(),
		metrics:       opts.Metrics,
		bookCapacity:  opts.BookCapacity,
		eventCapacity: opts.EventCapacity,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.bookCapacity <= 0 {
		s.bookCapacity = DefaultBookCapacity
	}
	if s.eventCapacity <= 0 {
		s.eventCapacity = DefaultEventCapacity
	}
	if s.journal != nil {
		s.seq.Resume(s.journal.LastSeq())
	}
	return s, nil
}

//
// ──────────────────────────────────────────────────────────
// Execution
// ──────────────────────────────────────────────────────────
//

// execute runs one instruction:
//
//	1️⃣ apply it to a fresh transaction
//	2️⃣ append it to the journal
//	3️⃣ commit, recording the journal sequence in the same batch
//
// A failed instruction leaves no trace in either.
func execute[Req, Resp any](ctx context.Context, s *AuctionService, typ entry.RecordType, auctionID string, req Req, run func(*store.Txn, time.Time, Req) (Resp, error)) (Resp, error) {
	var zero Resp
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	resp, seq, err := apply(s, typ, req, run)
	s.metrics.ObserveInstruction(typ.String(), err, time.Since(start))

	if err != nil {
		s.log.Info().Err(err).Str("auction", auctionID).Stringer("instruction", typ).Msg("instruction rejected")
		return zero, err
	}
	s.log.Debug().Str("auction", auctionID).Stringer("instruction", typ).Uint64("seq", seq).Msg("instruction committed")
	return resp, nil
}

func apply[Req, Resp any](s *AuctionService, typ entry.RecordType, req Req, run func(*store.Txn, time.Time, Req) (Resp, error)) (Resp, uint64, error) {
	var zero Resp
	if s.broken != nil {
		return zero, 0, s.broken
	}

	now := s.clock()
	tx := s.st.Begin()
	defer tx.Discard()

	resp, err := run(tx, now, req)
	if err != nil {
		return zero, 0, err
	}

	var seq uint64
	if s.journal != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return zero, 0, fmt.Errorf("encode %s: %w", typ, err)
		}
		seq = s.seq.Issue()
		if err := s.journal.Append(entry.NewRecord(typ, seq, now.UnixNano(), data)); err != nil {
			s.seq.Release(seq)
			return zero, 0, fmt.Errorf("journal append: %w", err)
		}
		if err := tx.SetJournalSeq(seq); err != nil {
			s.broken = ErrNeedsRecovery
			return zero, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		if s.journal != nil {
			s.broken = ErrNeedsRecovery
		}
		return zero, 0, fmt.Errorf("commit %s: %w", typ, err)
	}
	return resp, seq, nil
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

func (s *AuctionService) InitAuction(ctx context.Context, req InitAuctionRequest) (*auction.Auction, error) {
	if req.BookCapacity <= 0 {
		req.BookCapacity = s.bookCapacity
	}
	if req.EventCapacity <= 0 {
		req.EventCapacity = s.eventCapacity
	}
	return execute(ctx, s, entry.RecordInitAuction, req.ID, req, s.initAuction)
}

func (s *AuctionService) InitOpenOrders(ctx context.Context, req InitOpenOrdersRequest) (*auction.OpenOrders, error) {
	return execute(ctx, s, entry.RecordInitOpenOrders, req.AuctionID, req, s.initOpenOrders)
}

func (s *AuctionService) NewOrder(ctx context.Context, req NewOrderRequest) (orderbook.OrderSummary, error) {
	return execute(ctx, s, entry.RecordNewOrder, req.AuctionID, req, s.newOrder)
}

func (s *AuctionService) CancelOrder(ctx context.Context, req CancelOrderRequest) (orderbook.LeafNode, error) {
	return execute(ctx, s, entry.RecordCancelOrder, req.AuctionID, req, s.cancelOrder)
}

// NewEncryptedOrder returns the index of the queued order.
func (s *AuctionService) NewEncryptedOrder(ctx context.Context, req NewEncryptedOrderRequest) (int, error) {
	return execute(ctx, s, entry.RecordNewEncryptedOrder, req.AuctionID, req, s.newEncryptedOrder)
}

func (s *AuctionService) CancelEncryptedOrder(ctx context.Context, req CancelEncryptedOrderRequest) (auction.EncryptedOrder, error) {
	return execute(ctx, s, entry.RecordCancelEncryptedOrder, req.AuctionID, req, s.cancelEncryptedOrder)
}

func (s *AuctionService) DecryptOrders(ctx context.Context, req DecryptOrdersRequest) (auction.DecryptResult, error) {
	return execute(ctx, s, entry.RecordDecryptOrders, req.AuctionID, req, s.decryptOrders)
}

func (s *AuctionService) CalculateClearingPrice(ctx context.Context, req CalculateClearingPriceRequest) (auction.ClearingResult, error) {
	return execute(ctx, s, entry.RecordCalculateClearingPrice, req.AuctionID, req, s.calculateClearingPrice)
}

func (s *AuctionService) MatchOrders(ctx context.Context, req MatchOrdersRequest) (auction.MatchResult, error) {
	return execute(ctx, s, entry.RecordMatchOrders, req.AuctionID, req, s.matchOrders)
}

func (s *AuctionService) ConsumeEvents(ctx context.Context, req ConsumeEventsRequest) (auction.ConsumeResult, error) {
	return execute(ctx, s, entry.RecordConsumeEvents, req.AuctionID, req, s.consumeEvents)
}

func (s *AuctionService) SettleAndCloseOpenOrders(ctx context.Context, req SettleAndCloseRequest) (*auction.OrderHistory, error) {
	return execute(ctx, s, entry.RecordSettleAndCloseOpenOrders, req.AuctionID, req, s.settleAndClose)
}

func (s *AuctionService) CloseAuctionResources(ctx context.Context, req CloseAuctionRequest) (*auction.Auction, error) {
	return execute(ctx, s, entry.RecordCloseAuctionResources, req.AuctionID, req, s.closeAuction)
}

//
// ──────────────────────────────────────────────────────────
// Instruction bodies
// ──────────────────────────────────────────────────────────
//

func (s *AuctionService) initAuction(tx *store.Txn, now time.Time, req InitAuctionRequest) (*auction.Auction, error) {
	exists, err := tx.HasAuction(req.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, auction.ErrAuctionAlreadyExists
	}
	if req.BookCapacity <= 0 || req.BookCapacity > 65535 || req.EventCapacity <= 0 {
		return nil, fmt.Errorf("service: capacities out of range (book %d, events %d)", req.BookCapacity, req.EventCapacity)
	}

	a, err := auction.NewAuction(req.args(), now.Unix())
	if err != nil {
		return nil, err
	}
	if err := tx.PutAuction(a); err != nil {
		return nil, err
	}
	if err := tx.PutBook(a.ID, orderbook.NewOrderBook(req.BookCapacity)); err != nil {
		return nil, err
	}
	if err := tx.PutQueue(a.ID, eventqueue.New(req.EventCapacity)); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AuctionService) initOpenOrders(tx *store.Txn, now time.Time, req InitOpenOrdersRequest) (*auction.OpenOrders, error) {
	a, err := loadAuction(tx, req.AuctionID)
	if err != nil {
		return nil, err
	}
	id := req.id()
	if _, err := tx.OpenOrders(req.AuctionID, id); err == nil {
		return nil, auction.ErrOpenOrdersAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	oo, hist, err := auction.InitOpenOrders(a, id, req.Owner, req.Side, req.MaxOrders, now.Unix())
	if err != nil {
		return nil, err
	}
	if err := tx.PutOpenOrders(oo); err != nil {
		return nil, err
	}
	if err := tx.PutOrderHistory(hist); err != nil {
		return nil, err
	}
	return oo, nil
}

func (s *AuctionService) newOrder(tx *store.Txn, now time.Time, req NewOrderRequest) (orderbook.OrderSummary, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return orderbook.OrderSummary{}, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return orderbook.OrderSummary{}, err
	}

	led := ledger.New(tx, req.AuctionID)
	sum, err := auction.NewOrder(m.auction, oo, m.book, led, now.Unix(), req.LimitPrice, req.MaxBaseQty)
	if err != nil {
		return orderbook.OrderSummary{}, err
	}
	if err := tx.PutOpenOrders(oo); err != nil {
		return orderbook.OrderSummary{}, err
	}
	return sum, tx.PutBook(req.AuctionID, m.book)
}

func (s *AuctionService) cancelOrder(tx *store.Txn, now time.Time, req CancelOrderRequest) (orderbook.LeafNode, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return orderbook.LeafNode{}, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return orderbook.LeafNode{}, err
	}

	leaf, err := auction.CancelOrder(m.auction, oo, m.book, now.Unix(), req.OrderID)
	if err != nil {
		return orderbook.LeafNode{}, err
	}
	if err := tx.PutOpenOrders(oo); err != nil {
		return orderbook.LeafNode{}, err
	}
	return leaf, tx.PutBook(req.AuctionID, m.book)
}

func (s *AuctionService) newEncryptedOrder(tx *store.Txn, now time.Time, req NewEncryptedOrderRequest) (int, error) {
	a, err := loadAuction(tx, req.AuctionID)
	if err != nil {
		return 0, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return 0, err
	}

	led := ledger.New(tx, req.AuctionID)
	if err := auction.NewEncryptedOrder(a, oo, led, now.Unix(), req.TokenQty, req.Pubkey, req.Nonce, req.Ciphertext); err != nil {
		return 0, err
	}
	return len(oo.EncryptedOrders) - 1, tx.PutOpenOrders(oo)
}

func (s *AuctionService) cancelEncryptedOrder(tx *store.Txn, now time.Time, req CancelEncryptedOrderRequest) (auction.EncryptedOrder, error) {
	a, err := loadAuction(tx, req.AuctionID)
	if err != nil {
		return auction.EncryptedOrder{}, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return auction.EncryptedOrder{}, err
	}

	enc, err := auction.CancelEncryptedOrder(a, oo, now.Unix(), req.Index)
	if err != nil {
		return auction.EncryptedOrder{}, err
	}
	return enc, tx.PutOpenOrders(oo)
}

func (s *AuctionService) decryptOrders(tx *store.Txn, now time.Time, req DecryptOrdersRequest) (auction.DecryptResult, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return auction.DecryptResult{}, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return auction.DecryptResult{}, err
	}

	res, err := auction.DecryptOrders(m.auction, oo, m.book, s.opener, req.SharedKey, now.Unix())
	if err != nil {
		return auction.DecryptResult{}, err
	}
	if err := tx.PutOpenOrders(oo); err != nil {
		return auction.DecryptResult{}, err
	}
	return res, tx.PutBook(req.AuctionID, m.book)
}

func (s *AuctionService) calculateClearingPrice(tx *store.Txn, now time.Time, req CalculateClearingPriceRequest) (auction.ClearingResult, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return auction.ClearingResult{}, err
	}

	res, err := auction.CalculateClearingPrice(m.auction, m.book, now.Unix(), req.Limit)
	if err != nil {
		return auction.ClearingResult{}, err
	}
	if err := tx.PutAuction(m.auction); err != nil {
		return auction.ClearingResult{}, err
	}
	s.metrics.AddClearingSteps(res.Steps)

	if res.Found {
		a := m.auction
		_, err := outbox.Put(tx, outbox.TypeClearingPriceFound, a.ID, outbox.ClearingPriceFound{
			ClearingPrice:        fp32.Format(a.ClearingPrice),
			ClearingPriceFP32:    a.ClearingPrice,
			TotalQuantityMatched: a.TotalQuantityMatched,
		})
		if err != nil {
			return auction.ClearingResult{}, err
		}
	}
	return res, nil
}

func (s *AuctionService) matchOrders(tx *store.Txn, now time.Time, req MatchOrdersRequest) (auction.MatchResult, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return auction.MatchResult{}, err
	}

	res, err := auction.MatchOrders(m.auction, m.book, m.queue, req.Limit)
	if err != nil {
		return auction.MatchResult{}, err
	}
	if err := tx.PutAuction(m.auction); err != nil {
		return auction.MatchResult{}, err
	}
	if err := tx.PutBook(req.AuctionID, m.book); err != nil {
		return auction.MatchResult{}, err
	}
	return res, tx.PutQueue(req.AuctionID, m.queue)
}

func (s *AuctionService) consumeEvents(tx *store.Txn, now time.Time, req ConsumeEventsRequest) (auction.ConsumeResult, error) {
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return auction.ConsumeResult{}, err
	}

	cands := auction.Candidates{}
	for _, hexID := range req.Candidates {
		id, err := orderbook.ParseCallbackInfo(hexID)
		if err != nil {
			return auction.ConsumeResult{}, auction.ErrMissingOpenOrders
		}
		oo, err := tx.OpenOrders(req.AuctionID, id)
		if errors.Is(err, store.ErrNotFound) {
			return auction.ConsumeResult{}, auction.ErrOpenOrdersNotFound
		}
		if err != nil {
			return auction.ConsumeResult{}, err
		}
		cands[id] = oo
	}

	res, err := auction.ConsumeEvents(m.queue, cands, req.Limit, req.AllowNoOp)
	if err != nil {
		return auction.ConsumeResult{}, err
	}
	for _, oo := range res.Touched {
		if err := tx.PutOpenOrders(oo); err != nil {
			return auction.ConsumeResult{}, err
		}
	}
	if err := tx.PutQueue(req.AuctionID, m.queue); err != nil {
		return auction.ConsumeResult{}, err
	}
	if err := notifySettled(tx, req.AuctionID, cands, res.Events); err != nil {
		return auction.ConsumeResult{}, err
	}
	s.metrics.AddEventsConsumed(eventqueue.Fill.String(), res.Fills)
	s.metrics.AddEventsConsumed(eventqueue.Out.String(), res.Outs)
	return res, nil
}

func (s *AuctionService) settleAndClose(tx *store.Txn, now time.Time, req SettleAndCloseRequest) (*auction.OrderHistory, error) {
	if _, err := loadAuction(tx, req.AuctionID); err != nil {
		return nil, err
	}
	oo, err := loadOpenOrders(tx, req.Account)
	if err != nil {
		return nil, err
	}

	hist, err := auction.SettleAndCloseOpenOrders(oo, ledger.New(tx, req.AuctionID))
	if err != nil {
		return nil, err
	}
	if err := tx.PutOrderHistory(hist); err != nil {
		return nil, err
	}
	if err := tx.DeleteOpenOrders(req.AuctionID, oo.ID); err != nil {
		return nil, err
	}
	_, err = outbox.Put(tx, outbox.TypeOpenOrdersClosed, req.AuctionID, outbox.OpenOrdersClosed{
		OpenOrders:    oo.ID.String(),
		Owner:         oo.Owner,
		Side:          oo.Side.String(),
		BaseReturned:  hist.BaseAmountReturned,
		QuoteReturned: hist.QuoteAmountReturned,
	})
	return hist, err
}

func (s *AuctionService) closeAuction(tx *store.Txn, now time.Time, req CloseAuctionRequest) (*auction.Auction, error) {
	a, err := loadAuction(tx, req.AuctionID)
	if err != nil {
		return nil, err
	}
	if a.Closed {
		return nil, auction.ErrAuctionClosed
	}
	m, err := loadMarket(tx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	if err := auction.CloseAuctionResources(m.auction, m.book, m.queue); err != nil {
		return nil, err
	}
	if err := tx.PutAuction(m.auction); err != nil {
		return nil, err
	}
	if err := tx.DeleteBook(req.AuctionID); err != nil {
		return nil, err
	}
	return m.auction, tx.DeleteQueue(req.AuctionID)
}

//
// ──────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────
//

// market is an auction loaded together with its book and event queue.
type market struct {
	auction *auction.Auction
	book    *orderbook.OrderBook
	queue   *eventqueue.Queue
}

func loadAuction(tx *store.Txn, id string) (*auction.Auction, error) {
	a, err := tx.Auction(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auction.ErrAuctionNotFound
	}
	return a, err
}

// loadMarket fails with ErrAuctionClosed once the book and queue have been
// released.
func loadMarket(tx *store.Txn, id string) (*market, error) {
	a, err := loadAuction(tx, id)
	if err != nil {
		return nil, err
	}
	if a.Closed {
		return nil, auction.ErrAuctionClosed
	}
	book, err := tx.Book(id)
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", id, err)
	}
	q, err := tx.Queue(id)
	if err != nil {
		return nil, fmt.Errorf("load events %s: %w", id, err)
	}
	return &market{auction: a, book: book, queue: q}, nil
}

func loadOpenOrders(tx *store.Txn, acc Account) (*auction.OpenOrders, error) {
	if !acc.Side.Valid() {
		return nil, auction.ErrInvalidSide
	}
	oo, err := tx.OpenOrders(acc.AuctionID, acc.id())
	if errors.Is(err, store.ErrNotFound) {
		return nil, auction.ErrOpenOrdersNotFound
	}
	return oo, err
}

func notifySettled(tx *store.Txn, auctionID string, cands auction.Candidates, events []eventqueue.Event) error {
	for _, ev := range events {
		owner := ""
		if oo, ok := cands[ev.Owner]; ok {
			owner = oo.Owner
		}
		var err error
		switch ev.Kind {
		case eventqueue.Fill:
			_, err = outbox.Put(tx, outbox.TypeOrderFilled, auctionID, outbox.OrderFilled{
				OpenOrders: ev.Owner.String(),
				Owner:      owner,
				Side:       ev.Side.String(),
				OrderID:    ev.OrderID.String(),
				BaseSize:   ev.BaseSize,
				QuoteSize:  ev.QuoteSize,
			})
		case eventqueue.Out:
			out := outbox.OrderOut{
				OpenOrders: ev.Owner.String(),
				Owner:      owner,
				Side:       ev.Side.String(),
				OrderID:    ev.OrderID.String(),
				BaseSize:   ev.BaseSize,
			}
			if ev.Side == orderbook.Bid {
				if out.QuoteSize, err = fp32.Mul(ev.BaseSize, ev.OrderID.Price()); err != nil {
					return auction.ErrNumericalOverflow
				}
			}
			_, err = outbox.Put(tx, outbox.TypeOrderOut, auctionID, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
