// Package store keeps auction state in pebble. Every record lives under its
// own key prefix and is written through a Txn, so one instruction commits
// as one synced batch or not at all.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

var ErrNotFound = errors.New("store: not found")

// -------------------- Keys --------------------

const (
	prefixAuction    = "auction/"
	prefixBook       = "book/"
	prefixQueue      = "events/"
	prefixOpenOrders = "oo/"
	prefixHistory    = "history/"

	keyJournalSeq = "meta/journal_seq"
)

func auctionKey(id string) []byte { return []byte(prefixAuction + id) }
func bookKey(id string) []byte    { return []byte(prefixBook + id) }
func queueKey(id string) []byte   { return []byte(prefixQueue + id) }

func openOrdersPrefix(auctionID string) []byte {
	return []byte(prefixOpenOrders + auctionID + "/")
}

func openOrdersKey(auctionID string, id orderbook.CallbackInfo) []byte {
	return append(openOrdersPrefix(auctionID), id.String()...)
}

func historyKey(auctionID string, id orderbook.CallbackInfo) []byte {
	return []byte(prefixHistory + auctionID + "/" + id.String())
}

// PrefixEnd returns the smallest key greater than every key with prefix.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// -------------------- Store --------------------

type Options struct {
	// FS overrides the filesystem, vfs.NewMem() in tests.
	FS vfs.FS
}

type Store struct {
	db *pebble.DB
}

func Open(dir string, opts Options) (*Store, error) {
	po := &pebble.Options{}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn in a fresh transaction and commits it when fn succeeds.
func (s *Store) Update(fn func(*Txn) error) error {
	tx := s.Begin()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// View runs fn in a transaction that is always discarded.
func (s *Store) View(fn func(*Txn) error) error {
	tx := s.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Begin opens a transaction. Reads see the transaction's own writes.
func (s *Store) Begin() *Txn {
	return &Txn{b: s.db.NewIndexedBatch()}
}

// -------------------- Txn --------------------

type Txn struct {
	b    *pebble.Batch
	done bool
}

func (t *Txn) Commit() error {
	if t.done {
		return errors.New("store: transaction already finished")
	}
	t.done = true
	defer t.b.Close()
	return t.b.Commit(pebble.Sync)
}

// Discard drops the transaction. It is a no-op after Commit.
func (t *Txn) Discard() {
	if t.done {
		return
	}
	t.done = true
	_ = t.b.Close()
}

// Get returns a copy of the value at key.
func (t *Txn) Get(key []byte) ([]byte, error) {
	val, closer, err := t.b.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func (t *Txn) Set(key, val []byte) error {
	return t.b.Set(key, val, nil)
}

func (t *Txn) Delete(key []byte) error {
	return t.b.Delete(key, nil)
}

// Scan calls fn for every key under prefix in key order. The slices passed
// to fn are only valid during the call.
func (t *Txn) Scan(prefix []byte, fn func(key, val []byte) error) error {
	iter, err := t.b.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (t *Txn) GetUint(key []byte) (uint64, error) {
	b, err := t.Get(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("store: value at %q is not a counter", key)
	}
	return binary.BigEndian.Uint64(b), nil
}

func (t *Txn) SetUint(key []byte, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return t.Set(key, b[:])
}

// -------------------- Records --------------------

func (t *Txn) Auction(id string) (*auction.Auction, error) {
	b, err := t.Get(auctionKey(id))
	if err != nil {
		return nil, err
	}
	return DecodeAuction(b)
}

func (t *Txn) HasAuction(id string) (bool, error) {
	_, err := t.Get(auctionKey(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *Txn) PutAuction(a *auction.Auction) error {
	return t.Set(auctionKey(a.ID), EncodeAuction(a))
}

// Auctions lists every auction in id order.
func (t *Txn) Auctions() ([]*auction.Auction, error) {
	var out []*auction.Auction
	err := t.Scan([]byte(prefixAuction), func(_, val []byte) error {
		a, err := DecodeAuction(val)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func (t *Txn) Book(auctionID string) (*orderbook.OrderBook, error) {
	b, err := t.Get(bookKey(auctionID))
	if err != nil {
		return nil, err
	}
	return DecodeBook(b)
}

func (t *Txn) PutBook(auctionID string, book *orderbook.OrderBook) error {
	return t.Set(bookKey(auctionID), EncodeBook(book))
}

func (t *Txn) DeleteBook(auctionID string) error {
	return t.Delete(bookKey(auctionID))
}

func (t *Txn) Queue(auctionID string) (*eventqueue.Queue, error) {
	b, err := t.Get(queueKey(auctionID))
	if err != nil {
		return nil, err
	}
	return DecodeQueue(b)
}

func (t *Txn) PutQueue(auctionID string, q *eventqueue.Queue) error {
	return t.Set(queueKey(auctionID), EncodeQueue(q))
}

func (t *Txn) DeleteQueue(auctionID string) error {
	return t.Delete(queueKey(auctionID))
}

func (t *Txn) OpenOrders(auctionID string, id orderbook.CallbackInfo) (*auction.OpenOrders, error) {
	b, err := t.Get(openOrdersKey(auctionID, id))
	if err != nil {
		return nil, err
	}
	return DecodeOpenOrders(b)
}

func (t *Txn) PutOpenOrders(oo *auction.OpenOrders) error {
	return t.Set(openOrdersKey(oo.AuctionID, oo.ID), EncodeOpenOrders(oo))
}

func (t *Txn) DeleteOpenOrders(auctionID string, id orderbook.CallbackInfo) error {
	return t.Delete(openOrdersKey(auctionID, id))
}

// ListOpenOrders returns every live OpenOrders record of an auction.
func (t *Txn) ListOpenOrders(auctionID string) ([]*auction.OpenOrders, error) {
	var out []*auction.OpenOrders
	err := t.Scan(openOrdersPrefix(auctionID), func(_, val []byte) error {
		oo, err := DecodeOpenOrders(val)
		if err != nil {
			return err
		}
		out = append(out, oo)
		return nil
	})
	return out, err
}

func (t *Txn) OrderHistory(auctionID string, id orderbook.CallbackInfo) (*auction.OrderHistory, error) {
	b, err := t.Get(historyKey(auctionID, id))
	if err != nil {
		return nil, err
	}
	return DecodeOrderHistory(b)
}

func (t *Txn) PutOrderHistory(h *auction.OrderHistory) error {
	return t.Set(historyKey(h.AuctionID, h.OpenOrdersID), EncodeOrderHistory(h))
}

// JournalSeq is the sequence of the last journal record applied to this
// store, zero for a fresh store.
func (t *Txn) JournalSeq() (uint64, error) {
	seq, err := t.GetUint([]byte(keyJournalSeq))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return seq, err
}

func (t *Txn) SetJournalSeq(seq uint64) error {
	return t.SetUint([]byte(keyJournalSeq), seq)
}
