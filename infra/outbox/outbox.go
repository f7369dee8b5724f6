// Package outbox keeps settlement notifications next to the state that
// produced them. A record is written in the same store transaction as the
// instruction, so a committed change always has its notification, and the
// broadcaster relays records until they are acknowledged.
package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/infra/wire"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	ID          uuid.UUID
	Type        string
	AuctionID   string
	Payload     []byte
	State       State
	Retries     uint32
	LastAttempt int64
}

// Envelope is the JSON message published for every record.
type Envelope struct {
	V         int             `json:"v"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Seq       uint64          `json:"seq"`
	AuctionID string          `json:"auction_id"`
	Data      json.RawMessage `json:"data"`
}

func encodeRecord(r Record) []byte {
	var b wire.Buffer
	b.PutUint(1, r.Seq)
	b.PutBytes(2, r.ID[:])
	b.PutString(3, r.Type)
	b.PutString(4, r.AuctionID)
	b.PutBytes(5, r.Payload)
	b.PutUint(6, uint64(r.State))
	b.PutUint(7, uint64(r.Retries))
	b.PutInt(8, r.LastAttempt)
	return b
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			r.Seq = f.V
		case 2:
			id, err := uuid.FromBytes(f.B)
			if err != nil {
				return err
			}
			r.ID = id
		case 3:
			r.Type = f.String()
		case 4:
			r.AuctionID = f.String()
		case 5:
			r.Payload = f.Clone()
		case 6:
			r.State = State(f.V)
		case 7:
			r.Retries = uint32(f.V)
		case 8:
			r.LastAttempt = f.Int()
		}
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("decode outbox record: %w", err)
	}
	return r, nil
}

// -------------------- Keys --------------------

const (
	prefixOutbox = "outbox/"
	keyOutboxSeq = "meta/outbox_seq"
)

// ids are derived from the sequence so a replayed journal produces the
// same records.
var namespace = uuid.MustParse("5b0c8f8e-6d3a-4c52-9a57-0e7d1d2f9a41")

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOutbox, seq))
}

func idFor(seq uint64) uuid.UUID {
	return uuid.NewSHA1(namespace, strconv.AppendUint(nil, seq, 10))
}

// -------------------- Append --------------------

// Put appends a NEW record inside tx. data is marshalled as the
// envelope's payload.
func Put(tx *store.Txn, typ, auctionID string, data any) (Record, error) {
	last, err := tx.GetUint([]byte(keyOutboxSeq))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Record{}, err
	}
	seq := last + 1

	raw, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	rec := Record{
		Seq:       seq,
		ID:        idFor(seq),
		Type:      typ,
		AuctionID: auctionID,
		State:     StateNew,
	}
	rec.Payload, err = json.Marshal(Envelope{
		V:         1,
		ID:        rec.ID.String(),
		Type:      typ,
		Seq:       seq,
		AuctionID: auctionID,
		Data:      raw,
	})
	if err != nil {
		return Record{}, err
	}

	if err := tx.Set(keyFor(seq), encodeRecord(rec)); err != nil {
		return Record{}, err
	}
	if err := tx.SetUint([]byte(keyOutboxSeq), seq); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// -------------------- Outbox --------------------

// Outbox is the relay side: it reads records and moves them through
// their states, each change in its own synced batch.
type Outbox struct {
	st  *store.Store
	now func() time.Time
}

func New(st *store.Store) *Outbox {
	return &Outbox{st: st, now: time.Now}
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	var rec Record
	err := o.st.View(func(tx *store.Txn) error {
		b, err := tx.Get(keyFor(seq))
		if err != nil {
			return err
		}
		rec, err = decodeRecord(b)
		return err
	})
	return rec, err
}

// UpdateState records a send attempt outcome.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	return o.st.Update(func(tx *store.Txn) error {
		b, err := tx.Get(keyFor(seq))
		if err != nil {
			return err
		}
		rec, err := decodeRecord(b)
		if err != nil {
			return err
		}
		rec.State = state
		rec.Retries = retries
		rec.LastAttempt = o.now().UnixNano()
		return tx.Set(keyFor(seq), encodeRecord(rec))
	})
}

func (o *Outbox) MarkSent(rec Record) error {
	return o.UpdateState(rec.Seq, StateSent, rec.Retries)
}

func (o *Outbox) MarkAcked(rec Record) error {
	return o.UpdateState(rec.Seq, StateAcked, rec.Retries)
}

func (o *Outbox) MarkFailed(rec Record) error {
	return o.UpdateState(rec.Seq, StateFailed, rec.Retries+1)
}

// Delete removes a record (cleanup of ACKED entries).
func (o *Outbox) Delete(seq uint64) error {
	return o.st.Update(func(tx *store.Txn) error {
		return tx.Delete(keyFor(seq))
	})
}

// -------------------- Scan --------------------

// ScanByState iterates all records in the given state in sequence order.
// The broadcaster uses it.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	return o.scan(func(r Record) error {
		if r.State != state {
			return nil
		}
		return fn(r)
	})
}

// Pending iterates every record that has not been acknowledged. A SENT
// record is included: the previous relay may have died before the ack.
func (o *Outbox) Pending(fn func(Record) error) error {
	return o.scan(func(r Record) error {
		if r.State == StateAcked {
			return nil
		}
		return fn(r)
	})
}

// PurgeAcked deletes every ACKED record and reports how many it removed.
func (o *Outbox) PurgeAcked() (int, error) {
	n := 0
	err := o.st.Update(func(tx *store.Txn) error {
		var keys [][]byte
		err := tx.Scan([]byte(prefixOutbox), func(key, val []byte) error {
			state, err := peekState(val)
			if err != nil {
				return err
			}
			if state == StateAcked {
				keys = append(keys, append([]byte(nil), key...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	return n, err
}

func (o *Outbox) scan(fn func(Record) error) error {
	var recs []Record
	err := o.st.View(func(tx *store.Txn) error {
		return tx.Scan([]byte(prefixOutbox), func(_, val []byte) error {
			rec, err := decodeRecord(val)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return err
	}
	// fn runs outside the read batch so it may update records.
	for _, r := range recs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func peekState(b []byte) (State, error) {
	var s State
	err := wire.Walk(b, func(f wire.Field) error {
		if f.Num == protowire.Number(6) {
			s = State(f.V)
		}
		return nil
	})
	return s, err
}
