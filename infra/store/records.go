package store

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/orderbook"
	"github.com/Henry-E/auction-house/infra/wire"
)

// -------------------- Order keys --------------------

func putKey(e *wire.Buffer, num protowire.Number, k orderbook.Key) {
	if k.IsZero() {
		return
	}
	e.PutBytes(num, k.Bytes())
}

func putKeyAlways(e *wire.Buffer, num protowire.Number, k orderbook.Key) {
	e.PutMsg(num, k.Bytes())
}

func callbackInfo(b []byte) (orderbook.CallbackInfo, error) {
	var id orderbook.CallbackInfo
	if len(b) != len(id) {
		return id, fmt.Errorf("callback info: want %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// -------------------- Auction --------------------

func encodeStack(s orderbook.Stack) []byte {
	var e wire.Buffer
	e.PutPacked(1, s.Handles[:s.Depth])
	return e
}

func decodeStack(b []byte) (orderbook.Stack, error) {
	var s orderbook.Stack
	err := wire.Walk(b, func(f wire.Field) error {
		if f.Num != 1 {
			return nil
		}
		hs, err := wire.Unpack(f.B)
		if err != nil {
			return err
		}
		if len(hs) > orderbook.MaxStackDepth {
			return orderbook.ErrStackOverflow
		}
		s.Depth = uint8(len(hs))
		copy(s.Handles[:], hs)
		return nil
	})
	return s, err
}

func encodeCursor(c auction.Cursor) []byte {
	var e wire.Buffer
	putKey(&e, 1, c.CurrentBidKey)
	putKey(&e, 2, c.CurrentAskKey)
	e.PutUint(3, c.CurrentBidQuantityFilled)
	e.PutUint(4, c.CurrentAskQuantityFilled)
	e.PutUint(5, c.TotalQuantityFilledSoFar)
	e.PutBytes(6, encodeStack(c.BidSearchStack))
	e.PutBytes(7, encodeStack(c.AskSearchStack))
	return e
}

func decodeCursor(b []byte) (auction.Cursor, error) {
	var c auction.Cursor
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			c.CurrentBidKey, err = orderbook.KeyFromBytes(f.B)
		case 2:
			c.CurrentAskKey, err = orderbook.KeyFromBytes(f.B)
		case 3:
			c.CurrentBidQuantityFilled = f.V
		case 4:
			c.CurrentAskQuantityFilled = f.V
		case 5:
			c.TotalQuantityFilledSoFar = f.V
		case 6:
			c.BidSearchStack, err = decodeStack(f.B)
		case 7:
			c.AskSearchStack, err = decodeStack(f.B)
		}
		return err
	})
	return c, err
}

func EncodeAuction(a *auction.Auction) []byte {
	var e wire.Buffer
	e.PutString(1, a.ID)
	e.PutString(2, a.Authority)
	e.PutString(3, a.BaseAsset)
	e.PutString(4, a.QuoteAsset)
	e.PutBytes(5, a.EncryptionPubkey)
	e.PutInt(6, a.StartOrderPhase)
	e.PutInt(7, a.EndOrderPhase)
	e.PutInt(8, a.EndDecryptionPhase)
	e.PutBool(9, a.AreAsksEncrypted)
	e.PutBool(10, a.AreBidsEncrypted)
	e.PutUint(11, a.MinBaseOrderSize)
	e.PutUint(12, a.TickSize)
	e.PutBytes(13, encodeCursor(a.Cursor))
	e.PutBool(14, a.HasFoundClearingPrice)
	e.PutUint(15, a.TotalQuantityMatched)
	e.PutUint(16, a.RemainingBidFills)
	e.PutUint(17, a.RemainingAskFills)
	e.PutUint(18, a.FinalBidPrice)
	e.PutUint(19, a.FinalAskPrice)
	e.PutUint(20, a.ClearingPrice)
	e.PutBool(21, a.Closed)
	e.PutUint(22, a.QuoteMatched)
	return e
}

func DecodeAuction(b []byte) (*auction.Auction, error) {
	a := &auction.Auction{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			a.ID = f.String()
		case 2:
			a.Authority = f.String()
		case 3:
			a.BaseAsset = f.String()
		case 4:
			a.QuoteAsset = f.String()
		case 5:
			a.EncryptionPubkey = f.Clone()
		case 6:
			a.StartOrderPhase = f.Int()
		case 7:
			a.EndOrderPhase = f.Int()
		case 8:
			a.EndDecryptionPhase = f.Int()
		case 9:
			a.AreAsksEncrypted = f.Bool()
		case 10:
			a.AreBidsEncrypted = f.Bool()
		case 11:
			a.MinBaseOrderSize = f.V
		case 12:
			a.TickSize = f.V
		case 13:
			a.Cursor, err = decodeCursor(f.B)
		case 14:
			a.HasFoundClearingPrice = f.Bool()
		case 15:
			a.TotalQuantityMatched = f.V
		case 16:
			a.RemainingBidFills = f.V
		case 17:
			a.RemainingAskFills = f.V
		case 18:
			a.FinalBidPrice = f.V
		case 19:
			a.FinalAskPrice = f.V
		case 20:
			a.ClearingPrice = f.V
		case 21:
			a.Closed = f.Bool()
		case 22:
			a.QuoteMatched = f.V
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode auction: %w", err)
	}
	return a, nil
}

// -------------------- OpenOrders --------------------

func encodeEncryptedOrder(o auction.EncryptedOrder) []byte {
	var e wire.Buffer
	e.PutBytes(1, o.Nonce)
	e.PutBytes(2, o.Ciphertext)
	e.PutUint(3, o.TokenQty)
	return e
}

func decodeEncryptedOrder(b []byte) (auction.EncryptedOrder, error) {
	var o auction.EncryptedOrder
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			o.Nonce = f.Clone()
		case 2:
			o.Ciphertext = f.Clone()
		case 3:
			o.TokenQty = f.V
		}
		return nil
	})
	return o, err
}

func EncodeOpenOrders(oo *auction.OpenOrders) []byte {
	var e wire.Buffer
	e.PutBytes(1, oo.ID[:])
	e.PutString(2, oo.Owner)
	e.PutString(3, oo.AuctionID)
	e.PutUint(4, uint64(oo.Side))
	e.PutUint(5, uint64(oo.MaxOrders))
	for _, k := range oo.Orders {
		putKeyAlways(&e, 6, k)
	}
	for _, enc := range oo.EncryptedOrders {
		e.PutMsg(7, encodeEncryptedOrder(enc))
	}
	e.PutBytes(8, oo.EncryptionPubkey)
	e.PutUint(9, oo.QuoteTokenLocked)
	e.PutUint(10, oo.QuoteTokenFree)
	e.PutUint(11, oo.BaseTokenLocked)
	e.PutUint(12, oo.BaseTokenFree)
	return e
}

func DecodeOpenOrders(b []byte) (*auction.OpenOrders, error) {
	oo := &auction.OpenOrders{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			oo.ID, err = callbackInfo(f.B)
		case 2:
			oo.Owner = f.String()
		case 3:
			oo.AuctionID = f.String()
		case 4:
			oo.Side = orderbook.Side(f.V)
		case 5:
			oo.MaxOrders = uint8(f.V)
		case 6:
			var k orderbook.Key
			if k, err = orderbook.KeyFromBytes(f.B); err == nil {
				oo.Orders = append(oo.Orders, k)
			}
		case 7:
			var enc auction.EncryptedOrder
			if enc, err = decodeEncryptedOrder(f.B); err == nil {
				oo.EncryptedOrders = append(oo.EncryptedOrders, enc)
			}
		case 8:
			oo.EncryptionPubkey = f.Clone()
		case 9:
			oo.QuoteTokenLocked = f.V
		case 10:
			oo.QuoteTokenFree = f.V
		case 11:
			oo.BaseTokenLocked = f.V
		case 12:
			oo.BaseTokenFree = f.V
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	return oo, nil
}

// -------------------- OrderHistory --------------------

func EncodeOrderHistory(h *auction.OrderHistory) []byte {
	var e wire.Buffer
	e.PutBytes(1, h.OpenOrdersID[:])
	e.PutString(2, h.Owner)
	e.PutString(3, h.AuctionID)
	e.PutUint(4, uint64(h.Side))
	e.PutUint(5, h.QuoteAmountReturned)
	e.PutUint(6, h.BaseAmountReturned)
	return e
}

func DecodeOrderHistory(b []byte) (*auction.OrderHistory, error) {
	h := &auction.OrderHistory{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			h.OpenOrdersID, err = callbackInfo(f.B)
		case 2:
			h.Owner = f.String()
		case 3:
			h.AuctionID = f.String()
		case 4:
			h.Side = orderbook.Side(f.V)
		case 5:
			h.QuoteAmountReturned = f.V
		case 6:
			h.BaseAmountReturned = f.V
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode order history: %w", err)
	}
	return h, nil
}

// -------------------- Book --------------------

func encodeSlabNode(n orderbook.SlabNode) []byte {
	var e wire.Buffer
	putKey(&e, 1, n.Leaf.Key)
	e.PutUint(2, n.Leaf.BaseQuantity)
	if n.Leaf.Owner != (orderbook.CallbackInfo{}) {
		e.PutBytes(3, n.Leaf.Owner[:])
	}
	e.PutBool(4, n.Black)
	e.PutUint(5, uint64(n.Left))
	e.PutUint(6, uint64(n.Right))
	e.PutUint(7, uint64(n.Parent))
	e.PutBool(8, n.Used)
	return e
}

func decodeSlabNode(b []byte) (orderbook.SlabNode, error) {
	var n orderbook.SlabNode
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			n.Leaf.Key, err = orderbook.KeyFromBytes(f.B)
		case 2:
			n.Leaf.BaseQuantity = f.V
		case 3:
			n.Leaf.Owner, err = callbackInfo(f.B)
		case 4:
			n.Black = f.Bool()
		case 5:
			n.Left = uint32(f.V)
		case 6:
			n.Right = uint32(f.V)
		case 7:
			n.Parent = uint32(f.V)
		case 8:
			n.Used = f.Bool()
		}
		return err
	})
	return n, err
}

func encodeSlab(st orderbook.SlabState) []byte {
	var e wire.Buffer
	e.PutUint(1, uint64(st.Capacity))
	e.PutUint(2, uint64(st.Root))
	for _, n := range st.Nodes {
		e.PutMsg(3, encodeSlabNode(n))
	}
	e.PutPacked(4, st.Free)
	return e
}

func decodeSlab(b []byte) (orderbook.SlabState, error) {
	var st orderbook.SlabState
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			st.Capacity = int(f.V)
		case 2:
			st.Root = uint32(f.V)
		case 3:
			var n orderbook.SlabNode
			if n, err = decodeSlabNode(f.B); err == nil {
				st.Nodes = append(st.Nodes, n)
			}
		case 4:
			st.Free, err = wire.Unpack(f.B)
		}
		return err
	})
	return st, err
}

func EncodeBook(book *orderbook.OrderBook) []byte {
	st := book.State()
	var e wire.Buffer
	e.PutUint(1, st.LastSeq)
	e.PutMsg(2, encodeSlab(st.Bids))
	e.PutMsg(3, encodeSlab(st.Asks))
	return e
}

func DecodeBook(b []byte) (*orderbook.OrderBook, error) {
	var st orderbook.BookState
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			st.LastSeq = f.V
		case 2:
			st.Bids, err = decodeSlab(f.B)
		case 3:
			st.Asks, err = decodeSlab(f.B)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode book: %w", err)
	}
	return orderbook.RestoreOrderBook(st)
}

// -------------------- Event queue --------------------

func encodeEvent(ev eventqueue.Event) []byte {
	var e wire.Buffer
	e.PutUint(1, uint64(ev.Kind))
	e.PutUint(2, uint64(ev.Side))
	putKey(&e, 3, ev.OrderID)
	e.PutUint(4, ev.BaseSize)
	e.PutUint(5, ev.QuoteSize)
	e.PutBytes(6, ev.Owner[:])
	return e
}

func decodeEvent(b []byte) (eventqueue.Event, error) {
	var ev eventqueue.Event
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			ev.Kind = eventqueue.Kind(f.V)
		case 2:
			ev.Side = orderbook.Side(f.V)
		case 3:
			ev.OrderID, err = orderbook.KeyFromBytes(f.B)
		case 4:
			ev.BaseSize = f.V
		case 5:
			ev.QuoteSize = f.V
		case 6:
			ev.Owner, err = callbackInfo(f.B)
		}
		return err
	})
	return ev, err
}

func EncodeQueue(q *eventqueue.Queue) []byte {
	var e wire.Buffer
	e.PutUint(1, uint64(q.Cap()))
	for _, ev := range q.Events() {
		e.PutMsg(2, encodeEvent(ev))
	}
	return e
}

func DecodeQueue(b []byte) (*eventqueue.Queue, error) {
	var capacity int
	var events []eventqueue.Event
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			capacity = int(f.V)
		case 2:
			ev, err := decodeEvent(f.B)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode event queue: %w", err)
	}
	return eventqueue.Restore(capacity, events)
}
