package auction

import (
	"bytes"

	"github.com/Henry-E/auction-house/domain/orderbook"
)

// MaxOrdersLimit is the largest max_orders an OpenOrders may ask for.
const MaxOrdersLimit = 8

type Asset uint8

const (
	Base Asset = iota
	Quote
)

func (a Asset) String() string {
	if a == Base {
		return "base"
	}
	return "quote"
}

// Cursor is the resumable state of clearing price discovery. Each stack is
// the walk position just before the side's current node was yielded, so a
// resumed call finds the current node with a single step.
type Cursor struct {
	CurrentBidKey            orderbook.Key
	CurrentAskKey            orderbook.Key
	CurrentBidQuantityFilled uint64
	CurrentAskQuantityFilled uint64
	TotalQuantityFilledSoFar uint64
	BidSearchStack           orderbook.Stack
	AskSearchStack           orderbook.Stack
}

// Initialized reports whether discovery has picked its first pair of nodes.
func (c *Cursor) Initialized() bool {
	return !c.CurrentBidKey.IsZero() || !c.CurrentAskKey.IsZero()
}

// Auction is the per-auction record.
type Auction struct {
	ID               string
	Authority        string
	BaseAsset        string
	QuoteAsset       string
	EncryptionPubkey []byte

	StartOrderPhase    int64
	EndOrderPhase      int64
	EndDecryptionPhase int64
	AreAsksEncrypted   bool
	AreBidsEncrypted   bool
	MinBaseOrderSize   uint64
	TickSize           uint64

	Cursor

	HasFoundClearingPrice bool
	TotalQuantityMatched  uint64
	RemainingBidFills     uint64
	RemainingAskFills     uint64
	// QuoteMatched is the quote paid by bid fills so far. Ask fills split
	// exactly this amount.
	QuoteMatched          uint64
	FinalBidPrice         uint64
	FinalAskPrice         uint64
	ClearingPrice         uint64

	Closed bool
}

// IsEncrypted reports whether side only takes encrypted orders.
func (a *Auction) IsEncrypted(side orderbook.Side) bool {
	if side == orderbook.Ask {
		return a.AreAsksEncrypted
	}
	return a.AreBidsEncrypted
}

type EncryptedOrder struct {
	Nonce      []byte
	Ciphertext []byte
	TokenQty   uint64
}

func (e EncryptedOrder) sameAs(o EncryptedOrder) bool {
	return bytes.Equal(e.Nonce, o.Nonce) && bytes.Equal(e.Ciphertext, o.Ciphertext)
}

// OpenOrders is one user's stake on one side of one auction.
type OpenOrders struct {
	ID        orderbook.CallbackInfo
	Owner     string
	AuctionID string
	Side      orderbook.Side
	MaxOrders uint8

	Orders          []orderbook.Key
	EncryptedOrders []EncryptedOrder
	// EncryptionPubkey is fixed by the first encrypted order.
	EncryptionPubkey []byte

	QuoteTokenLocked uint64
	QuoteTokenFree   uint64
	BaseTokenLocked  uint64
	BaseTokenFree    uint64
}

func (o *OpenOrders) NumOrders() int { return len(o.Orders) }

func (o *OpenOrders) hasSpace() bool {
	return len(o.Orders)+len(o.EncryptedOrders) < int(o.MaxOrders)
}

func (o *OpenOrders) indexOf(id orderbook.Key) int {
	for i, k := range o.Orders {
		if k == id {
			return i
		}
	}
	return -1
}

func (o *OpenOrders) removeOrder(i int) {
	o.Orders = append(o.Orders[:i:i], o.Orders[i+1:]...)
}

// OrderHistory is written once when OpenOrders closes.
type OrderHistory struct {
	OpenOrdersID        orderbook.CallbackInfo
	Owner               string
	AuctionID           string
	Side                orderbook.Side
	QuoteAmountReturned uint64
	BaseAmountReturned  uint64
}
