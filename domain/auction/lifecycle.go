package auction

import (
	"github.com/Henry-E/auction-house/domain/eventqueue"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

type InitAuctionArgs struct {
	ID                 string
	Authority          string
	BaseAsset          string
	QuoteAsset         string
	EncryptionPubkey   []byte
	StartOrderPhase    int64
	EndOrderPhase      int64
	EndDecryptionPhase int64
	AreAsksEncrypted   bool
	AreBidsEncrypted   bool
	MinBaseOrderSize   uint64
	TickSize           uint64
}

func validIdent(s string, max int) bool {
	if len(s) == 0 || len(s) > max {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' || s[i] == '/' {
			return false
		}
	}
	return true
}

// ValidateAuctionID checks the shape of an auction id.
func ValidateAuctionID(id string) error {
	if !validIdent(id, 32) {
		return ErrInvalidAuctionID
	}
	return nil
}

// ValidateOwner checks the shape of an owner or authority identity.
func ValidateOwner(owner string) error {
	if !validIdent(owner, 64) {
		return ErrInvalidOwner
	}
	return nil
}

// NewAuction validates args against the clock and builds a fresh record
// with every discovery and matching field zeroed.
func NewAuction(args InitAuctionArgs, now int64) (*Auction, error) {
	if err := ValidateAuctionID(args.ID); err != nil {
		return nil, err
	}
	if err := ValidateOwner(args.Authority); err != nil {
		return nil, err
	}
	if args.EndOrderPhase <= args.StartOrderPhase {
		return nil, ErrInvalidStartTimes
	}
	if args.EndOrderPhase <= now {
		return nil, ErrInvalidEndTimes
	}
	if args.EndDecryptionPhase < args.EndOrderPhase {
		return nil, ErrInvalidDecryptionEndTime
	}
	if args.MinBaseOrderSize == 0 {
		return nil, ErrInvalidMinBaseOrderSize
	}
	if args.TickSize == 0 {
		return nil, ErrInvalidTickSize
	}
	encrypted := args.AreAsksEncrypted || args.AreBidsEncrypted
	if (encrypted || len(args.EncryptionPubkey) > 0) && len(args.EncryptionPubkey) != 32 {
		return nil, ErrInvalidEncryptionPubkey
	}

	return &Auction{
		ID:                 args.ID,
		Authority:          args.Authority,
		BaseAsset:          args.BaseAsset,
		QuoteAsset:         args.QuoteAsset,
		EncryptionPubkey:   append([]byte(nil), args.EncryptionPubkey...),
		StartOrderPhase:    args.StartOrderPhase,
		EndOrderPhase:      args.EndOrderPhase,
		EndDecryptionPhase: args.EndDecryptionPhase,
		AreAsksEncrypted:   args.AreAsksEncrypted,
		AreBidsEncrypted:   args.AreBidsEncrypted,
		MinBaseOrderSize:   args.MinBaseOrderSize,
		TickSize:           args.TickSize,
	}, nil
}

// InitOpenOrders opens a user's record on one side. The returned history
// starts with zero amounts and is overwritten at close.
func InitOpenOrders(a *Auction, id orderbook.CallbackInfo, owner string, side orderbook.Side, maxOrders uint8, now int64) (*OpenOrders, *OrderHistory, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, nil, err
	}
	if !side.Valid() {
		return nil, nil, ErrInvalidSide
	}
	if a.Closed || now < a.StartOrderPhase || now >= a.EndOrderPhase {
		return nil, nil, ErrOrderPhaseNotActive
	}
	if maxOrders < 1 || maxOrders > MaxOrdersLimit {
		return nil, nil, ErrMaxOrdersValueIsInvalid
	}
	oo := &OpenOrders{
		ID:        id,
		Owner:     owner,
		AuctionID: a.ID,
		Side:      side,
		MaxOrders: maxOrders,
	}
	hist := &OrderHistory{
		OpenOrdersID: id,
		Owner:        owner,
		AuctionID:    a.ID,
		Side:         side,
	}
	return oo, hist, nil
}

// SettleAndCloseOpenOrders pays out both free balances and returns the
// final history. It is allowed in any phase once nothing is resting and
// nothing is locked.
func SettleAndCloseOpenOrders(oo *OpenOrders, ledger Ledger) (*OrderHistory, error) {
	if oo.NumOrders() > 0 {
		return nil, ErrOpenOrdersHasOpenOrders
	}
	if oo.QuoteTokenLocked != 0 || oo.BaseTokenLocked != 0 || len(oo.EncryptedOrders) > 0 {
		return nil, ErrOpenOrdersHasLockedTokens
	}
	hist := &OrderHistory{
		OpenOrdersID:        oo.ID,
		Owner:               oo.Owner,
		AuctionID:           oo.AuctionID,
		Side:                oo.Side,
		QuoteAmountReturned: oo.QuoteTokenFree,
		BaseAmountReturned:  oo.BaseTokenFree,
	}
	if oo.BaseTokenFree > 0 {
		if err := ledger.Transfer(oo.Owner, Base, oo.BaseTokenFree); err != nil {
			return nil, err
		}
	}
	if oo.QuoteTokenFree > 0 {
		if err := ledger.Transfer(oo.Owner, Quote, oo.QuoteTokenFree); err != nil {
			return nil, err
		}
	}
	oo.BaseTokenFree, oo.QuoteTokenFree = 0, 0
	return hist, nil
}

// CloseAuctionResources marks the auction closed once it is over.
func CloseAuctionResources(a *Auction, book *orderbook.OrderBook, q *eventqueue.Queue) error {
	if a.Closed {
		return ErrAuctionClosed
	}
	if !a.HasFoundClearingPrice {
		return ErrAuctionNotFinished
	}
	if !book.IsEmpty() {
		return ErrOrderBookNotEmpty
	}
	if !q.IsEmpty() {
		return ErrEventQueueNotEmpty
	}
	a.Closed = true
	return nil
}
