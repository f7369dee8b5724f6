package snapshot

import "time"

type Snapshot struct {
	// Seq is the last journal sequence applied to the captured state.
	Seq      uint64
	Created  time.Time
	Auction  AuctionEntry
	Orders   []OrderEntry
	Accounts []AccountEntry
}

type AuctionEntry struct {
	ID                   string
	BaseAsset            string
	QuoteAsset           string
	Phase                string
	ClearingPrice        uint64
	TotalQuantityMatched uint64
	Closed               bool
}

type OrderEntry struct {
	ID    string
	Side  int
	Price uint64
	Qty   uint64
	Owner string
}

type AccountEntry struct {
	ID          string
	Owner       string
	Side        int
	Orders      int
	Encrypted   int
	BaseLocked  uint64
	BaseFree    uint64
	QuoteLocked uint64
	QuoteFree   uint64
}
