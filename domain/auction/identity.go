package auction

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/Henry-E/auction-house/domain/orderbook"
)

// OpenOrdersID derives the record id of owner's stake on side of an
// auction. The id doubles as the callback info carried by every resting
// order of that record.
func OpenOrdersID(auctionID, owner string, side orderbook.Side) orderbook.CallbackInfo {
	h := blake3.New()
	var n [4]byte
	for _, part := range []string{auctionID, owner} {
		binary.BigEndian.PutUint32(n[:], uint32(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(part))
	}
	_, _ = h.Write([]byte{byte(side)})

	var id orderbook.CallbackInfo
	copy(id[:], h.Sum(nil))
	return id
}
