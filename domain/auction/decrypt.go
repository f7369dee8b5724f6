package auction

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/Henry-E/auction-house/domain/orderbook"
)

// NonceSize is the length of an encrypted order nonce.
const NonceSize = 24

// Opener reverses the sealing of an encrypted order.
type Opener interface {
	Open(sharedKey, nonce, ciphertext []byte) ([]byte, error)
}

type DecryptResult struct {
	Posted []orderbook.OrderSummary
	// Freed is the surplus moved from locked to free.
	Freed uint64
}

type revealed struct {
	params  orderbook.NewOrderParams
	surplus uint64
}

// DecryptOrders reveals every queued encrypted order of oo and posts it to
// the book. It first opens and checks all of them without touching
// anything; only when the whole inbox is good does it post the orders,
// free the unused locked tokens and empty the inbox.
func DecryptOrders(a *Auction, oo *OpenOrders, book *orderbook.OrderBook, opener Opener, sharedKey []byte, now int64) (DecryptResult, error) {
	var res DecryptResult
	if err := a.checkDecryptionPhase(now); err != nil {
		return res, err
	}
	if len(oo.EncryptedOrders) == 0 {
		return res, nil
	}

	plan := make([]revealed, 0, len(oo.EncryptedOrders))
	for _, enc := range oo.EncryptedOrders {
		plain, err := opener.Open(sharedKey, enc.Nonce, enc.Ciphertext)
		if err != nil {
			return res, ErrInvalidSharedKey
		}
		if len(plain) < 16 {
			return res, ErrInvalidEncryptedOrder
		}
		price := binary.LittleEndian.Uint64(plain[0:8])
		maxBase := binary.LittleEndian.Uint64(plain[8:16])
		if err := a.validatePriceAndQty(price, maxBase); err != nil {
			return res, err
		}

		p := orderbook.NewOrderParams{
			Side:        oo.Side,
			LimitPrice:  price,
			MaxBaseQty:  maxBase,
			MaxQuoteQty: math.MaxUint64,
			Owner:       oo.ID,
		}
		base, quote, err := book.Sizes(p, a.MinBaseOrderSize)
		if err != nil {
			return res, bookErr(err)
		}
		needed := base
		if oo.Side == orderbook.Bid {
			needed = quote
		}
		if enc.TokenQty < needed {
			return res, ErrInsufficientTokensForOrder
		}
		plan = append(plan, revealed{params: p, surplus: enc.TokenQty - needed})
	}
	if book.Free(oo.Side) < len(plan) {
		return res, ErrOrderBookFull
	}

	next := oo.Clone()
	asset := lockedAsset(oo.Side)
	for _, r := range plan {
		if err := next.unlockToFree(asset, r.surplus); err != nil {
			return res, err
		}
		res.Freed += r.surplus
	}
	for _, r := range plan {
		sum, err := book.NewOrder(r.params, a.MinBaseOrderSize)
		if err != nil {
			return DecryptResult{}, bookErr(err)
		}
		next.Orders = append(next.Orders, sum.PostedOrderID)
		res.Posted = append(res.Posted, sum)
	}
	next.EncryptedOrders = nil
	*oo = *next
	return res, nil
}

func bookErr(err error) error {
	switch {
	case errors.Is(err, orderbook.ErrOrderTooSmall):
		return ErrOrderBelowMinBaseOrderSize
	case errors.Is(err, orderbook.ErrSlabFull):
		return ErrOrderBookFull
	}
	return arith(err)
}
