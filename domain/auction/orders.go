package auction

import (
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

func (a *Auction) validatePriceAndQty(limitPrice, maxBaseQty uint64) error {
	if limitPrice%a.TickSize != 0 {
		return ErrLimitPriceNotAMultipleOfTick
	}
	if maxBaseQty < a.MinBaseOrderSize {
		return ErrOrderBelowMinBaseOrderSize
	}
	return nil
}

// NewOrder rests a plain limit order and locks what it needs: base for an
// ask, quote at the limit price for a bid.
func NewOrder(a *Auction, oo *OpenOrders, book *orderbook.OrderBook, ledger Ledger, now int64, limitPrice, maxBaseQty uint64) (orderbook.OrderSummary, error) {
	var sum orderbook.OrderSummary
	if err := a.checkOrderPhase(now); err != nil {
		return sum, err
	}
	if a.IsEncrypted(oo.Side) {
		return sum, ErrEncryptedOrdersOnlyOnThisSide
	}
	if !oo.hasSpace() {
		return sum, ErrTooManyOrders
	}
	if err := a.validatePriceAndQty(limitPrice, maxBaseQty); err != nil {
		return sum, err
	}
	maxQuote, err := fp32.Mul(maxBaseQty, limitPrice)
	if err != nil {
		return sum, ErrNumericalOverflow
	}

	p := orderbook.NewOrderParams{
		Side:        oo.Side,
		LimitPrice:  limitPrice,
		MaxBaseQty:  maxBaseQty,
		MaxQuoteQty: maxQuote,
		Owner:       oo.ID,
	}
	base, quote, err := book.Sizes(p, a.MinBaseOrderSize)
	if err != nil {
		return sum, bookErr(err)
	}
	asset, amount := Base, base
	if oo.Side == orderbook.Bid {
		asset, amount = Quote, quote
	}
	next := oo.Clone()
	if err := next.lock(asset, amount); err != nil {
		return sum, err
	}

	if sum, err = book.NewOrder(p, a.MinBaseOrderSize); err != nil {
		return sum, bookErr(err)
	}
	if err := ledger.Lock(oo.Owner, asset, amount); err != nil {
		return sum, err
	}
	next.Orders = append(next.Orders, sum.PostedOrderID)
	*oo = *next
	return sum, nil
}

// CancelOrder pulls a plain order off the book and frees what it locked.
func CancelOrder(a *Auction, oo *OpenOrders, book *orderbook.OrderBook, now int64, orderID orderbook.Key) (orderbook.LeafNode, error) {
	if err := a.checkOrderPhase(now); err != nil {
		return orderbook.LeafNode{}, err
	}
	if a.IsEncrypted(oo.Side) {
		return orderbook.LeafNode{}, ErrEncryptedOrdersOnlyOnThisSide
	}
	idx := oo.indexOf(orderID)
	if idx < 0 {
		return orderbook.LeafNode{}, ErrOrderIDNotFound
	}
	leaf, ok := book.GetNode(oo.Side, orderID)
	if !ok {
		return orderbook.LeafNode{}, ErrNodeKeyNotFound
	}

	asset, amount := Base, leaf.BaseQuantity
	if oo.Side == orderbook.Bid {
		quote, err := fp32.Mul(leaf.BaseQuantity, leaf.Price())
		if err != nil {
			return orderbook.LeafNode{}, ErrNumericalOverflow
		}
		asset, amount = Quote, quote
	}
	next := oo.Clone()
	if err := next.unlockToFree(asset, amount); err != nil {
		return orderbook.LeafNode{}, err
	}
	next.removeOrder(idx)
	if err := next.sweepDust(); err != nil {
		return orderbook.LeafNode{}, err
	}

	book.RemoveByKey(oo.Side, orderID)
	*oo = *next
	return leaf, nil
}

// NewEncryptedOrder queues a sealed order and locks tokenQty of the side's
// asset against it. The first encrypted order fixes the record's public key.
func NewEncryptedOrder(a *Auction, oo *OpenOrders, ledger Ledger, now int64, tokenQty uint64, pubkey, nonce, ciphertext []byte) error {
	if err := a.checkOrderPhase(now); err != nil {
		return err
	}
	if !a.IsEncrypted(oo.Side) {
		return ErrUnencryptedOrdersOnlyOnThisSide
	}
	if !oo.hasSpace() {
		return ErrTooManyOrders
	}
	if len(pubkey) != 32 {
		return ErrInvalidEncryptionPubkey
	}
	if len(oo.EncryptionPubkey) > 0 && string(oo.EncryptionPubkey) != string(pubkey) {
		return ErrEncryptionPubkeysDoNotMatch
	}
	if len(nonce) != NonceSize || len(ciphertext) == 0 || tokenQty == 0 {
		return ErrInvalidEncryptedOrder
	}
	enc := EncryptedOrder{
		Nonce:      append([]byte(nil), nonce...),
		Ciphertext: append([]byte(nil), ciphertext...),
		TokenQty:   tokenQty,
	}
	for _, e := range oo.EncryptedOrders {
		if e.sameAs(enc) {
			return ErrIdenticalEncryptedOrderFound
		}
	}

	asset := lockedAsset(oo.Side)
	next := oo.Clone()
	if err := next.lock(asset, tokenQty); err != nil {
		return err
	}
	if err := ledger.Lock(oo.Owner, asset, tokenQty); err != nil {
		return err
	}
	if len(next.EncryptionPubkey) == 0 {
		next.EncryptionPubkey = append([]byte(nil), pubkey...)
	}
	next.EncryptedOrders = append(next.EncryptedOrders, enc)
	*oo = *next
	return nil
}

// CancelEncryptedOrder drops queued encrypted order idx and frees its
// tokens. Besides the order phase this is allowed once decryption is over,
// to recover orders that were never revealed.
func CancelEncryptedOrder(a *Auction, oo *OpenOrders, now int64, idx int) (EncryptedOrder, error) {
	if a.Closed {
		return EncryptedOrder{}, ErrAuctionClosed
	}
	inOrderPhase := now >= a.StartOrderPhase && now < a.EndOrderPhase
	if !inOrderPhase && now < a.EndDecryptionPhase {
		return EncryptedOrder{}, ErrOrderPhaseNotActive
	}
	if idx < 0 || idx >= len(oo.EncryptedOrders) {
		return EncryptedOrder{}, ErrOrderIdxNotValid
	}

	enc := oo.EncryptedOrders[idx]
	next := oo.Clone()
	if err := next.unlockToFree(lockedAsset(oo.Side), enc.TokenQty); err != nil {
		return EncryptedOrder{}, err
	}
	next.EncryptedOrders = append(next.EncryptedOrders[:idx:idx], next.EncryptedOrders[idx+1:]...)
	if err := next.sweepDust(); err != nil {
		return EncryptedOrder{}, err
	}
	*oo = *next
	return enc, nil
}
