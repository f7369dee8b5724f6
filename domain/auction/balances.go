package auction

import (
	"errors"

	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

// Ledger moves tokens between an owner and the auction vaults. Balance
// sufficiency is checked by the caller; implementations only record.
type Ledger interface {
	Lock(owner string, asset Asset, amount uint64) error
	Transfer(owner string, asset Asset, amount uint64) error
}

func arith(err error) error {
	if errors.Is(err, fp32.ErrOverflow) {
		return ErrNumericalOverflow
	}
	return err
}

// lockedAsset is what an order on side s locks: base for asks, quote for bids.
func lockedAsset(s orderbook.Side) Asset {
	if s == orderbook.Ask {
		return Base
	}
	return Quote
}

func (o *OpenOrders) balances(asset Asset) (locked, free *uint64) {
	if asset == Base {
		return &o.BaseTokenLocked, &o.BaseTokenFree
	}
	return &o.QuoteTokenLocked, &o.QuoteTokenFree
}

func (o *OpenOrders) lock(asset Asset, amount uint64) error {
	locked, _ := o.balances(asset)
	v, err := fp32.Add(*locked, amount)
	if err != nil {
		return ErrNumericalOverflow
	}
	*locked = v
	return nil
}

// unlockToFree moves amount of asset from locked to free.
func (o *OpenOrders) unlockToFree(asset Asset, amount uint64) error {
	locked, free := o.balances(asset)
	l, err := fp32.Sub(*locked, amount)
	if err != nil {
		return ErrNumericalOverflow
	}
	f, err := fp32.Add(*free, amount)
	if err != nil {
		return ErrNumericalOverflow
	}
	*locked, *free = l, f
	return nil
}

// settle debits locked of one asset and credits free of another.
func (o *OpenOrders) settle(debit Asset, debitAmount uint64, credit Asset, creditAmount uint64) error {
	locked, _ := o.balances(debit)
	_, free := o.balances(credit)
	l, err := fp32.Sub(*locked, debitAmount)
	if err != nil {
		return ErrNumericalOverflow
	}
	f, err := fp32.Add(*free, creditAmount)
	if err != nil {
		return ErrNumericalOverflow
	}
	*locked, *free = l, f
	return nil
}

// sweepDust frees whatever is still locked once nothing backs it. Bid
// refunds are rounded down through base units, which can strand a few quote
// units after the last order settles.
func (o *OpenOrders) sweepDust() error {
	if len(o.Orders) > 0 || len(o.EncryptedOrders) > 0 {
		return nil
	}
	if err := o.unlockToFree(Quote, o.QuoteTokenLocked); err != nil {
		return err
	}
	return o.unlockToFree(Base, o.BaseTokenLocked)
}

// Clone returns a deep copy.
func (o *OpenOrders) Clone() *OpenOrders {
	c := *o
	if o.Orders != nil {
		c.Orders = append(make([]orderbook.Key, 0, len(o.Orders)), o.Orders...)
	}
	if o.EncryptedOrders != nil {
		c.EncryptedOrders = make([]EncryptedOrder, len(o.EncryptedOrders))
		for i, e := range o.EncryptedOrders {
			c.EncryptedOrders[i] = EncryptedOrder{
				Nonce:      append([]byte(nil), e.Nonce...),
				Ciphertext: append([]byte(nil), e.Ciphertext...),
				TokenQty:   e.TokenQty,
			}
		}
	}
	if o.EncryptionPubkey != nil {
		c.EncryptionPubkey = append([]byte{}, o.EncryptionPubkey...)
	}
	return &c
}
