// Package ledger books token movements between owners and the per-auction
// vaults. It never checks an owner's outside balance: custody starts when a
// lock is booked and ends when a transfer pays out.
package ledger

import (
	"errors"
	"fmt"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/fp32"
	"github.com/Henry-E/auction-house/infra/store"
)

var ErrVaultShortfall = errors.New("ledger: vault holds less than the transfer")

func vaultKey(auctionID string, asset auction.Asset) []byte {
	return []byte("vault/" + auctionID + "/" + asset.String())
}

func accountKey(auctionID, owner string, asset auction.Asset, dir string) []byte {
	return []byte("account/" + auctionID + "/" + owner + "/" + asset.String() + "/" + dir)
}

// Ledger implements auction.Ledger inside one store transaction.
type Ledger struct {
	tx        *store.Txn
	auctionID string
}

func New(tx *store.Txn, auctionID string) *Ledger {
	return &Ledger{tx: tx, auctionID: auctionID}
}

// Lock moves amount from the owner into the vault.
func (l *Ledger) Lock(owner string, asset auction.Asset, amount uint64) error {
	if err := l.add(vaultKey(l.auctionID, asset), amount); err != nil {
		return err
	}
	return l.add(accountKey(l.auctionID, owner, asset, "deposited"), amount)
}

// Transfer pays amount out of the vault to the owner.
func (l *Ledger) Transfer(owner string, asset auction.Asset, amount uint64) error {
	key := vaultKey(l.auctionID, asset)
	v, err := l.get(key)
	if err != nil {
		return err
	}
	if v < amount {
		return fmt.Errorf("%w: %s vault has %d, transfer %d", ErrVaultShortfall, asset, v, amount)
	}
	if err := l.tx.SetUint(key, v-amount); err != nil {
		return err
	}
	return l.add(accountKey(l.auctionID, owner, asset, "withdrawn"), amount)
}

func (l *Ledger) get(key []byte) (uint64, error) {
	v, err := l.tx.GetUint(key)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	return v, err
}

func (l *Ledger) add(key []byte, amount uint64) error {
	v, err := l.get(key)
	if err != nil {
		return err
	}
	if v, err = fp32.Add(v, amount); err != nil {
		return auction.ErrNumericalOverflow
	}
	return l.tx.SetUint(key, v)
}

// Vault is what the auction currently holds of asset.
func (l *Ledger) Vault(asset auction.Asset) (uint64, error) {
	return l.get(vaultKey(l.auctionID, asset))
}

type Account struct {
	Deposited uint64
	Withdrawn uint64
}

// Account is the owner's lifetime flow of asset through this auction.
func (l *Ledger) Account(owner string, asset auction.Asset) (Account, error) {
	var acc Account
	var err error
	if acc.Deposited, err = l.get(accountKey(l.auctionID, owner, asset, "deposited")); err != nil {
		return acc, err
	}
	acc.Withdrawn, err = l.get(accountKey(l.auctionID, owner, asset, "withdrawn"))
	return acc, err
}
