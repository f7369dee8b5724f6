// Package sealbox opens encrypted orders. Orders are sealed with NaCl box
// (Curve25519, XSalsa20, Poly1305) between the bidder's key pair and the
// auctioneer's; the auctioneer reveals them with the precomputed shared key.
package sealbox

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/box"

	"github.com/Henry-E/auction-house/domain/auction"
)

const (
	KeySize   = 32
	NonceSize = auction.NonceSize
	// PlaintextSize is limit_price LE followed by max_base_qty LE.
	PlaintextSize = 16
)

var (
	ErrKeySize   = errors.New("sealbox: key must be 32 bytes")
	ErrNonceSize = errors.New("sealbox: nonce must be 24 bytes")
	ErrOpen      = errors.New("sealbox: message authentication failed")
)

// Opener implements auction.Opener.
type Opener struct{}

var _ auction.Opener = Opener{}

func (Opener) Open(sharedKey, nonce, ciphertext []byte) ([]byte, error) {
	k, n, err := arrays(sharedKey, nonce)
	if err != nil {
		return nil, err
	}
	out, ok := box.OpenAfterPrecomputation(nil, ciphertext, n, k)
	if !ok {
		return nil, ErrOpen
	}
	return out, nil
}

// Seal encrypts msg with a precomputed shared key.
func Seal(sharedKey, nonce, msg []byte) ([]byte, error) {
	k, n, err := arrays(sharedKey, nonce)
	if err != nil {
		return nil, err
	}
	return box.SealAfterPrecomputation(nil, msg, n, k), nil
}

// Precompute derives the shared key between a peer's public key and our
// private key. Both sides of a box arrive at the same value.
func Precompute(peerPublic, private []byte) ([]byte, error) {
	if len(peerPublic) != KeySize || len(private) != KeySize {
		return nil, ErrKeySize
	}
	var pub, priv, shared [KeySize]byte
	copy(pub[:], peerPublic)
	copy(priv[:], private)
	box.Precompute(&shared, &pub, &priv)
	return shared[:], nil
}

// GenerateKey returns a fresh key pair read from r, crypto/rand when nil.
func GenerateKey(r io.Reader) (public, private []byte, err error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := box.GenerateKey(r)
	if err != nil {
		return nil, nil, err
	}
	return pub[:], priv[:], nil
}

// EncodeOrder lays out the plaintext of an encrypted order.
func EncodeOrder(limitPrice, maxBaseQty uint64) []byte {
	b := make([]byte, PlaintextSize)
	binary.LittleEndian.PutUint64(b[:8], limitPrice)
	binary.LittleEndian.PutUint64(b[8:], maxBaseQty)
	return b
}

func arrays(key, nonce []byte) (*[KeySize]byte, *[NonceSize]byte, error) {
	if len(key) != KeySize {
		return nil, nil, ErrKeySize
	}
	if len(nonce) != NonceSize {
		return nil, nil, ErrNonceSize
	}
	var k [KeySize]byte
	var n [NonceSize]byte
	copy(k[:], key)
	copy(n[:], nonce)
	return &k, &n, nil
}
