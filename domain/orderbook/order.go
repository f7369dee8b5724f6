package orderbook

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

func (s Side) Valid() bool { return s == Bid || s == Ask }

func ParseSide(v string) (Side, error) {
	switch v {
	case "bid", "BID", "Bid":
		return Bid, nil
	case "ask", "ASK", "Ask":
		return Ask, nil
	}
	return 0, fmt.Errorf("unknown side %q", v)
}

// Key identifies a resting order.
//
// Hi carries the limit price. Lo carries the insertion sequence, stored
// inverted on the bid side so that walking either side best-first also walks
// equal prices oldest-first.
type Key struct {
	Hi uint64
	Lo uint64
}

func NewKey(side Side, price, seq uint64) Key {
	if side == Bid {
		return Key{Hi: price, Lo: ^seq}
	}
	return Key{Hi: price, Lo: seq}
}

// Price is the limit price encoded in the key.
func (k Key) Price() uint64 { return k.Hi }

func (k Key) IsZero() bool { return k.Hi == 0 && k.Lo == 0 }

func (k Key) Compare(o Key) int {
	switch {
	case k.Hi < o.Hi:
		return -1
	case k.Hi > o.Hi:
		return 1
	case k.Lo < o.Lo:
		return -1
	case k.Lo > o.Lo:
		return 1
	}
	return 0
}

// Bytes is the 16 byte big-endian form, which sorts like Compare.
func (k Key) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:], k.Lo)
	return b
}

func (k Key) String() string { return hex.EncodeToString(k.Bytes()) }

var (
	ErrInvalidKey          = errors.New("orderbook: invalid order key")
	ErrInvalidCallbackInfo = errors.New("orderbook: invalid callback info")
)

func KeyFromBytes(b []byte) (Key, error) {
	if len(b) != 16 {
		return Key{}, ErrInvalidKey
	}
	return Key{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

func ParseKey(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, ErrInvalidKey
	}
	return KeyFromBytes(b)
}

// CallbackInfo is the opaque owner identity attached to every resting order
// and copied into every event the order produces.
type CallbackInfo [32]byte

func (c CallbackInfo) String() string { return hex.EncodeToString(c[:]) }

// ParseCallbackInfo reads the hex form produced by String.
func ParseCallbackInfo(s string) (CallbackInfo, error) {
	var c CallbackInfo
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(c) {
		return c, ErrInvalidCallbackInfo
	}
	copy(c[:], b)
	return c, nil
}

// LeafNode is a resting order.
type LeafNode struct {
	Key          Key
	BaseQuantity uint64
	Owner        CallbackInfo
}

func (l LeafNode) Price() uint64 { return l.Key.Price() }
