package eventqueue

import (
	"fmt"

	"github.com/Henry-E/auction-house/domain/orderbook"
)

type Kind uint8

const (
	Fill Kind = iota
	Out
)

func (k Kind) String() string {
	switch k {
	case Fill:
		return "fill"
	case Out:
		return "out"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is a settlement notification produced by matching.
//
// Fill carries the matched base size and its quote value at the clearing
// price. Out carries the base size to hand back to the owner; QuoteSize is
// unused for Out.
type Event struct {
	Kind      Kind
	Side      orderbook.Side
	OrderID   orderbook.Key
	BaseSize  uint64
	QuoteSize uint64
	Owner     orderbook.CallbackInfo
}
