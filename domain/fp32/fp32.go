// Package fp32 implements the 32.32 fixed point arithmetic used for limit
// and clearing prices, plus the checked u64 helpers that go with it.
//
// A price p represents the real value p / 2^32 quote units per base unit.
package fp32

import (
	"errors"
	"math/bits"
)

// One is the fixed point representation of 1.0.
const One uint64 = 1 << 32

var ErrOverflow = errors.New("fp32: numerical overflow")

// Mul returns (a * p) >> 32, i.e. the quote value of a base units at price p.
func Mul(a, p uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, p)
	if hi>>32 != 0 {
		return 0, ErrOverflow
	}
	return hi<<32 | lo>>32, nil
}

// Div returns (a << 32) / p, i.e. the base units that a quote units buy at price p.
func Div(a, p uint64) (uint64, error) {
	if p == 0 {
		return 0, ErrOverflow
	}
	hi, lo := a>>32, a<<32
	if hi >= p {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, p)
	return q, nil
}

// Share returns floor(a * total / of), the part of total owed to a out of
// of units. a must not exceed of.
func Share(a, total, of uint64) (uint64, error) {
	if of == 0 || a > of {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, total)
	q, _ := bits.Div64(hi, lo, of)
	return q, nil
}

// FromUint converts a whole number into fixed point.
func FromUint(n uint64) (uint64, error) {
	if n>>32 != 0 {
		return 0, ErrOverflow
	}
	return n << 32, nil
}

func Add(a, b uint64) (uint64, error) {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return s, nil
}

func Sub(a, b uint64) (uint64, error) {
	d, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return d, nil
}
