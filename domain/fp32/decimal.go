package fp32

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInexact = errors.New("fp32: value is not a multiple of 2^-32")

var scale = decimal.NewFromInt(int64(One))

// ToDecimal renders a fixed point value exactly. 2^-32 has 32 decimal
// digits, so rounding at 32 places loses nothing.
func ToDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0).DivRound(scale, 32)
}

// FromDecimal converts d to fixed point. It fails rather than round.
func FromDecimal(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() {
		return 0, ErrOverflow
	}
	x := d.Mul(scale)
	if !x.IsInteger() {
		return 0, ErrInexact
	}
	bi := x.BigInt()
	if !bi.IsUint64() {
		return 0, ErrOverflow
	}
	return bi.Uint64(), nil
}

// Parse reads a decimal string such as "101.25" into fixed point.
func Parse(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return FromDecimal(d)
}

// Format is the shortest exact decimal form of v.
func Format(v uint64) string {
	return ToDecimal(v).String()
}
