// Package numeric provides the integer and decimal helpers shared by the indexer.
//
// Balances are kept as *big.Int so they follow on-chain uint256 arithmetic without
// overflow; ratios are shopspring decimals so repeated division does not drift the
// way binary floating point does.
package numeric

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SecondsPerDay is the width of a snapshot day bucket.
const SecondsPerDay int64 = 86400

var (
	// BDZero is the decimal zero returned by every guarded ratio.
	BDZero = decimal.Zero
	// BDOne is the starting multiple of a freshly looped position.
	BDOne = decimal.NewFromInt(1)
	// BDHundred scales a fraction to a percentage.
	BDHundred = decimal.NewFromInt(100)
)

// Zero returns a new zero-valued *big.Int. A fresh value is returned on every call
// because big.Int is mutable and entities must never share balance pointers.
func Zero() *big.Int {
	return new(big.Int)
}

// One returns a new *big.Int set to one.
func One() *big.Int {
	return big.NewInt(1)
}

// Copy returns an independent copy of v. A nil input yields zero.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return Zero()
	}
	return new(big.Int).Set(v)
}

// Add returns a + b without mutating either operand. Nil operands count as zero.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(Copy(a), Copy(b))
}

// Sub returns a - b without mutating either operand. Nil operands count as zero.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(Copy(a), Copy(b))
}

// ToDecimal converts an integer balance into a decimal without loss.
func ToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return BDZero
	}
	return decimal.NewFromBigInt(v, 0)
}

// Leverage returns collateral / (collateral - debt). The result is zero when
// collateral is not positive or equity is zero or negative.
func Leverage(collateral, debt *big.Int) decimal.Decimal {
	c, d := Copy(collateral), Copy(debt)
	if c.Sign() <= 0 || c.Cmp(d) <= 0 {
		return BDZero
	}
	equity := new(big.Int).Sub(c, d)
	return ToDecimal(c).Div(ToDecimal(equity))
}

// LoanToValue returns (debt / collateral) * 100, or zero when either side is not
// positive.
func LoanToValue(collateral, debt *big.Int) decimal.Decimal {
	c, d := Copy(collateral), Copy(debt)
	if c.Sign() <= 0 || d.Sign() <= 0 {
		return BDZero
	}
	return ToDecimal(d).Div(ToDecimal(c)).Mul(BDHundred)
}

// Multiple returns current / initial, or zero when initial is zero.
func Multiple(current, initial *big.Int) decimal.Decimal {
	i := Copy(initial)
	if i.Sign() == 0 {
		return BDZero
	}
	return ToDecimal(current).Div(ToDecimal(i))
}

// DayBucket maps a unix timestamp to its UTC day index. No timezone or leap-second
// adjustment is applied.
func DayBucket(timestamp int64) int64 {
	return timestamp / SecondsPerDay
}

// DayStartTimestamp returns the unix timestamp of the first second of a day bucket.
func DayStartTimestamp(day int64) int64 {
	return day * SecondsPerDay
}
