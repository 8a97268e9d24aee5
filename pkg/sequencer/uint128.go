package sequencer

import (
	"fmt"
	"math/bits"
)

// Uint128 is an unsigned 128-bit integer, used throughout for balances and
// transfer amounts (spec §3: "balances: map asset -> u128"). Go has no
// native 128-bit integer type, so amounts are represented as a (hi, lo)
// pair of uint64s, big-endian in significance.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// ZeroUint128 is the additive identity.
var ZeroUint128 = Uint128{}

func NewUint128FromUint64(v uint64) Uint128 { return Uint128{Lo: v} }

func (a Uint128) IsZero() bool { return a.Hi == 0 && a.Lo == 0 }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Uint128) Cmp(b Uint128) int {
	if a.Hi != b.Hi {
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	}
	if a.Lo != b.Lo {
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// Add returns a+b and whether the addition overflowed 128 bits.
func (a Uint128) Add(b Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, carry2 := bits.Add64(a.Hi, b.Hi, carry)
	return Uint128{Hi: hi, Lo: lo}, carry2 != 0
}

// Sub returns a-b and whether the subtraction underflowed (i.e. a < b).
func (a Uint128) Sub(b Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(a.Lo, b.Lo, 0)
	hi, borrow2 := bits.Sub64(a.Hi, b.Hi, borrow)
	return Uint128{Hi: hi, Lo: lo}, borrow2 != 0
}

// CheckedAdd is Add, but returns an error instead of an overflow flag; this
// is the form action handlers call since an overflowing credit is always a
// programming or protocol error, never a valid state transition.
func (a Uint128) CheckedAdd(b Uint128) (Uint128, error) {
	sum, overflow := a.Add(b)
	if overflow {
		return Uint128{}, fmt.Errorf("uint128 addition overflow: %s + %s", a, b)
	}
	return sum, nil
}

// CheckedSub is Sub, returning an error on underflow (insufficient funds is
// handled explicitly by callers before reaching here; this guards
// programmer error in internal bookkeeping).
func (a Uint128) CheckedSub(b Uint128) (Uint128, error) {
	diff, underflow := a.Sub(b)
	if underflow {
		return Uint128{}, fmt.Errorf("uint128 subtraction underflow: %s - %s", a, b)
	}
	return diff, nil
}

// CheckedMulUint64 returns a*b, erroring on overflow. Used for fee
// multiplier*size-metric computation, where b is always a small count
// (bytes submitted) rather than another Uint128.
func (a Uint128) CheckedMulUint64(b uint64) (Uint128, error) {
	if a.Hi != 0 {
		// A multiplier with a nonzero high word times any nonzero
		// size-metric is astronomically larger than any real balance;
		// treat as overflow rather than computing a meaningless product.
		if b != 0 {
			return Uint128{}, fmt.Errorf("uint128 multiplication overflow: %s * %d", a, b)
		}
		return Uint128{}, nil
	}
	hi, lo := bits.Mul64(a.Lo, b)
	if hi != 0 {
		return Uint128{}, fmt.Errorf("uint128 multiplication overflow: %s * %d", a, b)
	}
	return Uint128{Lo: lo}, nil
}

func (a Uint128) String() string {
	if a.Hi == 0 {
		return fmt.Sprintf("%d", a.Lo)
	}
	return a.decimalString()
}

func (a Uint128) decimalString() string {
	if a.IsZero() {
		return "0"
	}
	digits := make([]byte, 0, 39)
	hi, lo := a.Hi, a.Lo
	for hi != 0 || lo != 0 {
		var rem uint64
		hi, lo, rem = divmod128by10(hi, lo)
		digits = append(digits, byte('0'+rem))
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// divmod128by10 divides the 128-bit value (hi,lo) by 10, returning the
// quotient (as hi,lo) and the remainder.
func divmod128by10(hi, lo uint64) (qhi, qlo uint64, rem uint64) {
	qhi, r := hi/10, hi%10
	qlo, rem = bits.Div64(r, lo, 10)
	return qhi, qlo, rem
}
