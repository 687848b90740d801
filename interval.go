// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"fmt"
	"math/big"
)

// Interval is either the full domain Z_{2^w} or a half-open range
// [lo; hi[ with symbolic bounds. If the current value of lo exceeds the
// current value of hi the interval wraps around, representing the union
// of [lo; 2^w[ and [0; hi[. Membership of t is equivalent to
// (t - lo) mod 2^w < (hi - lo) mod 2^w.
type Interval struct {
	full   bool
	lo, hi Poly
}

// FullInterval matches every value of the domain.
func FullInterval() Interval { return Interval{full: true} }

// ProperInterval is the half-open range [lo; hi[.
func ProperInterval(lo, hi Poly) Interval {
	return Interval{lo: lo, hi: hi}
}

// IsFull reports whether the interval covers the complete domain.
func (i Interval) IsFull() bool { return i.full }

// IsProper reports whether the interval has bounds.
func (i Interval) IsProper() bool { return !i.full }

// Lo returns the symbolic lower bound (inclusive).
func (i Interval) Lo() Poly { return i.lo }

// Hi returns the symbolic upper bound (exclusive).
func (i Interval) Hi() Poly { return i.hi }

func (i Interval) String() string {
	if i.full {
		return "full"
	}
	return fmt.Sprintf("[%s ; %s[", i.lo, i.hi)
}

// ************************************************************

// EvalInterval pairs a symbolic interval with the current concrete
// values of its bounds. The concrete values are a cache, valid only
// within the current decision level: whenever the assignment to a
// variable occurring in the symbolic bounds changes, the caller must
// rebuild the interval with fresh evaluations.
type EvalInterval struct {
	sym   Interval
	loVal *big.Int
	hiVal *big.Int
}

// FullEval is the full interval (no concrete bounds needed).
func FullEval() EvalInterval {
	return EvalInterval{sym: FullInterval(), loVal: zero, hiVal: zero}
}

// ProperEval is [lo; hi[ with the given current bound evaluations.
func ProperEval(lo Poly, loVal *big.Int, hi Poly, hiVal *big.Int) EvalInterval {
	if loVal.Sign() < 0 || hiVal.Sign() < 0 {
		panic("viable: negative interval bound")
	}
	return EvalInterval{sym: ProperInterval(lo, hi), loVal: loVal, hiVal: hiVal}
}

// ConstEval is ProperEval for constant bounds.
func ConstEval(lo, hi *big.Int) EvalInterval {
	return ProperEval(Val(lo), lo, Val(hi), hi)
}

// IsFull reports whether the interval covers the complete domain.
func (i EvalInterval) IsFull() bool { return i.sym.IsFull() }

// IsProper reports whether the interval has bounds.
func (i EvalInterval) IsProper() bool { return i.sym.IsProper() }

// Symbolic returns the underlying symbolic interval.
func (i EvalInterval) Symbolic() Interval { return i.sym }

// Lo returns the symbolic lower bound.
func (i EvalInterval) Lo() Poly { return i.sym.lo }

// Hi returns the symbolic upper bound.
func (i EvalInterval) Hi() Poly { return i.sym.hi }

// LoVal returns the current value of the lower bound.
func (i EvalInterval) LoVal() *big.Int { return i.loVal }

// HiVal returns the current value of the upper bound.
func (i EvalInterval) HiVal() *big.Int { return i.hiVal }

// IsCurrentlyEmpty reports whether the interval is empty under the
// current bound evaluations. A proper interval with equal bounds
// matches nothing.
func (i EvalInterval) IsCurrentlyEmpty() bool {
	return i.IsProper() && i.loVal.Cmp(i.hiVal) == 0
}

// CurrentLen returns (hi - lo) mod m, the number of covered values.
func (i EvalInterval) CurrentLen(m *big.Int) *big.Int {
	return modM(sub(i.hiVal, i.loVal), m)
}

// CurrentlyContains reports whether val lies in the interval under the
// current bound evaluations, accounting for wrap-around.
func (i EvalInterval) CurrentlyContains(val *big.Int) bool {
	if i.IsFull() {
		return true
	}
	if i.loVal.Cmp(i.hiVal) <= 0 {
		return i.loVal.Cmp(val) <= 0 && val.Cmp(i.hiVal) < 0
	}
	return val.Cmp(i.hiVal) < 0 || val.Cmp(i.loVal) >= 0
}

// CurrentlyContainsIv reports whether the interval contains all of
// other under the current evaluations.
func (i EvalInterval) CurrentlyContainsIv(other EvalInterval) bool {
	if i.IsFull() {
		return true
	}
	if other.IsFull() {
		return false
	}
	lo, hi := i.loVal, i.hiVal
	olo, ohi := other.loVal, other.hiVal
	// lo <= lo' <= hi' <= hi
	if lo.Cmp(olo) <= 0 && olo.Cmp(ohi) <= 0 && ohi.Cmp(hi) <= 0 {
		return true
	}
	if lo.Cmp(hi) <= 0 {
		return false
	}
	// hi < lo <= lo' <= hi'
	if lo.Cmp(olo) <= 0 && olo.Cmp(ohi) <= 0 {
		return true
	}
	// lo' <= hi' <= hi < lo
	if olo.Cmp(ohi) <= 0 && ohi.Cmp(hi) <= 0 {
		return true
	}
	// hi' <= hi < lo <= lo'
	if ohi.Cmp(hi) <= 0 && lo.Cmp(olo) <= 0 {
		return true
	}
	return false
}

func (i EvalInterval) String() string {
	if i.IsFull() {
		return "full"
	}
	return fmt.Sprintf("%s := [%s ; %s[", i.sym, i.loVal, i.hiVal)
}
