// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import "math/big"

// Numeric helpers over math/big. Values of a width-w variable live in
// [0, 2^w); intermediate results of the interval computations may be
// negative or exceed the modulus, so everything is normalized through
// modM. All helpers allocate fresh big.Ints; arguments are never written.

var (
	zero   = big.NewInt(0)
	one    = big.NewInt(1)
	two    = big.NewInt(2)
	minus1 = big.NewInt(-1)
)

// pow2 returns 2^w.
func pow2(w int) *big.Int {
	return new(big.Int).Lsh(one, uint(w))
}

// maxValue returns 2^w - 1, the largest value of a width-w variable.
func maxValue(w int) *big.Int {
	return new(big.Int).Sub(pow2(w), one)
}

// modM reduces a into [0, m).
func modM(a, m *big.Int) *big.Int {
	r := new(big.Int).Mod(a, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

// divFloor returns floor(a/b) for b > 0.
func divFloor(a, b *big.Int) *big.Int {
	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && (a.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, one)
	}
	return q
}

// divCeil returns ceil(a/b) for b > 0.
func divCeil(a, b *big.Int) *big.Int {
	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && (a.Sign() < 0) == (b.Sign() < 0) {
		q.Add(q, one)
	}
	return q
}

// parity returns the 2-adic valuation of a modulo 2^w: the number of
// trailing zero bits, with parity(0) = w by convention.
func parity(a *big.Int, w int) int {
	if a.Sign() == 0 {
		return w
	}
	tz := int(new(big.Int).Set(a).TrailingZeroBits())
	if tz > w {
		return w
	}
	return tz
}

// modInverse returns the inverse of a modulo m. a must be odd when m is
// a power of two; callers check parity first.
func modInverse(a, m *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, m)
}

// pseudoInverse returns the inverse of the odd part of a modulo 2^w,
// i.e. writing a = 2^k * a' with a' odd, the inverse of a' mod 2^w.
func pseudoInverse(a *big.Int, w int) *big.Int {
	k := parity(a, w)
	odd := new(big.Int).Rsh(a, uint(k))
	return modInverse(odd, pow2(w))
}

// clearLowerBits zeroes the j least significant bits of a.
func clearLowerBits(a *big.Int, j int) *big.Int {
	r := new(big.Int).Rsh(a, uint(j))
	return r.Lsh(r, uint(j))
}

// div2k returns a >> k (machine division by 2^k).
func div2k(a *big.Int, k int) *big.Int {
	return new(big.Int).Rsh(a, uint(k))
}

// bitOf reports whether bit i of a is set.
func bitOf(a *big.Int, i int) bool {
	return a.Bit(i) == 1
}

func add(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }
func mul(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }
func neg(a *big.Int) *big.Int    { return new(big.Int).Neg(a) }

func addi(a *big.Int, b int64) *big.Int {
	return new(big.Int).Add(a, big.NewInt(b))
}

func min2(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func max2(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
