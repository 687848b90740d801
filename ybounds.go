// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import "math/big"

// This file holds the modular run-length computations behind the
// refinement of multiplicative constraints: given a*y0 mod M inside the
// value interval [lo;hi] (bounds inclusive), how far can y move in each
// direction while a*y stays inside? The answers need not be optimal,
// only sound; the query loop re-refines around any survivor.

// ************************************************************

// computeYMax returns the largest yMax >= y0 such that a*y mod M stays
// in [lo0;hi] for every y in [y0;yMax]. Requires 1 <= a < M, bounds in
// [0;M[, and a*y0 mod M contained in the (possibly wrapping) interval.
func computeYMax(y0, a, lo0, hi, m *big.Int) *big.Int {
	// a wrapping interval is unrolled by shifting the lower bound one
	// period down; the interval is then the plain [lo;hi] over Z
	lo := lo0
	if lo0.Cmp(hi) > 0 {
		lo = sub(lo0, m)
	}

	contained := func(aY *big.Int) bool {
		return lo.Cmp(aY) <= 0 && aY.Cmp(hi) <= 0
	}
	deltaH := func(aY *big.Int) *big.Int {
		return divFloor(sub(hi, aY), a)
	}

	// minimal k such that lo <= a*y0 + k*M
	k := divCeil(sub(lo, mul(a, y0)), m)
	aY0 := add(mul(a, y0), mul(k, m))

	// largest y whose image sits in the same period as a*y0
	delta0 := deltaH(aY0)
	y0h := add(y0, delta0)
	aY0h := add(aY0, mul(a, delta0))

	// first period after a*y0
	y1l := addi(y0h, 1)
	aY1l := add(aY0h, sub(a, m))
	if !contained(aY1l) {
		return y0h
	}
	delta1 := deltaH(aY1l)
	y1h := add(y1l, delta1)
	aY1h := add(aY1l, mul(a, delta1))

	// second period: if its start already falls outside, stop at y1h
	aY2l := add(aY1h, sub(a, m))
	if !contained(aY2l) {
		return y1h
	}

	// The images a*[y1l;y1h] drift by alpha with each further period.
	step := sub(y1h, y0h)
	alpha := sub(mul(a, step), m)

	if alpha.Sign() == 0 {
		// no drift, the whole residue class is covered
		return add(y0, m)
	}

	// number of periods until the drifting end leaves [lo;hi]
	var i *big.Int
	if alpha.Sign() < 0 {
		// drifting left: the lower end a*yil leaves first
		i = divFloor(sub(lo, aY1l), alpha)
	} else {
		// drifting right: the upper end a*yih leaves first
		i = divFloor(sub(hi, aY1h), alpha)
	}

	yih := add(y1h, mul(i, step))
	aYih := add(aY1h, mul(i, alpha))

	// with positive drift the next period may still contribute a few
	// values before its upper end escapes
	yNext := addi(yih, 1)
	aYNext := add(aYih, sub(a, m))
	if contained(aYNext) {
		return add(yNext, deltaH(aYNext))
	}
	return yih
}

// computeYMin is the mirror image of computeYMax: the smallest
// yMin <= y0 such that a*y mod M stays in [lo;hi] on [yMin;y0].
func computeYMin(y0, a, lo, hi, m *big.Int) *big.Int {
	negateM := func(x *big.Int) *big.Int {
		if x.Sign() == 0 {
			return x
		}
		return sub(m, x)
	}
	yMin := neg(computeYMax(neg(y0), a, negateM(hi), negateM(lo), m))
	for yMin.Cmp(y0) > 0 {
		yMin = sub(yMin, m)
	}
	return yMin
}

// computeYBounds grows [yMin;yMax] around y0 in both directions, each
// capped at cap extension rounds. A covered full period collapses to
// [0;M-1]. Upper bounds are inclusive throughout.
func computeYBounds(y0, a, lo, hi, m *big.Int, cap int) (*big.Int, *big.Int) {
	isValid := func(y *big.Int) bool {
		aY := modM(mul(a, y), m)
		if lo.Cmp(hi) <= 0 {
			return lo.Cmp(aY) <= 0 && aY.Cmp(hi) <= 0
		}
		return aY.Cmp(hi) <= 0 || lo.Cmp(aY) <= 0
	}

	yMaxMax := addi(add(y0, m), -1)
	yMax := computeYMax(y0, a, lo, hi, m)
	for i := 0; yMax.Cmp(yMaxMax) < 0 && isValid(addi(yMax, 1)); {
		yMax = computeYMax(addi(yMax, 1), a, lo, hi, m)
		i++
		if i == cap {
			break
		}
	}

	yMinMin := addi(sub(yMax, m), 1)
	yMin := new(big.Int).Set(y0)
	for i := 0; yMin.Cmp(yMinMin) > 0 && isValid(addi(yMin, -1)); {
		yMin = computeYMin(addi(yMin, -1), a, lo, hi, m)
		i++
		if i == cap {
			break
		}
	}

	if addi(sub(yMax, yMin), 1).Cmp(m) >= 0 {
		return new(big.Int), addi(m, -1)
	}
	return modM(yMin, m), modM(yMax, m)
}
