// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"math/rand"
	"testing"
)

func TestComputeYMaxSinglePoint(t *testing.T) {
	// a*y mod M in [a*y0; a*y0]: y0 itself is always a solution
	m := pow2(4)
	for _, tc := range []struct{ y0, a int64 }{
		{1, 3}, {5, 3}, {0, 7}, {15, 5}, {2, 9},
	} {
		y0 := big.NewInt(tc.y0)
		a := big.NewInt(tc.a)
		p := modM(mul(a, y0), m)
		got := computeYMax(y0, a, p, p, m)
		if got.Cmp(y0) < 0 {
			t.Errorf("y0=%d a=%d: yMax=%v < y0", tc.y0, tc.a, got)
		}
		// every y in [y0; yMax] must stay on the point
		for y := new(big.Int).Set(y0); y.Cmp(got) <= 0; y = addi(y, 1) {
			if modM(mul(a, y), m).Cmp(p) != 0 {
				t.Fatalf("y0=%d a=%d: y=%v escapes", tc.y0, tc.a, y)
			}
		}
	}
}

func TestComputeYBoundsWholeDomain(t *testing.T) {
	// with the interval covering everything but one point and a == 1,
	// the bounds collapse trivially around y0
	m := pow2(4)
	lo := big.NewInt(0)
	hi := big.NewInt(14)
	yMin, yMax := computeYBounds(big.NewInt(3), one, lo, hi, m, 100)
	if yMin.Int64() != 0 || yMax.Int64() != 14 {
		t.Errorf("bounds = [%v;%v], want [0;14]", yMin, yMax)
	}
}

func TestComputeYBoundsFull(t *testing.T) {
	// a*y always lands in [0; M-1]: the result must be the full range
	m := pow2(4)
	yMin, yMax := computeYBounds(big.NewInt(5), big.NewInt(3), big.NewInt(0), big.NewInt(15), m, 100)
	if yMin.Int64() != 0 || yMax.Int64() != 15 {
		t.Errorf("bounds = [%v;%v], want [0;15]", yMin, yMax)
	}
}

// Randomized soundness: every y in the computed range keeps a*y inside
// the interval.
func TestComputeYBoundsSound(t *testing.T) {
	rgen := rand.New(rand.NewSource(0x5eed))
	w := 8
	m := pow2(w)
	mi := m.Int64()

	contains := func(lo, hi, x int64) bool {
		if lo <= hi {
			return lo <= x && x <= hi
		}
		return x <= hi || lo <= x
	}

	for round := 0; round < 500; round++ {
		a := big.NewInt(rgen.Int63n(mi-1) + 1)
		y0 := big.NewInt(rgen.Int63n(mi))
		ay := modM(mul(a, y0), m).Int64()
		lo := (ay - rgen.Int63n(20) + mi) % mi
		hi := (ay + rgen.Int63n(20)) % mi

		yMin, yMax := computeYBounds(y0, a, big.NewInt(lo), big.NewInt(hi), m, 100)

		if yMin.Sign() < 0 || yMin.Cmp(m) >= 0 || yMax.Sign() < 0 || yMax.Cmp(m) >= 0 {
			t.Fatalf("round %d: bounds [%v;%v] out of domain", round, yMin, yMax)
		}

		length := modM(sub(yMax, yMin), m).Int64() + 1
		y := yMin.Int64()
		for i := int64(0); i < length; i++ {
			got := modM(mul(a, big.NewInt(y)), m).Int64()
			if !contains(lo, hi, got) {
				t.Fatalf("round %d: a=%v y0=%v [%d;%d]: y=%d maps to %d outside",
					round, a, y0, lo, hi, y, got)
			}
			y = (y + 1) % mi
		}

		// y0 itself must be inside the range
		d0 := modM(sub(y0, yMin), m).Int64()
		if d0 >= length {
			t.Fatalf("round %d: y0=%v outside [%v;%v]", round, y0, yMin, yMax)
		}
	}
}

// Maximality: when the growth loops exit because the next value fails,
// both circular neighbours of the range map outside the band.
func TestComputeYBoundsMaximal(t *testing.T) {
	rgen := rand.New(rand.NewSource(0xfeed))
	w := 8
	m := pow2(w)
	mi := m.Int64()

	contains := func(lo, hi, x int64) bool {
		if lo <= hi {
			return lo <= x && x <= hi
		}
		return x <= hi || lo <= x
	}

	for round := 0; round < 500; round++ {
		a := big.NewInt(rgen.Int63n(mi-1) + 1)
		y0 := big.NewInt(rgen.Int63n(mi))
		ay := modM(mul(a, y0), m).Int64()
		lo := (ay - rgen.Int63n(20) + mi) % mi
		hi := (ay + rgen.Int63n(20)) % mi

		// a huge cap: the loops exit only on failure or full coverage
		yMin, yMax := computeYBounds(y0, a, big.NewInt(lo), big.NewInt(hi), m, 100000)
		if yMin.Sign() == 0 && yMax.Int64() == mi-1 {
			continue // the whole domain is covered, nothing to extend
		}

		below := modM(addi(yMin, -1), m)
		if got := modM(mul(a, below), m).Int64(); contains(lo, hi, got) {
			t.Fatalf("round %d: a=%v y0=%v [%d;%d]: yMin=%v not minimal, %v maps to %d",
				round, a, y0, lo, hi, yMin, below, got)
		}
		above := modM(addi(yMax, 1), m)
		if got := modM(mul(a, above), m).Int64(); contains(lo, hi, got) {
			t.Fatalf("round %d: a=%v y0=%v [%d;%d]: yMax=%v not maximal, %v maps to %d",
				round, a, y0, lo, hi, yMax, above, got)
		}
	}
}
