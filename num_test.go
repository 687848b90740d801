// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"testing"
)

func TestDivFloorCeil(t *testing.T) {
	cases := []struct {
		a, b, floor, ceil int64
	}{
		{7, 2, 3, 4},
		{-7, 2, -4, -3},
		{7, -2, -4, -3},
		{-7, -2, 3, 4},
		{6, 2, 3, 3},
		{-6, 2, -3, -3},
		{0, 5, 0, 0},
	}
	for _, c := range cases {
		a, b := big.NewInt(c.a), big.NewInt(c.b)
		if got := divFloor(a, b); got.Int64() != c.floor {
			t.Errorf("divFloor(%d,%d) = %v, want %d", c.a, c.b, got, c.floor)
		}
		if got := divCeil(a, b); got.Int64() != c.ceil {
			t.Errorf("divCeil(%d,%d) = %v, want %d", c.a, c.b, got, c.ceil)
		}
	}
}

func TestModM(t *testing.T) {
	m := pow2(4)
	cases := []struct{ a, want int64 }{
		{0, 0}, {15, 15}, {16, 0}, {17, 1}, {-1, 15}, {-16, 0}, {-17, 15}, {35, 3},
	}
	for _, c := range cases {
		if got := modM(big.NewInt(c.a), m); got.Int64() != c.want {
			t.Errorf("modM(%d, 16) = %v, want %d", c.a, got, c.want)
		}
	}
}

func TestParity(t *testing.T) {
	cases := []struct {
		a    int64
		w    int
		want int
	}{
		{0, 8, 8},
		{1, 8, 0},
		{2, 8, 1},
		{12, 8, 2},
		{8, 3, 3},
		{256, 8, 8},
	}
	for _, c := range cases {
		if got := parity(big.NewInt(c.a), c.w); got != c.want {
			t.Errorf("parity(%d, %d) = %d, want %d", c.a, c.w, got, c.want)
		}
	}
}

func TestPseudoInverse(t *testing.T) {
	// pseudoInverse(a, w) * oddPart(a) == 1 mod 2^w
	m := pow2(8)
	for a := int64(1); a < 256; a++ {
		av := big.NewInt(a)
		inv := pseudoInverse(av, 8)
		odd := div2k(av, parity(av, 8))
		if modM(mul(inv, odd), m).Cmp(one) != 0 {
			t.Errorf("pseudoInverse(%d): %v * %v != 1 mod 256", a, inv, odd)
		}
	}
	// odd values: pseudoInverse is the plain inverse
	inv := pseudoInverse(big.NewInt(3), 4)
	if modM(mul(inv, big.NewInt(3)), pow2(4)).Cmp(one) != 0 {
		t.Errorf("pseudoInverse(3, 4) = %v, not an inverse", inv)
	}
}

func TestClearLowerBits(t *testing.T) {
	cases := []struct {
		a    int64
		j    int
		want int64
	}{
		{0b10111, 3, 0b10000},
		{0b10111, 0, 0b10111},
		{7, 3, 0},
		{8, 3, 8},
	}
	for _, c := range cases {
		if got := clearLowerBits(big.NewInt(c.a), c.j); got.Int64() != c.want {
			t.Errorf("clearLowerBits(%d, %d) = %v, want %d", c.a, c.j, got, c.want)
		}
	}
	if got := div2k(big.NewInt(12), 2); got.Cmp(add(one, two)) != 0 {
		t.Errorf("div2k(12, 2) = %v, want 3", got)
	}
}

func TestMinMax2(t *testing.T) {
	a, b := big.NewInt(3), big.NewInt(5)
	if min2(a, b) != a || min2(b, a) != a {
		t.Error("min2 picked the wrong argument")
	}
	if max2(a, b) != b || max2(b, a) != b {
		t.Error("max2 picked the wrong argument")
	}
}
