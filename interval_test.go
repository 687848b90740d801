// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"testing"
)

func iv(lo, hi int64) EvalInterval {
	return ConstEval(big.NewInt(lo), big.NewInt(hi))
}

func TestCurrentlyContains(t *testing.T) {
	cases := []struct {
		lo, hi, val int64
		want        bool
	}{
		{3, 7, 3, true},
		{3, 7, 6, true},
		{3, 7, 7, false},
		{3, 7, 2, false},
		// wrapping interval [12; 4[
		{12, 4, 12, true},
		{12, 4, 15, true},
		{12, 4, 0, true},
		{12, 4, 3, true},
		{12, 4, 4, false},
		{12, 4, 11, false},
		// empty
		{5, 5, 5, false},
	}
	for _, c := range cases {
		i := iv(c.lo, c.hi)
		if got := i.CurrentlyContains(big.NewInt(c.val)); got != c.want {
			t.Errorf("[%d;%d[ contains %d = %v, want %v", c.lo, c.hi, c.val, got, c.want)
		}
	}
	if !FullEval().CurrentlyContains(big.NewInt(9)) {
		t.Error("full interval misses a value")
	}
}

func TestCurrentlyContainsIv(t *testing.T) {
	cases := []struct {
		lo, hi, olo, ohi int64
		want             bool
	}{
		// both plain
		{3, 10, 4, 9, true},
		{3, 10, 3, 10, true},
		{3, 10, 2, 9, false},
		{3, 10, 4, 11, false},
		// container wraps, contained plain in the upper arc
		{12, 4, 13, 15, true},
		// container wraps, contained plain in the lower arc
		{12, 4, 0, 3, true},
		// container wraps, contained wraps inside
		{12, 4, 13, 3, true},
		// container wraps, contained sticks out
		{12, 4, 10, 15, false},
		{12, 4, 13, 5, false},
		// plain container never holds a wrapping interval
		{3, 10, 9, 4, false},
	}
	for _, c := range cases {
		i, o := iv(c.lo, c.hi), iv(c.olo, c.ohi)
		if got := i.CurrentlyContainsIv(o); got != c.want {
			t.Errorf("[%d;%d[ containsIv [%d;%d[ = %v, want %v",
				c.lo, c.hi, c.olo, c.ohi, got, c.want)
		}
	}
	if !FullEval().CurrentlyContainsIv(iv(3, 7)) {
		t.Error("full interval does not contain a proper one")
	}
	if iv(3, 7).CurrentlyContainsIv(FullEval()) {
		t.Error("proper interval contains the full one")
	}
}

func TestIntervalEmptyAndLen(t *testing.T) {
	m := pow2(4)
	if !iv(5, 5).IsCurrentlyEmpty() {
		t.Error("[5;5[ not empty")
	}
	if iv(5, 6).IsCurrentlyEmpty() || FullEval().IsCurrentlyEmpty() {
		t.Error("non-empty interval reported empty")
	}
	if got := iv(3, 7).CurrentLen(m); got.Int64() != 4 {
		t.Errorf("len [3;7[ = %v, want 4", got)
	}
	if got := iv(12, 4).CurrentLen(m); got.Int64() != 8 {
		t.Errorf("len [12;4[ = %v, want 8", got)
	}
}

func TestIntervalString(t *testing.T) {
	if got := FullInterval().String(); got != "full" {
		t.Errorf("full prints %q", got)
	}
	if got := iv(3, 7).String(); got != "[3 ; 7[ := [3 ; 7[" {
		t.Errorf("const interval prints %q", got)
	}
}
