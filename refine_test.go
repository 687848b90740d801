// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func newJC(vb *Engine) *justCollector {
	return &justCollector{vb: vb, seenSrc: make(map[Lit]bool), seenSide: make(map[Lit]bool)}
}

func TestExtendBitsNoFixed(t *testing.T) {
	vb, _ := newTestEngine(t)
	fb := newFixedBits(4)

	got, exhausted := vb.extendBits(big.NewInt(5), dirUp, fb, newJC(vb))
	if exhausted || got.Int64() != 5 {
		t.Errorf("extend(5, up) = %v/%v, want 5 unchanged", got, exhausted)
	}
}

func TestExtendBitsUp(t *testing.T) {
	vb, _ := newTestEngine(t)
	fb := newFixedBits(4)
	fb.fixed[3] = True

	got, exhausted := vb.extendBits(big.NewInt(0), dirUp, fb, newJC(vb))
	require.False(t, exhausted)
	require.EqualValues(t, 8, got.Int64())

	// agreeing bound stays put
	got, exhausted = vb.extendBits(big.NewInt(9), dirUp, fb, newJC(vb))
	require.False(t, exhausted)
	require.EqualValues(t, 9, got.Int64())
}

func TestExtendBitsExhausted(t *testing.T) {
	vb, _ := newTestEngine(t)

	// no value above 15 has bit 0 clear
	fb := newFixedBits(4)
	fb.fixed[0] = False
	_, exhausted := vb.extendBits(big.NewInt(15), dirUp, fb, newJC(vb))
	require.True(t, exhausted)

	// no value below 0 has bit 1 set
	fb = newFixedBits(4)
	fb.fixed[1] = True
	_, exhausted = vb.extendBits(big.NewInt(0), dirDown, fb, newJC(vb))
	require.True(t, exhausted)
}

func TestExtendBitsDown(t *testing.T) {
	vb, _ := newTestEngine(t)
	fb := newFixedBits(4)
	fb.fixed[1] = False

	// upward: the next agreeing value above 2 is 4
	got, exhausted := vb.extendBits(big.NewInt(2), dirUp, fb, newJC(vb))
	require.False(t, exhausted)
	require.EqualValues(t, 4, got.Int64())

	// downward the result is an inclusive forbidden lower bound: the
	// largest agreeing value below 2 is 1, so the bound is 2
	got, exhausted = vb.extendBits(big.NewInt(2), dirDown, fb, newJC(vb))
	require.False(t, exhausted)
	require.EqualValues(t, 2, got.Int64())
}

// ************************************************************

// inert non-unit interval: with an even coefficient the odd bounds are
// never hit, so the entry contributes only its bit facts
func inertBits(bit *SingleBit, tail *TrailingBits) Record {
	return Record{
		Interval: ConstEval(big.NewInt(9), big.NewInt(10)),
		Coeff:    big.NewInt(2),
		BitWidth: 4,
		Bit:      bit,
		Tail:     tail,
	}
}

func TestRefineSingleBit(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l := h.addRecord(v, inertBits(&SingleBit{Pos: 0, Value: true}, nil))
	require.True(t, vb.Intersect(v, l))

	if vb.IsViable(v, big.NewInt(0)) {
		t.Error("0 has bit 0 clear and must not be viable")
	}
	if !vb.IsViable(v, big.NewInt(1)) {
		t.Error("1 agrees with the fixed bit")
	}
	if vb.IsViable(v, big.NewInt(2)) {
		t.Error("2 has bit 0 clear and must not be viable")
	}
	if !vb.IsViable(v, big.NewInt(15)) {
		t.Error("15 agrees with the fixed bit")
	}
}

func TestRefineTrailingBits(t *testing.T) {
	// low two bits equal 0b10: v == 2 mod 4
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l := h.addRecord(v, inertBits(nil, &TrailingBits{Bits: big.NewInt(2), Len: 2, Positive: true}))
	require.True(t, vb.Intersect(v, l))

	for _, good := range []int64{2, 6, 10, 14} {
		if !vb.IsViable(v, big.NewInt(good)) {
			t.Errorf("%d == 2 mod 4 and must be viable", good)
		}
	}
	for _, bad := range []int64{0, 1, 3, 5, 15} {
		if vb.IsViable(v, big.NewInt(bad)) {
			t.Errorf("%d != 2 mod 4 and must not be viable", bad)
		}
	}
}

func TestRefineNegativeTrailingBits(t *testing.T) {
	// bit 0 forced set plus "low two bits differ from 0b11" propagates
	// bit 1 clear: v == 1 mod 4
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l1 := h.addRecord(v, inertBits(&SingleBit{Pos: 0, Value: true}, nil))
	l2 := h.addRecord(v, inertBits(nil, &TrailingBits{Bits: big.NewInt(3), Len: 2, Positive: false}))
	require.True(t, vb.Intersect(v, l1))
	require.True(t, vb.Intersect(v, l2))

	if !vb.IsViable(v, big.NewInt(1)) || !vb.IsViable(v, big.NewInt(5)) {
		t.Error("values == 1 mod 4 must be viable")
	}
	if vb.IsViable(v, big.NewInt(3)) {
		t.Error("3 matches the excluded mask")
	}
	if vb.IsViable(v, big.NewInt(0)) {
		t.Error("0 has bit 0 clear")
	}
}

func TestBitConflict(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l1 := h.addRecord(v, inertBits(&SingleBit{Pos: 1, Value: true}, nil))
	l2 := h.addRecord(v, inertBits(&SingleBit{Pos: 1, Value: false}, nil))
	require.True(t, vb.Intersect(v, l1))
	require.True(t, vb.Intersect(v, l2))

	var out big.Int
	require.Equal(t, FindEmpty, vb.FindViable(v, &out))
	require.True(t, vb.HasConflict())
	c := vb.Conflict()
	require.Equal(t, v, c.V)
	require.ElementsMatch(t, []Lit{l1.Not(), l2.Not()}, c.Lits)
}

func TestNegativeTrailingBitsConflict(t *testing.T) {
	// both low bits forced set while the mask 0b11 is excluded
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l1 := h.addRecord(v, inertBits(&SingleBit{Pos: 0, Value: true}, nil))
	l2 := h.addRecord(v, inertBits(&SingleBit{Pos: 1, Value: true}, nil))
	l3 := h.addRecord(v, inertBits(nil, &TrailingBits{Bits: big.NewInt(3), Len: 2, Positive: false}))
	require.True(t, vb.Intersect(v, l1))
	require.True(t, vb.Intersect(v, l2))
	require.True(t, vb.Intersect(v, l3))

	var out big.Int
	require.Equal(t, FindEmpty, vb.FindViable(v, &out))
	c := vb.Conflict()
	require.NotNil(t, c)
	require.ElementsMatch(t, []Lit{l1.Not(), l2.Not(), l3.Not()}, c.Lits)
}

func TestRefineBitsJustification(t *testing.T) {
	// the refined interval cites the bit constraint it came from
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l := h.addRecord(v, inertBits(&SingleBit{Pos: 3, Value: true}, nil))
	require.True(t, vb.Intersect(v, l))

	require.False(t, vb.IsViable(v, big.NewInt(0)))

	// the refinement left a unit entry sourced at l
	e := vb.unitsHead(v)
	require.NotEqual(t, nilh, e)
	ev := vb.arena.at(e)
	require.True(t, ev.refined)
	require.Contains(t, ev.src, l)
}

func TestMaxViableFixedBitUpperBound(t *testing.T) {
	// With bit 0 forced clear the largest agreeing value is 14, but the
	// downward refinement accepts a refuted candidate whose predecessor
	// agrees with the fixed bits: MaxViable yields an upper bound that
	// can itself fail IsViable.
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	l := h.addRecord(v, inertBits(&SingleBit{Pos: 0, Value: false}, nil))
	require.True(t, vb.Intersect(v, l))

	max, res := vb.MaxViable(v)
	require.Equal(t, True, res)
	require.EqualValues(t, 15, max.Int64())

	require.False(t, vb.IsViable(v, big.NewInt(15)))
	require.True(t, vb.IsViable(v, big.NewInt(14)))
}
