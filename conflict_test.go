// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveIntervalFullEntry(t *testing.T) {
	// 2v == 1 mod 16 has no solution: refinement yields a full interval
	// whose sources and side conditions become the whole lemma
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)

	sc := h.lit()
	h.bools[sc] = True
	l := h.addRecord(v, Record{
		Interval: ConstEval(big.NewInt(2), big.NewInt(1)),
		Coeff:    big.NewInt(2),
		SideCond: []Lit{sc},
		BitWidth: 4,
	})
	require.True(t, vb.Intersect(v, l))

	var out big.Int
	require.Equal(t, FindEmpty, vb.FindViable(v, &out))
	c := vb.Conflict()
	require.NotNil(t, c)
	require.Equal(t, v, c.V)
	require.ElementsMatch(t, []Lit{sc.Not(), l.Not()}, c.Lits)
	require.Equal(t, []Lit{l}, c.Srcs)
}

func TestResolveIntervalSeamFalse(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	require.True(t, vb.Intersect(v, h.addUnit(v, 0, 8, 4)))
	require.True(t, vb.Intersect(v, h.addUnit(v, 8, 0, 4)))

	// a seam constraint that is already false under the assignment
	// short-circuits resolution into a single-literal conflict
	h.elemVal = False
	c, ok := vb.ResolveInterval(v)
	require.False(t, ok)
	require.NotNil(t, c)
	require.Len(t, c.Lits, 1)
	require.False(t, c.Lits[0].IsPos())
	require.Empty(t, c.Srcs)
}

func TestResolveIntervalViable(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)
	require.True(t, vb.Intersect(v, h.addUnit(v, 3, 7, 4)))

	c, ok := vb.ResolveInterval(v)
	require.False(t, ok)
	require.Nil(t, c)
}

// ************************************************************

func TestQueryFallbackConflict(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)

	l1 := h.lit()
	h.uni[l1] = func(_ Var, us UnivariateSolver) {
		us.AddULEConst(big.NewInt(3), false, uint32(l1))
	}
	l2 := h.lit()
	h.uni[l2] = func(_ Var, us UnivariateSolver) {
		us.AddUGEConst(big.NewInt(5), false, uint32(l2))
	}
	vb.PushConstraint(v, l1)
	vb.PushConstraint(v, l2)

	_, _, res := vb.queryFallback(v, qFind)
	require.Equal(t, False, res)
	c := vb.Conflict()
	require.NotNil(t, c)
	require.ElementsMatch(t, []Lit{l1, l2}, c.Srcs)
	require.ElementsMatch(t, []Lit{l1.Not(), l2.Not()}, c.Lits)
}

func TestQueryFallbackModes(t *testing.T) {
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)

	l1 := h.lit()
	h.uni[l1] = func(_ Var, us UnivariateSolver) {
		us.AddUGEConst(big.NewInt(5), false, uint32(l1))
	}
	l2 := h.lit()
	h.uni[l2] = func(_ Var, us UnivariateSolver) {
		us.AddULEConst(big.NewInt(10), false, uint32(l2))
	}
	vb.PushConstraint(v, l1)
	vb.PushConstraint(v, l2)

	lo, hi, res := vb.queryFallback(v, qFind)
	require.Equal(t, True, res)
	require.Nil(t, hi)
	require.True(t, lo.Int64() >= 5 && lo.Int64() <= 10, "model %v outside [5;10]", lo)

	lo, _, res = vb.queryFallback(v, qMin)
	require.Equal(t, True, res)
	require.EqualValues(t, 5, lo.Int64())

	_, hi, res = vb.queryFallback(v, qMax)
	require.Equal(t, True, res)
	require.EqualValues(t, 10, hi.Int64())
}

func TestQueryFallbackUsesRefinedEntries(t *testing.T) {
	// a refined entry whose source covers the domain on its own gives a
	// core without touching the other registered constraints
	vb, h := newTestEngine(t)
	v := vb.PushVar(4)

	l1 := h.addRecord(v, Record{
		Interval: ConstEval(big.NewInt(2), big.NewInt(1)),
		Coeff:    big.NewInt(2),
		BitWidth: 4,
	})
	h.uni[l1] = func(_ Var, us UnivariateSolver) {
		// 2v == 1 mod 16, i.e. 2v-1 <= 0: unsatisfiable on its own
		us.AddULE(UniPoly{big.NewInt(-1), big.NewInt(2)}, UniPoly{}, false, uint32(l1))
	}
	require.True(t, vb.Intersect(v, l1))
	// force the refinement that turns the entry into a full cover
	require.False(t, vb.IsViable(v, big.NewInt(0)))

	lex := h.lit()
	h.uni[lex] = func(_ Var, us UnivariateSolver) {
		us.AddULEConst(big.NewInt(7), false, uint32(lex))
	}
	vb.PushConstraint(v, lex)

	_, _, res := vb.queryFallback(v, qFind)
	require.Equal(t, False, res)
	require.Equal(t, []Lit{l1}, vb.Conflict().Srcs)
}
