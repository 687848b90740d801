// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// UniPoly is a univariate polynomial over the solver variable, as
// coefficients in ascending degree order. A nil coefficient counts as
// zero.
type UniPoly []*big.Int

// NullDep marks internal constraints that must not appear in unsat
// cores.
const NullDep uint32 = ^uint32(0)

// UnivariateSolver decides conjunctions of constraints over a single
// fixed-width variable. Constraints are tagged with a caller dependency
// that is reported back in unsat cores. Push/Pop scope constraint
// lifetimes; Check must be called before Model, FindMin, FindMax or
// UnsatCore.
type UnivariateSolver interface {
	Push()
	Pop(n int)

	AddULE(lhs, rhs UniPoly, sign bool, dep uint32)
	AddUMulOvfl(lhs, rhs UniPoly, sign bool, dep uint32)
	AddShl(in1, in2, out UniPoly, sign bool, dep uint32)
	AddLshr(in1, in2, out UniPoly, sign bool, dep uint32)
	AddAshr(in1, in2, out UniPoly, sign bool, dep uint32)
	AddAnd(in1, in2, out UniPoly, sign bool, dep uint32)
	AddOr(in1, in2, out UniPoly, sign bool, dep uint32)
	AddXor(in1, in2, out UniPoly, sign bool, dep uint32)
	AddNot(in, out UniPoly, sign bool, dep uint32)
	AddUdiv(in1, in2, out UniPoly, sign bool, dep uint32)
	AddUrem(in1, in2, out UniPoly, sign bool, dep uint32)
	AddULEConst(val *big.Int, sign bool, dep uint32)
	AddUGEConst(val *big.Int, sign bool, dep uint32)
	AddBit(idx int, value bool, dep uint32)

	Check() Tribool
	Model() *big.Int
	FindMin() (*big.Int, bool)
	FindMax() (*big.Int, bool)
	UnsatCore() []uint32
}

// ************************************************************

type guardedCon struct {
	guard z.Lit
	dep   uint32
}

// BitSolver is the SAT-backed univariate solver. Constraints are built
// as a circuit over the variable's bits and clausified incrementally;
// each constraint hangs off an activation literal so that Pop can
// retire it and unsat cores can be read off the failed assumptions.
type BitSolver struct {
	width   int
	g       *gini.Gini
	c       *logic.C
	bits    []z.Lit // the variable, least significant bit first
	mark    []int8  // clausification frontier
	guards  []guardedCon
	scopes  []int
	deps    map[z.Lit]uint32
	timeout time.Duration
	model   *big.Int
	core    []uint32
}

// NewBitSolver returns a solver for one variable of the given width.
func NewBitSolver(bitWidth int) (*BitSolver, error) {
	if bitWidth <= 0 {
		return nil, errors.Errorf("viable: bit width %d out of range", bitWidth)
	}
	s := &BitSolver{
		width:   bitWidth,
		g:       gini.New(),
		c:       logic.NewC(),
		deps:    make(map[z.Lit]uint32),
		timeout: time.Second,
	}
	s.bits = make([]z.Lit, bitWidth)
	for i := range s.bits {
		s.bits[i] = s.c.Lit()
	}
	return s, nil
}

// SetTimeout bounds each SAT call; an elapsed timeout surfaces as an
// Undef check result.
func (s *BitSolver) SetTimeout(d time.Duration) { s.timeout = d }

func (s *BitSolver) Push() {
	s.scopes = append(s.scopes, len(s.guards))
}

func (s *BitSolver) Pop(n int) {
	keep := s.scopes[len(s.scopes)-n]
	s.scopes = s.scopes[:len(s.scopes)-n]
	for _, gc := range s.guards[keep:] {
		// retire permanently
		s.g.Add(gc.guard.Not())
		s.g.Add(z.LitNull)
		delete(s.deps, gc.guard)
	}
	s.guards = s.guards[:keep]
}

// addConstraint clausifies rel and arms it behind a fresh activation
// literal.
func (s *BitSolver) addConstraint(rel z.Lit, sign bool, dep uint32) {
	if sign {
		rel = rel.Not()
	}
	guard := s.c.Lit()
	s.mark, _ = s.c.CnfSince(s.g, s.mark, rel)
	s.g.Add(guard.Not())
	s.g.Add(rel)
	s.g.Add(z.LitNull)
	s.guards = append(s.guards, guardedCon{guard: guard, dep: dep})
	s.deps[guard] = dep
}

func (s *BitSolver) Check() Tribool {
	ms := make([]z.Lit, len(s.guards))
	for i, gc := range s.guards {
		ms[i] = gc.guard
	}
	s.g.Assume(ms...)
	switch s.g.Try(s.timeout) {
	case 1:
		val := new(big.Int)
		for i, b := range s.bits {
			if s.g.Value(b) {
				val.SetBit(val, i, 1)
			}
		}
		s.model = val
		s.core = nil
		return True
	case -1:
		s.core = s.core[:0]
		for _, m := range s.g.Why(nil) {
			if dep, ok := s.deps[m]; ok && dep != NullDep {
				s.core = append(s.core, dep)
			}
		}
		return False
	default:
		return Undef
	}
}

// Model returns the variable's value from the last satisfiable Check.
func (s *BitSolver) Model() *big.Int { return new(big.Int).Set(s.model) }

// UnsatCore returns the dependencies of the last unsatisfiable Check.
func (s *BitSolver) UnsatCore() []uint32 { return s.core }

// FindMin walks the bits from the most significant end and forces each
// to zero when the constraints permit, yielding the smallest model.
// Returns false when a SAT call times out.
func (s *BitSolver) FindMin() (*big.Int, bool) {
	val := s.Model()
	s.Push()
	defer s.Pop(1)
	for k := s.width - 1; k >= 0; k-- {
		if val.Bit(k) == 0 {
			s.AddBit(k, false, NullDep)
			continue
		}
		s.Push()
		s.AddBit(k, false, NullDep)
		res := s.Check()
		if res == True {
			val = s.Model()
		}
		s.Pop(1)
		switch res {
		case True:
			s.AddBit(k, false, NullDep)
		case False:
			s.AddBit(k, true, NullDep)
		default:
			return nil, false
		}
	}
	return val, true
}

// FindMax is the mirror image of FindMin.
func (s *BitSolver) FindMax() (*big.Int, bool) {
	val := s.Model()
	s.Push()
	defer s.Pop(1)
	for k := s.width - 1; k >= 0; k-- {
		if val.Bit(k) == 1 {
			s.AddBit(k, true, NullDep)
			continue
		}
		s.Push()
		s.AddBit(k, true, NullDep)
		res := s.Check()
		if res == True {
			val = s.Model()
		}
		s.Pop(1)
		switch res {
		case True:
			s.AddBit(k, true, NullDep)
		case False:
			s.AddBit(k, false, NullDep)
		default:
			return nil, false
		}
	}
	return val, true
}

// ************************************************************
// constraint constructors

func (s *BitSolver) AddULE(lhs, rhs UniPoly, sign bool, dep uint32) {
	s.addConstraint(s.bvULE(s.bvPoly(lhs), s.bvPoly(rhs)), sign, dep)
}

func (s *BitSolver) AddUMulOvfl(lhs, rhs UniPoly, sign bool, dep uint32) {
	prod := s.bvMul(s.bvExtend(s.bvPoly(lhs), 2*s.width), s.bvExtend(s.bvPoly(rhs), 2*s.width))
	s.addConstraint(s.c.Ors(prod[s.width:]...), sign, dep)
}

func (s *BitSolver) AddShl(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addConstraint(s.bvEq(s.bvShift(s.bvPoly(in1), s.bvPoly(in2), shiftLeft), s.bvPoly(out)), sign, dep)
}

func (s *BitSolver) AddLshr(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addConstraint(s.bvEq(s.bvShift(s.bvPoly(in1), s.bvPoly(in2), shiftRightLogic), s.bvPoly(out)), sign, dep)
}

func (s *BitSolver) AddAshr(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addConstraint(s.bvEq(s.bvShift(s.bvPoly(in1), s.bvPoly(in2), shiftRightArith), s.bvPoly(out)), sign, dep)
}

func (s *BitSolver) AddAnd(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addBitwise(in1, in2, out, sign, dep, s.c.And)
}

func (s *BitSolver) AddOr(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addBitwise(in1, in2, out, sign, dep, s.c.Or)
}

func (s *BitSolver) AddXor(in1, in2, out UniPoly, sign bool, dep uint32) {
	s.addBitwise(in1, in2, out, sign, dep, s.c.Xor)
}

func (s *BitSolver) addBitwise(in1, in2, out UniPoly, sign bool, dep uint32, op func(a, b z.Lit) z.Lit) {
	a, b, o := s.bvPoly(in1), s.bvPoly(in2), s.bvPoly(out)
	res := make([]z.Lit, s.width)
	for i := range res {
		res[i] = op(a[i], b[i])
	}
	s.addConstraint(s.bvEq(res, o), sign, dep)
}

func (s *BitSolver) AddNot(in, out UniPoly, sign bool, dep uint32) {
	a, o := s.bvPoly(in), s.bvPoly(out)
	res := make([]z.Lit, s.width)
	for i := range res {
		res[i] = a[i].Not()
	}
	s.addConstraint(s.bvEq(res, o), sign, dep)
}

// AddUdiv constrains out == in1 / in2, with division by zero yielding
// the all-ones value. The quotient relation is checked at double width
// so the product cannot wrap.
func (s *BitSolver) AddUdiv(in1, in2, out UniPoly, sign bool, dep uint32) {
	n, d, o := s.bvPoly(in1), s.bvPoly(in2), s.bvPoly(out)
	rem := s.bvFresh()
	sum := s.bvAdd(s.bvMul(s.bvExtend(o, 2*s.width), s.bvExtend(d, 2*s.width)), s.bvExtend(rem, 2*s.width))
	rel := s.c.Ands(
		s.bvEq(sum, s.bvExtend(n, 2*s.width)),
		s.bvULT(rem, d),
	)
	s.addConstraint(s.c.Choice(s.bvIsZero(d), s.bvEq(o, s.bvConst(maxValue(s.width), s.width)), rel), sign, dep)
}

// AddUrem constrains out == in1 % in2, with in2 == 0 yielding in1.
func (s *BitSolver) AddUrem(in1, in2, out UniPoly, sign bool, dep uint32) {
	n, d, o := s.bvPoly(in1), s.bvPoly(in2), s.bvPoly(out)
	quot := s.bvFresh()
	sum := s.bvAdd(s.bvMul(s.bvExtend(quot, 2*s.width), s.bvExtend(d, 2*s.width)), s.bvExtend(o, 2*s.width))
	rel := s.c.Ands(
		s.bvEq(sum, s.bvExtend(n, 2*s.width)),
		s.bvULT(o, d),
	)
	s.addConstraint(s.c.Choice(s.bvIsZero(d), s.bvEq(o, n), rel), sign, dep)
}

func (s *BitSolver) AddULEConst(val *big.Int, sign bool, dep uint32) {
	s.addConstraint(s.bvULE(s.bits, s.bvConst(val, s.width)), sign, dep)
}

func (s *BitSolver) AddUGEConst(val *big.Int, sign bool, dep uint32) {
	s.addConstraint(s.bvULE(s.bvConst(val, s.width), s.bits), sign, dep)
}

func (s *BitSolver) AddBit(idx int, value bool, dep uint32) {
	rel := s.bits[idx]
	if !value {
		rel = rel.Not()
	}
	s.addConstraint(rel, false, dep)
}

// ************************************************************
// bit-vector circuit helpers, all least significant bit first

func (s *BitSolver) bvConst(val *big.Int, w int) []z.Lit {
	out := make([]z.Lit, w)
	for i := range out {
		if val.Bit(i) == 1 {
			out[i] = s.c.T
		} else {
			out[i] = s.c.F
		}
	}
	return out
}

func (s *BitSolver) bvFresh() []z.Lit {
	out := make([]z.Lit, s.width)
	for i := range out {
		out[i] = s.c.Lit()
	}
	return out
}

func (s *BitSolver) bvExtend(a []z.Lit, w int) []z.Lit {
	if len(a) >= w {
		return a[:w]
	}
	out := make([]z.Lit, w)
	copy(out, a)
	for i := len(a); i < w; i++ {
		out[i] = s.c.F
	}
	return out
}

func (s *BitSolver) bvAdd(a, b []z.Lit) []z.Lit {
	out := make([]z.Lit, len(a))
	carry := s.c.F
	for i := range a {
		axb := s.c.Xor(a[i], b[i])
		out[i] = s.c.Xor(axb, carry)
		carry = s.c.Or(s.c.And(a[i], b[i]), s.c.And(carry, axb))
	}
	return out
}

func (s *BitSolver) bvMul(a, b []z.Lit) []z.Lit {
	w := len(a)
	acc := make([]z.Lit, w)
	for i := range acc {
		acc[i] = s.c.F
	}
	for i := 0; i < w; i++ {
		addend := make([]z.Lit, w)
		for j := 0; j < w; j++ {
			if j < i {
				addend[j] = s.c.F
			} else {
				addend[j] = s.c.And(a[j-i], b[i])
			}
		}
		acc = s.bvAdd(acc, addend)
	}
	return acc
}

// bvPoly evaluates the polynomial at the solver variable, modulo the
// width.
func (s *BitSolver) bvPoly(p UniPoly) []z.Lit {
	acc := make([]z.Lit, s.width)
	for i := range acc {
		acc[i] = s.c.F
	}
	if len(p) > 0 && p[0] != nil {
		acc = s.bvConst(p[0], s.width)
	}
	pow := s.bits
	for k := 1; k < len(p); k++ {
		if k > 1 {
			pow = s.bvMul(pow, s.bits)
		}
		if p[k] == nil || p[k].Sign() == 0 {
			continue
		}
		if p[k].Cmp(one) == 0 {
			acc = s.bvAdd(acc, pow)
		} else {
			acc = s.bvAdd(acc, s.bvMul(s.bvConst(p[k], s.width), pow))
		}
	}
	return acc
}

func (s *BitSolver) bvEq(a, b []z.Lit) z.Lit {
	res := s.c.T
	for i := range a {
		res = s.c.And(res, s.c.Xor(a[i], b[i]).Not())
	}
	return res
}

func (s *BitSolver) bvIsZero(a []z.Lit) z.Lit {
	res := s.c.T
	for i := range a {
		res = s.c.And(res, a[i].Not())
	}
	return res
}

func (s *BitSolver) bvULE(a, b []z.Lit) z.Lit {
	le := s.c.T
	for i := range a {
		lt := s.c.And(a[i].Not(), b[i])
		le = s.c.Choice(s.c.Xor(a[i], b[i]), lt, le)
	}
	return le
}

func (s *BitSolver) bvULT(a, b []z.Lit) z.Lit {
	return s.bvULE(b, a).Not()
}

type shiftKind int8

const (
	shiftLeft shiftKind = iota
	shiftRightLogic
	shiftRightArith
)

// bvShift is a barrel shifter; amounts of w or more drain to the fill
// bit (zero, or the sign for arithmetic right shifts).
func (s *BitSolver) bvShift(a, amount []z.Lit, kind shiftKind) []z.Lit {
	w := len(a)
	acc := a
	sign := a[w-1]
	for k := 0; k < len(amount); k++ {
		var sh int
		if k < 31 && (1<<uint(k)) < w {
			sh = 1 << uint(k)
		} else {
			sh = w // saturated: every bit drains to the fill
		}
		next := make([]z.Lit, w)
		for j := 0; j < w; j++ {
			var shifted z.Lit
			switch kind {
			case shiftLeft:
				if j >= sh {
					shifted = acc[j-sh]
				} else {
					shifted = s.c.F
				}
			case shiftRightLogic:
				if j+sh < w {
					shifted = acc[j+sh]
				} else {
					shifted = s.c.F
				}
			default:
				if j+sh < w {
					shifted = acc[j+sh]
				} else {
					shifted = sign
				}
			}
			next[j] = s.c.Choice(amount[k], shifted, acc[j])
		}
		acc = next
	}
	return acc
}
