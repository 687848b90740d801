// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"fmt"
	"math/big"
	"strings"
)

// Var is the index of a modular variable. Variables are declared with
// PushVar and removed in LIFO order with PopVar; the bit width of a
// variable never changes during its lifetime.
type Var int

// nullVar marks the absence of a variable.
const nullVar Var = -1

// Lit is a boolean literal labelling an asserted constraint, owned and
// interpreted by the surrounding search. The encoding follows the usual
// SAT convention: variable index shifted left by one, lowest bit set for
// the negated polarity.
type Lit uint32

// LitNull is the zero literal, used where no literal applies.
const LitNull Lit = 0

// MkLit returns the literal for boolean variable v, positive if pos.
func MkLit(v int, pos bool) Lit {
	l := Lit(v << 1)
	if !pos {
		l |= 1
	}
	return l
}

// Not returns the negation of l.
func (l Lit) Not() Lit { return l ^ 1 }

// IsPos reports whether l is a positive literal.
func (l Lit) IsPos() bool { return l&1 == 0 }

func (l Lit) String() string {
	if l.IsPos() {
		return fmt.Sprintf("lit(%d)", l>>1)
	}
	return fmt.Sprintf("~lit(%d)", l>>1)
}

// ************************************************************

// mono is one monomial a*x of an affine bound.
type mono struct {
	a *big.Int
	x Var
}

// Poly is a symbolic interval bound: an affine expression c + sum(a_i *
// x_i) over variables other than the one an interval restricts. The
// engine never evaluates a Poly itself; concrete bound values are cached
// next to the symbolic bounds (see EvalInterval) and are maintained by
// the caller, who re-evaluates them whenever the assignment to one of
// the occurring variables changes. Refined intervals always carry
// constant bounds.
type Poly struct {
	c  *big.Int
	ms []mono
}

// Val returns the polynomial with constant value c.
func Val(c *big.Int) Poly {
	return Poly{c: new(big.Int).Set(c)}
}

// Vali is Val for small constants.
func Vali(c int64) Poly {
	return Poly{c: big.NewInt(c)}
}

// Affine builds c + sum(coeffs[i] * vars[i]).
func Affine(c *big.Int, vars []Var, coeffs []*big.Int) Poly {
	p := Poly{c: new(big.Int).Set(c)}
	for i, v := range vars {
		if coeffs[i].Sign() == 0 {
			continue
		}
		p.ms = append(p.ms, mono{a: new(big.Int).Set(coeffs[i]), x: v})
	}
	return p
}

// IsVal reports whether p is a constant.
func (p Poly) IsVal() bool { return len(p.ms) == 0 }

// Value returns the constant value of p; p must satisfy IsVal.
func (p Poly) Value() *big.Int {
	if !p.IsVal() {
		panic("viable: Value on non-constant bound")
	}
	return p.c
}

// Unilinear reports the single variable p is linear in, if p has exactly
// one monomial.
func (p Poly) Unilinear() (Var, bool) {
	if len(p.ms) == 1 {
		return p.ms[0].x, true
	}
	return nullVar, false
}

func (p Poly) String() string {
	if p.c == nil {
		return "0"
	}
	var b strings.Builder
	for _, m := range p.ms {
		if m.a.Cmp(one) == 0 {
			fmt.Fprintf(&b, "v%d + ", m.x)
		} else {
			fmt.Fprintf(&b, "%s*v%d + ", m.a, m.x)
		}
	}
	fmt.Fprintf(&b, "%s", p.c)
	return b.String()
}
