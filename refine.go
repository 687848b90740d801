// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import "math/big"

// direction selects which way a candidate value is extended when it is
// refuted: dirUp grows the forbidden interval towards larger values,
// dirDown towards smaller ones.
type direction int8

const (
	dirUp direction = iota
	dirDown
)

func (d direction) reverse() direction {
	if d == dirUp {
		return dirDown
	}
	return dirUp
}

// refineViable checks the candidate val against all non-unit knowledge
// about v. It returns true when val survives; otherwise a refined unit
// interval rejecting val (and as much around it as possible) has been
// added and the caller must pick a new candidate.
func (vb *Engine) refineViable(v Var, val *big.Int, dir direction, fb *fixedBits) bool {
	return vb.refineBits(v, val, dir, fb) &&
		vb.refineEqualLin(v, val) &&
		vb.refineDisequalLin(v, val)
}

// ************************************************************

// justCollector deduplicates justification literals while extending a
// candidate over the fixed bits.
type justCollector struct {
	vb       *Engine
	seenSrc  map[Lit]bool
	seenSide map[Lit]bool
	src      []Lit
	side     []Lit
}

func (jc *justCollector) addSrc(l Lit) {
	if jc.seenSrc[l] {
		return
	}
	jc.seenSrc[l] = true
	jc.src = append(jc.src, l)
}

func (jc *justCollector) addBit(fb *fixedBits, i int) {
	for _, l := range fb.justSrc[i] {
		jc.addSrc(l)
	}
	for _, l := range fb.justSide[i] {
		if jc.seenSide[l] {
			continue
		}
		jc.seenSide[l] = true
		jc.side = append(jc.side, l)
	}
	for _, n := range fb.justSlice[i] {
		jc.vb.cfg.slicing.ExplainFixed(n, func(l Lit) {
			jc.addSrc(l)
		}, func(w Var) {
			jc.addSrc(jc.vb.host.EqualityLit(w))
		})
	}
}

// refineBits rejects val when it disagrees with the fixed bits, adding
// a forbidden interval that spans the infeasible stretch in both
// directions around it.
func (vb *Engine) refineBits(v Var, val *big.Int, dir direction, fb *fixedBits) bool {
	jc := &justCollector{vb: vb, seenSrc: make(map[Lit]bool), seenSide: make(map[Lit]bool)}

	newVal, exhausted := vb.extendBits(val, dir, fb, jc)
	if !exhausted && newVal.Cmp(val) == 0 {
		// Downward extensions return an inclusive forbidden lower
		// bound, so a refuted val whose predecessor agrees with the
		// fixed bits is accepted here: max queries report an upper
		// bound that can itself disagree with the fixed bits.
		return true
	}
	if exhausted {
		// the extension ran off the end of the domain; the bound wraps
		// to zero, which closes the interval at the top
		newVal = new(big.Int)
	}
	newVal2, exhausted2 := vb.extendBits(val, dir.reverse(), fb, jc)
	if exhausted2 {
		newVal2 = new(big.Int)
	}

	rec := Record{
		Coeff:    one,
		Src:      jc.src,
		SideCond: jc.side,
		BitWidth: vb.widths[v],
	}
	if dir == dirUp {
		rec.Interval = ProperEval(Affine(newVal2, nil, nil), newVal2, Affine(newVal, nil, nil), newVal)
	} else {
		rec.Interval = ProperEval(Affine(newVal, nil, nil), newVal, Affine(newVal2, nil, nil), newVal2)
	}
	vb.log.WithField("var", v).WithField("lo", rec.Interval.LoVal()).
		WithField("hi", rec.Interval.HiVal()).Debug("refine-bits")
	vb.intersectRefined(v, &rec)
	return false
}

// extendBits pushes bound in the given direction until it agrees with
// every fixed bit, accumulating the justifications that were actually
// needed. The boolean result reports that the extension consumed the
// rest of the domain in that direction.
func (vb *Engine) extendBits(bound *big.Int, dir direction, fb *fixedBits, jc *justCollector) (*big.Int, bool) {
	k := len(fb.fixed)
	if fb.isEmpty() {
		return bound, false
	}
	up := dir == dirUp

	// highest bit where the bound disagrees with a fixed bit
	firstFail := k
	for ; firstFail > 0; firstFail-- {
		f := fb.fixed[firstFail-1]
		if f != Undef && toTribool(bitOf(bound, firstFail-1)) != f {
			break
		}
	}
	if firstFail == 0 {
		return bound, false
	}

	newBound := make([]Tribool, k)

	// below the disagreement everything is forced: fixed bits keep
	// their value, free bits saturate in the extension direction. Only
	// the justifications that constrain the result are recorded.
	for i := 0; i < firstFail; i++ {
		if f := fb.fixed[i]; f != Undef {
			newBound[i] = f
			if i == firstFail-1 || up != (f == False) {
				jc.addBit(fb, i)
			}
		} else if up {
			newBound[i] = False
		} else {
			newBound[i] = True
		}
	}

	var carry bool
	if up {
		carry = fb.fixed[firstFail-1] == False
	} else {
		carry = fb.fixed[firstFail-1] == True
	}

	for i := firstFail; i < k; i++ {
		if f := fb.fixed[i]; f != Undef {
			newBound[i] = f
			if carry {
				jc.addBit(fb, i)
			}
			continue
		}
		current := toTribool(bitOf(bound, i))
		if !carry {
			newBound[i] = current
			continue
		}
		if up {
			if current == False {
				newBound[i] = True
				carry = false
			} else {
				newBound[i] = False
			}
		} else {
			if current == True {
				newBound[i] = False
				carry = false
			} else {
				newBound[i] = True
			}
		}
	}
	if carry {
		return nil, true
	}

	ret := new(big.Int)
	for i := k; i > 0; i-- {
		ret.Lsh(ret, 1)
		if newBound[i-1] == True {
			ret.Add(ret, one)
		}
	}
	if !up {
		ret.Add(ret, one)
	}
	return ret, false
}

// ************************************************************

// refineEqualLin checks val against the multiplicative constraints
// a*v in [lo;hi[. Equations (single-point complements) get exact
// treatment via parity; the general case uses the modular run-length
// bounds.
func (vb *Engine) refineEqualLin(v Var, val *big.Int) bool {
	head := vb.equalLin[v]
	if head == nilh {
		return true
	}
	n := vb.widths[v]
	m := pow2(n)
	maxV := maxValue(n)

	// rotate the ring head so a later entry gets the first shot next
	// time; otherwise an early weak entry can starve a stronger one
	vb.equalLin[v] = vb.arena.at(head).next

	first := head
	e := head
	for {
		ev := vb.arena.at(e)
		coeffVal := modM(mul(ev.coeff, val), m)
		if ev.interval.CurrentlyContains(coeffVal) {
			a := ev.coeff
			rec := Record{
				Coeff:    one,
				Src:      ev.src,
				SideCond: ev.sideCond,
				BitWidth: ev.bitWidth,
			}
			if modM(addi(ev.interval.HiVal(), 1), m).Cmp(ev.interval.LoVal()) == 0 {
				// the complement is a single point: a*v == b
				b := ev.interval.HiVal()
				parityA := parity(a, n)
				parityB := parity(b, n)
				switch {
				case parityA > parityB:
					// no solution at all
					rec.Interval = FullEval()
				case parityA == 0:
					// odd a has a unique solution
					hi := modM(mul(modInverse(a, m), b), m)
					lo := modM(addi(hi, 1), m)
					rec.Interval = ProperEval(Affine(lo, nil, nil), lo, Affine(hi, nil, nil), hi)
				default:
					// a = 2^k * odd: 2^k solutions spaced 2^(n-k);
					// forbid the band between the two neighbours of val
					k := parityA
					tNk := pow2(n - k)
					v0 := modM(mul(pseudoInverse(a, n), div2k(b, k)), tNk)
					vi := add(v0, clearLowerBits(modM(sub(val, v0), m), n-k))
					lo := modM(addi(vi, 1), m)
					hi := modM(add(vi, tNk), m)
					rec.Interval = ProperEval(Affine(lo, nil, nil), lo, Affine(hi, nil, nil), hi)
				}
			} else {
				// run-length bounds use an inclusive upper end
				hiIncl := ev.interval.HiVal()
				if hiIncl.Sign() == 0 {
					hiIncl = maxV
				} else {
					hiIncl = addi(hiIncl, -1)
				}
				lo, hi := computeYBounds(val, a, ev.interval.LoVal(), hiIncl, m, vb.cfg.yBoundsCap)
				hi = addi(hi, 1)
				if lo.Sign() == 0 && hi.Cmp(m) == 0 {
					rec.Interval = FullEval()
				} else {
					if hi.Cmp(m) == 0 {
						hi = new(big.Int)
					}
					rec.Interval = ProperEval(Affine(lo, nil, nil), lo, Affine(hi, nil, nil), hi)
				}
			}
			vb.log.WithField("var", v).WithField("val", val).Debug("refine-equal-lin")
			vb.intersectRefined(v, &rec)
			return false
		}
		e = ev.next
		if e == first {
			return true
		}
	}
}

// refineDisequalLin checks val against constraints of the shape
// p*v + q > r*v + s (strict when the source is positive). The interval
// slots of these entries transport the four coefficients.
func (vb *Engine) refineDisequalLin(v Var, val *big.Int) bool {
	head := vb.diseqLin[v]
	if head == nilh {
		return true
	}
	n := vb.widths[v]
	maxV := maxValue(n)
	m := pow2(n)

	vb.diseqLin[v] = vb.arena.at(head).next

	first := head
	e := head
	for {
		ev := vb.arena.at(e)
		p := ev.interval.LoVal()
		q := ev.interval.Lo().Value()
		r := ev.interval.HiVal()
		sv := ev.interval.Hi().Value()

		a := modM(add(mul(p, val), q), m)
		b := modM(add(mul(r, val), sv), m)
		np := sub(m, p)
		nr := sub(m, r)
		neg := !ev.src[0].IsPos()
		corr := int64(0)
		if neg {
			corr = 1
		}
		num := addi(sub(a, b), corr)

		if a.Cmp(b) > 0 || (neg && a.Cmp(b) == 0) {
			// widest stretch below val that keeps the violation
			l1 := divFloor(b, r)
			l2 := val
			if p.Cmp(r) > 0 {
				l2 = addi(divCeil(num, sub(p, r)), -1)
			}
			l3 := addi(divCeil(num, add(p, nr)), -1)
			l4 := addi(divCeil(sub(m, a), np), -1)
			deltaL := min2(val, max2(max2(l3, min2(l1, l2)), max2(min2(l1, l4), min2(l2, l4))))

			// and above val
			h1 := divFloor(b, nr)
			h2 := sub(maxV, val)
			if r.Cmp(p) > 0 {
				h2 = addi(divCeil(num, sub(r, p)), -1)
			}
			h3 := addi(divCeil(num, add(np, r)), -1)
			h4 := addi(divCeil(sub(m, a), p), -1)
			deltaU := min2(sub(maxV, val), max2(max2(h3, min2(h1, h2)), max2(min2(h1, h4), min2(h2, h4))))

			lo := sub(val, deltaL)
			hi := addi(add(val, deltaU), 1)
			if hi.Cmp(m) == 0 {
				hi = new(big.Int)
			}
			rec := Record{
				Interval: ProperEval(Affine(lo, nil, nil), lo, Affine(hi, nil, nil), hi),
				Coeff:    one,
				Src:      ev.src,
				SideCond: ev.sideCond,
				BitWidth: ev.bitWidth,
			}
			vb.log.WithField("var", v).WithField("val", val).Debug("refine-disequal-lin")
			vb.intersectRefined(v, &rec)
			return false
		}
		e = ev.next
		if e == first {
			return true
		}
	}
}
