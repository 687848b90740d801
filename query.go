// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import "math/big"

// HasViable reports whether v still has at least one viable value. It
// may add refined intervals as a side effect but never records a
// conflict.
func (vb *Engine) HasViable(v Var) bool {
	var fb fixedBits
	if !vb.collectBitInformation(v, false, &fb) {
		return false
	}
refined:
	for {
		e := vb.unitsHead(v)
		if e == nilh {
			if vb.refineViable(v, new(big.Int), dirUp, &fb) {
				return true
			}
			continue refined
		}
		first := e
		last := vb.arena.at(first).prev
		if vb.arena.at(first).interval.IsFull() {
			return false
		}
		// quick check: the last interval does not wrap, so its upper
		// end is uncovered
		liv := vb.arena.at(last).interval
		if liv.LoVal().Cmp(liv.HiVal()) < 0 {
			if vb.refineViable(v, liv.HiVal(), dirUp, &fb) {
				return true
			}
			continue refined
		}
		for {
			ev := vb.arena.at(e)
			if ev.interval.IsFull() {
				return false
			}
			n := ev.next
			if n == e || !vb.arena.at(n).interval.CurrentlyContains(ev.interval.HiVal()) {
				if vb.refineViable(v, ev.interval.HiVal(), dirUp, &fb) {
					return true
				}
				continue refined
			}
			if n == first {
				if ev.interval.LoVal().Cmp(ev.interval.HiVal()) > 0 {
					return false
				}
				if vb.refineViable(v, ev.interval.HiVal(), dirUp, &fb) {
					return true
				}
				continue refined
			}
			e = n
			if e == first {
				return false
			}
		}
	}
}

// IsViable reports whether val is a viable value for v. Like HasViable
// it refines but never records a conflict.
func (vb *Engine) IsViable(v Var, val *big.Int) bool {
	var fb fixedBits
	if !vb.collectBitInformation(v, false, &fb) {
		return false
	}
	e := vb.unitsHead(v)
	if e == nilh {
		return vb.refineViable(v, val, dirUp, &fb)
	}
	first := e
	last := vb.arena.at(first).prev
	if vb.arena.at(last).interval.CurrentlyContains(val) {
		return false
	}
	for ; e != last; e = vb.arena.at(e).next {
		iv := vb.arena.at(e).interval
		if iv.CurrentlyContains(val) {
			return false
		}
		if val.Cmp(iv.LoVal()) < 0 {
			break
		}
	}
	return vb.refineViable(v, val, dirUp, &fb)
}

// ************************************************************

type queryMode int8

const (
	qFind queryMode = iota
	qMin
	qMax
)

// FindViable finds a viable value for v and stores it in out.
func (vb *Engine) FindViable(v Var, out *big.Int) Find {
	lo, hi, res := vb.FindViable2(v)
	switch res {
	case True:
		out.Set(lo)
		if hi == nil {
			// fallback model: no uniqueness information, treat the
			// propagation as a decision
			return FindMultiple
		}
		if lo.Cmp(hi) == 0 {
			return FindSingleton
		}
		return FindMultiple
	case False:
		return FindEmpty
	default:
		return FindResourceOut
	}
}

// FindViable2 returns a viable value lo together with a second witness
// hi when one is known. hi == nil (with res == True) means the value
// came from the fallback solver, which does not report uniqueness.
func (vb *Engine) FindViable2(v Var) (lo, hi *big.Int, res Tribool) {
	return vb.query(v, qFind)
}

// MinViable returns the smallest viable value of v.
func (vb *Engine) MinViable(v Var) (*big.Int, Tribool) {
	lo, _, res := vb.query(v, qMin)
	return lo, res
}

// MaxViable returns the largest viable value of v.
func (vb *Engine) MaxViable(v Var) (*big.Int, Tribool) {
	_, hi, res := vb.query(v, qMax)
	return hi, res
}

// query runs the refinement loop for the given mode, falling back to
// bit-blasting when the budget runs out. False results leave a conflict
// on the engine.
func (vb *Engine) query(v Var, mode queryMode) (lo, hi *big.Int, res Tribool) {
	var fb fixedBits
	if !vb.collectBitInformation(v, true, &fb) {
		return nil, nil, False
	}

	for i := 0; i < vb.cfg.refinementBudget; i++ {
		switch mode {
		case qFind:
			lo, hi, res = vb.queryFind(v, &fb)
		case qMin:
			lo, res = vb.queryMin(v, &fb)
		case qMax:
			hi, res = vb.queryMax(v, &fb)
		}
		if res != Undef {
			return lo, hi, res
		}
	}
	vb.log.WithField("var", v).Debug("refinement budget exhausted, using fallback solver")
	return vb.queryFallback(v, mode)
}

// queryFind walks the interval cover for a gap. An Undef result means a
// refinement happened and the walk must restart, because the new entry
// may have subsumed arbitrary existing entries.
func (vb *Engine) queryFind(v Var, fb *fixedBits) (lo, hi *big.Int, res Tribool) {
	maxV := maxValue(vb.widths[v])
	lo = new(big.Int)
	hi = new(big.Int).Set(maxV)

	e := vb.unitsHead(v)
	if e == nilh {
		if !vb.refineViable(v, lo, dirUp, fb) {
			return nil, nil, Undef
		}
		if !vb.refineViable(v, hi, dirDown, fb) {
			return nil, nil, Undef
		}
		return lo, hi, True
	}
	if vb.arena.at(e).interval.IsFull() {
		vb.setConflictByInterval(v)
		return nil, nil, False
	}

	first := e
	last := vb.arena.at(first).prev

	// quick check: the last interval does not wrap and leaves room for
	// two values above it
	liv := vb.arena.at(last).interval
	if liv.LoVal().Cmp(liv.HiVal()) < 0 && liv.HiVal().Cmp(maxV) < 0 {
		lo = liv.HiVal()
		if !vb.refineViable(v, lo, dirUp, fb) {
			return nil, nil, Undef
		}
		if !vb.refineViable(v, maxV, dirDown, fb) {
			return nil, nil, Undef
		}
		return lo, hi, True
	}

	// lower bound
	if vb.arena.at(last).interval.CurrentlyContains(lo) {
		lo = vb.arena.at(last).interval.HiVal()
	}
	for {
		iv := vb.arena.at(e).interval
		if !iv.CurrentlyContains(lo) {
			break
		}
		lo = iv.HiVal()
		e = vb.arena.at(e).next
		if e == first {
			break
		}
	}
	if vb.arena.at(e).interval.CurrentlyContains(lo) {
		vb.setConflictByInterval(v)
		return nil, nil, False
	}

	// upper bound
	hi = new(big.Int).Set(maxV)
	e = last
	for {
		iv := vb.arena.at(e).interval
		if !iv.CurrentlyContains(hi) {
			break
		}
		hi = addi(iv.LoVal(), -1)
		e = vb.arena.at(e).prev
		if e == last {
			break
		}
	}

	if !vb.refineViable(v, lo, dirUp, fb) {
		return nil, nil, Undef
	}
	if !vb.refineViable(v, hi, dirDown, fb) {
		return nil, nil, Undef
	}
	return lo, hi, True
}

func (vb *Engine) queryMin(v Var, fb *fixedBits) (*big.Int, Tribool) {
	lo := new(big.Int)
	e := vb.unitsHead(v)
	if e == nilh {
		if !vb.refineViable(v, lo, dirUp, fb) {
			return nil, Undef
		}
		return lo, True
	}
	if vb.arena.at(e).interval.IsFull() {
		vb.setConflictByInterval(v)
		return nil, False
	}
	first := e
	last := vb.arena.at(first).prev
	if vb.arena.at(last).interval.CurrentlyContains(lo) {
		lo = vb.arena.at(last).interval.HiVal()
	}
	for {
		iv := vb.arena.at(e).interval
		if !iv.CurrentlyContains(lo) {
			break
		}
		lo = iv.HiVal()
		e = vb.arena.at(e).next
		if e == first {
			break
		}
	}
	if vb.arena.at(e).interval.CurrentlyContains(lo) {
		vb.setConflictByInterval(v)
		return nil, False
	}
	if !vb.refineViable(v, lo, dirUp, fb) {
		return nil, Undef
	}
	return lo, True
}

func (vb *Engine) queryMax(v Var, fb *fixedBits) (*big.Int, Tribool) {
	hi := new(big.Int).Set(maxValue(vb.widths[v]))
	e := vb.unitsHead(v)
	if e == nilh {
		if !vb.refineViable(v, hi, dirDown, fb) {
			return nil, Undef
		}
		return hi, True
	}
	if vb.arena.at(e).interval.IsFull() {
		vb.setConflictByInterval(v)
		return nil, False
	}
	last := vb.arena.at(e).prev
	e = last
	for {
		iv := vb.arena.at(e).interval
		if !iv.CurrentlyContains(hi) {
			break
		}
		hi = addi(iv.LoVal(), -1)
		e = vb.arena.at(e).prev
		if e == last {
			break
		}
	}
	if vb.arena.at(e).interval.CurrentlyContains(hi) {
		vb.setConflictByInterval(v)
		return nil, False
	}
	if !vb.refineViable(v, hi, dirDown, fb) {
		return nil, Undef
	}
	return hi, True
}

// ************************************************************

// queryFallback bit-blasts the constraints on v into a fresh univariate
// solver. The entries produced by the refinement loop are tried alone
// first; they often form an unsat core by themselves and give a much
// smaller conflict.
func (vb *Engine) queryFallback(v Var, mode queryMode) (lo, hi *big.Int, res Tribool) {
	us, err := vb.cfg.factory(vb.widths[v])
	if err != nil {
		vb.log.WithError(err).Error("fallback solver construction failed")
		return nil, nil, Undef
	}
	added := make(map[Lit]bool)
	addSrc := func(l Lit) {
		if added[l] {
			return
		}
		added[l] = true
		vb.host.AddToUnivariate(l, v, us)
	}

	if e := vb.unitsHead(v); e != nilh {
		first := e
		for {
			ev := vb.arena.at(e)
			if ev.refined {
				for _, src := range ev.src {
					addSrc(src)
				}
			}
			e = ev.next
			if e == first {
				break
			}
		}
	}

	switch us.Check() {
	case False:
		vb.setConflictByFallback(v, us)
		return nil, nil, False
	case Undef:
		return nil, nil, Undef
	}

	// the looping constraints alone are satisfiable; add everything
	// else registered for v
	cs := vb.fbCons[v]
	for i := len(cs) - 1; i >= 0; i-- {
		addSrc(cs[i])
	}

	switch us.Check() {
	case False:
		vb.setConflictByFallback(v, us)
		return nil, nil, False
	case Undef:
		return nil, nil, Undef
	}

	switch mode {
	case qFind:
		// hi stays nil: the model carries no uniqueness information
		return us.Model(), nil, True
	case qMin:
		m, ok := us.FindMin()
		if !ok {
			return nil, nil, Undef
		}
		return m, nil, True
	default:
		m, ok := us.FindMax()
		if !ok {
			return nil, nil, Undef
		}
		return nil, m, True
	}
}

// ************************************************************

// HasUpperBound derives a concrete upper bound on v from non-refined,
// side-condition-free entries with constant interval ends, iterating
// until no entry tightens the bound further. It returns the bound and
// the constraints justifying it.
func (vb *Engine) HasUpperBound(v Var) (*big.Int, []Lit, bool) {
	first := vb.unitsHead(v)
	if first == nilh {
		return nil, nil, false
	}
	var outHi *big.Int
	var outC []Lit
	for found := true; found; {
		found = false
		e := first
		for {
			ev := vb.arena.at(e)
			if !ev.refined && len(ev.sideCond) == 0 &&
				ev.interval.Lo().IsVal() && ev.interval.Hi().IsVal() {
				loV := ev.interval.LoVal()
				hiV := ev.interval.HiVal()
				if len(outC) == 0 && loV.Cmp(hiV) > 0 {
					outC = append(outC, ev.src...)
					outHi = addi(loV, -1)
					found = true
				} else if len(outC) > 0 && loV.Cmp(outHi) <= 0 && outHi.Cmp(hiV) < 0 {
					outC = append(outC, ev.src...)
					outHi = addi(loV, -1)
					found = true
				}
			}
			e = ev.next
			if e == first {
				break
			}
		}
	}
	return outHi, outC, len(outC) > 0
}

// HasLowerBound is the mirror image of HasUpperBound.
func (vb *Engine) HasLowerBound(v Var) (*big.Int, []Lit, bool) {
	first := vb.unitsHead(v)
	if first == nilh {
		return nil, nil, false
	}
	var outLo *big.Int
	var outC []Lit
	for found := true; found; {
		found = false
		e := first
		for {
			ev := vb.arena.at(e)
			if !ev.refined && len(ev.sideCond) == 0 &&
				ev.interval.Lo().IsVal() && ev.interval.Hi().IsVal() {
				loV := ev.interval.LoVal()
				hiV := ev.interval.HiVal()
				if len(outC) == 0 && hiV.Sign() != 0 && (loV.Sign() == 0 || loV.Cmp(hiV) > 0) {
					outC = append(outC, ev.src...)
					outLo = hiV
					found = true
				} else if len(outC) > 0 && loV.Cmp(outLo) <= 0 && outLo.Cmp(hiV) < 0 {
					outC = append(outC, ev.src...)
					outLo = hiV
					found = true
				}
			}
			e = ev.next
			if e == first {
				break
			}
		}
	}
	return outLo, outC, len(outC) > 0
}

// HasMaxForbidden checks whether the interval contributed by the
// constraint c is essential in a cover of the whole domain: if the
// remaining entries bridge from c's interval all the way around back to
// it, then v must lie in [hi; lo[ whenever the other constraints hold.
// The justification contains the seam constraints and the endpoints
// re-expressed against the [hi; lo[ complement.
func (vb *Engine) HasMaxForbidden(v Var, c Lit) (lo, hi *big.Int, outC []Lit, ok bool) {
	first := vb.unitsHead(v)
	if first == nilh {
		return nil, nil, nil, false
	}
	containsSrc := func(h handle) bool {
		for _, src := range vb.arena.at(h).src {
			if src == c {
				return true
			}
		}
		return false
	}

	e := first
	found := false
	for {
		if containsSrc(e) {
			found = true
			break
		}
		e = vb.arena.at(e).next
		if e == first {
			break
		}
	}
	if !found {
		return nil, nil, nil, false
	}
	e0 := e
	if vb.arena.at(e0).interval.IsFull() {
		return nil, nil, nil, false
	}

	var e0prev, e0next handle = nilh, nilh
	for {
		ev := vb.arena.at(e)
		n := ev.next
		for n != e0 {
			n1 := vb.arena.at(n).next
			if n1 == e {
				break
			}
			if !vb.arena.at(n1).interval.CurrentlyContains(ev.interval.HiVal()) {
				break
			}
			n = n1
		}
		if e == n {
			return nil, nil, nil, false
		}
		if !vb.arena.at(n).interval.CurrentlyContains(ev.interval.HiVal()) {
			return nil, nil, nil, false // gap
		}
		switch {
		case e == e0:
			e0next = n
			lo = vb.arena.at(n).interval.LoVal()
		case n == e0:
			e0prev = e
			hi = ev.interval.HiVal()
		case containsSrc(e):
			// several intervals from the same constraint
			return nil, nil, nil, false
		default:
			niv := vb.arena.at(n).interval.Symbolic()
			outC = append(outC, vb.host.Elem(ev.interval.Hi(), niv.Lo(), niv.Hi()))
		}
		if e != e0 {
			outC = append(outC, ev.sideCond...)
			outC = append(outC, ev.src...)
		}
		e = n
		if e == e0 {
			break
		}
	}

	// the neighbours may already cover c's interval on their own
	if vb.arena.at(e0next).interval.CurrentlyContains(vb.arena.at(e0prev).interval.HiVal()) {
		return nil, nil, nil, false
	}

	// justify the endpoints against the complement interval [hi; lo[
	outC = append(outC, vb.host.Elem(vb.arena.at(e0prev).interval.Hi(),
		Affine(hi, nil, nil), Affine(lo, nil, nil)))
	e0niv := vb.arena.at(e0next).interval.Symbolic()
	outC = append(outC, vb.host.Elem(Affine(lo, nil, nil), e0niv.Lo(), e0niv.Hi()))
	return lo, hi, outC, true
}
