// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

// fixedBits is the per-query snapshot of bit-level knowledge about one
// variable: for each bit position a forced value (or Undef) together
// with the justifications that force it. Justifications come in three
// flavours that are kept separate because conflict clauses treat them
// differently: constraint literals, side conditions, and opaque slicing
// nodes expanded on demand.
type fixedBits struct {
	fixed     []Tribool
	justSrc   [][]Lit
	justSide  [][]Lit
	justSlice [][]FixedNode
}

func newFixedBits(bitWidth int) *fixedBits {
	return &fixedBits{
		fixed:     make([]Tribool, bitWidth),
		justSrc:   make([][]Lit, bitWidth),
		justSide:  make([][]Lit, bitWidth),
		justSlice: make([][]FixedNode, bitWidth),
	}
}

func (fb *fixedBits) isEmpty() bool {
	for _, t := range fb.fixed {
		if t != Undef {
			return false
		}
	}
	return true
}

// setJust replaces the justification of bit i by the given entry.
func (fb *fixedBits) setJust(i int, e *entry) {
	fb.justSrc[i] = fb.justSrc[i][:0]
	fb.justSide[i] = fb.justSide[i][:0]
	fb.justSlice[i] = fb.justSlice[i][:0]
	fb.pushJust(i, e)
}

// pushJust appends the entry's justification to bit i.
func (fb *fixedBits) pushJust(i int, e *entry) {
	fb.justSrc[i] = append(fb.justSrc[i], e.src...)
	fb.justSide[i] = append(fb.justSide[i], e.sideCond...)
}

// pushFromBit copies the justification of bit src onto bit dst, used
// when unit propagation on a negative equation forces dst from the
// other bits of the mask.
func (fb *fixedBits) pushFromBit(dst, src int) {
	fb.justSrc[dst] = append(fb.justSrc[dst], fb.justSrc[src]...)
	fb.justSide[dst] = append(fb.justSide[dst], fb.justSide[src]...)
	fb.justSlice[dst] = append(fb.justSlice[dst], fb.justSlice[src]...)
}

// ************************************************************

// conflictBuilder accumulates the negations of justification literals
// into a lemma, deduplicating as it goes.
type conflictBuilder struct {
	vb    *Engine
	v     Var
	added map[Lit]bool
	lits  []Lit
}

func (vb *Engine) newConflictBuilder(v Var) *conflictBuilder {
	return &conflictBuilder{vb: vb, v: v, added: make(map[Lit]bool)}
}

func (cb *conflictBuilder) addLit(l Lit) {
	if l == LitNull || cb.added[l] {
		return
	}
	cb.added[l] = true
	cb.lits = append(cb.lits, l.Not())
}

func (cb *conflictBuilder) addLits(ls []Lit) {
	for _, l := range ls {
		cb.addLit(l)
	}
}

func (cb *conflictBuilder) addEntry(e *entry) {
	for _, sc := range e.sideCond {
		cb.addLit(sc)
	}
	for _, src := range e.src {
		cb.addLit(src)
	}
}

func (cb *conflictBuilder) addSlicing(n FixedNode) {
	cb.vb.cfg.slicing.ExplainFixed(n, func(l Lit) {
		cb.addLit(l)
	}, func(w Var) {
		cb.addLit(cb.vb.host.EqualityLit(w))
	})
}

func (cb *conflictBuilder) addBitJustification(fb *fixedBits, i int) {
	cb.addLits(fb.justSrc[i])
	cb.addLits(fb.justSide[i])
	for _, n := range fb.justSlice[i] {
		cb.addSlicing(n)
	}
}

func (cb *conflictBuilder) build() *Conflict {
	return &Conflict{V: cb.v, Lits: cb.lits}
}

// ************************************************************

// collectBitInformation gathers all currently known fixed bits of v:
// ranges reported by the slicing oracle first, then single-bit and
// trailing-bit facts carried by non-unit entries, and finally a unit
// propagation fixpoint over the postponed negative equations. It
// returns false when the facts contradict each other; a conflict is
// recorded on the engine only when addConflict is set.
func (vb *Engine) collectBitInformation(v Var, addConflict bool, out *fixedBits) bool {
	w := vb.widths[v]
	*out = *newFixedBits(w)

	if vb.cfg.slicing != nil {
		for _, fr := range vb.cfg.slicing.CollectFixed(v) {
			for i := fr.Lo; i <= fr.Hi; i++ {
				out.fixed[i] = toTribool(bitOf(fr.Value, i-fr.Lo))
				out.justSlice[i] = append(out.justSlice[i], fr.Just)
			}
		}
	}

	e1 := vb.equalLin[v]
	e2 := vb.unitsHead(v)
	if e1 == nilh && e2 == nilh {
		return true
	}

	cb := vb.newConflictBuilder(v)

	type neg struct {
		h    handle
		tail *TrailingBits
	}
	var postponed []neg

	if e1 != nilh {
		largestLsb := 0
		first := e1
		e := e1
		for {
			ev := vb.arena.at(e)
			if len(ev.src) != 1 {
				// contracted entries carry merged justifications and
				// no longer correspond to one constraint
				e = ev.next
				if e == first {
					break
				}
				continue
			}
			switch {
			case ev.bit != nil:
				bit := ev.bit
				prev := out.fixed[bit.Pos]
				out.fixed[bit.Pos] = toTribool(bit.Value)
				if prev != Undef && out.fixed[bit.Pos] != prev {
					if addConflict {
						cb.addBitJustification(out, bit.Pos)
						cb.addEntry(ev)
						vb.conflict = cb.build()
					}
					return false
				}
				// prefer bit facts over parity facts as justification
				out.setJust(bit.Pos, ev)
			case ev.tail != nil && ev.tail.Positive:
				tail := ev.tail
				for i := 0; i < tail.Len; i++ {
					prev := out.fixed[i]
					out.fixed[i] = toTribool(bitOf(tail.Bits, i))
					if prev == Undef {
						out.setJust(i, ev)
						continue
					}
					if out.fixed[i] != prev {
						if addConflict {
							cb.addBitJustification(out, i)
							cb.addEntry(ev)
							vb.conflict = cb.build()
						}
						return false
					}
					// larger masks mean fewer premises per bit
					if largestLsb < tail.Len {
						out.setJust(i, ev)
					}
				}
				if tail.Len > largestLsb {
					largestLsb = tail.Len
				}
			case ev.tail != nil:
				postponed = append(postponed, neg{h: e, tail: ev.tail})
			}
			e = ev.next
			if e == first {
				break
			}
		}
	}

	// negative equations only force a bit once all but one position of
	// their mask is decided; iterate to a fixpoint
	removed := make([]bool, len(postponed))
	for changed := true; changed; {
		changed = false
		for j := range postponed {
			if removed[j] {
				continue
			}
			tail := postponed[j].tail
			indet, lastIndet := 0, 0
			i := 0
			for ; i < tail.Len; i++ {
				if out.fixed[i] != Undef {
					if out.fixed[i] != toTribool(bitOf(tail.Bits, i)) {
						removed[j] = true
						break // already satisfied
					}
				} else {
					indet++
					lastIndet = i
				}
			}
			if i < tail.Len {
				continue
			}
			if indet == 0 {
				if addConflict {
					for k := 0; k < tail.Len; k++ {
						cb.addBitJustification(out, k)
					}
					cb.addEntry(vb.arena.at(postponed[j].h))
					vb.conflict = cb.build()
				}
				return false
			}
			if indet == 1 {
				for k := 0; k < tail.Len; k++ {
					if k != lastIndet {
						out.pushFromBit(lastIndet, k)
					}
				}
				out.pushJust(lastIndet, vb.arena.at(postponed[j].h))
				out.fixed[lastIndet] = toTribool(!bitOf(tail.Bits, lastIndet))
				removed[j] = true
				changed = true
			}
		}
	}

	return true
}
