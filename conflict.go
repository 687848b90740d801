// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

// Conflict is the justification of an empty viable domain: a lemma
// built from the negations of the responsible constraints, plus the
// constraints cited positively for the caller's conflict analysis.
type Conflict struct {
	V    Var
	Lits []Lit // lemma literals, already negated
	Srcs []Lit // cited source constraints
}

func conflictFromLit(v Var, l Lit) *Conflict {
	return &Conflict{V: v, Lits: []Lit{l}}
}

// setConflictByInterval records the conflict justified by the interval
// cover of v.
func (vb *Engine) setConflictByInterval(v Var) {
	c, _ := vb.ResolveInterval(v)
	vb.conflict = c
}

// ResolveFallback builds the conflict justified by an unsat core of the
// fallback solver: the dependency tags are the constraint literals.
func (vb *Engine) ResolveFallback(v Var, core []uint32) *Conflict {
	c := &Conflict{V: v}
	for _, dep := range core {
		l := Lit(dep)
		c.Lits = append(c.Lits, l.Not())
		c.Srcs = append(c.Srcs, l)
	}
	return c
}

func (vb *Engine) setConflictByFallback(v Var, us UnivariateSolver) {
	vb.conflict = vb.ResolveFallback(v, us.UnsatCore())
}

// ResolveInterval explains why v has no viable value. The precondition
// is that the forbidden intervals cover the whole domain; HasViable is
// called first so that the refined entries backing the cover exist.
//
// The lemma cites, for each interval in a greedily chosen cover, its
// source constraints and side conditions, plus one seam constraint per
// step stating that the interval's upper end lies in its successor.
// The boolean result is false when a seam constraint is already false
// under the boolean assignment; the conflict is then that single
// negated constraint and no lemma is produced.
func (vb *Engine) ResolveInterval(v Var) (*Conflict, bool) {
	if vb.HasViable(v) {
		return nil, false
	}
	first := vb.unitsHead(v)
	c := &Conflict{V: v}

	// a full interval is alone in its ring and explains everything
	if vb.arena.at(first).interval.IsFull() {
		fe := vb.arena.at(first)
		for _, sc := range fe.sideCond {
			c.Lits = append(c.Lits, sc.Not())
		}
		for _, src := range fe.src {
			c.Lits = append(c.Lits, src.Not())
			c.Srcs = append(c.Srcs, src)
		}
		return c, true
	}

	e := first
	for {
		ev := vb.arena.at(e)
		n := ev.next

		// Pick the successor that extends the covered region the
		// furthest. Entries are sorted by lower bound and containment
		// free, so the candidates form a prefix of the remaining list
		// and the last of them is the best.
		for n != first {
			n1 := vb.arena.at(n).next
			if n1 == e {
				break
			}
			if !vb.arena.at(n1).interval.CurrentlyContains(ev.interval.HiVal()) {
				break
			}
			n = n1
		}

		niv := vb.arena.at(n).interval.Symbolic()
		seam := vb.host.Elem(ev.interval.Hi(), niv.Lo(), niv.Hi())
		if vb.host.BoolValue(seam) == False {
			return conflictFromLit(v, seam.Not()), false
		}
		c.Lits = append(c.Lits, seam.Not())

		for _, sc := range ev.sideCond {
			c.Lits = append(c.Lits, sc.Not())
		}
		for _, src := range ev.src {
			c.Lits = append(c.Lits, src.Not())
			c.Srcs = append(c.Srcs, src)
		}
		e = n
		if e == first {
			return c, true
		}
	}
}
