// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tribool is a three-valued boolean.
type Tribool int8

const (
	False Tribool = -1
	Undef Tribool = 0
	True  Tribool = 1
)

func (t Tribool) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "undef"
	}
}

func toTribool(b bool) Tribool {
	if b {
		return True
	}
	return False
}

// Find is the outcome taxonomy of FindViable.
type Find int

const (
	// FindEmpty: the variable has no viable value; a conflict with a
	// justification has been recorded on the engine.
	FindEmpty Find = iota
	// FindSingleton: exactly one viable value remains.
	FindSingleton
	// FindMultiple: at least two viable values remain (or the fallback
	// solver produced a model without a uniqueness check).
	FindMultiple
	// FindResourceOut: the refinement budget and the fallback solver's
	// resources were both exhausted; the caller may retry differently
	// or abort. Never fatal.
	FindResourceOut
)

func (f Find) String() string {
	switch f {
	case FindEmpty:
		return "empty"
	case FindSingleton:
		return "singleton"
	case FindMultiple:
		return "multiple"
	default:
		return "resource-out"
	}
}

// ************************************************************

// Host connects the engine to the surrounding search: the boolean
// assignment, the forbidden-interval extractor, and constraint
// construction for conflict lemmas. All calls are synchronous; the
// engine never retains Host state across calls.
type Host interface {
	// IsAssigned reports whether variable v already has a value.
	IsAssigned(v Var) bool

	// BoolValue returns the boolean assignment status of l.
	BoolValue(l Lit) Tribool

	// IsCurrentlyTrue reports whether l evaluates to true under the
	// current partial assignment.
	IsCurrentlyTrue(l Lit) bool

	// AssignEval records l as assigned by evaluation.
	AssignEval(l Lit)

	// Extract computes a forbidden interval for variable v from the
	// constraint labelled by l. It returns false when no interval can
	// be extracted.
	Extract(l Lit, v Var, out *Record) bool

	// Elem returns a literal asserting t in [lo; hi[, used to justify
	// the seams of an interval cover.
	Elem(t, lo, hi Poly) Lit

	// EqualityLit returns a literal asserting v equals its current
	// value, assigning it by evaluation if it is not assigned yet.
	EqualityLit(v Var) Lit

	// AddToUnivariate asserts the constraint labelled by l into the
	// fallback solver, restricted to variable v, using uint32(l) as
	// the dependency tag.
	AddToUnivariate(l Lit, v Var, us UnivariateSolver)

	// PropagateAssign informs the search that v must take val.
	PropagateAssign(v Var, val *big.Int)
}

// FixedNode is an opaque justification handle produced by the slicing
// oracle, expanded on demand through Slicing.ExplainFixed.
type FixedNode interface{}

// FixedRange is a run of bits of a variable forced to a concrete
// pattern by slicing. Bits Lo..Hi (inclusive) equal the corresponding
// low bits of Value.
type FixedRange struct {
	Lo, Hi int
	Value  *big.Int
	Just   FixedNode
}

// Slicing is the read-only oracle for bit-level equivalences tracked
// outside this engine.
type Slicing interface {
	// CollectFixed returns the currently known fixed-bit ranges of v;
	// ranges do not overlap.
	CollectFixed(v Var) []FixedRange

	// ExplainFixed expands a justification node into constraint
	// literals and variable-equality facts.
	ExplainFixed(n FixedNode, lit func(Lit), varEq func(Var))
}

// ************************************************************

type config struct {
	log              logrus.FieldLogger
	refinementBudget int
	yBoundsCap       int
	slicing          Slicing
	factory          func(bitWidth int) (UnivariateSolver, error)
}

// Option configures an Engine at construction.
type Option func(*config)

// WithLogger sets the trace logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// WithRefinementBudget caps the number of interval refinement rounds a
// single query may perform before falling back to bit-blasting. The
// default is 1000.
func WithRefinementBudget(n int) Option {
	return func(c *config) { c.refinementBudget = n }
}

// WithYBoundsCap caps the incremental growth steps of the modular
// run-length computation. The default is 100.
func WithYBoundsCap(n int) Option {
	return func(c *config) { c.yBoundsCap = n }
}

// WithSlicing attaches the slicing oracle.
func WithSlicing(s Slicing) Option {
	return func(c *config) { c.slicing = s }
}

// WithSolverFactory overrides how fallback solvers are built, e.g. to
// tune the SAT timeout. The default builds a gini-backed BitSolver.
func WithSolverFactory(f func(bitWidth int) (UnivariateSolver, error)) Option {
	return func(c *config) { c.factory = f }
}

// ************************************************************

type trailKind uint8

const (
	trailUnitAdd trailKind = iota
	trailUnitRemove
	trailEqualAdd
	trailDiseqAdd
	trailVarAdd
	trailConstraintAdd
)

type trailRec struct {
	kind trailKind
	v    Var
	h    handle
}

// Engine maintains the viable domains of all declared variables. It is
// owned by a single search thread; none of its methods may be called
// concurrently. All mutations are recorded on a chronological trail and
// undone, strictly in reverse, by Pop.
type Engine struct {
	host Host
	cfg  config
	log  logrus.FieldLogger

	widths   []int
	units    []layers
	equalLin []handle
	diseqLin []handle

	arena  arena
	trail  []trailRec
	levels []int

	fbCons [][]Lit // registered univariate constraints per var

	conflict *Conflict
}

// New returns an engine bound to the given host.
func New(host Host, opts ...Option) (*Engine, error) {
	if host == nil {
		return nil, errors.New("viable: nil host")
	}
	cfg := config{
		refinementBudget: 1000,
		yBoundsCap:       100,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.refinementBudget <= 0 {
		return nil, errors.Errorf("viable: refinement budget %d out of range", cfg.refinementBudget)
	}
	if cfg.yBoundsCap <= 0 {
		return nil, errors.Errorf("viable: run-length cap %d out of range", cfg.yBoundsCap)
	}
	log := cfg.log
	if log == nil {
		log = discardLogger()
	}
	if cfg.factory == nil {
		cfg.factory = func(w int) (UnivariateSolver, error) { return NewBitSolver(w) }
	}
	return &Engine{
		host: host,
		cfg:  cfg,
		log:  log,
	}, nil
}

// ************************************************************

// PushVar declares a fresh variable of the given bit width and returns
// its index. Variables are removed in LIFO order, either explicitly
// with PopVar or by Pop past their creation.
func (vb *Engine) PushVar(bitWidth int) Var {
	if bitWidth <= 0 {
		panic("viable: non-positive bit width")
	}
	v := Var(len(vb.widths))
	vb.widths = append(vb.widths, bitWidth)
	vb.units = append(vb.units, layers{})
	vb.equalLin = append(vb.equalLin, nilh)
	vb.diseqLin = append(vb.diseqLin, nilh)
	vb.fbCons = append(vb.fbCons, nil)
	vb.trail = append(vb.trail, trailRec{kind: trailVarAdd, v: v})
	return v
}

// PopVar removes the most recently declared variable. Its entry state
// must already have been popped; calling PopVar with pending entry
// trail records for the variable is a programming error.
func (vb *Engine) PopVar() {
	n := len(vb.trail)
	if n == 0 || vb.trail[n-1].kind != trailVarAdd {
		panic("viable: PopVar without matching PushVar on top of trail")
	}
	vb.trail = vb.trail[:n-1]
	vb.popVar()
}

func (vb *Engine) popVar() {
	last := len(vb.widths) - 1
	vb.widths = vb.widths[:last]
	vb.units = vb.units[:last]
	vb.equalLin = vb.equalLin[:last]
	vb.diseqLin = vb.diseqLin[:last]
	vb.fbCons = vb.fbCons[:last]
}

// Width returns the bit width of v.
func (vb *Engine) Width(v Var) int { return vb.widths[v] }

// Push opens a backtracking level.
func (vb *Engine) Push() {
	vb.levels = append(vb.levels, len(vb.trail))
}

// Pop closes the most recent backtracking level, replaying the trail in
// reverse to restore the exact prior structure. It runs to completion;
// intermediate states are not observable.
func (vb *Engine) Pop() {
	n := len(vb.levels)
	if n == 0 {
		panic("viable: Pop without Push")
	}
	mark := vb.levels[n-1]
	vb.levels = vb.levels[:n-1]
	for len(vb.trail) > mark {
		rec := vb.trail[len(vb.trail)-1]
		vb.trail = vb.trail[:len(vb.trail)-1]
		vb.undo(rec)
	}
	vb.conflict = nil
}

func (vb *Engine) undo(rec trailRec) {
	switch rec.kind {
	case trailUnitAdd:
		e := vb.arena.at(rec.h)
		l := vb.units[rec.v].getLayer(e.bitWidth)
		vb.arena.removeFrom(&l.head, rec.h)
		vb.arena.recycle(rec.h)
	case trailUnitRemove:
		// The neighbours at removal time may be gone; the position is
		// re-derived from the entry's concrete lower bound.
		e := vb.arena.at(rec.h)
		l := vb.units[rec.v].ensureLayer(e.bitWidth)
		vb.arena.insertSorted(&l.head, rec.h)
	case trailEqualAdd:
		vb.arena.removeFrom(&vb.equalLin[rec.v], rec.h)
		vb.arena.recycle(rec.h)
	case trailDiseqAdd:
		vb.arena.removeFrom(&vb.diseqLin[rec.v], rec.h)
		vb.arena.recycle(rec.h)
	case trailVarAdd:
		vb.popVar()
	case trailConstraintAdd:
		cs := vb.fbCons[rec.v]
		vb.fbCons[rec.v] = cs[:len(cs)-1]
	}
}

// ************************************************************

// HasConflict reports whether the last operation recorded a conflict.
func (vb *Engine) HasConflict() bool { return vb.conflict != nil }

// Conflict returns the pending conflict justification, or nil.
func (vb *Engine) Conflict() *Conflict { return vb.conflict }

// ResetConflict clears the pending conflict after the caller has
// consumed it.
func (vb *Engine) ResetConflict() { vb.conflict = nil }

// ************************************************************

// Intersect incorporates the constraint labelled by lit into the viable
// state of v. It returns true when the state changed or a conflict was
// recorded (check HasConflict before proceeding). Calls for variables
// that are already assigned are no-ops: they arise when one literal is
// dispatched against several candidate variables.
func (vb *Engine) Intersect(v Var, lit Lit) bool {
	if vb.host.IsAssigned(v) {
		vb.log.WithField("var", v).Debug("intersect: variable already assigned")
		return false
	}
	var rec Record
	if !vb.host.Extract(lit, v, &rec) {
		return false
	}
	if rec.Interval.IsProper() && rec.Interval.IsCurrentlyEmpty() {
		return false
	}
	for _, sc := range rec.SideCond {
		// Side conditions hold under the current assignment by
		// construction of the extraction; they may still have been
		// boolean-propagated to false earlier in the queue.
		switch vb.host.BoolValue(sc) {
		case False:
			vb.conflict = conflictFromLit(v, sc.Not())
			vb.log.WithField("var", v).Debug("intersect: false side condition")
			return true
		case Undef:
			vb.host.AssignEval(sc)
		case True:
			// ok
		}
	}
	h := vb.arena.alloc()
	vb.arena.at(h).fill(&rec)
	switch {
	case vb.arena.at(h).isUnit():
		return vb.intersectUnit(v, h)
	case vb.arena.at(h).isDiseq():
		vb.insertLin(v, h, &vb.diseqLin[v], trailDiseqAdd)
		return true
	default:
		vb.insertLin(v, h, &vb.equalLin[v], trailEqualAdd)
		return true
	}
}

// IntersectPair extracts the remaining free variable from p or q and
// tries to update its viable state with the constraint labelled by lit;
// a resulting singleton domain is propagated through the host. It
// returns true when a propagation or conflict happened.
func (vb *Engine) IntersectPair(p, q Poly, lit Lit) bool {
	v := nullVar
	first := true
	prop := false
	if x, ok := p.Unilinear(); ok {
		v = x
	} else if x, ok := q.Unilinear(); ok {
		v = x
		first = false
	} else {
		return false
	}
	for {
		if vb.Intersect(v, lit) {
			if vb.HasConflict() {
				return true
			}
			var val big.Int
			switch vb.FindViable(v, &val) {
			case FindSingleton:
				vb.host.PropagateAssign(v, &val)
				prop = true
			case FindEmpty:
				return true
			default:
			}
		}
		if first {
			if x, ok := q.Unilinear(); ok && x != v {
				v = x
				first = false
				continue
			}
		}
		return prop
	}
}

// insertLin appends h to a non-unit ring (no subsumption logic; the
// refinement passes rotate the head instead).
func (vb *Engine) insertLin(v Var, h handle, head *handle, kind trailKind) {
	vb.trail = append(vb.trail, trailRec{kind: kind, v: v, h: h})
	vb.arena.appendTo(head, h)
}

// intersectUnit merges the entry at h into the unit layer of its bit
// width, maintaining the sorted, overlap-free, containment-free ring.
// Returns false when the new interval was redundant (h is recycled).
func (vb *Engine) intersectUnit(v Var, ne handle) bool {
	l := vb.units[v].ensureLayer(vb.arena.at(ne).bitWidth)
	niv := vb.arena.at(ne).interval

	if l.head != nilh && vb.arena.at(l.head).interval.IsFull() {
		// everything is already forbidden
		vb.arena.recycle(ne)
		return false
	}
	if niv.IsProper() && niv.IsCurrentlyEmpty() {
		vb.arena.recycle(ne)
		return false
	}

	create := func() {
		vb.trail = append(vb.trail, trailRec{kind: trailUnitAdd, v: v, h: ne})
		vb.arena.initRing(ne)
	}
	remove := func(h handle) {
		vb.trail = append(vb.trail, trailRec{kind: trailUnitRemove, v: v, h: h})
		vb.arena.removeFrom(&l.head, h)
	}

	if niv.IsFull() {
		for l.head != nilh {
			remove(l.head)
		}
		create()
		l.head = ne
		return true
	}

	if l.head == nilh {
		create()
		l.head = ne
		return true
	}

	first := l.head
	e := first
	for {
		if vb.arena.at(e).interval.CurrentlyContainsIv(niv) {
			vb.arena.recycle(ne)
			return false
		}
		for niv.CurrentlyContainsIv(vb.arena.at(e).interval) {
			n := vb.arena.at(e).next
			remove(e)
			if l.head == nilh {
				create()
				l.head = ne
				return true
			}
			if e == first {
				first = n
			}
			e = n
		}
		if vb.arena.at(e).interval.LoVal().Cmp(niv.LoVal()) > 0 {
			if vb.arena.at(vb.arena.at(first).prev).interval.CurrentlyContainsIv(niv) {
				vb.arena.recycle(ne)
				return false
			}
			create()
			vb.arena.insertBefore(e, ne)
			if e == first {
				l.head = ne
			}
			return true
		}
		e = vb.arena.at(e).next
		if e == first {
			break
		}
	}
	// no later entry starts above the new one: append at the end
	create()
	vb.arena.insertBefore(first, ne)
	return true
}

// intersectRefined runs unit insertion for an engine-created (refined)
// record. The record's interval must currently contain the value whose
// rejection it justifies.
func (vb *Engine) intersectRefined(v Var, rec *Record) {
	h := vb.arena.alloc()
	e := vb.arena.at(h)
	e.fill(rec)
	e.refined = true
	vb.intersectUnit(v, h)
}

// PushConstraint registers a univariate constraint on v for the
// bit-blasting fallback. Registration is undone by Pop.
func (vb *Engine) PushConstraint(v Var, lit Lit) {
	vb.fbCons[v] = append(vb.fbCons[v], lit)
	vb.trail = append(vb.trail, trailRec{kind: trailConstraintAdd, v: v})
}

// ************************************************************

// unitsHead returns the head of v's unit ring at its declared width.
func (vb *Engine) unitsHead(v Var) handle {
	return vb.units[v].head(vb.widths[v])
}

// wellFormed checks the structural invariants of one unit ring: lower
// bounds strictly increase around the ring, no interval contains its
// successor, no interval is currently empty, and a full interval is
// alone.
func (vb *Engine) wellFormedRing(head handle) bool {
	if head == nilh {
		return true
	}
	e := head
	for {
		ev := vb.arena.at(e)
		if ev.interval.IsFull() {
			return ev.next == e
		}
		if ev.interval.IsCurrentlyEmpty() {
			return false
		}
		n := ev.next
		if n != e && ev.interval.CurrentlyContainsIv(vb.arena.at(n).interval) {
			return false
		}
		if n == head {
			return true
		}
		if ev.interval.LoVal().Cmp(vb.arena.at(n).interval.LoVal()) >= 0 {
			return false
		}
		e = n
	}
}

// wellFormed checks all layers of v: each ring well formed, entries at
// the layer's width, widths strictly descending.
func (vb *Engine) wellFormed(v Var) bool {
	prev := int(^uint(0) >> 1)
	for _, l := range vb.units[v].ls {
		if !vb.wellFormedRing(l.head) {
			return false
		}
		if l.head != nilh {
			e := l.head
			for {
				if vb.arena.at(e).bitWidth != l.bitWidth {
					return false
				}
				e = vb.arena.at(e).next
				if e == l.head {
					break
				}
			}
		}
		if prev <= l.bitWidth {
			return false
		}
		prev = l.bitWidth
	}
	return true
}
