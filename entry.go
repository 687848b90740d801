// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import "math/big"

// handle is a stable index into the entry arena. Entries link to their
// ring neighbours through handles rather than pointers, so the arena can
// grow and recycle slots without invalidating references held on the
// trail.
type handle int32

const nilh handle = -1

// SingleBit is an extractor-supplied fact forcing one bit of the
// constrained variable.
type SingleBit struct {
	Pos   int
	Value bool
}

// TrailingBits is an extractor-supplied fact about the low Len bits of
// the constrained variable: they equal (Positive) or differ from
// (negated constraint, !Positive) the low bits of Bits.
type TrailingBits struct {
	Bits     *big.Int
	Len      int
	Positive bool
}

// Record is what the forbidden-interval extractor produces for one
// (constraint, variable) pair: a candidate forbidden interval, the
// coefficient the constraint applies to the variable, the source
// constraint literals, and side conditions that must independently hold.
// A coefficient of 1 yields a directly composable unit interval; -1
// marks a disequality-derived inequality pair p*v+q > r*v+s whose four
// numeric slots travel inside the interval bounds; any other value is an
// equality-style constraint with a non-unit multiplier.
type Record struct {
	Interval EvalInterval
	Coeff    *big.Int
	Src      []Lit
	SideCond []Lit
	BitWidth int

	// Optional bit-level facts carried by the source constraint,
	// consumed by the fixed-bit collector.
	Bit  *SingleBit
	Tail *TrailingBits
}

// entry is one forbidden-interval record attached to a variable. It is
// a node of a circular doubly-linked ring; prev/next are arena handles.
type entry struct {
	prev, next handle

	interval EvalInterval
	coeff    *big.Int
	src      []Lit
	sideCond []Lit
	bitWidth int
	refined  bool

	bit  *SingleBit
	tail *TrailingBits
}

func (e *entry) fill(rec *Record) {
	e.interval = rec.Interval
	e.coeff = rec.Coeff
	e.src = append(e.src[:0], rec.Src...)
	e.sideCond = append(e.sideCond[:0], rec.SideCond...)
	e.bitWidth = rec.BitWidth
	e.refined = false
	e.bit = rec.Bit
	e.tail = rec.Tail
}

func (e *entry) isUnit() bool  { return e.coeff.Cmp(one) == 0 }
func (e *entry) isDiseq() bool { return e.coeff.Cmp(minus1) == 0 }

// ************************************************************

// arena owns every entry of one engine. Removed entries are recycled
// through the free list, never released: a handle on the trail stays
// valid until the trail record that created it is undone.
type arena struct {
	nodes []entry
	free  []handle
}

func (a *arena) at(h handle) *entry { return &a.nodes[h] }

// alloc returns a reset entry, reusing a recycled slot when available.
func (a *arena) alloc() handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		e := a.at(h)
		*e = entry{prev: nilh, next: nilh, src: e.src[:0], sideCond: e.sideCond[:0]}
		return h
	}
	a.nodes = append(a.nodes, entry{prev: nilh, next: nilh})
	return handle(len(a.nodes) - 1)
}

func (a *arena) recycle(h handle) {
	a.free = append(a.free, h)
}

// initRing makes h a singleton ring.
func (a *arena) initRing(h handle) {
	e := a.at(h)
	e.prev, e.next = h, h
}

// insertAfter splices h directly after pos.
func (a *arena) insertAfter(pos, h handle) {
	p := a.at(pos)
	e := a.at(h)
	e.prev, e.next = pos, p.next
	a.at(p.next).prev = h
	p.next = h
}

// insertBefore splices h directly before pos.
func (a *arena) insertBefore(pos, h handle) {
	a.insertAfter(a.at(pos).prev, h)
}

// removeFrom unlinks h from the ring headed at *head, updating the head
// if h was the head. The slot is not recycled; callers decide that.
func (a *arena) removeFrom(head *handle, h handle) {
	e := a.at(h)
	if e.next == h {
		// sole element
		*head = nilh
	} else {
		a.at(e.prev).next = e.next
		a.at(e.next).prev = e.prev
		if *head == h {
			*head = e.next
		}
	}
	e.prev, e.next = nilh, nilh
}

// appendTo inserts h at the end of the ring headed at *head (i.e. just
// before the head), or makes it the ring if the ring is empty.
func (a *arena) appendTo(head *handle, h handle) {
	if *head == nilh {
		a.initRing(h)
		*head = h
		return
	}
	a.initRing(h)
	a.insertBefore(*head, h)
}

// insertSorted re-inserts h into the ring headed at *head at the
// position determined by its current lower bound value. Used when
// undoing a removal: intervening structural changes may have moved the
// neighbours, so the position is re-derived from the value, not
// remembered.
func (a *arena) insertSorted(head *handle, h handle) {
	if *head == nilh {
		a.initRing(h)
		*head = h
		return
	}
	lo := a.at(h).interval.LoVal()
	a.initRing(h)
	first := *head
	e := first
	for {
		if a.at(e).interval.LoVal().Cmp(lo) > 0 {
			a.insertBefore(e, h)
			if e == *head {
				*head = h
			}
			return
		}
		e = a.at(e).next
		if e == first {
			break
		}
	}
	a.insertBefore(first, h)
}
