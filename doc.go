// Copyright (c) 2025 The polysmt authors
//
// MIT License

/*
Package viable maintains viable domains for fixed-width modular integer
(bit-vector) variables inside a CDCL(T)-style search.

For every undecided variable the engine keeps the set of values that are
still consistent with the constraints asserted so far, represented as a
collection of forbidden intervals over Z_{2^w}. The engine answers four
kinds of questions: whether a given value is still viable, whether any
viable value exists, what the smallest/largest viable values are, and -
when no viable value is left - which constraints are responsible (as a
lemma usable for conflict resolution).

Forbidden intervals with unit coefficient are composed eagerly into
per-variable sorted circular lists. Constraints that are linear in the
variable with a non-unit multiplier, and disequality-derived inequality
pairs, are kept aside and consulted lazily: whenever a candidate value
survives the unit intervals, these constraints are given a chance to
refine the domain by computing a maximal forbidden band around the
candidate (see the modular run-length computation in ybounds.go). Fixed
bits discovered by an external slicing oracle, or extracted from asserted
unit constraints, are fused into the same process. When interval
refinement fails to converge within its budget, the engine falls back to
a complete univariate bit-blasting solver built on the gini SAT solver.

Entries are allocated from an arena indexed by stable handles with an
intrusive free list, and every structural change is recorded on a
chronological trail so that backtracking (Pop) restores the exact prior
state by replaying the trail in reverse.

The surrounding search loop, the constraint representation, the
forbidden-interval extractor and the slicing subsystem are external
collaborators, accessed through the Host and Slicing interfaces.
*/
package viable
