// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"fmt"
	"strings"
)

// This file provides display helpers for inspecting the viable state of
// variables, mainly for tracing and tests.

func (vb *Engine) displayOne(b *strings.Builder, v Var, h handle) {
	e := vb.arena.at(h)
	switch {
	case e.isDiseq():
		// the interval slots transport the four coefficients of
		// p*v + q > r*v + s (>= when the source is negated)
		rel := " > "
		if len(e.src) > 0 && !e.src[0].IsPos() {
			rel = " >= "
		}
		fmt.Fprintf(b, "[ %s*v%d + %s%s%s*v%d + %s ] ",
			e.interval.LoVal(), v, e.interval.Lo().Value(), rel,
			e.interval.HiVal(), v, e.interval.Hi().Value())
	case !e.isUnit():
		fmt.Fprintf(b, "%s * v%d %s ", e.coeff, v, e.interval)
	default:
		fmt.Fprintf(b, "%s ", e.interval)
	}
	if len(e.sideCond) > 5 {
		fmt.Fprintf(b, "%d side-conditions ", len(e.sideCond))
	} else {
		for _, sc := range e.sideCond {
			fmt.Fprintf(b, "%s ", sc)
		}
	}
	for count, src := range e.src {
		fmt.Fprintf(b, "%s; ", src)
		if count > 10 {
			b.WriteString(" ...")
			break
		}
	}
}

func (vb *Engine) displayAll(b *strings.Builder, v Var, head handle, delim string) {
	if head == nilh {
		return
	}
	e := head
	count := 0
	for {
		vb.displayOne(b, v, e)
		b.WriteString(delim)
		e = vb.arena.at(e).next
		count++
		if count > 10 {
			b.WriteString(" ...")
			break
		}
		if e == head {
			break
		}
	}
}

// DisplayVar renders every entry currently attached to v, all layers
// and categories.
func (vb *Engine) DisplayVar(v Var) string {
	var b strings.Builder
	for _, l := range vb.units[v].ls {
		vb.displayAll(&b, v, l.head, " ")
	}
	vb.displayAll(&b, v, vb.equalLin[v], " ")
	vb.displayAll(&b, v, vb.diseqLin[v], " ")
	return b.String()
}

func (vb *Engine) String() string {
	var b strings.Builder
	for v := range vb.widths {
		fmt.Fprintf(&b, "v%d: %s\n", v, vb.DisplayVar(Var(v)))
	}
	return b.String()
}
