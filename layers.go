// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

// layer is a bit-width-specific bucket of a variable's unit entries: a
// circular ring sorted ascending by current lower bound, with no
// overlapping or contained intervals.
type layer struct {
	bitWidth int
	head     handle
}

// layers holds a variable's unit entries, one layer per bit width that
// appeared through bit extraction, ordered strictly descending by width.
type layers struct {
	ls []layer
}

// ensureLayer returns the layer for the given width, creating it at its
// ordered position when absent.
func (y *layers) ensureLayer(bitWidth int) *layer {
	for i := range y.ls {
		l := &y.ls[i]
		if l.bitWidth == bitWidth {
			return l
		}
		if l.bitWidth < bitWidth {
			y.ls = append(y.ls, layer{})
			copy(y.ls[i+1:], y.ls[i:])
			y.ls[i] = layer{bitWidth: bitWidth, head: nilh}
			return &y.ls[i]
		}
	}
	y.ls = append(y.ls, layer{bitWidth: bitWidth, head: nilh})
	return &y.ls[len(y.ls)-1]
}

// getLayer returns the layer for the given width, or nil.
func (y *layers) getLayer(bitWidth int) *layer {
	for i := range y.ls {
		if y.ls[i].bitWidth == bitWidth {
			return &y.ls[i]
		}
	}
	return nil
}

// head returns the ring head for the given width, or nilh.
func (y *layers) head(bitWidth int) handle {
	if l := y.getLayer(bitWidth); l != nil {
		return l.head
	}
	return nilh
}
