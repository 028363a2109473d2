package table

// Mask is a row-aligned boolean selection. A row is selected when its entry is true.
type Mask []bool

// NewMask creates an all-false mask of n rows
func NewMask(n int) Mask {
	return make(Mask, n)
}

// Count returns the number of selected rows
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Not returns the complement
func (m Mask) Not() Mask {
	out := make(Mask, len(m))
	for i, b := range m {
		out[i] = !b
	}
	return out
}

// Indices returns the selected row positions in ascending order
func (m Mask) Indices() []int {
	idx := make([]int, 0, m.Count())
	for i, b := range m {
		if b {
			idx = append(idx, i)
		}
	}
	return idx
}
