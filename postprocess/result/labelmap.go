package result

import (
	"fmt"
	"sort"
)

// LabelMap is a per frame instance label image.  Zero is background and
// every positive value identifies one instance within that frame only.
type LabelMap struct {
	Width  int
	Height int
	// Pix holds the labels in row-major order
	Pix []int
}

// NewLabelMap returns an all background LabelMap of the given size
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{
		Width:  width,
		Height: height,
		Pix:    make([]int, width*height),
	}
}

// LabelMapFromPix wraps row-major label values, checking dimensions and that
// no label is negative
func LabelMapFromPix(width, height int, pix []int) (*LabelMap, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("label map has empty dimensions %dx%d", width, height)
	}

	if len(pix) != width*height {
		return nil, fmt.Errorf("label map has %d values for %dx%d", len(pix),
			width, height)
	}

	for i, v := range pix {
		if v < 0 {
			return nil, fmt.Errorf("negative label %d at x=%d y=%d", v,
				i%width, i/width)
		}
	}

	return &LabelMap{Width: width, Height: height, Pix: pix}, nil
}

// At returns the label at column x, row y
func (l *LabelMap) At(x, y int) int {
	return l.Pix[y*l.Width+x]
}

// Set the label at column x, row y
func (l *LabelMap) Set(x, y, label int) {
	l.Pix[y*l.Width+x] = label
}

// Max returns the largest label in the map
func (l *LabelMap) Max() int {
	max := 0
	for _, v := range l.Pix {
		if v > max {
			max = v
		}
	}
	return max
}

// Count returns the number of non background pixels
func (l *LabelMap) Count() int {
	n := 0
	for _, v := range l.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Labels returns the distinct positive labels in ascending order
func (l *LabelMap) Labels() []int {

	seen := make(map[int]struct{})

	for _, v := range l.Pix {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}

	labels := make([]int, 0, len(seen))

	for v := range seen {
		labels = append(labels, v)
	}

	sort.Ints(labels)
	return labels
}

// Areas returns the pixel count of every label indexed by label value, the
// slice has length Max()+1
func (l *LabelMap) Areas() []int {
	areas := make([]int, l.Max()+1)
	for _, v := range l.Pix {
		if v > 0 {
			areas[v]++
		}
	}
	return areas
}

// Clone returns a deep copy
func (l *LabelMap) Clone() *LabelMap {
	pix := make([]int, len(l.Pix))
	copy(pix, l.Pix)
	return &LabelMap{Width: l.Width, Height: l.Height, Pix: pix}
}

// SameSize reports whether both maps have identical dimensions
func (l *LabelMap) SameSize(other *LabelMap) bool {
	return l.Width == other.Width && l.Height == other.Height
}

// Relabel renumbers labels in place so they are dense in 1..k keeping the
// ascending order of the original labels.  It returns k.
func (l *LabelMap) Relabel() int {

	max := l.Max()
	if max == 0 {
		return 0
	}

	lut := make([]int, max+1)

	for _, v := range l.Pix {
		if v > 0 {
			lut[v] = 1
		}
	}

	next := 0

	for v := 1; v <= max; v++ {
		if lut[v] != 0 {
			next++
			lut[v] = next
		}
	}

	for i, v := range l.Pix {
		l.Pix[i] = lut[v]
	}

	return next
}
