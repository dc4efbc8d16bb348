package postprocess

import (
	"github.com/swdee/go-orgtrack/postprocess/result"
)

// labelBoxes returns the bounding box of every label of a densely labeled
// map indexed by label
func labelBoxes(lm *result.LabelMap, k int) []result.BoxRect {

	boxes := make([]result.BoxRect, k+1)
	seen := make([]bool, k+1)

	for i, l := range lm.Pix {
		if l == 0 {
			continue
		}

		x := i % lm.Width
		y := i / lm.Width

		if !seen[l] {
			boxes[l] = result.BoxRect{Left: x, Right: x + 1, Top: y, Bottom: y + 1}
			seen[l] = true
			continue
		}

		b := &boxes[l]
		b.Left = min(b.Left, x)
		b.Right = max(b.Right, x+1)
		b.Top = min(b.Top, y)
		b.Bottom = max(b.Bottom, y+1)
	}

	return boxes
}

// fillHoles sets background pixels enclosed by a label to that label.  The
// map must be densely labeled 1..k.  Pixels of other labels are never
// overwritten.  When a background pixel is enclosed by more than one label
// the label with the smallest bounding box wins, ties going to the lower
// label.  It returns the number of pixels filled.
func fillHoles(lm *result.LabelMap, k int) int {

	if k == 0 {
		return 0
	}

	boxes := labelBoxes(lm, k)
	holes := make([][]int, k+1)

	parallelFor(k, func(i int) {
		holes[i+1] = findHoles(lm, i+1, boxes[i+1])
	})

	owner := make(map[int]int)

	for l := 1; l <= k; l++ {
		for _, idx := range holes[l] {
			cur, ok := owner[idx]
			if !ok || boxes[l].Area() < boxes[cur].Area() {
				owner[idx] = l
			}
		}
	}

	for idx, l := range owner {
		lm.Pix[idx] = l
	}

	return len(owner)
}

// findHoles returns the flat indexes of background pixels inside box that
// can not reach the outside of the box without crossing label
func findHoles(lm *result.LabelMap, label int, box result.BoxRect) []int {

	// local grid padded by one pixel on every side so the outside is
	// connected
	pw := box.Width() + 2
	ph := box.Height() + 2

	reached := make([]bool, pw*ph)
	isLabel := func(lx, ly int) bool {
		if lx == 0 || ly == 0 || lx == pw-1 || ly == ph-1 {
			return false
		}
		return lm.At(box.Left+lx-1, box.Top+ly-1) == label
	}

	stack := []int{0}
	reached[0] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, j := range neighbours4(i%pw, i/pw, pw, ph) {
			if j < 0 || reached[j] || isLabel(j%pw, j/pw) {
				continue
			}
			reached[j] = true
			stack = append(stack, j)
		}
	}

	var holes []int

	for ly := 1; ly < ph-1; ly++ {
		for lx := 1; lx < pw-1; lx++ {
			if reached[ly*pw+lx] {
				continue
			}

			x := box.Left + lx - 1
			y := box.Top + ly - 1

			if lm.At(x, y) == 0 {
				holes = append(holes, y*lm.Width+x)
			}
		}
	}

	return holes
}
