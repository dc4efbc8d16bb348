package postprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

// PostProcessParams defines the clean up applied to a label map.  Zero
// values disable each step.
type PostProcessParams struct {
	// MinArea is the pixel count below which a label is removed
	MinArea int
	// BorderCutoff removes a label when the number of its pixels on any one
	// image border exceeds BorderCutoff times its major axis length
	BorderCutoff float64
	// ClearBorder removes every label touching the image border
	ClearBorder bool
	// FillHoles fills background pixels enclosed by a label
	FillHoles bool
}

// PostProcessDefaultParams returns an instance of PostProcessParams
// configured with default values:
// - Minimum Area: 100
// - Border Cutoff: disabled
// - Clear Border: false
// - Fill Holes: true
func PostProcessDefaultParams() PostProcessParams {
	return PostProcessParams{
		MinArea:   100,
		FillHoles: true,
	}
}

// Validate checks the parameters are usable
func (p PostProcessParams) Validate() error {
	if p.MinArea < 0 {
		return fmt.Errorf("minimum area must not be negative, got %d", p.MinArea)
	}
	if p.BorderCutoff < 0 {
		return fmt.Errorf("border cutoff must not be negative, got %v", p.BorderCutoff)
	}
	return nil
}

// PostProcess fills holes, removes small and border clipped labels and
// relabels the result densely 1..k keeping the order of the input labels.
// The input map is not modified.
func PostProcess(lm *result.LabelMap, p PostProcessParams) (*result.LabelMap, error) {

	if lm == nil {
		return nil, errors.New("nil label map")
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid post process parameters: %w", err)
	}

	out := lm.Clone()
	k := out.Relabel()

	if k == 0 {
		return out, nil
	}

	if p.FillHoles {
		fillHoles(out, k)
	}

	remove := make([]bool, k+1)
	removed := 0

	if p.MinArea > 0 {
		for l, a := range out.Areas() {
			if l > 0 && a > 0 && a < p.MinArea {
				remove[l] = true
				removed++
			}
		}
	}

	if p.ClearBorder || p.BorderCutoff > 0 {
		removed += markBorderLabels(out, k, p, remove)
	}

	if removed == 0 {
		return out, nil
	}

	for i, l := range out.Pix {
		if remove[l] {
			out.Pix[i] = 0
		}
	}

	out.Relabel()

	return out, nil
}

// borderCounts holds the number of label pixels on each image border
type borderCounts struct {
	left, right, top, bottom int
}

// largest returns the biggest count of any single border
func (b borderCounts) largest() int {
	return max(b.left, b.right, b.top, b.bottom)
}

// markBorderLabels flags labels for removal by the ClearBorder and
// BorderCutoff rules.  It returns the number of newly flagged labels.
func markBorderLabels(lm *result.LabelMap, k int, p PostProcessParams,
	remove []bool) int {

	counts := make([]borderCounts, k+1)
	w := lm.Width
	h := lm.Height

	for i, l := range lm.Pix {
		if l == 0 {
			continue
		}

		x := i % w
		y := i / w

		if x == 0 {
			counts[l].left++
		}
		if x == w-1 {
			counts[l].right++
		}
		if y == 0 {
			counts[l].top++
		}
		if y == h-1 {
			counts[l].bottom++
		}
	}

	var pixels [][]image.Point
	if p.BorderCutoff > 0 {
		pixels = labelPixels(lm, k)
	}

	flagged := 0

	for l := 1; l <= k; l++ {
		if remove[l] {
			continue
		}

		c := counts[l].largest()
		if c == 0 {
			continue
		}

		if p.ClearBorder {
			remove[l] = true
			flagged++
			continue
		}

		region := measureRegion(l, pixels[l])

		if float64(c) > p.BorderCutoff*region.MajorAxisLength {
			remove[l] = true
			flagged++
		}
	}

	return flagged
}

// labelPixels buckets the pixels of a densely labeled map by label
func labelPixels(lm *result.LabelMap, k int) [][]image.Point {

	pixels := make([][]image.Point, k+1)

	for i, l := range lm.Pix {
		if l > 0 {
			pixels[l] = append(pixels[l], image.Point{X: i % lm.Width, Y: i / lm.Width})
		}
	}

	return pixels
}
