package postprocess

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

// parseLabels builds a label map from rows of digits where '.' is
// background
func parseLabels(t *testing.T, rows ...string) *result.LabelMap {
	t.Helper()

	lm := result.NewLabelMap(len(rows[0]), len(rows))

	for y, row := range rows {
		require.Len(t, row, lm.Width)
		for x, c := range row {
			if c != '.' {
				lm.Set(x, y, int(c-'0'))
			}
		}
	}

	return lm
}

// borderFixture returns a 12x12 map with an interior 4x4 block labeled 3,
// an 8 pixel column on the left border labeled 8 and a single interior
// pixel labeled 11
func borderFixture() *result.LabelMap {

	lm := result.NewLabelMap(12, 12)

	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			lm.Set(x, y, 3)
		}
	}

	for y := 2; y < 10; y++ {
		lm.Set(0, y, 8)
	}

	lm.Set(10, 10, 11)

	return lm
}

func TestPostProcessDisabledIsNoop(t *testing.T) {
	in := borderFixture()
	orig := in.Clone()

	out, err := PostProcess(in, PostProcessParams{})
	require.NoError(t, err)

	if diff := cmp.Diff(orig.Pix, in.Pix); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}

	// same pixels, only renumbered densely
	assert.Equal(t, []int{1, 2, 3}, out.Labels())
	assert.Equal(t, in.Count(), out.Count())
	assert.Equal(t, 1, out.At(4, 4))
	assert.Equal(t, 2, out.At(0, 5))
	assert.Equal(t, 3, out.At(10, 10))
}

func TestPostProcessMinArea(t *testing.T) {
	out, err := PostProcess(borderFixture(), PostProcessParams{MinArea: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, out.Labels())
	assert.Equal(t, []int{0, 16, 8}, out.Areas())
	assert.Equal(t, 0, out.At(10, 10))

	// removing everything leaves an empty map
	out, err = PostProcess(borderFixture(), PostProcessParams{MinArea: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count())
}

func TestPostProcessBorderCutoff(t *testing.T) {

	// the column has a major axis length of 4*sqrt(63/12) ~ 9.17 and 8
	// pixels on the left border
	tests := []struct {
		name   string
		cutoff float64
		labels int
		column bool
	}{
		{"disabled", 0, 3, true},
		{"strict", 0.5, 2, false},
		{"lenient", 1.0, 3, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := PostProcess(borderFixture(), PostProcessParams{BorderCutoff: tc.cutoff})
			require.NoError(t, err)

			assert.Len(t, out.Labels(), tc.labels)
			assert.Equal(t, tc.column, out.At(0, 5) != 0)
			assert.Equal(t, 1, out.At(5, 5))
		})
	}
}

func TestPostProcessClearBorder(t *testing.T) {
	out, err := PostProcess(borderFixture(), PostProcessParams{ClearBorder: true})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, out.Labels())
	assert.Equal(t, 0, out.At(0, 5))
	assert.Equal(t, 2, out.At(10, 10))
}

func TestPostProcessRejectsBadParams(t *testing.T) {
	_, err := PostProcess(borderFixture(), PostProcessParams{MinArea: -1})
	assert.Error(t, err)

	_, err = PostProcess(nil, PostProcessDefaultParams())
	assert.Error(t, err)
}

func TestFillHoles(t *testing.T) {
	in := parseLabels(t,
		"..........",
		".11111111.",
		".1......1.",
		".1.2222.1.",
		".1.2..2.1.",
		".1.2222.1.",
		".1......1.",
		".11111111.",
		"..........",
	)

	want := parseLabels(t,
		"..........",
		".11111111.",
		".11111111.",
		".11222211.",
		".11222211.",
		".11222211.",
		".11111111.",
		".11111111.",
		"..........",
	)

	out, err := PostProcess(in, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	if diff := cmp.Diff(want.Pix, out.Pix); diff != "" {
		t.Errorf("fill holes mismatch (-want +got):\n%s", diff)
	}

	again, err := PostProcess(out, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	if diff := cmp.Diff(out.Pix, again.Pix); diff != "" {
		t.Errorf("fill holes not idempotent (-first +second):\n%s", diff)
	}
}

func TestFillHolesKeepsOtherLabels(t *testing.T) {
	in := parseLabels(t,
		".......",
		".11111.",
		".1.2.1.",
		".1...1.",
		".11111.",
		".......",
	)

	out, err := PostProcess(in, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	assert.Equal(t, 2, out.At(3, 2))
	assert.Equal(t, 1, out.At(2, 2))
	assert.Equal(t, 1, out.At(3, 3))
	assert.Equal(t, 1, out.Areas()[2])
}

func TestFillHolesOpenRingUntouched(t *testing.T) {
	in := parseLabels(t,
		".......",
		".11111.",
		".1....1",
		".1...1.",
		".11111.",
	)
	in.Set(6, 2, 0)

	out, err := PostProcess(in, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	// the gap at the right edge connects the interior to the outside
	assert.Equal(t, in.Count(), out.Count())
}

func TestFillHolesIdempotentOnLabeledBlobs(t *testing.T) {
	l, err := NewLabeler(thresholdParams(), nil)
	require.NoError(t, err)

	lm, err := l.Label(blobMap(t, 60, 40,
		blob{x: 20, y: 20, r: 10},
		blob{x: 38, y: 20, r: 10},
		blob{x: 50, y: 8, r: 5},
	))
	require.NoError(t, err)

	once, err := PostProcess(lm, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	twice, err := PostProcess(once, PostProcessParams{FillHoles: true})
	require.NoError(t, err)

	if diff := cmp.Diff(once.Pix, twice.Pix); diff != "" {
		t.Errorf("fill holes not idempotent (-first +second):\n%s", diff)
	}
}
