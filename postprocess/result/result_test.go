package result

import (
	"image"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIDGeneratorMonotonic(t *testing.T) {

	gen := NewIDGenerator()

	var wg sync.WaitGroup
	ids := make([]int64, 100)

	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = gen.GetNext()
		}(i)
	}

	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}

	assert.Equal(t, int64(100), gen.Last())
	assert.Equal(t, int64(101), gen.GetNext())
}

func TestIDGeneratorsIndependent(t *testing.T) {
	a := NewIDGenerator()
	b := NewIDGenerator()

	a.GetNext()
	a.GetNext()

	assert.Equal(t, int64(1), b.GetNext())
	assert.Equal(t, int64(3), a.GetNext())
}

func TestNewProbabilityMap(t *testing.T) {

	tests := []struct {
		name   string
		width  int
		height int
		values []float64
		ok     bool
	}{
		{"valid", 2, 2, []float64{0, 0.5, 1, 0.25}, true},
		{"empty", 0, 0, nil, false},
		{"short", 2, 2, []float64{0, 0, 0}, false},
		{"negative", 2, 1, []float64{-0.1, 0}, false},
		{"nan", 2, 1, []float64{math.NaN(), 0}, false},
		{"above one", 2, 1, []float64{0, 1.01}, false},
		{"inf", 2, 1, []float64{math.Inf(1), 0}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewProbabilityMap(tc.width, tc.height, tc.values)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidProbability)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.width, p.Width())
			assert.Equal(t, tc.height, p.Height())
			assert.Equal(t, 1.0, p.At(0, 1))
		})
	}
}

func TestProbabilityMapFromDense(t *testing.T) {
	_, err := ProbabilityMapFromDense(&mat.Dense{})
	require.ErrorIs(t, err, ErrInvalidProbability)

	d := mat.NewDense(2, 3, []float64{0, 0, 0, 0, 2, 0})
	_, err = ProbabilityMapFromDense(d)
	require.ErrorIs(t, err, ErrInvalidProbability)

	d.Set(1, 1, 0.9)
	p, err := ProbabilityMapFromDense(d)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Width())
	assert.Equal(t, 0.9, p.At(1, 1))
}

func TestLabelMapRelabel(t *testing.T) {

	lm, err := LabelMapFromPix(4, 2, []int{
		0, 7, 7, 0,
		3, 0, 9, 9,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 7, 9}, lm.Labels())
	assert.Equal(t, 5, lm.Count())

	k := lm.Relabel()
	assert.Equal(t, 3, k)
	assert.Equal(t, []int{
		0, 2, 2, 0,
		1, 0, 3, 3,
	}, lm.Pix)

	areas := lm.Areas()
	assert.Equal(t, []int{0, 1, 2, 2}, areas)
}

func TestLabelMapFromPixRejectsNegative(t *testing.T) {
	_, err := LabelMapFromPix(2, 1, []int{0, -1})
	assert.Error(t, err)
}

func TestBoxRect(t *testing.T) {
	a := BoxRect{Left: 0, Right: 4, Top: 0, Bottom: 4}
	b := BoxRect{Left: 2, Right: 6, Top: 2, Bottom: 6}
	c := BoxRect{Left: 10, Right: 12, Top: 10, Bottom: 12}

	assert.Equal(t, 4, a.Intersect(b).Area())
	assert.InDelta(t, 4.0/28.0, a.IoU(b), 1e-12)
	assert.True(t, a.Intersect(c).Empty())
	assert.Equal(t, 0.0, a.IoU(c))
}

func TestInstanceOverlap(t *testing.T) {
	a := Instance{
		Label:  1,
		Area:   2,
		Pixels: []image.Point{{X: 1, Y: 1}, {X: 2, Y: 1}},
		Box:    BoxRect{Left: 1, Right: 3, Top: 1, Bottom: 2},
		Mask:   []uint8{1, 1},
	}
	b := Instance{
		Label:  2,
		Area:   2,
		Pixels: []image.Point{{X: 2, Y: 1}, {X: 2, Y: 2}},
		Box:    BoxRect{Left: 2, Right: 3, Top: 1, Bottom: 3},
		Mask:   []uint8{1, 1},
	}

	assert.Equal(t, 1, a.Overlap(&b))
	assert.True(t, a.MaskAt(1, 1))
	assert.False(t, a.MaskAt(1, 2))
	assert.InDelta(t, math.Sqrt2, Point{0, 0}.Distance(Point{1, 1}), 1e-12)
}
