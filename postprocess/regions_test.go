package postprocess

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

func TestRegionsMeasure(t *testing.T) {
	lm := borderFixture()

	instances, err := NewRegions().Measure(lm)
	require.NoError(t, err)
	require.Len(t, instances, 3)

	// ascending label order, labels need not be dense
	assert.Equal(t, 3, instances[0].Label)
	assert.Equal(t, 8, instances[1].Label)
	assert.Equal(t, 11, instances[2].Label)

	block := instances[0]
	assert.Equal(t, 16, block.Area)
	assert.Equal(t, result.Point{X: 5.5, Y: 5.5}, block.Centroid)
	assert.Equal(t, result.BoxRect{Left: 4, Right: 8, Top: 4, Bottom: 8}, block.Box)
	assert.Len(t, block.Mask, 16)
	assert.Equal(t, image.Point{X: 4, Y: 4}, block.Pixels[0])
	assert.Equal(t, image.Point{X: 7, Y: 7}, block.Pixels[15])

	column := instances[1]
	assert.Equal(t, 8, column.Area)
	assert.InDelta(t, 4*math.Sqrt(63.0/12.0), column.MajorAxisLength, 1e-9)
	assert.Equal(t, result.Point{X: 0, Y: 5.5}, column.Centroid)

	single := instances[2]
	assert.Equal(t, 1, single.Area)
	assert.Equal(t, 0.0, single.MajorAxisLength)
	assert.Equal(t, []uint8{1}, single.Mask)
}

func TestRegionsMeasureMaskMatchesPixels(t *testing.T) {
	l, err := NewLabeler(thresholdParams(), nil)
	require.NoError(t, err)

	lm, err := l.Label(blobMap(t, 60, 40, blob{x: 20, y: 20, r: 10}, blob{x: 38, y: 20, r: 10}))
	require.NoError(t, err)

	instances, err := NewRegions().Measure(lm)
	require.NoError(t, err)
	require.Len(t, instances, 2)

	total := 0
	for _, in := range instances {
		total += in.Area
		assert.Len(t, in.Pixels, in.Area)

		set := 0
		for _, v := range in.Mask {
			set += int(v)
		}
		assert.Equal(t, in.Area, set)

		for _, p := range in.Pixels {
			assert.True(t, in.MaskAt(p.X, p.Y))
			assert.Equal(t, in.Label, lm.At(p.X, p.Y))
		}
	}

	assert.Equal(t, lm.Count(), total)
	assert.Less(t, instances[0].Centroid.X, instances[1].Centroid.X)
}

func TestRegionsMeasureEmpty(t *testing.T) {
	instances, err := NewRegions().Measure(result.NewLabelMap(5, 5))
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestMajorAxisLengthDisc(t *testing.T) {
	var pixels []image.Point
	for y := -10; y <= 10; y++ {
		for x := -10; x <= 10; x++ {
			if x*x+y*y <= 100 {
				pixels = append(pixels, image.Point{X: x + 20, Y: y + 20})
			}
		}
	}

	in := measureRegion(1, pixels)

	// a disc of radius r has a major axis length close to 2r
	assert.InDelta(t, 20, in.MajorAxisLength, 0.5)
	assert.InDelta(t, 20, in.Centroid.X, 1e-9)
}
