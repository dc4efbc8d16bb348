package orgtrack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/tracker"
)

const (
	mapWidth  = 60
	mapHeight = 40
)

// blob is a synthetic organoid with probability 1 - 0.5*(d/r)^2 inside
// radius r of its center
type blob struct {
	x, y, r float64
}

// blobMap renders blobs into a probability map taking the maximum where
// they overlap
func blobMap(t *testing.T, blobs ...blob) *result.ProbabilityMap {
	t.Helper()

	values := make([]float64, mapWidth*mapHeight)

	for y := 0; y < mapHeight; y++ {
		for x := 0; x < mapWidth; x++ {
			for _, b := range blobs {
				d := math.Hypot(float64(x)-b.x, float64(y)-b.y)
				if d > b.r {
					continue
				}

				p := 1 - 0.5*(d/b.r)*(d/b.r)
				values[y*mapWidth+x] = math.Max(values[y*mapWidth+x], p)
			}
		}
	}

	prob, err := result.NewProbabilityMap(mapWidth, mapHeight, values)
	require.NoError(t, err)

	return prob
}

// testParams uses threshold seeds which split touching blobs reliably
func testParams() Params {
	p := DefaultParams()
	p.Label.SeedStrategy = postprocess.SeedThreshold
	return p
}

// approachingFrames has two organoids that drift together, touch in the
// middle frame and drift apart again
func approachingFrames(t *testing.T) ([]*result.ProbabilityMap, []float64, []float64) {
	t.Helper()

	left := []float64{12, 16, 20, 16, 12}
	right := []float64{46, 42, 38, 42, 46}

	frames := make([]*result.ProbabilityMap, len(left))
	for i := range left {
		frames[i] = blobMap(t, blob{left[i], 20, 10}, blob{right[i], 20, 10})
	}

	return frames, left, right
}

func TestPipelineTouchingOrganoidsKeepIDs(t *testing.T) {
	pipe, err := NewPipeline(testParams())
	require.NoError(t, err)

	frames, left, right := approachingFrames(t)

	for f, prob := range frames {
		out, err := pipe.Process(prob)
		require.NoError(t, err)

		require.Len(t, out.Labels.Labels(), 2, "frame %d", f)
		assert.Equal(t, f, out.Tracking.Frame)

		if f == 0 {
			assert.Equal(t, []int64{1, 2}, out.Tracking.Born)
			continue
		}

		assert.Empty(t, out.Tracking.Born, "frame %d", f)
		assert.Empty(t, out.Tracking.Missed, "frame %d", f)

		// each track continues with the label under its own blob
		assert.Equal(t, out.Labels.At(int(left[f]), 20), out.Tracking.Matched[1])
		assert.Equal(t, out.Labels.At(int(right[f]), 20), out.Tracking.Matched[2])
	}

	tracks := pipe.Session().Tracks()
	require.Len(t, tracks, 2)

	for i, want := range [][]float64{left, right} {
		tr := tracks[i]
		assert.Equal(t, int64(i+1), tr.ID())
		assert.Equal(t, 5, tr.Detections())

		for f, x := range want {
			obs, ok := tr.At(f)
			require.True(t, ok)
			assert.InDelta(t, x, obs.Geometry().Centroid.X, 2, "track %d frame %d", tr.ID(), f)
		}
	}
}

// plateauFrames has two flat topped organoids with sigmoid edges that drift
// together, touch through a neck in the middle frame and drift apart
func plateauFrames(t *testing.T) ([]*result.ProbabilityMap, []int, []int) {
	t.Helper()

	const width, height = 104, 48

	left := []int{22, 28, 37, 28, 22}
	right := []int{82, 76, 67, 76, 82}

	frames := make([]*result.ProbabilityMap, len(left))

	for f := range left {
		values := make([]float64, width*height)

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				for _, cx := range []int{left[f], right[f]} {
					d := math.Hypot(float64(x-cx), float64(y-24))
					values[y*width+x] = math.Max(values[y*width+x], 1/(1+math.Exp(d-16)))
				}
			}
		}

		prob, err := result.NewProbabilityMap(width, height, values)
		require.NoError(t, err)
		frames[f] = prob
	}

	return frames, left, right
}

func TestPipelineEdgeStrategyTouchingOrganoidsKeepIDs(t *testing.T) {
	pipe, err := NewPipeline(DefaultParams())
	require.NoError(t, err)

	frames, left, right := plateauFrames(t)

	for f, prob := range frames {
		out, err := pipe.Process(prob)
		require.NoError(t, err)

		require.Equal(t, []int{1, 2}, out.Labels.Labels(), "frame %d", f)

		if f == 2 {
			// the neck between the touching organoids is part of one of them
			assert.NotZero(t, out.Labels.At((left[f]+right[f])/2, 24))
		}

		if f == 0 {
			assert.Equal(t, []int64{1, 2}, out.Tracking.Born)
			continue
		}

		assert.Empty(t, out.Tracking.Born, "frame %d", f)
		assert.Empty(t, out.Tracking.Missed, "frame %d", f)
		assert.Equal(t, out.Labels.At(left[f], 24), out.Tracking.Matched[1], "frame %d", f)
		assert.Equal(t, out.Labels.At(right[f], 24), out.Tracking.Matched[2], "frame %d", f)
	}

	tracks := pipe.Session().Tracks()
	require.Len(t, tracks, 2)

	for _, tr := range tracks {
		assert.Equal(t, 5, tr.Detections(), "track %d", tr.ID())
	}
}

func TestPipelineEmptyFrame(t *testing.T) {
	pipe, err := NewPipeline(testParams())
	require.NoError(t, err)

	_, err = pipe.Process(blobMap(t, blob{20, 20, 10}))
	require.NoError(t, err)

	out, err := pipe.Process(blobMap(t))
	require.NoError(t, err)

	assert.Equal(t, 0, out.Labels.Count())
	assert.Equal(t, []int64{1}, out.Tracking.Missed)
	assert.Empty(t, out.Tracking.Born)

	tr, ok := pipe.Session().Track(1)
	require.True(t, ok)
	assert.Equal(t, tracker.Missing, tr.State())
}

func TestPipelineDimensionMismatch(t *testing.T) {
	pipe, err := NewPipeline(testParams())
	require.NoError(t, err)

	_, err = pipe.Process(blobMap(t, blob{20, 20, 10}))
	require.NoError(t, err)

	small, err := result.NewProbabilityMap(10, 10, make([]float64, 100))
	require.NoError(t, err)

	_, err = pipe.Process(small)
	assert.ErrorIs(t, err, tracker.ErrDimensionMismatch)

	_, err = pipe.ProcessLabels(result.NewLabelMap(10, 10))
	assert.ErrorIs(t, err, tracker.ErrDimensionMismatch)

	// the rejected frames did not advance the sequence
	assert.Equal(t, 1, pipe.Session().Frame())

	_, err = pipe.Process(nil)
	assert.ErrorIs(t, err, result.ErrInvalidProbability)
}

func TestPipelineProcessLabels(t *testing.T) {
	p := testParams()
	p.PostProcess.MinArea = 10

	pipe, err := NewPipeline(p)
	require.NoError(t, err)

	lm := result.NewLabelMap(mapWidth, mapHeight)
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			lm.Set(x, y, 7)
		}
	}
	// too small to survive post processing
	lm.Set(30, 30, 9)

	out, err := pipe.ProcessLabels(lm)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, out.Labels.Labels())
	assert.Equal(t, 25, out.Labels.Count())
	assert.Equal(t, []int64{1}, out.Tracking.Born)

	// the input is left untouched
	assert.Equal(t, 9, lm.At(30, 30))
}

func TestPipelineInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.PostProcess.MinArea = -1
	p.Tracker.CostOfNewOrganoid = math.NaN()

	_, err := NewPipeline(p)
	assert.Error(t, err)
}
