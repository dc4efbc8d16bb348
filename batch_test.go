package orgtrack

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/postprocess/result"
)

func TestBatchRun(t *testing.T) {
	b, err := NewBatch(testParams(), 2)
	require.NoError(t, err)
	defer b.Close()

	touching, _, _ := approachingFrames(t)

	single := []*result.ProbabilityMap{
		blobMap(t, blob{20, 20, 8}),
		blobMap(t, blob{22, 20, 8}),
		blobMap(t, blob{24, 20, 8}),
	}

	seqs := []Sequence{
		NewSequence("touching", touching),
		NewSequence("single", single),
		NewSequence("empty", []*result.ProbabilityMap{blobMap(t)}),
	}

	results, err := b.Run(context.Background(), seqs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "touching", results[0].Name)
	assert.Len(t, results[0].Labels, 5)
	assert.Len(t, results[0].Session.Tracks(), 2)

	// track IDs are scoped per sequence
	assert.Equal(t, "single", results[1].Name)
	require.Len(t, results[1].Session.Tracks(), 1)
	assert.Equal(t, int64(1), results[1].Session.Tracks()[0].ID())
	assert.Equal(t, 3, results[1].Session.Tracks()[0].Detections())

	assert.Empty(t, results[2].Session.Tracks())
	assert.NotEqual(t, results[0].Session.ID(), results[1].Session.ID())
}

func TestBatchMatchesPipeline(t *testing.T) {
	frames, _, _ := approachingFrames(t)

	b, err := NewBatch(testParams(), 1)
	require.NoError(t, err)
	defer b.Close()

	results, err := b.Run(context.Background(), []Sequence{NewSequence("a", frames)})
	require.NoError(t, err)

	pipe, err := NewPipeline(testParams())
	require.NoError(t, err)

	for i, prob := range frames {
		out, err := pipe.Process(prob)
		require.NoError(t, err)
		assert.Equal(t, out.Labels.Pix, results[0].Labels[i].Pix, "frame %d", i)
	}
}

func TestBatchFrameError(t *testing.T) {
	b, err := NewBatch(testParams(), 2)
	require.NoError(t, err)
	defer b.Close()

	errLoad := errors.New("unreadable frame")

	broken := Sequence{
		Name: "broken",
		Len:  2,
		Frame: func(i int) (*result.ProbabilityMap, error) {
			if i == 1 {
				return nil, errLoad
			}
			return blobMap(t, blob{20, 20, 8}), nil
		},
	}

	_, err = b.Run(context.Background(), []Sequence{broken})
	assert.ErrorIs(t, err, errLoad)
	assert.Contains(t, err.Error(), `sequence "broken"`)
}

func TestBatchCancelled(t *testing.T) {
	b, err := NewBatch(testParams(), 2)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, _, _ := approachingFrames(t)

	_, err = b.Run(ctx, []Sequence{NewSequence("a", frames)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchClosed(t *testing.T) {
	b, err := NewBatch(testParams(), 1)
	require.NoError(t, err)
	b.Close()

	_, err = b.Run(context.Background(), []Sequence{NewSequence("a", []*result.ProbabilityMap{blobMap(t)})})
	assert.ErrorIs(t, err, ErrBatchClosed)
}

func TestNewBatchRejects(t *testing.T) {
	_, err := NewBatch(testParams(), 0)
	assert.Error(t, err)

	p := testParams()
	p.Label.ForegroundThreshold = 2
	_, err = NewBatch(p, 2)
	assert.Error(t, err)
}

func TestPool(t *testing.T) {
	pool, err := NewPool(2, postprocess.LabelDefaultParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Size())

	a := pool.Get()
	b := pool.Get()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)

	pool.Return(a)
	assert.Same(t, a, pool.Get())

	pool.Return(a)
	pool.Close()

	// returning after close is a no-op and Get no longer blocks
	pool.Return(b)
	assert.Nil(t, pool.Get())

	_, err = NewPool(0, postprocess.LabelDefaultParams(), nil)
	assert.Error(t, err)
}
