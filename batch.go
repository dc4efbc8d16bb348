package orgtrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/tracker"
)

// ErrBatchClosed is returned when running a Batch after Close
var ErrBatchClosed = errors.New("batch is closed")

// Sequence is one ordered image sequence of a batch.  Frames are loaded on
// demand so a batch does not hold every stack in memory at once.
type Sequence struct {
	// Name identifies the sequence in logs and errors
	Name string
	// Len is the number of frames
	Len int
	// Frame loads the probability map of frame i
	Frame func(i int) (*result.ProbabilityMap, error)
}

// NewSequence returns a Sequence over probability maps already in memory
func NewSequence(name string, frames []*result.ProbabilityMap) Sequence {
	return Sequence{
		Name: name,
		Len:  len(frames),
		Frame: func(i int) (*result.ProbabilityMap, error) {
			return frames[i], nil
		},
	}
}

// SequenceResult holds the outcome of tracking one sequence
type SequenceResult struct {
	Name string
	// Session holds the tracks of the sequence
	Session *tracker.Session
	// Labels are the post processed label maps in frame order
	Labels []*result.LabelMap
}

// Batch tracks independent sequences in parallel, each with its own
// Pipeline and Session so track IDs are scoped per sequence
type Batch struct {
	params  Params
	workers int
	pool    *Pool
	log     *slog.Logger
}

// NewBatch returns a Batch running up to workers sequences at once.  The
// tracker Solver and Measurer in params are shared by all sequences and
// must be safe for concurrent use, the provided ones are.
func NewBatch(p Params, workers int) (*Batch, error) {

	if workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline parameters: %w", err)
	}

	log := p.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	pool, err := NewPool(workers, p.Label, log)
	if err != nil {
		return nil, err
	}

	return &Batch{
		params:  p,
		workers: workers,
		pool:    pool,
		log:     log,
	}, nil
}

// Close releases the labelers of the batch
func (b *Batch) Close() {
	b.pool.Close()
}

// Run tracks every sequence and returns the results in input order.  The
// first failing sequence cancels the others, which stop before their next
// frame.
func (b *Batch) Run(ctx context.Context, seqs []Sequence) ([]SequenceResult, error) {

	results := make([]SequenceResult, len(seqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range seqs {
		g.Go(func() error {
			res, err := b.runSequence(ctx, seqs[i])
			if err != nil {
				return fmt.Errorf("sequence %q: %w", seqs[i].Name, err)
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runSequence processes the frames of one sequence in order
func (b *Batch) runSequence(ctx context.Context, seq Sequence) (SequenceResult, error) {

	labeler := b.pool.Get()
	if labeler == nil {
		return SequenceResult{}, ErrBatchClosed
	}
	defer b.pool.Return(labeler)

	p := b.params
	p.Logger = b.log.With(slog.String("sequence", seq.Name))

	pipe, err := newPipeline(p, labeler)
	if err != nil {
		return SequenceResult{}, err
	}

	res := SequenceResult{
		Name:    seq.Name,
		Session: pipe.Session(),
		Labels:  make([]*result.LabelMap, 0, seq.Len),
	}

	for i := 0; i < seq.Len; i++ {

		if err := ctx.Err(); err != nil {
			return SequenceResult{}, err
		}

		prob, err := seq.Frame(i)
		if err != nil {
			return SequenceResult{}, fmt.Errorf("failed to load frame %d: %w", i, err)
		}

		out, err := pipe.Process(prob)
		if err != nil {
			return SequenceResult{}, err
		}

		res.Labels = append(res.Labels, out.Labels)
	}

	b.log.Info("tracked sequence",
		slog.String("sequence", seq.Name),
		slog.Int("frames", seq.Len),
		slog.Int("tracks", len(res.Session.Tracks())),
	)

	return res, nil
}
