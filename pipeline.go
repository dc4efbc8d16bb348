package orgtrack

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/tracker"
)

// Params defines the parameters of every stage of a Pipeline
type Params struct {
	Label       postprocess.LabelParams
	PostProcess postprocess.PostProcessParams
	Tracker     tracker.Params
	// Logger is the structured logger passed to each stage, nil discards
	// output
	Logger *slog.Logger
}

// DefaultParams returns the default parameters of every stage
func DefaultParams() Params {
	return Params{
		Label:       postprocess.LabelDefaultParams(),
		PostProcess: postprocess.PostProcessDefaultParams(),
		Tracker:     tracker.DefaultParams(),
	}
}

// Validate checks the parameters of every stage
func (p Params) Validate() error {
	return errors.Join(
		p.Label.Validate(),
		p.PostProcess.Validate(),
		p.Tracker.Validate(),
	)
}

// FrameOutput is the result of processing one frame
type FrameOutput struct {
	// Labels is the post processed label map of the frame
	Labels *result.LabelMap
	// Tracking describes how the frame changed the tracks
	Tracking tracker.FrameResult
}

// Pipeline labels, cleans and tracks the frames of one image sequence in
// order.  It must not be used by more than one goroutine at a time.
type Pipeline struct {
	params  Params
	labeler *postprocess.Labeler
	session *tracker.Session
	log     *slog.Logger
	// width and height of the sequence once the first frame has been seen
	width  int
	height int
}

// NewPipeline returns a Pipeline with its own Labeler and tracking Session
func NewPipeline(p Params) (*Pipeline, error) {

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline parameters: %w", err)
	}

	labeler, err := postprocess.NewLabeler(p.Label, p.Logger)
	if err != nil {
		return nil, err
	}

	return newPipeline(p, labeler)
}

// newPipeline returns a Pipeline using an existing Labeler
func newPipeline(p Params, labeler *postprocess.Labeler) (*Pipeline, error) {

	log := p.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tp := p.Tracker
	if tp.Logger == nil {
		tp.Logger = log
	}

	session, err := tracker.NewSession(tp)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		params:  p,
		labeler: labeler,
		session: session,
		log:     log.With(slog.String("session", session.ID().String())),
	}, nil
}

// Session returns the tracking session holding the tracks of the sequence
func (p *Pipeline) Session() *tracker.Session {
	return p.session
}

// Process labels the probability map of the next frame, post processes the
// labels and updates the tracks
func (p *Pipeline) Process(prob *result.ProbabilityMap) (FrameOutput, error) {

	if prob == nil {
		return FrameOutput{}, fmt.Errorf("%w: nil map", result.ErrInvalidProbability)
	}

	if err := p.checkSize(prob.Width(), prob.Height()); err != nil {
		return FrameOutput{}, err
	}

	labels, err := p.labeler.Label(prob)
	if err != nil {
		return FrameOutput{}, fmt.Errorf("frame %d: labeling failed: %w",
			p.session.Frame(), err)
	}

	return p.ProcessLabels(labels)
}

// ProcessLabels post processes an existing label map of the next frame and
// updates the tracks
func (p *Pipeline) ProcessLabels(lm *result.LabelMap) (FrameOutput, error) {

	if lm == nil {
		return FrameOutput{}, errors.New("nil label map")
	}

	if err := p.checkSize(lm.Width, lm.Height); err != nil {
		return FrameOutput{}, err
	}

	frame := p.session.Frame()

	clean, err := postprocess.PostProcess(lm, p.params.PostProcess)
	if err != nil {
		return FrameOutput{}, fmt.Errorf("frame %d: post processing failed: %w",
			frame, err)
	}

	res, err := p.session.UpdateLabelMap(clean)
	if err != nil {
		return FrameOutput{}, err
	}

	p.log.Debug("processed frame",
		slog.Int("frame", frame),
		slog.Int("labels", clean.Max()),
		slog.Int("born", len(res.Born)),
		slog.Int("missed", len(res.Missed)),
	)

	return FrameOutput{Labels: clean, Tracking: res}, nil
}

// checkSize records the sequence dimensions on the first frame and rejects
// later frames of a different size
func (p *Pipeline) checkSize(width, height int) error {

	if p.width == 0 && p.height == 0 {
		p.width = width
		p.height = height
		return nil
	}

	if width != p.width || height != p.height {
		return fmt.Errorf("%w: frame %d is %dx%d, expected %dx%d",
			tracker.ErrDimensionMismatch, p.session.Frame(), width, height,
			p.width, p.height)
	}

	return nil
}
