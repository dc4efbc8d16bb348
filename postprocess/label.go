package postprocess

import (
	"fmt"
	"log/slog"

	"github.com/swdee/go-orgtrack/postprocess/result"
	"gonum.org/v1/gonum/mat"
)

const (
	// buffers
	bufScratch    = "scratch"
	bufForeground = "foreground"
	bufSeeds      = "seeds"
)

// SeedStrategy selects how watershed seed markers are found
type SeedStrategy int

const (
	// SeedEdge removes hysteresis thresholded ridges of the smoothed gradient
	// magnitude from the foreground
	SeedEdge SeedStrategy = iota
	// SeedThreshold keeps pixels above the seed threshold
	SeedThreshold
)

// String returns the configuration name of the strategy
func (s SeedStrategy) String() string {
	switch s {
	case SeedEdge:
		return "edge"
	case SeedThreshold:
		return "threshold"
	default:
		return fmt.Sprintf("SeedStrategy(%d)", int(s))
	}
}

// ParseSeedStrategy converts a configuration name into a SeedStrategy
func ParseSeedStrategy(name string) (SeedStrategy, error) {
	switch name {
	case "edge":
		return SeedEdge, nil
	case "threshold":
		return SeedThreshold, nil
	default:
		return 0, fmt.Errorf("unknown seed strategy %q", name)
	}
}

// LabelParams defines the parameters used to label instances in a
// probability map
type LabelParams struct {
	// ForegroundThreshold is the probability a pixel must exceed to be part
	// of the foreground
	ForegroundThreshold float64
	// SeedStrategy selects how the watershed markers are found
	SeedStrategy SeedStrategy
	// SeedThreshold is the probability a pixel must exceed to be a seed when
	// using SeedThreshold, must be greater than ForegroundThreshold
	SeedThreshold float64
	// SmoothingSigma is the gaussian sigma applied to the probability map to
	// create the watershed heightmap
	SmoothingSigma float64
	// EdgeSigma is the gaussian sigma applied to the gradient magnitude when
	// using SeedEdge
	EdgeSigma float64
	// EdgeLow and EdgeHigh are the hysteresis thresholds used to find ridges
	// when using SeedEdge
	EdgeLow  float64
	EdgeHigh float64
}

// LabelDefaultParams returns an instance of LabelParams configured with
// default values:
// - Foreground Threshold: 0.5
// - Seed Strategy: edge
// - Seed Threshold: 0.8
// - Smoothing Sigma: 2
// - Edge Sigma: 2
// - Edge Hysteresis: 0.005 to 0.05
func LabelDefaultParams() LabelParams {
	return LabelParams{
		ForegroundThreshold: 0.5,
		SeedStrategy:        SeedEdge,
		SeedThreshold:       0.8,
		SmoothingSigma:      2,
		EdgeSigma:           2,
		EdgeLow:             0.005,
		EdgeHigh:            0.05,
	}
}

// Validate checks the parameters are usable
func (p LabelParams) Validate() error {

	if p.ForegroundThreshold < 0 || p.ForegroundThreshold >= 1 {
		return fmt.Errorf("foreground threshold must be in [0,1), got %v",
			p.ForegroundThreshold)
	}

	if p.SmoothingSigma < 0 {
		return fmt.Errorf("smoothing sigma must not be negative, got %v",
			p.SmoothingSigma)
	}

	switch p.SeedStrategy {
	case SeedThreshold:
		if p.SeedThreshold <= p.ForegroundThreshold || p.SeedThreshold >= 1 {
			return fmt.Errorf("seed threshold must be in (%v,1), got %v",
				p.ForegroundThreshold, p.SeedThreshold)
		}

	case SeedEdge:
		if p.EdgeSigma < 0 {
			return fmt.Errorf("edge sigma must not be negative, got %v", p.EdgeSigma)
		}
		if p.EdgeLow < 0 || p.EdgeHigh < p.EdgeLow {
			return fmt.Errorf("edge thresholds must satisfy 0 <= low <= high, got %v and %v",
				p.EdgeLow, p.EdgeHigh)
		}

	default:
		return fmt.Errorf("unknown seed strategy %v", p.SeedStrategy)
	}

	return nil
}

// Segmentation holds the intermediate stages of labeling a probability map
type Segmentation struct {
	// Foreground is the opened thresholded probability map
	Foreground *Mask
	// Seeds are the pixels used as watershed markers
	Seeds *Mask
	// Heightmap is the negated smoothed probability map
	Heightmap *mat.Dense
	// Markers is the number of connected seed regions
	Markers int
	// Orphans is the number of foreground regions no marker reached that were
	// recovered as new labels
	Orphans int
	// Labels is the resulting label map
	Labels *result.LabelMap
}

// Labeler separates a probability map into individually labeled instances.
// A Labeler may be reused across frames but must not be used by more than
// one goroutine at a time.
type Labeler struct {
	// Params are the labeling parameters
	Params LabelParams
	// log is the structured logger
	log *slog.Logger
	// bufPool recycles the mask buffers between frames
	bufPool *maskPool
	// bufPoolSize is the pixel count the buffer pools were created for
	bufPoolSize int
}

// NewLabeler returns a Labeler using the given parameters.  A nil logger
// discards all log output.
func NewLabeler(p LabelParams, logger *slog.Logger) (*Labeler, error) {

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid label parameters: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Labeler{
		Params:  p,
		log:     logger,
		bufPool: newMaskPool(),
	}, nil
}

// initBuffers creates the named buffer pools sized for the first frame seen
func (l *Labeler) initBuffers(size int) {

	if l.bufPoolSize != 0 {
		return
	}

	// pools are only created once so errors can not occur
	l.bufPool.Create(bufScratch, size)
	l.bufPool.Create(bufForeground, size)
	l.bufPool.Create(bufSeeds, size)

	l.bufPoolSize = size
}

// Label separates the probability map into a label map where every
// foreground pixel carries a positive label
func (l *Labeler) Label(prob *result.ProbabilityMap) (*result.LabelMap, error) {

	seg, err := l.segment(prob)
	if err != nil {
		return nil, err
	}

	l.bufPool.Put(bufForeground, seg.Foreground.Pix)
	l.bufPool.Put(bufSeeds, seg.Seeds.Pix)

	return seg.Labels, nil
}

// Segment is Label but also returns the intermediate masks
func (l *Labeler) Segment(prob *result.ProbabilityMap) (*Segmentation, error) {

	seg, err := l.segment(prob)
	if err != nil {
		return nil, err
	}

	// detach returned masks from the pools
	fg := make([]uint8, len(seg.Foreground.Pix))
	copy(fg, seg.Foreground.Pix)
	l.bufPool.Put(bufForeground, seg.Foreground.Pix)
	seg.Foreground.Pix = fg

	seeds := make([]uint8, len(seg.Seeds.Pix))
	copy(seeds, seg.Seeds.Pix)
	l.bufPool.Put(bufSeeds, seg.Seeds.Pix)
	seg.Seeds.Pix = seeds

	return seg, nil
}

// segment runs the labeling stages, Foreground and Seeds are pool buffers
func (l *Labeler) segment(prob *result.ProbabilityMap) (*Segmentation, error) {

	if prob == nil {
		return nil, fmt.Errorf("%w: nil map", result.ErrInvalidProbability)
	}

	width := prob.Width()
	height := prob.Height()
	size := width * height

	l.initBuffers(size)

	scratch := l.bufPool.Get(bufScratch, size)
	defer l.bufPool.Put(bufScratch, scratch)

	dense := prob.Dense()

	// foreground mask
	fg := l.bufPool.Get(bufForeground, size)
	thresholdMask(dense, l.Params.ForegroundThreshold, fg)
	openCross(fg, scratch, width, height)

	// seed mask
	seeds := l.bufPool.Get(bufSeeds, size)

	switch l.Params.SeedStrategy {
	case SeedThreshold:
		thresholdMask(dense, l.Params.SeedThreshold, seeds)
		openCross(seeds, scratch, width, height)

	case SeedEdge:
		edges := gaussianBlur(sobelMagnitude(dense), l.Params.EdgeSigma)
		ridges := hysteresis(edges, l.Params.EdgeLow, l.Params.EdgeHigh)

		for i := range seeds {
			if fg[i] != 0 && ridges[i] == 0 {
				seeds[i] = 1
			}
		}
	}

	// heightmap
	heightmap := gaussianBlur(dense, l.Params.SmoothingSigma)
	heightmap.Scale(-1, heightmap)

	markers, n := connectedComponents(seeds, width, height)
	labels := watershed(heightmap, markers, fg)
	orphans := recoverOrphans(labels, fg, width, height)

	if orphans > 0 {
		l.log.Debug("recovered orphaned foreground regions",
			slog.Int("orphans", orphans), slog.Int("markers", n))
	}

	return &Segmentation{
		Foreground: &Mask{Width: width, Height: height, Pix: fg},
		Seeds:      &Mask{Width: width, Height: height, Pix: seeds},
		Heightmap:  heightmap,
		Markers:    n,
		Orphans:    orphans,
		Labels:     &result.LabelMap{Width: width, Height: height, Pix: labels},
	}, nil
}

// thresholdMask sets dst pixels where src is strictly greater than t
func thresholdMask(src *mat.Dense, t float64, dst []uint8) {

	rows, cols := src.Dims()

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if src.At(y, x) > t {
				dst[y*cols+x] = 1
			} else {
				dst[y*cols+x] = 0
			}
		}
	}
}
