package result

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidProbability is returned when a probability map is empty or
	// holds a value outside of [0,1]
	ErrInvalidProbability = errors.New("invalid probability map")
)

// ProbabilityMap is the per pixel object probability for a single frame as
// produced by the inference model.  Rows are image rows (Y) and columns are
// image columns (X).
type ProbabilityMap struct {
	data *mat.Dense
}

// NewProbabilityMap creates a ProbabilityMap from row-major values of the
// given dimensions.  The values slice is copied.
func NewProbabilityMap(width, height int, values []float64) (*ProbabilityMap, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty dimensions %dx%d", ErrInvalidProbability,
			width, height)
	}

	if len(values) != width*height {
		return nil, fmt.Errorf("%w: have %d values for %dx%d map",
			ErrInvalidProbability, len(values), width, height)
	}

	if err := checkProbabilities(values, width); err != nil {
		return nil, err
	}

	buf := make([]float64, len(values))
	copy(buf, values)

	return &ProbabilityMap{data: mat.NewDense(height, width, buf)}, nil
}

// ProbabilityMapFromDense wraps an existing matrix after validating it.  The
// matrix is not copied and must not be modified afterwards.
func ProbabilityMapFromDense(d *mat.Dense) (*ProbabilityMap, error) {

	if d == nil || d.IsEmpty() {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidProbability)
	}

	rows, cols := d.Dims()

	for y := 0; y < rows; y++ {
		if err := checkProbabilities(d.RawRowView(y), cols); err != nil {
			return nil, err
		}
	}

	return &ProbabilityMap{data: d}, nil
}

// checkProbabilities rejects NaN, infinite, negative and >1 values
func checkProbabilities(values []float64, width int) error {
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: value %v at x=%d y=%d", ErrInvalidProbability,
				v, i%width, i/width)
		}
	}
	return nil
}

// Width of the map in pixels
func (p *ProbabilityMap) Width() int {
	_, c := p.data.Dims()
	return c
}

// Height of the map in pixels
func (p *ProbabilityMap) Height() int {
	r, _ := p.data.Dims()
	return r
}

// At returns the probability at column x, row y
func (p *ProbabilityMap) At(x, y int) float64 {
	return p.data.At(y, x)
}

// Dense returns the underlying matrix.  Callers must treat it as read only.
func (p *ProbabilityMap) Dense() *mat.Dense {
	return p.data
}
