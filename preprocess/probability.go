// Package preprocess converts inference outputs and images into probability
// maps and scales them to and from the working resolution.
package preprocess

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

var (
	// ErrUnsupportedMat is returned when a Mat can not be read as a
	// probability map
	ErrUnsupportedMat = errors.New("unsupported mat")
)

// FromMat reads a single channel Mat as a probability map.  CV32F values are
// used as is, CV8U values are scaled by 1/255 and CV16U values by 1/65535.
func FromMat(m gocv.Mat) (*result.ProbabilityMap, error) {

	if m.Empty() {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedMat)
	}

	if m.Channels() != 1 {
		return nil, fmt.Errorf("%w: %d channels, expected 1", ErrUnsupportedMat,
			m.Channels())
	}

	f := gocv.NewMat()
	defer f.Close()

	scaled := true

	switch m.Type() {
	case gocv.MatTypeCV32F:
		m.CopyTo(&f)
		scaled = false
	case gocv.MatTypeCV8U:
		m.ConvertToWithParams(&f, gocv.MatTypeCV32F, 1.0/255, 0)
	case gocv.MatTypeCV16U:
		m.ConvertToWithParams(&f, gocv.MatTypeCV32F, 1.0/65535, 0)
	default:
		return nil, fmt.Errorf("%w: mat type %d", ErrUnsupportedMat, int(m.Type()))
	}

	data, err := f.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read mat data: %w", err)
	}

	if scaled {
		// the maximum integer value may scale to just above one
		for i, v := range data {
			data[i] = min(v, 1)
		}
	}

	return FromFloat32(f.Cols(), f.Rows(), data)
}

// FromFloat32 creates a probability map from row-major float32 values such
// as a model output tensor
func FromFloat32(width, height int, data []float32) (*result.ProbabilityMap, error) {

	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}

	return result.NewProbabilityMap(width, height, values)
}

// FromFloat16 creates a probability map from row-major half precision values
// given as their raw bits
func FromFloat16(width, height int, data []uint16) (*result.ProbabilityMap, error) {

	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(f16LookupTable[v])
	}

	return result.NewProbabilityMap(width, height, values)
}

// ToMat returns the probability map as a CV32F Mat, the caller must Close it
func ToMat(p *result.ProbabilityMap) (gocv.Mat, error) {

	m := gocv.NewMatWithSize(p.Height(), p.Width(), gocv.MatTypeCV32F)

	dst, err := m.DataPtrFloat32()
	if err != nil {
		m.Close()
		return gocv.NewMat(), fmt.Errorf("failed to access mat data: %w", err)
	}

	dense := p.Dense()
	w := p.Width()

	for y := 0; y < p.Height(); y++ {
		for x, v := range dense.RawRowView(y) {
			dst[y*w+x] = float32(v)
		}
	}

	return m, nil
}
