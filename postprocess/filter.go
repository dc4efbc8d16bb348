package postprocess

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// gaussianTruncate is the number of standard deviations the gaussian
	// kernel extends either side of its center
	gaussianTruncate = 4.0
)

// gaussianKernel returns a normalized 1D gaussian kernel for sigma
func gaussianKernel(sigma float64) []float64 {

	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}

	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

// clampIndex limits i to [0,n) which replicates the nearest edge value
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// gaussianBlur applies a separable gaussian filter to src with nearest edge
// border handling.  A sigma of zero or less returns a copy.
func gaussianBlur(src mat.Matrix, sigma float64) *mat.Dense {

	rows, cols := src.Dims()
	dst := mat.DenseCopyOf(src)

	if sigma <= 0 {
		return dst
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// horizontal pass into tmp
	tmp := mat.NewDense(rows, cols, nil)

	for y := 0; y < rows; y++ {
		in := dst.RawRowView(y)
		out := tmp.RawRowView(y)

		for x := 0; x < cols; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * in[clampIndex(x+k, cols)]
			}
			out[x] = sum
		}
	}

	// vertical pass back into dst
	for y := 0; y < rows; y++ {
		out := dst.RawRowView(y)

		for x := 0; x < cols; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * tmp.At(clampIndex(y+k, rows), x)
			}
			out[x] = sum
		}
	}

	return dst
}

// sobelMagnitude returns the normalized sobel gradient magnitude of src,
// sqrt((gx^2 + gy^2) / 2) with kernels scaled by 1/4
func sobelMagnitude(src mat.Matrix) *mat.Dense {

	rows, cols := src.Dims()
	dst := mat.NewDense(rows, cols, nil)

	at := func(y, x int) float64 {
		return src.At(clampIndex(y, rows), clampIndex(x, cols))
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {

			gx := (at(y-1, x+1) + 2*at(y, x+1) + at(y+1, x+1) -
				at(y-1, x-1) - 2*at(y, x-1) - at(y+1, x-1)) / 4

			gy := (at(y+1, x-1) + 2*at(y+1, x) + at(y+1, x+1) -
				at(y-1, x-1) - 2*at(y-1, x) - at(y-1, x+1)) / 4

			dst.Set(y, x, math.Sqrt((gx*gx+gy*gy)/2))
		}
	}

	return dst
}

// hysteresis returns a mask of pixels above low that are 4-connected to at
// least one pixel above high
func hysteresis(src *mat.Dense, low, high float64) []uint8 {

	rows, cols := src.Dims()
	weak := make([]uint8, rows*cols)

	for y := 0; y < rows; y++ {
		row := src.RawRowView(y)
		for x, v := range row {
			if v > low {
				weak[y*cols+x] = 1
			}
		}
	}

	labels, n := connectedComponents(weak, cols, rows)
	strong := make([]bool, n+1)

	for y := 0; y < rows; y++ {
		row := src.RawRowView(y)
		for x, v := range row {
			if v > high {
				strong[labels[y*cols+x]] = true
			}
		}
	}

	out := make([]uint8, rows*cols)

	for i, l := range labels {
		if l > 0 && strong[l] {
			out[i] = 1
		}
	}

	return out
}
