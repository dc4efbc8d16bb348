package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	require.Len(t, k, 17)

	sum := 0.0
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-12)
	assert.Equal(t, k[0], k[16])
	assert.Greater(t, k[8], k[7])
}

func TestGaussianBlurConstant(t *testing.T) {
	src := mat.NewDense(5, 7, nil)
	for i := 0; i < 5; i++ {
		for j := 0; j < 7; j++ {
			src.Set(i, j, 0.25)
		}
	}

	out := gaussianBlur(src, 2)
	for i := 0; i < 5; i++ {
		for j := 0; j < 7; j++ {
			assert.InDelta(t, 0.25, out.At(i, j), 1e-12)
		}
	}

	// zero sigma is a copy that does not alias the source
	cp := gaussianBlur(src, 0)
	cp.Set(0, 0, 1)
	assert.Equal(t, 0.25, src.At(0, 0))
}

func TestGaussianBlurSpreadsImpulse(t *testing.T) {
	src := mat.NewDense(21, 21, nil)
	src.Set(10, 10, 1)

	out := gaussianBlur(src, 1)
	assert.Less(t, out.At(10, 10), 1.0)
	assert.Greater(t, out.At(10, 11), 0.0)
	assert.InDelta(t, out.At(10, 11), out.At(11, 10), 1e-15)
	assert.InDelta(t, 1, mat.Sum(out), 1e-9)
}

func TestSobelMagnitude(t *testing.T) {
	// vertical step edge between columns 2 and 3
	src := mat.NewDense(5, 6, nil)
	for i := 0; i < 5; i++ {
		for j := 3; j < 6; j++ {
			src.Set(i, j, 1)
		}
	}

	out := sobelMagnitude(src)
	assert.Equal(t, 0.0, out.At(2, 0))
	assert.Equal(t, 0.0, out.At(2, 5))
	assert.Greater(t, out.At(2, 2), 0.0)
	assert.Greater(t, out.At(2, 3), 0.0)
}

func TestHysteresis(t *testing.T) {
	src := mat.NewDense(1, 7, []float64{0.02, 0.2, 0.02, 0, 0.02, 0.03, 0.02})

	out := hysteresis(src, 0.01, 0.1)
	assert.Equal(t, []uint8{1, 1, 1, 0, 0, 0, 0}, out)
}

func TestOpenCross(t *testing.T) {
	m := NewMask(9, 9)

	// isolated speck
	m.Pix[1*9+1] = 1

	// 5x5 block
	for y := 3; y < 8; y++ {
		for x := 3; x < 8; x++ {
			m.Pix[y*9+x] = 1
		}
	}

	openCross(m.Pix, make([]uint8, len(m.Pix)), 9, 9)

	assert.False(t, m.At(1, 1))
	assert.True(t, m.At(5, 5))
	assert.True(t, m.At(3, 5))
	assert.False(t, m.At(3, 3), "corners are removed by the cross")
	assert.Equal(t, 21, m.Count())
}

func TestConnectedComponents(t *testing.T) {
	mask := []uint8{
		1, 1, 0, 1,
		0, 1, 0, 1,
		1, 0, 0, 1,
	}

	labels, n := connectedComponents(mask, 4, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{
		1, 1, 0, 2,
		0, 1, 0, 2,
		3, 0, 0, 2,
	}, labels)
}

func TestWatershedSplitsValley(t *testing.T) {
	// two basins separated by a ridge at column 4
	heights := []float64{0, 1, 2, 3, 9, 3, 2, 1, 0}
	hm := mat.NewDense(1, 9, heights)

	markers := []int{1, 0, 0, 0, 0, 0, 0, 0, 2}
	mask := []uint8{1, 1, 1, 1, 1, 1, 1, 1, 1}

	labels := watershed(hm, markers, mask)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 2, 2, 2, 2}, labels)

	// masked pixels block the flood and unreached pixels are recovered
	mask[2] = 0
	labels = watershed(hm, []int{1, 0, 0, 0, 0, 0, 0, 0, 0}, mask)
	assert.Equal(t, 0, labels[2])
	assert.Equal(t, 0, labels[5])

	n := recoverOrphans(labels, mask, 9, 1)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1, 1, 0, 2, 2, 2, 2, 2, 2}, labels)
}
