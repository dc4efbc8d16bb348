package postprocess

import (
	"image"
	"math"

	"github.com/swdee/go-orgtrack/postprocess/result"
	"gonum.org/v1/gonum/mat"
)

// RegionMeasurer turns a label map into one Instance per label
type RegionMeasurer interface {
	Measure(lm *result.LabelMap) ([]result.Instance, error)
}

// Regions is the default RegionMeasurer.  Labels are measured in parallel
// and returned in ascending label order.
type Regions struct{}

// NewRegions returns a Regions measurer
func NewRegions() *Regions {
	return &Regions{}
}

// Measure computes the centroid, area, pixels, bounding box, cropped mask
// and major axis length of every label in lm
func (r *Regions) Measure(lm *result.LabelMap) ([]result.Instance, error) {

	if lm == nil {
		return nil, nil
	}

	// index labels that are present, labels need not be dense
	labels := lm.Labels()
	index := make(map[int]int, len(labels))

	for i, l := range labels {
		index[l] = i
	}

	// bucket pixels per label in raster order
	pixels := make([][]image.Point, len(labels))

	for i, v := range lm.Pix {
		if v > 0 {
			k := index[v]
			pixels[k] = append(pixels[k], image.Point{X: i % lm.Width, Y: i / lm.Width})
		}
	}

	instances := make([]result.Instance, len(labels))

	parallelFor(len(labels), func(i int) {
		instances[i] = measureRegion(labels[i], pixels[i])
	})

	return instances, nil
}

// measureRegion builds the Instance for a single label from its pixels
func measureRegion(label int, pixels []image.Point) result.Instance {

	box := pixelBounds(pixels)

	var sx, sy float64
	for _, p := range pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
	}

	n := float64(len(pixels))
	centroid := result.Point{X: sx / n, Y: sy / n}

	mask := make([]uint8, box.Area())
	bw := box.Width()

	for _, p := range pixels {
		mask[(p.Y-box.Top)*bw+(p.X-box.Left)] = 1
	}

	return result.Instance{
		Label:           label,
		Centroid:        centroid,
		Area:            len(pixels),
		Pixels:          pixels,
		Box:             box,
		Mask:            mask,
		MajorAxisLength: majorAxisLength(pixels, centroid),
	}
}

// pixelBounds returns the bounding box of the pixels with exclusive right
// and bottom edges
func pixelBounds(pixels []image.Point) result.BoxRect {

	box := result.BoxRect{
		Left:   math.MaxInt,
		Top:    math.MaxInt,
		Right:  math.MinInt,
		Bottom: math.MinInt,
	}

	for _, p := range pixels {
		box.Left = min(box.Left, p.X)
		box.Top = min(box.Top, p.Y)
		box.Right = max(box.Right, p.X+1)
		box.Bottom = max(box.Bottom, p.Y+1)
	}

	return box
}

// majorAxisLength returns four times the square root of the largest
// eigenvalue of the pixel coordinate covariance matrix
func majorAxisLength(pixels []image.Point, centroid result.Point) float64 {

	if len(pixels) < 2 {
		return 0
	}

	var cxx, cyy, cxy float64

	for _, p := range pixels {
		dx := float64(p.X) - centroid.X
		dy := float64(p.Y) - centroid.Y
		cxx += dx * dx
		cyy += dy * dy
		cxy += dx * dy
	}

	n := float64(len(pixels))
	cov := mat.NewSymDense(2, []float64{cxx / n, cxy / n, cxy / n, cyy / n})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		return 0
	}

	largest := 0.0
	for _, v := range eig.Values(nil) {
		largest = math.Max(largest, v)
	}

	return 4 * math.Sqrt(largest)
}
