package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

// Resizer scales probability maps from the source resolution to the working
// resolution used for labeling, and label maps back again
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the working width
	destWidth int
	// destHeight is the working height
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// scale factors from source to working resolution
	scaleX float32
	scaleY float32
}

// NewResizer returns a resizer between the source and working dimensions
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	return &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
		scaleX:     float32(destWidth) / float32(srcWidth),
		scaleY:     float32(destHeight) / float32(srcHeight),
	}
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// Probability resizes a source sized probability map to the working size
// with bilinear interpolation
func (r *Resizer) Probability(p *result.ProbabilityMap) (*result.ProbabilityMap, error) {

	if p.Width() != r.srcWidth || p.Height() != r.srcHeight {
		return nil, fmt.Errorf("probability map is %dx%d, resizer expects %dx%d",
			p.Width(), p.Height(), r.srcWidth, r.srcHeight)
	}

	src, err := ToMat(p)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gocv.Resize(src, &r.tempMat, image.Pt(r.destWidth, r.destHeight),
		0, 0, gocv.InterpolationLinear)

	data, err := r.tempMat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read resized data: %w", err)
	}

	values := make([]float64, len(data))
	for i, v := range data {
		// interpolation may round just outside of the unit range
		values[i] = min(max(float64(v), 0), 1)
	}

	return result.NewProbabilityMap(r.destWidth, r.destHeight, values)
}

// Labels resizes a working sized label map back to the source size with
// nearest neighbour sampling so no new labels are introduced.  Small labels
// may vanish when downscaling, call Relabel on the result if dense labels are
// required.
func (r *Resizer) Labels(lm *result.LabelMap) (*result.LabelMap, error) {

	if lm.Width != r.destWidth || lm.Height != r.destHeight {
		return nil, fmt.Errorf("label map is %dx%d, resizer expects %dx%d",
			lm.Width, lm.Height, r.destWidth, r.destHeight)
	}

	src := gocv.NewMatWithSize(lm.Height, lm.Width, gocv.MatTypeCV32S)
	defer src.Close()

	dst, err := src.DataPtrInt32()
	if err != nil {
		return nil, fmt.Errorf("failed to access mat data: %w", err)
	}

	for i, v := range lm.Pix {
		dst[i] = int32(v)
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.srcWidth, r.srcHeight),
		0, 0, gocv.InterpolationNearestNeighbor)

	data, err := r.tempMat.DataPtrInt32()
	if err != nil {
		return nil, fmt.Errorf("failed to read resized data: %w", err)
	}

	out := result.NewLabelMap(r.srcWidth, r.srcHeight)
	for i, v := range data {
		out.Pix[i] = int(v)
	}

	return out, nil
}

// ScaleX returns the horizontal scale factor from source to working size
func (r *Resizer) ScaleX() float32 {
	return r.scaleX
}

// ScaleY returns the vertical scale factor from source to working size
func (r *Resizer) ScaleY() float32 {
	return r.scaleY
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
