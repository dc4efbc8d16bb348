package postprocess

// Mask is a binary image where non zero pixels are set
type Mask struct {
	Width  int
	Height int
	// Pix holds the mask values in row-major order
	Pix []uint8
}

// NewMask returns an empty mask of the given dimensions
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At reports whether pixel x,y is set
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of set pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// erodeCross performs binary erosion with the 3x3 cross structuring element.
// Pixels outside the image are treated as unset.
func erodeCross(src, dst []uint8, width, height int) {

	for y := 0; y < height; y++ {
		row := y * width

		for x := 0; x < width; x++ {
			i := row + x

			if src[i] == 0 || x == 0 || y == 0 || x == width-1 || y == height-1 {
				dst[i] = 0
				continue
			}

			if src[i-1] != 0 && src[i+1] != 0 && src[i-width] != 0 && src[i+width] != 0 {
				dst[i] = 1
			} else {
				dst[i] = 0
			}
		}
	}
}

// dilateCross performs binary dilation with the 3x3 cross structuring element
func dilateCross(src, dst []uint8, width, height int) {

	for y := 0; y < height; y++ {
		row := y * width

		for x := 0; x < width; x++ {
			i := row + x

			switch {
			case src[i] != 0:
				dst[i] = 1
			case x > 0 && src[i-1] != 0:
				dst[i] = 1
			case x < width-1 && src[i+1] != 0:
				dst[i] = 1
			case y > 0 && src[i-width] != 0:
				dst[i] = 1
			case y < height-1 && src[i+width] != 0:
				dst[i] = 1
			default:
				dst[i] = 0
			}
		}
	}
}

// openCross performs a binary opening of mask in place, scratch must be the
// same length as mask
func openCross(mask, scratch []uint8, width, height int) {
	erodeCross(mask, scratch, width, height)
	dilateCross(scratch, mask, width, height)
}
