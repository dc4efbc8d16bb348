package result

import (
	"image"
	"math"
)

// Point is a sub pixel image location where X is the column and Y the row
type Point struct {
	X float64
	Y float64
}

// Distance returns the euclidean distance to another point
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// BoxRect are the dimensions of the bounding box of an instance.  Right and
// Bottom are exclusive.
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Width of the box
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// Area of the box in pixels
func (b BoxRect) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box covers no pixels
func (b BoxRect) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Intersect returns the overlapping region of two boxes which is Empty when
// they do not overlap
func (b BoxRect) Intersect(o BoxRect) BoxRect {
	return BoxRect{
		Left:   max(b.Left, o.Left),
		Right:  min(b.Right, o.Right),
		Top:    max(b.Top, o.Top),
		Bottom: min(b.Bottom, o.Bottom),
	}
}

// IoU calculates the Intersection over Union with another box
func (b BoxRect) IoU(o BoxRect) float64 {

	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}

	return float64(inter) / float64(b.Area()+o.Area()-inter)
}

// Contains reports whether pixel x,y lies within the box
func (b BoxRect) Contains(x, y int) bool {
	return x >= b.Left && x < b.Right && y >= b.Top && y < b.Bottom
}

// Instance defines the measured attributes of a single labeled region in a
// frame.  It is immutable once created.
type Instance struct {
	// Label is the in frame label the instance was measured from
	Label int
	// Centroid is the mean pixel location
	Centroid Point
	// Area is the pixel count
	Area int
	// Pixels are the member pixels in row-major order
	Pixels []image.Point
	// Box is the bounding box of the pixels
	Box BoxRect
	// Mask is the bounding box cropped binary mask in row-major order, 1 marks
	// a member pixel
	Mask []uint8
	// MajorAxisLength is the length of the major axis of the ellipse with the
	// same normalized second central moments as the region
	MajorAxisLength float64
}

// MaskAt reports whether image pixel x,y belongs to the instance
func (in *Instance) MaskAt(x, y int) bool {
	if !in.Box.Contains(x, y) {
		return false
	}
	return in.Mask[(y-in.Box.Top)*in.Box.Width()+(x-in.Box.Left)] != 0
}

// Overlap returns the number of pixels shared with another instance
func (in *Instance) Overlap(o *Instance) int {

	inter := in.Box.Intersect(o.Box)
	if inter.Empty() {
		return 0
	}

	n := 0

	for y := inter.Top; y < inter.Bottom; y++ {
		for x := inter.Left; x < inter.Right; x++ {
			if in.MaskAt(x, y) && o.MaskAt(x, y) {
				n++
			}
		}
	}

	return n
}
