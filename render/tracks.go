package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/tracker"
)

// Style defines how tracked organoids are painted
type Style struct {
	// FillAlpha is the opacity of the organoid fill
	FillAlpha float32
	// OutlineThickness of the contour line
	OutlineThickness int
	// Epsilon is the contour approximation accuracy in pixels
	Epsilon float64
	// ShowMissing draws the last known outline of tracks that were not
	// detected in the frame using MissingColor
	ShowMissing  bool
	MissingColor color.RGBA
	Font         Font
}

// DefaultStyle returns default track style settings
func DefaultStyle() Style {
	return Style{
		FillAlpha:        0.3,
		OutlineThickness: 1,
		Epsilon:          1,
		ShowMissing:      true,
		MissingColor:     Grey,
		Font:             DefaultFont(),
	}
}

// Tracks renders the tracks observed in frame on a CV8UC3 image.  Detected
// organoids are filled and outlined in their track color, the track ID is
// written at the centroid.
func Tracks(img *gocv.Mat, tracks []*tracker.Track, frame int, style Style) error {

	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("tracks can only be rendered on a CV8UC3 image")
	}

	width := img.Cols()
	height := img.Rows()

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()
	alpha := style.FillAlpha

	for _, t := range tracks {
		obs, ok := t.At(frame)
		if !ok || !obs.Detected() {
			continue
		}

		clr := TrackColor(t.ID())

		for _, p := range obs.Geometry().Pixels {
			if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
				continue
			}

			pixelPos := (p.Y*width + p.X) * 3
			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(clr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(clr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(clr.R)*alpha)
		}
	}

	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)
	if err != nil {
		return fmt.Errorf("error creating overlay Mat: %w", err)
	}
	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	labels := make([]boxLabel, 0, len(tracks))

	for _, t := range tracks {
		obs, ok := t.At(frame)
		if !ok {
			continue
		}

		useClr := TrackColor(t.ID())

		if !obs.Detected() {
			if !style.ShowMissing {
				continue
			}
			useClr = style.MissingColor
		}

		in := obs.Geometry()

		if err := outline(img, in, useClr, style); err != nil {
			return fmt.Errorf("track %d: %w", t.ID(), err)
		}

		labels = append(labels, newBoxLabel(fmt.Sprintf("%d", t.ID()),
			image.Pt(int(in.Centroid.X+0.5), int(in.Centroid.Y+0.5)), useClr, style.Font))
	}

	drawBoxLabels(img, labels, style.Font)

	return nil
}

// outline draws the contour of an instance.  The contour is found on the
// instance mask padded by one pixel so regions touching their bounding box
// are closed.
func outline(img *gocv.Mat, in *result.Instance, clr color.RGBA, style Style) error {

	bw := in.Box.Width()
	bh := in.Box.Height()

	if bw == 0 || bh == 0 {
		return nil
	}

	pw := bw + 2
	padded := make([]uint8, pw*(bh+2))

	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			if in.Mask[y*bw+x] != 0 {
				padded[(y+1)*pw+x+1] = 255
			}
		}
	}

	maskMat, err := gocv.NewMatFromBytes(bh+2, pw, gocv.MatTypeCV8U, padded)
	if err != nil {
		return fmt.Errorf("error creating mask Mat: %w", err)
	}
	defer maskMat.Close()

	contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	offset := image.Pt(in.Box.Left-1, in.Box.Top-1)

	for i := 0; i < contours.Size(); i++ {
		approx := gocv.ApproxPolyDP(contours.At(i), style.Epsilon, true)

		pts := approx.ToPoints()
		for j := range pts {
			pts[j] = pts[j].Add(offset)
		}
		approx.Close()

		global := gocv.NewPointVectorFromPoints(pts)
		ptsVec := gocv.NewPointsVector()
		ptsVec.Append(global)

		gocv.Polylines(img, ptsVec, true, clr, style.OutlineThickness)

		global.Close()
		ptsVec.Close()
	}

	return nil
}
