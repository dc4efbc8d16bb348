package render

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/tracker"
)

// FrameStyle defines how Frame paints tracks without OpenCV
type FrameStyle struct {
	// FillAlpha is the opacity of the organoid fill
	FillAlpha uint8
	// OutlineAlpha is the opacity of the organoid outline
	OutlineAlpha uint8
	// LabelColor is the color of the track ID text
	LabelColor color.RGBA
	// ShowMissing outlines tracks that were not detected in the frame at
	// their last known location in MissingColor
	ShowMissing  bool
	MissingColor color.RGBA
}

// DefaultFrameStyle returns default frame style settings
func DefaultFrameStyle() FrameStyle {
	return FrameStyle{
		FillAlpha:    80,
		OutlineAlpha: 255,
		LabelColor:   White,
		ShowMissing:  false,
		MissingColor: Grey,
	}
}

// Frame paints the tracks observed in frame over a copy of base
func Frame(base image.Image, tracks []*tracker.Track, frame int, style FrameStyle) *image.RGBA {

	bounds := base.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, base, bounds.Min, draw.Src)

	type label struct {
		text string
		at   result.Point
	}

	labels := make([]label, 0, len(tracks))

	for _, t := range tracks {
		obs, ok := t.At(frame)
		if !ok {
			continue
		}

		in := obs.Geometry()
		clr := TrackColor(t.ID())

		if obs.Detected() {
			for _, p := range in.Pixels {
				blend(dst, p.X, p.Y, clr, style.FillAlpha)
			}

		} else if style.ShowMissing {
			clr = style.MissingColor

		} else {
			continue
		}

		for _, p := range in.Pixels {
			if onEdge(in, p.X, p.Y) {
				blend(dst, p.X, p.Y, clr, style.OutlineAlpha)
			}
		}

		labels = append(labels, label{text: strconv.FormatInt(t.ID(), 10), at: in.Centroid})
	}

	// text is the top layer
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(style.LabelColor),
		Face: basicfont.Face7x13,
	}

	for _, l := range labels {
		// anchor text at its horizontal middle and baseline
		w := d.MeasureString(l.text)
		d.Dot = fixed.Point26_6{
			X: fixed.I(int(l.at.X+0.5)) - w/2,
			Y: fixed.I(int(l.at.Y + 0.5)),
		}
		d.DrawString(l.text)
	}

	return dst
}

// Labels paints every label of a label map in its own color on a black
// background
func Labels(lm *result.LabelMap) *image.RGBA {

	dst := image.NewRGBA(image.Rect(0, 0, lm.Width, lm.Height))

	for y := 0; y < lm.Height; y++ {
		for x := 0; x < lm.Width; x++ {
			clr := Black
			if v := lm.At(x, y); v > 0 {
				clr = TrackColor(int64(v))
			}
			dst.SetRGBA(x, y, clr)
		}
	}

	return dst
}

// LabelGray16 returns the label map as a 16 bit grey image holding the raw
// label values.  Labels above 65535 are clipped.
func LabelGray16(lm *result.LabelMap) *image.Gray16 {

	dst := image.NewGray16(image.Rect(0, 0, lm.Width, lm.Height))

	for y := 0; y < lm.Height; y++ {
		for x := 0; x < lm.Width; x++ {
			dst.SetGray16(x, y, color.Gray16{Y: uint16(min(lm.At(x, y), 0xffff))})
		}
	}

	return dst
}

// onEdge reports whether x,y is a member pixel with a 4-neighbour outside of
// the instance
func onEdge(in *result.Instance, x, y int) bool {
	return !in.MaskAt(x-1, y) || !in.MaskAt(x+1, y) ||
		!in.MaskAt(x, y-1) || !in.MaskAt(x, y+1)
}

// blend composites clr with alpha a over the pixel at x,y
func blend(dst *image.RGBA, x, y int, clr color.RGBA, a uint8) {

	if !image.Pt(x, y).In(dst.Rect) {
		return
	}

	under := dst.RGBAAt(x, y)
	mix := func(o, n uint8) uint8 {
		return uint8((uint32(o)*uint32(255-a) + uint32(n)*uint32(a)) / 255)
	}

	dst.SetRGBA(x, y, color.RGBA{
		R: mix(under.R, clr.R),
		G: mix(under.G, clr.G),
		B: mix(under.B, clr.B),
		A: 255,
	})
}
