package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-orgtrack/tracker"
)

// boxLabel defines where a track ID label should be rendered on the source
// image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel returns a label with its text centered horizontally on
// anchor and its baseline just above it
func newBoxLabel(text string, anchor image.Point, clr color.RGBA, font Font) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	textPos := image.Pt(anchor.X-textSize.X/2, anchor.Y-font.Pad)

	rect := image.Rect(textPos.X-font.Pad, textPos.Y-textSize.Y-font.Pad,
		textPos.X+textSize.X+font.Pad, anchor.Y)

	return boxLabel{
		rect:    rect,
		clr:     clr,
		text:    text,
		textPos: textPos,
	}
}

// drawBoxLabels draws all precalculated box labels so they are the top most
// layer on the image and don't get overlapped with outlines
func drawBoxLabels(img *gocv.Mat, labels []boxLabel, font Font) {
	for _, box := range labels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// Boxes renders the bounding box and ID of every track observed in frame.
// Missing tracks are drawn in missingClr at their last detected location.
func Boxes(img *gocv.Mat, tracks []*tracker.Track, frame int, font Font,
	lineThickness int, missingClr color.RGBA) {

	labels := make([]boxLabel, 0, len(tracks))

	for _, t := range tracks {

		obs, ok := t.At(frame)
		if !ok {
			continue
		}

		in := obs.Geometry()

		useClr := TrackColor(t.ID())
		if !obs.Detected() {
			useClr = missingClr
		}

		rect := image.Rect(in.Box.Left, in.Box.Top, in.Box.Right, in.Box.Bottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		labels = append(labels, newBoxLabel(fmt.Sprintf("%d", t.ID()),
			image.Pt((in.Box.Left+in.Box.Right)/2, in.Box.Top), useClr, font))
	}

	drawBoxLabels(img, labels, font)
}
