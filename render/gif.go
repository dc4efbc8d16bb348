package render

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
)

// WriteGIF encodes the frames as a looping animated GIF with delay given in
// 100ths of a second between frames.  Frames are mapped onto the Plan9
// palette without dithering so track colors stay flat.
func WriteGIF(w io.Writer, frames []image.Image, delay int) error {

	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}

	anim := &gif.GIF{
		Image: make([]*image.Paletted, len(frames)),
		Delay: make([]int, len(frames)),
	}

	for i, f := range frames {
		b := f.Bounds()
		p := image.NewPaletted(b, palette.Plan9)
		draw.Draw(p, b, f, b.Min, draw.Src)

		anim.Image[i] = p
		anim.Delay[i] = delay
	}

	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("failed to encode gif: %w", err)
	}

	return nil
}
