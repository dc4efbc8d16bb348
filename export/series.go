package export

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/swdee/go-orgtrack/tracker"
)

// Series is the area of one track over the frames it was observed in
type Series struct {
	TrackID int64
	Frames  []int
	// Areas holds the detected area per frame, frames the track was missing
	// in carry the last detected area forward
	Areas []float64
}

// AreaSeries returns the area over time of each track in ID order
func AreaSeries(tracks []*tracker.Track) []Series {

	series := make([]Series, 0, len(tracks))

	for _, t := range tracks {
		s := Series{
			TrackID: t.ID(),
			Frames:  make([]int, 0, t.Len()),
			Areas:   make([]float64, 0, t.Len()),
		}

		for i, obs := range t.Observations() {
			s.Frames = append(s.Frames, t.FirstFrame()+i)
			s.Areas = append(s.Areas, float64(obs.Geometry().Area))
		}

		series = append(series, s)
	}

	return series
}

// PlotAreas renders the series as a line chart and saves it to path, the
// image format follows the file extension
func PlotAreas(series []Series, title, path string) error {

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Area (px)"

	colors := generateColors(len(series))

	for i, s := range series {
		if len(s.Frames) == 0 {
			continue
		}

		pts := make(plotter.XYs, len(s.Frames))
		for j := range s.Frames {
			pts[j] = plotter.XY{X: float64(s.Frames[j]), Y: s.Areas[j]}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("track %d: %w", s.TrackID, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("track %d", s.TrackID), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save area plot: %w", err)
	}

	return nil
}

// generateColors creates a palette of n distinct line colors
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	rf := hueToRGB(p, q, h+1.0/3.0)
	gf := hueToRGB(p, q, h)
	bf := hueToRGB(p, q, h-1.0/3.0)

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}

	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
