// Package export writes the track table of a tracking session to CSV, SQLite
// and area over time charts.
package export

import (
	"sort"

	"github.com/swdee/go-orgtrack/tracker"
)

// Row is one entry of the track table, the observation of a single track in
// a single frame
type Row struct {
	SessionID string
	TrackID   int64
	Frame     int
	// Label is the instance label in the frame, zero when the track was not
	// detected
	Label    int
	Detected bool
	// measurements of the detected instance, or the last detected instance
	// when missing
	CentroidX       float64
	CentroidY       float64
	Area            int
	Left            int
	Top             int
	Right           int
	Bottom          int
	MajorAxisLength float64
}

// Rows returns the track table of the session ordered by frame then track ID
func Rows(s *tracker.Session) []Row {
	return TrackRows(s.ID().String(), s.Tracks())
}

// TrackRows returns the track table for the given tracks ordered by frame
// then track ID
func TrackRows(sessionID string, tracks []*tracker.Track) []Row {

	n := 0
	for _, t := range tracks {
		n += t.Len()
	}

	rows := make([]Row, 0, n)

	for _, t := range tracks {
		for i, obs := range t.Observations() {
			in := obs.Geometry()

			row := Row{
				SessionID:       sessionID,
				TrackID:         t.ID(),
				Frame:           t.FirstFrame() + i,
				Detected:        obs.Detected(),
				CentroidX:       in.Centroid.X,
				CentroidY:       in.Centroid.Y,
				Area:            in.Area,
				Left:            in.Box.Left,
				Top:             in.Box.Top,
				Right:           in.Box.Right,
				Bottom:          in.Box.Bottom,
				MajorAxisLength: in.MajorAxisLength,
			}

			if row.Detected {
				row.Label = in.Label
			}

			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Frame != rows[b].Frame {
			return rows[a].Frame < rows[b].Frame
		}
		return rows[a].TrackID < rows[b].TrackID
	})

	return rows
}
