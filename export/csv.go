package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the column order of the CSV track table
var csvHeader = []string{
	"frame", "label", "track_id", "detected", "centroid_x", "centroid_y",
	"area", "left", "top", "right", "bottom", "major_axis_length", "session_id",
}

// WriteCSV writes the rows with a header line to w
func WriteCSV(w io.Writer, rows []Row) error {

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Frame),
			strconv.Itoa(r.Label),
			strconv.FormatInt(r.TrackID, 10),
			strconv.FormatBool(r.Detected),
			strconv.FormatFloat(r.CentroidX, 'f', 3, 64),
			strconv.FormatFloat(r.CentroidY, 'f', 3, 64),
			strconv.Itoa(r.Area),
			strconv.Itoa(r.Left),
			strconv.Itoa(r.Top),
			strconv.Itoa(r.Right),
			strconv.Itoa(r.Bottom),
			strconv.FormatFloat(r.MajorAxisLength, 'f', 3, 64),
			r.SessionID,
		}

		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row for track %d frame %d: %w",
				r.TrackID, r.Frame, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
