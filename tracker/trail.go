package tracker

import (
	"image"
	"sync"
)

// trailHistory holds the centroid history of one track
type trailHistory struct {
	points []image.Point
}

// Trail is the struct to keep a history of Track centroids used for drawing
// a trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points keyed by track ID
	history map[int64]*trailHistory
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the number of
// most recent points to keep and specifies the maximum length of the trail
// to maintain
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int64]*trailHistory),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int64]*trailHistory)
}

// Add the latest detected centroid of a track to the history.  Frames the
// track was missed in are not added.
func (t *Trail) Add(track *Track) {

	obs := track.Last()
	if !obs.Detected() {
		return
	}

	t.Lock()
	defer t.Unlock()

	// init map if no history exists yet for track id
	if _, exists := t.history[track.ID()]; !exists {
		t.history[track.ID()] = &trailHistory{}
	}

	h := t.history[track.ID()]
	c := obs.Geometry().Centroid

	h.points = append(h.points, image.Point{
		X: int(c.X + 0.5),
		Y: int(c.Y + 0.5),
	})

	// check if history is exceeded and drop oldest point
	if len(h.points) > t.size {
		h.points = h.points[1:]
	}
}

// AddAll adds every track that is still active
func (t *Trail) AddAll(tracks []*Track) {
	for _, tr := range tracks {
		if tr.Active() {
			t.Add(tr)
		}
	}
}

// GetPoints gets the point history for a specific track id
func (t *Trail) GetPoints(id int64) []image.Point {
	t.Lock()
	defer t.Unlock()

	if h, exists := t.history[id]; exists {
		points := make([]image.Point, len(h.points))
		copy(points, h.points)
		return points
	}

	// no history yet
	return nil
}
