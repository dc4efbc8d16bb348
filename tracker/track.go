package tracker

import (
	"fmt"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

// TrackState represents the state of a track
type TrackState int

const (
	// Tracking means the track was detected in the latest frame
	Tracking TrackState = iota
	// Missing means the track is active but was not detected in the latest
	// frame
	Missing
	// Deactivated tracks are never matched again
	Deactivated
)

// String returns the name of the state
func (s TrackState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Missing:
		return "missing"
	case Deactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("TrackState(%d)", int(s))
	}
}

// Observation is the record of a track for a single frame.  It is either a
// Detection or a Missed marker.
type Observation interface {
	// Detected reports whether the track was detected in the frame
	Detected() bool
	// Geometry returns the detected instance, or for a Missed marker the
	// last detected instance carried forward
	Geometry() *result.Instance
	isObservation()
}

// Detection is an Observation of a matched instance
type Detection struct {
	Instance result.Instance
}

// Detected always reports true for a Detection
func (d Detection) Detected() bool {
	return true
}

// Geometry returns a copy of the matched instance
func (d Detection) Geometry() *result.Instance {
	return &d.Instance
}

// isObservation seals Observation to the types of this package
func (Detection) isObservation() {}

// Missed is an Observation of a frame the track was not detected in
type Missed struct {
	Last result.Instance
}

// Detected always reports false for a Missed marker
func (m Missed) Detected() bool {
	return false
}

// Geometry returns a copy of the last detected instance carried forward
func (m Missed) Geometry() *result.Instance {
	return &m.Last
}

// isObservation seals Observation to the types of this package
func (Missed) isObservation() {}

// Track is the persistent identity of one object across frames.  It holds
// one Observation for every frame from its first frame until the frame it
// was deactivated in, or the latest frame while active.
type Track struct {
	// id is the unique track ID within the session
	id int64
	// state of the track
	state TrackState
	// firstFrame is the frame index the track was born in
	firstFrame int
	// misses is the number of consecutive frames without a detection
	misses int
	// observations has one entry per frame starting at firstFrame
	observations []Observation
	// lastDetected is the index into observations of the latest detection
	lastDetected int
}

// newTrack creates a track born from a detection in frame
func newTrack(id int64, frame int, in result.Instance) *Track {
	return &Track{
		id:           id,
		state:        Tracking,
		firstFrame:   frame,
		observations: []Observation{Detection{Instance: in}},
	}
}

// detect records a detection for the next frame
func (t *Track) detect(in result.Instance) {
	t.observations = append(t.observations, Detection{Instance: in})
	t.lastDetected = len(t.observations) - 1
	t.misses = 0
	t.state = Tracking
}

// miss records the track was not detected in the next frame
func (t *Track) miss() {
	t.observations = append(t.observations, Missed{Last: t.LastDetection()})
	t.misses++
	t.state = Missing
}

// deactivate marks the track as terminated
func (t *Track) deactivate() {
	t.state = Deactivated
}

// ID returns the unique track ID
func (t *Track) ID() int64 {
	return t.id
}

// State returns the current track state
func (t *Track) State() TrackState {
	return t.state
}

// Active reports whether the track still takes part in matching
func (t *Track) Active() bool {
	return t.state != Deactivated
}

// FirstFrame returns the frame index the track was born in
func (t *Track) FirstFrame() int {
	return t.firstFrame
}

// LastFrame returns the frame index of the latest observation
func (t *Track) LastFrame() int {
	return t.firstFrame + len(t.observations) - 1
}

// ConsecutiveMisses returns the number of frames since the last detection
func (t *Track) ConsecutiveMisses() int {
	return t.misses
}

// Len returns the number of observations held
func (t *Track) Len() int {
	return len(t.observations)
}

// Detections returns the number of frames the track was detected in
func (t *Track) Detections() int {
	n := 0
	for _, o := range t.observations {
		if o.Detected() {
			n++
		}
	}
	return n
}

// At returns the observation for frame, false if the track has no
// observation for that frame
func (t *Track) At(frame int) (Observation, bool) {

	local := frame - t.firstFrame

	if local < 0 || local >= len(t.observations) {
		return nil, false
	}

	return t.observations[local], true
}

// Last returns the latest observation
func (t *Track) Last() Observation {
	return t.observations[len(t.observations)-1]
}

// LastDetection returns the most recently detected instance
func (t *Track) LastDetection() result.Instance {
	return *t.observations[t.lastDetected].Geometry()
}

// Observations returns a copy of the observation history
func (t *Track) Observations() []Observation {
	obs := make([]Observation, len(t.observations))
	copy(obs, t.observations)
	return obs
}
