package tracker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/postprocess/result"
)

var (
	// ErrDimensionMismatch is returned when a label map differs in size from
	// the earlier frames of the sequence
	ErrDimensionMismatch = errors.New("frame dimensions do not match sequence")
	// ErrTooManyInstances is returned when a frame holds more instances than
	// the configured maximum
	ErrTooManyInstances = errors.New("too many instances in frame")
)

// Params defines the tracking parameters of a Session
type Params struct {
	// Cost are the track to instance cost weights
	Cost CostParams
	// CostOfNewOrganoid is the cost of starting a new track for an instance
	CostOfNewOrganoid float64
	// CostOfMissingOrganoid is the cost of a track not being detected in a
	// frame
	CostOfMissingOrganoid float64
	// DeleteAfterMissing is the number of consecutive missed frames after
	// which a track is deactivated, zero or less never deactivates
	DeleteAfterMissing int
	// MaxInstances caps the number of instances accepted per frame, zero
	// means no limit
	MaxInstances int
	// Solver is the assignment solver, nil uses LAPJV
	Solver Solver
	// Measurer turns label maps into instances, nil uses Regions
	Measurer postprocess.RegionMeasurer
	// Logger is the structured logger, nil discards output
	Logger *slog.Logger
}

// DefaultParams returns an instance of Params configured with default
// values:
// - Cost: CostDefaultParams
// - Cost of New Organoid: 100
// - Cost of Missing Organoid: 20
// - Delete After Missing: 10 frames
// - Max Instances: unlimited
// - Solver: LAPJV
func DefaultParams() Params {
	return Params{
		Cost:                  CostDefaultParams(),
		CostOfNewOrganoid:     100,
		CostOfMissingOrganoid: 20,
		DeleteAfterMissing:    10,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {

	if err := p.Cost.Validate(); err != nil {
		return err
	}

	if err := checkFixedCost("new", p.CostOfNewOrganoid); err != nil {
		return err
	}

	if err := checkFixedCost("missing", p.CostOfMissingOrganoid); err != nil {
		return err
	}

	if p.MaxInstances < 0 {
		return fmt.Errorf("max instances must not be negative, got %d", p.MaxInstances)
	}

	return nil
}

// FrameResult summarizes how a frame changed the tracks
type FrameResult struct {
	// Frame is the index of the frame
	Frame int
	// Matched maps the ID of each continued track to its instance label
	Matched map[int64]int
	// Born are the IDs of tracks created in the frame
	Born []int64
	// Missed are the IDs of active tracks not detected in the frame
	Missed []int64
	// Deactivated are the IDs of tracks deactivated after the frame
	Deactivated []int64
}

// Session links the instances of consecutive frames of one sequence into
// tracks.  It is the only owner of its tracks.  A Session is not safe for
// concurrent use, independent sessions may run in parallel.
type Session struct {
	id       uuid.UUID
	params   Params
	solver   Solver
	measurer postprocess.RegionMeasurer
	cost     *CostModel
	idGen    *result.IDGenerator
	log      *slog.Logger
	// tracks holds every track in ID order
	tracks []*Track
	byID   map[int64]*Track
	// frame is the index of the next frame
	frame int
	// width and height of label maps once the first has been seen
	width  int
	height int
}

// NewSession returns a Session with no tracks
func NewSession(p Params) (*Session, error) {

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking parameters: %w", err)
	}

	s := &Session{
		id:       uuid.New(),
		params:   p,
		solver:   p.Solver,
		measurer: p.Measurer,
		cost:     NewCostModel(p.Cost),
		idGen:    result.NewIDGenerator(),
		log:      p.Logger,
		byID:     make(map[int64]*Track),
	}

	if s.solver == nil {
		s.solver = NewLAPJV()
	}

	if s.measurer == nil {
		s.measurer = postprocess.NewRegions()
	}

	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	s.log = s.log.With(slog.String("session", s.id.String()))

	return s, nil
}

// ID returns the unique session ID
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Frame returns the number of frames processed
func (s *Session) Frame() int {
	return s.frame
}

// Tracks returns every track, active or not, in ID order
func (s *Session) Tracks() []*Track {
	tracks := make([]*Track, len(s.tracks))
	copy(tracks, s.tracks)
	return tracks
}

// ActiveTracks returns the tracks that still take part in matching in ID
// order
func (s *Session) ActiveTracks() []*Track {

	var active []*Track

	for _, t := range s.tracks {
		if t.Active() {
			active = append(active, t)
		}
	}

	return active
}

// Track returns the track with the given ID
func (s *Session) Track(id int64) (*Track, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// UpdateLabelMap measures the label map of the next frame and updates the
// tracks with its instances.  Every label map of a sequence must have the
// same dimensions.
func (s *Session) UpdateLabelMap(lm *result.LabelMap) (FrameResult, error) {

	if lm == nil {
		return FrameResult{}, errors.New("nil label map")
	}

	if s.width == 0 && s.height == 0 {
		s.width = lm.Width
		s.height = lm.Height

	} else if lm.Width != s.width || lm.Height != s.height {
		return FrameResult{}, fmt.Errorf("%w: frame %d is %dx%d, expected %dx%d",
			ErrDimensionMismatch, s.frame, lm.Width, lm.Height, s.width, s.height)
	}

	instances, err := LabelMapToInstances(s.measurer, lm)
	if err != nil {
		return FrameResult{}, err
	}

	return s.Update(instances)
}

// Update matches the instances of the next frame to the active tracks.
// Matched tracks receive a detection, unmatched tracks a missed marker and
// unmatched instances start new tracks.  Tracks missed for
// DeleteAfterMissing consecutive frames are then deactivated.
func (s *Session) Update(instances []result.Instance) (FrameResult, error) {

	frame := s.frame
	res := FrameResult{
		Frame:   frame,
		Matched: make(map[int64]int),
	}

	if s.params.MaxInstances > 0 && len(instances) > s.params.MaxInstances {
		return res, fmt.Errorf("%w: frame %d has %d instances, limit is %d",
			ErrTooManyInstances, frame, len(instances), s.params.MaxInstances)
	}

	active := s.ActiveTracks()

	// costs use the last detected geometry, never a carried forward one
	prev := make([]*result.Instance, len(active))
	for i, t := range active {
		last := t.LastDetection()
		prev[i] = &last
	}

	costs := s.cost.Matrix(prev, instances)

	assign, err := Resolve(s.solver, costs, len(instances),
		s.params.CostOfNewOrganoid, s.params.CostOfMissingOrganoid)
	if err != nil {
		return res, fmt.Errorf("frame %d: %w", frame, err)
	}

	for _, m := range assign.Matches {
		t := active[m[0]]
		in := instances[m[1]]
		t.detect(in)
		res.Matched[t.id] = in.Label
	}

	for _, i := range assign.Missed {
		t := active[i]
		t.miss()
		res.Missed = append(res.Missed, t.id)
	}

	for _, j := range assign.Born {
		t := newTrack(s.idGen.GetNext(), frame, instances[j])
		s.tracks = append(s.tracks, t)
		s.byID[t.id] = t
		res.Born = append(res.Born, t.id)
	}

	if s.params.DeleteAfterMissing > 0 {
		for _, t := range active {
			if t.misses > 0 && t.misses >= s.params.DeleteAfterMissing {
				t.deactivate()
				res.Deactivated = append(res.Deactivated, t.id)
			}
		}
	}

	s.frame++

	s.log.Debug("tracked frame",
		slog.Int("frame", frame),
		slog.Int("instances", len(instances)),
		slog.Int("matched", len(assign.Matches)),
		slog.Int("born", len(res.Born)),
		slog.Int("missed", len(res.Missed)),
		slog.Int("deactivated", len(res.Deactivated)),
	)

	return res, nil
}
