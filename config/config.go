package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/tracker"
)

// Config represents the labeling and tracking parameters of a run.  Every
// field is optional, omitted fields fall back to the package defaults via
// the Get* methods so partial files are safe.
type Config struct {
	// Labeling params
	ForegroundThreshold *float64 `json:"foreground_threshold,omitempty"`
	SeedStrategy        *string  `json:"seed_strategy,omitempty"` // "edge" or "threshold"
	SeedThreshold       *float64 `json:"seed_threshold,omitempty"`
	SmoothingSigma      *float64 `json:"smoothing_sigma,omitempty"`
	EdgeSigma           *float64 `json:"edge_sigma,omitempty"`
	EdgeLow             *float64 `json:"edge_low,omitempty"`
	EdgeHigh            *float64 `json:"edge_high,omitempty"`

	// Post processing params
	MinArea      *int     `json:"min_area,omitempty"`
	BorderCutoff *float64 `json:"border_cutoff,omitempty"`
	ClearBorder  *bool    `json:"clear_border,omitempty"`
	FillHoles    *bool    `json:"fill_holes,omitempty"`

	// Tracking params
	CostMode                 *string  `json:"cost_mode,omitempty"` // "centroid" or "overlap"
	DistanceCost             *float64 `json:"distance_cost,omitempty"`
	AreaCost                 *float64 `json:"area_cost,omitempty"`
	OverlapCost              *float64 `json:"overlap_cost,omitempty"`
	CostOfNewOrganoid        *float64 `json:"cost_of_new_organoid,omitempty"`
	CostOfMissingOrganoid    *float64 `json:"cost_of_missing_organoid,omitempty"`
	DeleteTracksAfterMissing *int     `json:"delete_tracks_after_missing,omitempty"`
	MaxInstances             *int     `json:"max_instances,omitempty"`
	Solver                   *string  `json:"solver,omitempty"` // "lapjv" or "hungarian"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with all fields set to nil
func Empty() *Config {
	return &Config{}
}

// Defaults returns a Config with every field set to its default value
func Defaults() *Config {

	lp := postprocess.LabelDefaultParams()
	pp := postprocess.PostProcessDefaultParams()
	tp := tracker.DefaultParams()

	return &Config{
		ForegroundThreshold:      ptrFloat64(lp.ForegroundThreshold),
		SeedStrategy:             ptrString(lp.SeedStrategy.String()),
		SeedThreshold:            ptrFloat64(lp.SeedThreshold),
		SmoothingSigma:           ptrFloat64(lp.SmoothingSigma),
		EdgeSigma:                ptrFloat64(lp.EdgeSigma),
		EdgeLow:                  ptrFloat64(lp.EdgeLow),
		EdgeHigh:                 ptrFloat64(lp.EdgeHigh),
		MinArea:                  ptrInt(pp.MinArea),
		BorderCutoff:             ptrFloat64(pp.BorderCutoff),
		ClearBorder:              ptrBool(pp.ClearBorder),
		FillHoles:                ptrBool(pp.FillHoles),
		CostMode:                 ptrString(tp.Cost.Mode.String()),
		DistanceCost:             ptrFloat64(tp.Cost.DistanceWeight),
		AreaCost:                 ptrFloat64(tp.Cost.AreaWeight),
		OverlapCost:              ptrFloat64(tp.Cost.OverlapWeight),
		CostOfNewOrganoid:        ptrFloat64(tp.CostOfNewOrganoid),
		CostOfMissingOrganoid:    ptrFloat64(tp.CostOfMissingOrganoid),
		DeleteTracksAfterMissing: ptrInt(tp.DeleteAfterMissing),
		MaxInstances:             ptrInt(tp.MaxInstances),
		Solver:                   ptrString(SolverLAPJV),
	}
}

const (
	// SolverLAPJV selects the Jonker-Volgenant solver
	SolverLAPJV = "lapjv"
	// SolverHungarian selects the Kuhn-Munkres solver
	SolverHungarian = "hungarian"
)

// Load loads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size.
func Load(path string) (*Config, error) {

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes and validates a JSON config
func Parse(data []byte) (*Config, error) {

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the config as indented JSON
func (c *Config) Save(path string) error {

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configured values are valid by converting them
// into the package parameters and validating those
func (c *Config) Validate() error {

	lp, err := c.LabelParams()
	if err != nil {
		return err
	}
	if err := lp.Validate(); err != nil {
		return err
	}

	if err := c.PostProcessParams().Validate(); err != nil {
		return err
	}

	tp, err := c.TrackerParams()
	if err != nil {
		return err
	}

	return tp.Validate()
}

func (c *Config) GetForegroundThreshold() float64 {
	if c.ForegroundThreshold == nil {
		return postprocess.LabelDefaultParams().ForegroundThreshold
	}
	return *c.ForegroundThreshold
}

func (c *Config) GetSeedStrategy() string {
	if c.SeedStrategy == nil {
		return postprocess.LabelDefaultParams().SeedStrategy.String()
	}
	return *c.SeedStrategy
}

func (c *Config) GetSeedThreshold() float64 {
	if c.SeedThreshold == nil {
		return postprocess.LabelDefaultParams().SeedThreshold
	}
	return *c.SeedThreshold
}

func (c *Config) GetSmoothingSigma() float64 {
	if c.SmoothingSigma == nil {
		return postprocess.LabelDefaultParams().SmoothingSigma
	}
	return *c.SmoothingSigma
}

func (c *Config) GetEdgeSigma() float64 {
	if c.EdgeSigma == nil {
		return postprocess.LabelDefaultParams().EdgeSigma
	}
	return *c.EdgeSigma
}

func (c *Config) GetEdgeLow() float64 {
	if c.EdgeLow == nil {
		return postprocess.LabelDefaultParams().EdgeLow
	}
	return *c.EdgeLow
}

func (c *Config) GetEdgeHigh() float64 {
	if c.EdgeHigh == nil {
		return postprocess.LabelDefaultParams().EdgeHigh
	}
	return *c.EdgeHigh
}

func (c *Config) GetMinArea() int {
	if c.MinArea == nil {
		return postprocess.PostProcessDefaultParams().MinArea
	}
	return *c.MinArea
}

func (c *Config) GetBorderCutoff() float64 {
	if c.BorderCutoff == nil {
		return postprocess.PostProcessDefaultParams().BorderCutoff
	}
	return *c.BorderCutoff
}

func (c *Config) GetClearBorder() bool {
	if c.ClearBorder == nil {
		return postprocess.PostProcessDefaultParams().ClearBorder
	}
	return *c.ClearBorder
}

func (c *Config) GetFillHoles() bool {
	if c.FillHoles == nil {
		return postprocess.PostProcessDefaultParams().FillHoles
	}
	return *c.FillHoles
}

func (c *Config) GetCostMode() string {
	if c.CostMode == nil {
		return tracker.CostDefaultParams().Mode.String()
	}
	return *c.CostMode
}

func (c *Config) GetDistanceCost() float64 {
	if c.DistanceCost == nil {
		return tracker.CostDefaultParams().DistanceWeight
	}
	return *c.DistanceCost
}

func (c *Config) GetAreaCost() float64 {
	if c.AreaCost == nil {
		return tracker.CostDefaultParams().AreaWeight
	}
	return *c.AreaCost
}

func (c *Config) GetOverlapCost() float64 {
	if c.OverlapCost == nil {
		return tracker.CostDefaultParams().OverlapWeight
	}
	return *c.OverlapCost
}

func (c *Config) GetCostOfNewOrganoid() float64 {
	if c.CostOfNewOrganoid == nil {
		return tracker.DefaultParams().CostOfNewOrganoid
	}
	return *c.CostOfNewOrganoid
}

func (c *Config) GetCostOfMissingOrganoid() float64 {
	if c.CostOfMissingOrganoid == nil {
		return tracker.DefaultParams().CostOfMissingOrganoid
	}
	return *c.CostOfMissingOrganoid
}

func (c *Config) GetDeleteTracksAfterMissing() int {
	if c.DeleteTracksAfterMissing == nil {
		return tracker.DefaultParams().DeleteAfterMissing
	}
	return *c.DeleteTracksAfterMissing
}

func (c *Config) GetMaxInstances() int {
	if c.MaxInstances == nil {
		return tracker.DefaultParams().MaxInstances
	}
	return *c.MaxInstances
}

func (c *Config) GetSolver() string {
	if c.Solver == nil {
		return SolverLAPJV
	}
	return *c.Solver
}

// LabelParams returns the labeling parameters
func (c *Config) LabelParams() (postprocess.LabelParams, error) {

	strategy, err := postprocess.ParseSeedStrategy(c.GetSeedStrategy())
	if err != nil {
		return postprocess.LabelParams{}, err
	}

	return postprocess.LabelParams{
		ForegroundThreshold: c.GetForegroundThreshold(),
		SeedStrategy:        strategy,
		SeedThreshold:       c.GetSeedThreshold(),
		SmoothingSigma:      c.GetSmoothingSigma(),
		EdgeSigma:           c.GetEdgeSigma(),
		EdgeLow:             c.GetEdgeLow(),
		EdgeHigh:            c.GetEdgeHigh(),
	}, nil
}

// PostProcessParams returns the post processing parameters
func (c *Config) PostProcessParams() postprocess.PostProcessParams {
	return postprocess.PostProcessParams{
		MinArea:      c.GetMinArea(),
		BorderCutoff: c.GetBorderCutoff(),
		ClearBorder:  c.GetClearBorder(),
		FillHoles:    c.GetFillHoles(),
	}
}

// TrackerParams returns the tracking parameters.  Logger and Measurer are
// left for the caller to set.
func (c *Config) TrackerParams() (tracker.Params, error) {

	mode, err := tracker.ParseCostMode(c.GetCostMode())
	if err != nil {
		return tracker.Params{}, err
	}

	var solver tracker.Solver

	switch c.GetSolver() {
	case SolverLAPJV:
		solver = tracker.NewLAPJV()
	case SolverHungarian:
		solver = tracker.NewHungarian()
	default:
		return tracker.Params{}, fmt.Errorf("unknown solver %q", c.GetSolver())
	}

	return tracker.Params{
		Cost: tracker.CostParams{
			Mode:           mode,
			DistanceWeight: c.GetDistanceCost(),
			AreaWeight:     c.GetAreaCost(),
			OverlapWeight:  c.GetOverlapCost(),
		},
		CostOfNewOrganoid:     c.GetCostOfNewOrganoid(),
		CostOfMissingOrganoid: c.GetCostOfMissingOrganoid(),
		DeleteAfterMissing:    c.GetDeleteTracksAfterMissing(),
		MaxInstances:          c.GetMaxInstances(),
		Solver:                solver,
	}, nil
}
