package tracker

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/swdee/go-orgtrack/postprocess/result"
)

const (
	// NoOverlapCost is the overlap term used when two instances share no
	// pixels
	NoOverlapCost = 10000
)

// CostMode selects how the position term of the cost is computed
type CostMode int

const (
	// CostCentroid uses the euclidean distance between centroids
	CostCentroid CostMode = iota
	// CostOverlap uses the reciprocal of the shared pixel count
	CostOverlap
)

// String returns the configuration name of the mode
func (m CostMode) String() string {
	switch m {
	case CostCentroid:
		return "centroid"
	case CostOverlap:
		return "overlap"
	default:
		return fmt.Sprintf("CostMode(%d)", int(m))
	}
}

// ParseCostMode converts a configuration name into a CostMode
func ParseCostMode(name string) (CostMode, error) {
	switch name {
	case "centroid":
		return CostCentroid, nil
	case "overlap":
		return CostOverlap, nil
	default:
		return 0, fmt.Errorf("unknown cost mode %q", name)
	}
}

// CostParams are the weights of the track to instance cost
type CostParams struct {
	// Mode selects the position term
	Mode CostMode
	// DistanceWeight scales the centroid distance in CostCentroid mode
	DistanceWeight float64
	// AreaWeight scales the absolute difference of the square roots of the
	// areas
	AreaWeight float64
	// OverlapWeight scales the overlap term in CostOverlap mode
	OverlapWeight float64
}

// CostDefaultParams returns an instance of CostParams configured with
// default values:
// - Mode: centroid
// - Distance Weight: 1
// - Area Weight: 2
// - Overlap Weight: 100
func CostDefaultParams() CostParams {
	return CostParams{
		Mode:           CostCentroid,
		DistanceWeight: 1,
		AreaWeight:     2,
		OverlapWeight:  100,
	}
}

// Validate checks the weights are finite and non negative
func (p CostParams) Validate() error {

	weights := []struct {
		name  string
		value float64
	}{
		{"distance", p.DistanceWeight},
		{"area", p.AreaWeight},
		{"overlap", p.OverlapWeight},
	}

	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			return fmt.Errorf("%s weight must be finite and non negative, got %v",
				w.name, w.value)
		}
	}

	if p.Mode != CostCentroid && p.Mode != CostOverlap {
		return fmt.Errorf("unknown cost mode %v", p.Mode)
	}

	return nil
}

// CostModel computes how likely two instances in consecutive frames are the
// same object, lower is more likely
type CostModel struct {
	Params CostParams
}

// NewCostModel returns a CostModel using the given weights
func NewCostModel(p CostParams) *CostModel {
	return &CostModel{Params: p}
}

// Cost returns the non negative cost of pairing prev with cur
func (c *CostModel) Cost(prev, cur *result.Instance) float64 {

	area := math.Abs(math.Sqrt(float64(prev.Area))-math.Sqrt(float64(cur.Area))) *
		c.Params.AreaWeight

	if c.Params.Mode == CostOverlap {
		overlap := float64(NoOverlapCost)
		if n := prev.Overlap(cur); n > 0 {
			overlap = 1 / float64(n)
		}
		return overlap*c.Params.OverlapWeight + area
	}

	return prev.Centroid.Distance(cur.Centroid)*c.Params.DistanceWeight + area
}

// Matrix returns the len(prev) rows of len(cur) costs.  Rows are computed
// in parallel.
func (c *CostModel) Matrix(prev []*result.Instance, cur []result.Instance) [][]float64 {

	rows := len(prev)
	costs := make([][]float64, rows)

	if rows == 0 {
		return costs
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > rows {
		numWorkers = rows
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	// each worker handles rows i = w, w+numWorkers, w+2*numWorkers
	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer wg.Done()

			for i := w; i < rows; i += numWorkers {
				row := make([]float64, len(cur))

				for j := range cur {
					row[j] = c.Cost(prev[i], &cur[j])
				}

				costs[i] = row
			}
		}(w)
	}

	wg.Wait()

	return costs
}
