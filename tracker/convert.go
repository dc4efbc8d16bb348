package tracker

import (
	"fmt"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/postprocess/result"
)

// LabelMapToInstances takes a post processed label map and converts it
// into the tracker instance format using the given measurer
func LabelMapToInstances(m postprocess.RegionMeasurer, lm *result.LabelMap) ([]result.Instance, error) {

	instances, err := m.Measure(lm)
	if err != nil {
		return nil, fmt.Errorf("failed to measure label map: %w", err)
	}

	return instances, nil
}
