package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-orgtrack/postprocess"
	"github.com/swdee/go-orgtrack/tracker"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := Empty()
	require.NoError(t, cfg.Validate())

	lp, err := cfg.LabelParams()
	require.NoError(t, err)
	assert.Equal(t, postprocess.LabelDefaultParams(), lp)

	assert.Equal(t, postprocess.PostProcessDefaultParams(), cfg.PostProcessParams())

	tp, err := cfg.TrackerParams()
	require.NoError(t, err)
	assert.Equal(t, tracker.DefaultParams().Cost, tp.Cost)
	assert.Equal(t, 100.0, tp.CostOfNewOrganoid)
	assert.Equal(t, 20.0, tp.CostOfMissingOrganoid)
	assert.Equal(t, 10, tp.DeleteAfterMissing)
	assert.IsType(t, &tracker.LAPJV{}, tp.Solver)
}

func TestDefaultsMatchEmpty(t *testing.T) {
	a, err := Defaults().TrackerParams()
	require.NoError(t, err)

	b, err := Empty().TrackerParams()
	require.NoError(t, err)

	assert.Equal(t, b, a)
	assert.Equal(t, Empty().PostProcessParams(), Defaults().PostProcessParams())
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{
		"seed_strategy": "threshold",
		"seed_threshold": 0.9,
		"min_area": 50,
		"clear_border": true,
		"cost_mode": "overlap",
		"delete_tracks_after_missing": 2,
		"solver": "hungarian"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	lp, err := cfg.LabelParams()
	require.NoError(t, err)
	assert.Equal(t, postprocess.SeedThreshold, lp.SeedStrategy)
	assert.Equal(t, 0.9, lp.SeedThreshold)
	assert.Equal(t, 0.5, lp.ForegroundThreshold)

	pp := cfg.PostProcessParams()
	assert.Equal(t, 50, pp.MinArea)
	assert.True(t, pp.ClearBorder)
	assert.True(t, pp.FillHoles)

	tp, err := cfg.TrackerParams()
	require.NoError(t, err)
	assert.Equal(t, tracker.CostOverlap, tp.Cost.Mode)
	assert.Equal(t, 2, tp.DeleteAfterMissing)
	assert.IsType(t, &tracker.Hungarian{}, tp.Solver)
}

func TestLoadRejects(t *testing.T) {

	tests := []struct {
		name string
		file string
		body string
	}{
		{"extension", "run.yaml", `{}`},
		{"syntax", "run.json", `{"min_area": }`},
		{"unknown strategy", "run.json", `{"seed_strategy": "canny"}`},
		{"seed below foreground", "run.json", `{"seed_strategy": "threshold", "seed_threshold": 0.3}`},
		{"negative area", "run.json", `{"min_area": -4}`},
		{"unknown solver", "run.json", `{"solver": "greedy"}`},
		{"unknown cost mode", "run.json", `{"cost_mode": "iou"}`},
		{"negative weight", "run.json", `{"area_cost": -2}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.file, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.json")
	require.NoError(t, Defaults().Save(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
