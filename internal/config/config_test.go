package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spider-pca/internal/analysis"
	"spider-pca/internal/markers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Anatomy.NumLegs)
	assert.Equal(t, analysis.PoolLegs, cfg.Analysis.Pooling)
	assert.True(t, strings.HasSuffix(DefaultPath(), filepath.Join("spider-pca", "config.yaml")))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Anatomy, cfg.Anatomy)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
anatomy:
  num_legs: 4
  keypoints_per_leg: 3
  bilateral_pairs: [[1, 3], [2, 4]]
loader:
  species: Aphonopelma
analysis:
  pooling: bilateral
  animation_frames: 30
  components: [0, 1, 2]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Anatomy.NumLegs)
	assert.Equal(t, 3, cfg.Anatomy.KeypointsPerLeg)
	assert.Equal(t, [][2]int{{1, 3}, {2, 4}}, cfg.Anatomy.BilateralPairs)
	assert.Equal(t, "coxa", cfg.Anatomy.CoxaToken, "unset fields keep their defaults")
	assert.Equal(t, "Aphonopelma", cfg.Loader.Species)
	assert.True(t, cfg.Loader.RescaleMetres)
	assert.Equal(t, analysis.PoolBilateral, cfg.Analysis.Pooling)
	assert.Equal(t, 30, cfg.Analysis.AnimationFrames)
	assert.Equal(t, []int{0, 1, 2}, cfg.Analysis.Components)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad pooling", "analysis:\n  pooling: tail\n"},
		{"zero legs", "anatomy:\n  num_legs: 0\n"},
		{"lateral axis", "anatomy:\n  lateral_axis: 3\n"},
		{"negative component", "analysis:\n  components: [-1]\n"},
		{"pair outside legs", "anatomy:\n  num_legs: 4\n  bilateral_pairs: [[1, 5]]\n"},
		{"not yaml", "anatomy: [unclosed\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestAnatomyRulesAreChecked(t *testing.T) {
	cfg := Default()
	cfg.Anatomy.BilateralPairs = [][2]int{{1, 5}, {5, 2}}
	assert.ErrorIs(t, cfg.Validate(), markers.ErrInvalidInput)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Pooling = analysis.PoolBody
	cfg.Loader.Species = "Grammostola"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, cfg.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
