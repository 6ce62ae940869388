package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spider-pca/internal/analysis"
	"spider-pca/internal/legs"
	"spider-pca/internal/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSynthetic writes a synthetic walk in millimetres with metadata
// columns, the layout the loader expects from an export.
func writeSynthetic(t *testing.T, dir string) string {
	t.Helper()
	ds, err := analysis.SyntheticSpider(40, legs.DefaultAnatomy(), 3)
	require.NoError(t, err)
	mm := ds.Markers.Scale(1000)

	path := filepath.Join(dir, "walk.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, loader.WriteMarkers(f, ds.Names, mm))
	require.NoError(t, f.Close())
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "absent.yaml")
	return run(append([]string{"--config", cfg, "--log-level", "error"}, args...))
}

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFitWritesScoresAndModel(t *testing.T) {
	dir := t.TempDir()
	data := writeSynthetic(t, dir)
	scoresPath := filepath.Join(dir, "scores.csv")
	modelPath := filepath.Join(dir, "legs.spca.json")

	require.NoError(t, runCLI(t, "fit", data, "-o", scoresPath, "--model", modelPath))

	records := readTable(t, scoresPath)
	require.Len(t, records, 1+40*8)
	assert.Equal(t, "PC1", records[0][0])
	assert.Equal(t, "leg", records[0][len(records[0])-1])
	assert.FileExists(t, modelPath)

	again := filepath.Join(dir, "projected.csv")
	require.NoError(t, runCLI(t, "--reference", modelPath, "fit", data, "-o", again))
	assert.Len(t, readTable(t, again), 1+40*8)
}

func TestReconstructAndAnimate(t *testing.T) {
	dir := t.TempDir()
	data := writeSynthetic(t, dir)

	recPath := filepath.Join(dir, "rec.csv")
	require.NoError(t, runCLI(t, "--pooling", "bilateral", "reconstruct", data, "-c", "0,1", "-o", recPath))
	rec := readTable(t, recPath)
	require.Len(t, rec, 41)
	assert.Equal(t, "frame", rec[0][0])
	assert.Len(t, rec[0], 1+34*3)

	animPath := filepath.Join(dir, "anim.csv")
	require.NoError(t, runCLI(t, "animate", data, "--component", "1", "--frames", "12", "-o", animPath))
	assert.Len(t, readTable(t, animPath), 13)
}

func TestCLIErrors(t *testing.T) {
	dir := t.TempDir()
	data := writeSynthetic(t, dir)

	assert.Error(t, runCLI(t, "fit"))
	assert.Error(t, runCLI(t, "fit", filepath.Join(dir, "missing.csv")))
	assert.Error(t, runCLI(t, "--pooling", "tails", "fit", data, "-o", filepath.Join(dir, "x.csv")))
	assert.Error(t, runCLI(t, "animate", data, "--component", "99", "-o", filepath.Join(dir, "y.csv")))

	err := runCLI(t, "--log-level", "shouting", "fit", data)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "shouting"))
}
