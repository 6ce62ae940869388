package project

import (
	"os"
	"path/filepath"
	"testing"

	"spider-pca/internal/legs"
	"spider-pca/internal/markers"
	"spider-pca/internal/pca"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func fittedModel(t *testing.T) *pca.Model {
	t.Helper()
	x := markers.NewFrame(6, 2)
	for i := range x.Data {
		x.Data[i] = float64((i*7)%11) / 4
	}
	m, _, err := pca.FitMarkers(x, nil)
	require.NoError(t, err)
	return m
}

func TestSaveLoadModel(t *testing.T) {
	m := fittedModel(t)
	f, err := New("legs", m, []string{"leg1_tip", "leg1_coxa"})
	require.NoError(t, err)
	f.Anatomy = legs.DefaultAnatomy()
	f.Pooling = "legs"

	dir := t.TempDir()
	path := filepath.Join(dir, "models", "legs.spca.json")
	f.SetSource(path, filepath.Join(dir, "data", "walk.csv"))
	assert.Equal(t, filepath.Join("..", "data", "walk.csv"), f.SourcePath)
	require.NoError(t, f.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, loaded.Version)
	assert.Equal(t, f.MarkerNames, loaded.MarkerNames)
	assert.Equal(t, f.Anatomy, loaded.Anatomy)
	assert.Equal(t, filepath.Join(dir, "data", "walk.csv"), loaded.GetSourcePath(path))

	got, err := loaded.Model()
	require.NoError(t, err)
	assert.True(t, mat.Equal(m.Basis(), got.Basis()))
	assert.True(t, m.Mean().Equal(got.Mean()))
	assert.Equal(t, m.Variances(), got.Variances())
	assert.Equal(t, []string{"leg1_tip", "leg1_coxa"}, got.Names())
}

func TestNewValidation(t *testing.T) {
	_, err := New("x", nil, nil)
	assert.ErrorIs(t, err, markers.ErrInvalidInput)

	_, err = New("x", fittedModel(t), []string{"only_one"})
	assert.ErrorIs(t, err, markers.ErrShape)
}

func TestModelRejectsBrokenFiles(t *testing.T) {
	f, err := New("legs", fittedModel(t), []string{"a", "b"})
	require.NoError(t, err)

	ragged := *f
	ragged.Basis = append([][]float64{{1}}, f.Basis[1:]...)
	_, err = ragged.Model()
	assert.ErrorIs(t, err, markers.ErrShape)

	empty := *f
	empty.Basis = nil
	_, err = empty.Model()
	assert.ErrorIs(t, err, markers.ErrShape)

	names := *f
	names.MarkerNames = []string{"a"}
	_, err = names.Model()
	assert.ErrorIs(t, err, markers.ErrShape)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 99}`), 0o644))
	_, err = Load(future)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{`), 0o644))
	_, err = Load(garbage)
	assert.Error(t, err)
}
