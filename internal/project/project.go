// Package project provides model file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spider-pca/internal/legs"
	"spider-pca/internal/markers"
	"spider-pca/internal/pca"

	"gonum.org/v1/gonum/mat"
)

// FormatVersion is the current model file version.
const FormatVersion = 1

// File is a fitted model saved as JSON (.spca.json) so later recordings
// can be scored against the same basis.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Marker table the model was fitted on (relative to the model file)
	SourcePath string `json:"source,omitempty"`

	// How samples were prepared
	Anatomy    legs.Anatomy `json:"anatomy"`
	Pooling    string       `json:"pooling"`
	CoxaCenter bool         `json:"coxa_center"`
	Reflect    bool         `json:"reflect"`

	// Marker names of one sample, in model column order
	MarkerNames []string `json:"marker_names"`

	// Model
	Basis     [][]float64 `json:"basis"`
	Mean      []float64   `json:"mean"`
	Variances []float64   `json:"variances"`
}

// New creates a model file from a fitted model.
func New(name string, m *pca.Model, markerNames []string) (*File, error) {
	if m == nil {
		return nil, fmt.Errorf("new model file: nil model: %w", markers.ErrInvalidInput)
	}
	if len(markerNames) != m.Markers() {
		return nil, fmt.Errorf("new model file: %d names for %d markers: %w",
			len(markerNames), m.Markers(), markers.ErrShape)
	}
	basis := m.Basis()
	rows, _ := basis.Dims()
	now := time.Now()
	f := &File{
		Version:     FormatVersion,
		Name:        name,
		Created:     now,
		Modified:    now,
		MarkerNames: append([]string(nil), markerNames...),
		Basis:       make([][]float64, rows),
		Mean:        m.Mean().Data,
		Variances:   m.Variances(),
	}
	for i := range f.Basis {
		f.Basis[i] = mat.Row(nil, i, basis)
	}
	return f, nil
}

// Model rebuilds the fitted model.
func (p *File) Model() (*pca.Model, error) {
	if len(p.Basis) == 0 {
		return nil, fmt.Errorf("model file %q: empty basis: %w", p.Name, markers.ErrShape)
	}
	d := len(p.Basis[0])
	data := make([]float64, 0, len(p.Basis)*d)
	for i, row := range p.Basis {
		if len(row) != d {
			return nil, fmt.Errorf("model file %q: basis row %d has %d entries, want %d: %w",
				p.Name, i, len(row), d, markers.ErrShape)
		}
		data = append(data, row...)
	}
	if len(p.Mean)%markers.Dims != 0 {
		return nil, fmt.Errorf("model file %q: mean has %d values: %w", p.Name, len(p.Mean), markers.ErrShape)
	}
	mean := markers.Frame{Frames: 1, Markers: len(p.Mean) / markers.Dims, Data: p.Mean}
	m, err := pca.NewModel(mat.NewDense(len(p.Basis), d, data), mean, p.Variances)
	if err != nil {
		return nil, fmt.Errorf("model file %q: %w", p.Name, err)
	}
	if len(p.MarkerNames) != m.Markers() {
		return nil, fmt.Errorf("model file %q: %d marker names for %d markers: %w",
			p.Name, len(p.MarkerNames), m.Markers(), markers.ErrShape)
	}
	return m.WithNames(p.MarkerNames)
}

// Load loads a model file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing model file %s: %w", path, err)
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("model file %s has version %d, newest supported is %d", path, f.Version, FormatVersion)
	}
	return &f, nil
}

// Save saves the model file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetSource records the marker table path relative to the model file.
func (p *File) SetSource(modelPath, sourcePath string) {
	rel, err := filepath.Rel(filepath.Dir(modelPath), sourcePath)
	if err != nil {
		p.SourcePath = sourcePath
	} else {
		p.SourcePath = rel
	}
	p.Modified = time.Now()
}

// GetSourcePath returns the absolute path to the marker table.
func (p *File) GetSourcePath(modelPath string) string {
	if p.SourcePath == "" {
		return ""
	}
	if filepath.IsAbs(p.SourcePath) {
		return p.SourcePath
	}
	return filepath.Join(filepath.Dir(modelPath), p.SourcePath)
}
