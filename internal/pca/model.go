// Package pca fits principal component bases to flattened marker data and
// maps between feature space and score space.
package pca

import (
	"fmt"
	"math"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is a fitted principal basis together with the mean pose that was
// subtracted before the fit. A Model never changes after construction.
type Model struct {
	basis     *mat.Dense // components × features, one component per row
	mean      markers.Frame
	meanRow   []float64
	variances []float64

	// names labels the markers of one sample; nil when unknown.
	names []string
}

// NewModel assembles a Model from previously fitted parts, as stored by a
// project file. The basis must be square with a side of mean.Markers*3.
func NewModel(basis *mat.Dense, mean markers.Frame, variances []float64) (*Model, error) {
	if basis == nil {
		return nil, fmt.Errorf("new model: nil basis: %w", markers.ErrInvalidInput)
	}
	if err := mean.Validate(); err != nil || mean.Frames != 1 {
		return nil, fmt.Errorf("new model: mean must be a single-frame pose: %w", markers.ErrInvalidInput)
	}
	r, c := basis.Dims()
	d := mean.Markers * markers.Dims
	if r != d || c != d {
		return nil, fmt.Errorf("new model: basis is %dx%d, want %dx%d: %w", r, c, d, d, markers.ErrShape)
	}
	if len(variances) != d {
		return nil, fmt.Errorf("new model: %d variances for %d components: %w", len(variances), d, markers.ErrShape)
	}
	return newModel(mat.DenseCopyOf(basis), mean.Clone(), append([]float64(nil), variances...)), nil
}

func newModel(basis *mat.Dense, mean markers.Frame, variances []float64) *Model {
	return &Model{
		basis:     basis,
		mean:      mean,
		meanRow:   mean.Data,
		variances: variances,
	}
}

// Components returns the number of principal components (equal to the
// number of feature columns).
func (m *Model) Components() int {
	r, _ := m.basis.Dims()
	return r
}

// Markers returns the number of markers the model was fitted on.
func (m *Model) Markers() int { return m.mean.Markers }

// WithNames returns a copy of the model that records the marker name of
// each sample column. The copy shares the fitted arrays with m.
func (m *Model) WithNames(names []string) (*Model, error) {
	if len(names) != m.Markers() {
		return nil, fmt.Errorf("model names: %d names for %d markers: %w", len(names), m.Markers(), markers.ErrShape)
	}
	out := *m
	out.names = append([]string(nil), names...)
	return &out, nil
}

// Names returns the marker names of one sample, or nil if the model was
// built without them.
func (m *Model) Names() []string {
	if m.names == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

// CheckNames reports whether samples whose markers are named names line up
// with the model columns. A model without names only checks the count.
func (m *Model) CheckNames(names []string) error {
	if len(names) != m.Markers() {
		return fmt.Errorf("samples have %d markers, model %d: %w", len(names), m.Markers(), markers.ErrShape)
	}
	for i, want := range m.names {
		if names[i] != want {
			return fmt.Errorf("sample marker %d is %q, model expects %q: %w", i, names[i], want, markers.ErrInvalidInput)
		}
	}
	return nil
}

// Basis returns a copy of the principal basis, one component per row.
func (m *Model) Basis() *mat.Dense { return mat.DenseCopyOf(m.basis) }

// Component returns a copy of one basis row.
func (m *Model) Component(i int) []float64 { return mat.Row(nil, i, m.basis) }

// Mean returns a copy of the (1 × M × 3) mean pose.
func (m *Model) Mean() markers.Frame { return m.mean.Clone() }

// Variances returns the explained variance of each component.
func (m *Model) Variances() []float64 {
	return append([]float64(nil), m.variances...)
}

// ExplainedVarianceRatio returns each component's share of total variance.
// All shares are zero when the fitted data had no variance.
func (m *Model) ExplainedVarianceRatio() []float64 {
	ratio := m.Variances()
	total := floats.Sum(ratio)
	if total == 0 {
		return make([]float64, len(ratio))
	}
	floats.Scale(1/total, ratio)
	return ratio
}

// CumulativeVarianceRatio returns the running sum of ExplainedVarianceRatio.
func (m *Model) CumulativeVarianceRatio() []float64 {
	ratio := m.ExplainedVarianceRatio()
	return floats.CumSum(ratio, ratio)
}

// ComponentsFor returns the smallest number of leading components whose
// cumulative explained variance reaches frac.
func (m *Model) ComponentsFor(frac float64) int {
	cum := m.CumulativeVarianceRatio()
	for i, c := range cum {
		if c >= frac-1e-12 {
			return i + 1
		}
	}
	return len(cum)
}

// Transform projects a feature matrix onto the basis.
func (m *Model) Transform(features mat.Matrix) (*mat.Dense, error) {
	if features == nil {
		return nil, fmt.Errorf("transform: nil features: %w", markers.ErrInvalidInput)
	}
	rows, cols := features.Dims()
	if cols != len(m.meanRow) {
		return nil, fmt.Errorf("transform: features have %d columns, model expects %d: %w",
			cols, len(m.meanRow), markers.ErrShape)
	}
	centered := mat.DenseCopyOf(features)
	for i := 0; i < rows; i++ {
		floats.Sub(centered.RawRowView(i), m.meanRow)
	}
	var scores mat.Dense
	scores.Mul(centered, m.basis.T())
	return &scores, nil
}

// TransformMarkers flattens a frame array and projects it onto the basis.
func (m *Model) TransformMarkers(x markers.Frame) (*mat.Dense, error) {
	features, err := markers.Flatten(x)
	if err != nil {
		return nil, err
	}
	return m.Transform(features)
}

// Reconstruct maps scores back to marker space using the listed components.
func (m *Model) Reconstruct(scores mat.Matrix, components []int) (markers.Frame, error) {
	return Reconstruct(scores, m.basis, m.mean, components)
}

// orientComponents flips each basis row so that its largest-magnitude entry
// is positive. SVD signs are arbitrary; this makes fits reproducible.
func orientComponents(basis *mat.Dense) {
	r, _ := basis.Dims()
	for i := 0; i < r; i++ {
		row := basis.RawRowView(i)
		best := 0.0
		for _, v := range row {
			if math.Abs(v) > math.Abs(best) {
				best = v
			}
		}
		if best < 0 {
			floats.Scale(-1, row)
		}
	}
}
