package pca

import (
	"fmt"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitTransform fits a full-rank principal basis to features (frames × 3M)
// and returns the model together with the scores of project. When project
// is nil the fitting data itself is scored; otherwise project is scored
// against the basis learned from features without refitting.
//
// The basis is always square. When there are fewer frames than feature
// columns the trailing components carry zero variance.
func FitTransform(features, project *mat.Dense) (*Model, *mat.Dense, error) {
	if features == nil {
		return nil, nil, fmt.Errorf("fit: nil features: %w", markers.ErrInvalidInput)
	}
	n, d := features.Dims()
	if d == 0 || d%markers.Dims != 0 {
		return nil, nil, fmt.Errorf("fit: %d feature columns is not a multiple of %d: %w", d, markers.Dims, markers.ErrShape)
	}
	if project == nil {
		project = features
	} else if _, pc := project.Dims(); pc != d {
		return nil, nil, fmt.Errorf("fit: projection data has %d columns, fit data %d: %w", pc, d, markers.ErrShape)
	}

	mean := columnMeans(features)
	centered := mat.DenseCopyOf(features)
	for i := 0; i < n; i++ {
		floats.Sub(centered.RawRowView(i), mean)
	}

	basis, variances, err := principalAxes(centered)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	orientComponents(basis)

	meanPose := markers.Frame{Frames: 1, Markers: d / markers.Dims, Data: mean}
	model := newModel(basis, meanPose, variances)

	scores, err := model.Transform(project)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	pr, _ := project.Dims()
	if err := checkFitOutput(pr, d, basis, scores); err != nil {
		return nil, nil, err
	}
	return model, scores, nil
}

// FitMarkers flattens x (and project, when given) and runs FitTransform.
func FitMarkers(x markers.Frame, project *markers.Frame) (*Model, *mat.Dense, error) {
	features, err := markers.Flatten(x)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	var target *mat.Dense
	if project != nil {
		if project.Markers != x.Markers {
			return nil, nil, fmt.Errorf("fit: projection data has %d markers, fit data %d: %w",
				project.Markers, x.Markers, markers.ErrShape)
		}
		target, err = markers.Flatten(*project)
		if err != nil {
			return nil, nil, fmt.Errorf("fit: projection data: %w", err)
		}
	}
	return FitTransform(features, target)
}

func columnMeans(m *mat.Dense) []float64 {
	n, d := m.Dims()
	mean := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, m)
		mean[j] = stat.Mean(col, nil)
	}
	return mean
}

// varianceDenominator is the sample-variance divisor used for explained
// variance. A single frame has no spread, so it divides by one.
func varianceDenominator(n int) float64 {
	if n < 2 {
		return 1
	}
	return float64(n - 1)
}

func checkFitOutput(frames, features int, basis, scores *mat.Dense) error {
	br, bc := basis.Dims()
	if br != features || bc != features {
		return fmt.Errorf("basis is %dx%d, want %dx%d: %w", br, bc, features, features, markers.ErrValidation)
	}
	sr, sc := scores.Dims()
	if sr != frames {
		return fmt.Errorf("scores have %d rows, want %d: %w", sr, frames, markers.ErrValidation)
	}
	if sc != features {
		return fmt.Errorf("scores have %d columns, want %d: %w", sc, features, markers.ErrValidation)
	}
	return nil
}
