// Package scores synthesizes score trajectories and binds fitted scores to
// per-frame experiment metadata.
package scores

import (
	"fmt"
	"math"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Spread is the number of standard deviations either side of the mean that
// Range sweeps.
const Spread = 2.0

// Triangle returns n samples of a triangle wave rising from 0 to 1 and back
// to 0. The first and last samples are exactly 0.
func Triangle(n int) []float64 {
	w := make([]float64, n)
	if n < 3 {
		return w
	}
	half := float64(n-1) / 2
	for i := range w {
		w[i] = 1 - math.Abs(float64(i)-half)/half
	}
	return w
}

// Range generates numFrames rows of synthetic scores for animation. Each
// column sweeps a triangle wave between mean-2σ and mean+2σ of that column
// of scores (population σ), starting and ending at the low bound.
func Range(scores mat.Matrix, numFrames int) (*mat.Dense, error) {
	if scores == nil {
		return nil, fmt.Errorf("score range: nil scores: %w", markers.ErrInvalidInput)
	}
	if numFrames < 1 {
		return nil, fmt.Errorf("score range: %d frames: %w", numFrames, markers.ErrInvalidInput)
	}
	rows, cols := scores.Dims()

	lo := make([]float64, cols)
	hi := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, scores)
		mean, std := stat.PopMeanStdDev(col, nil)
		lo[j] = mean - Spread*std
		hi[j] = mean + Spread*std
	}

	wave := Triangle(numFrames)
	out := mat.NewDense(numFrames, cols, nil)
	for i, w := range wave {
		for j := 0; j < cols; j++ {
			out.Set(i, j, math.Min(lo[j]+(hi[j]-lo[j])*w, hi[j]))
		}
	}
	return out, nil
}

// Sweep is Range restricted to a single component: every other column is
// held at zero, the mean score.
func Sweep(scores mat.Matrix, component, numFrames int) (*mat.Dense, error) {
	out, err := Range(scores, numFrames)
	if err != nil {
		return nil, err
	}
	_, cols := out.Dims()
	if component < 0 || component >= cols {
		return nil, fmt.Errorf("score sweep: component %d out of range [0,%d): %w", component, cols, markers.ErrIndex)
	}
	for j := 0; j < cols; j++ {
		if j == component {
			continue
		}
		for i := 0; i < numFrames; i++ {
			out.Set(i, j, 0)
		}
	}
	return out, nil
}
