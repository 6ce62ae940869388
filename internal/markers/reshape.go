package markers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Flatten turns a (F × M × 3) frame array into an (F × 3M) feature matrix.
// Column m*3+c of the result holds coordinate c of marker m.
func Flatten(f Frame) (*mat.Dense, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return mat.NewDense(f.Frames, f.Markers*Dims, data), nil
}

// Unflatten is the inverse of Flatten.
func Unflatten(features mat.Matrix, nMarkers int) (Frame, error) {
	rows, cols := features.Dims()
	if nMarkers < 1 || cols != nMarkers*Dims {
		return Frame{}, fmt.Errorf("unflatten: %d columns cannot hold %d markers: %w", cols, nMarkers, ErrShape)
	}
	out := NewFrame(rows, nMarkers)
	dst := mat.NewDense(rows, cols, out.Data)
	dst.Copy(features)
	return out, nil
}
