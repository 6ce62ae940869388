package pca

import (
	"fmt"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Reconstruct maps scores (frames × components) back to marker space:
// scores[:, components] · basis[components, :] reshaped to (frames × M × 3)
// plus the mean pose. A nil components list uses every component in order.
//
// Reconstructing with every component inverts the projection up to floating
// point error. Using a subset gives the lossy approximation that shows what
// those components capture.
func Reconstruct(scores, basis mat.Matrix, mean markers.Frame, components []int) (markers.Frame, error) {
	if scores == nil || basis == nil {
		return markers.Frame{}, fmt.Errorf("reconstruct: nil scores or basis: %w", markers.ErrInvalidInput)
	}
	frames, scoreCols := scores.Dims()
	nComp, features := basis.Dims()
	if scoreCols != nComp {
		return markers.Frame{}, fmt.Errorf("reconstruct: scores have %d columns, basis has %d components: %w",
			scoreCols, nComp, markers.ErrInvalidInput)
	}
	if err := mean.Validate(); err != nil || mean.Frames != 1 {
		return markers.Frame{}, fmt.Errorf("reconstruct: mean must be a (1 x M x 3) pose: %w", markers.ErrInvalidInput)
	}
	if mean.Markers*markers.Dims != features {
		return markers.Frame{}, fmt.Errorf("reconstruct: mean has %d markers, basis has %d features: %w",
			mean.Markers, features, markers.ErrInvalidInput)
	}
	if components == nil {
		components = make([]int, nComp)
		for i := range components {
			components[i] = i
		}
	}
	if len(components) > features {
		return markers.Frame{}, fmt.Errorf("reconstruct: %d components requested, basis has %d: %w",
			len(components), features, markers.ErrInvalidInput)
	}
	for _, c := range components {
		if c < 0 || c >= nComp {
			return markers.Frame{}, fmt.Errorf("reconstruct: component %d out of range [0,%d): %w", c, nComp, markers.ErrIndex)
		}
	}

	out, err := mean.Broadcast(frames)
	if err != nil {
		return markers.Frame{}, fmt.Errorf("reconstruct: %w", err)
	}
	if len(components) == 0 {
		return out, nil
	}

	selScores := mat.NewDense(frames, len(components), nil)
	selBasis := mat.NewDense(len(components), features, nil)
	for j, c := range components {
		for i := 0; i < frames; i++ {
			selScores.Set(i, j, scores.At(i, c))
		}
		selBasis.SetRow(j, mat.Row(nil, c, basis))
	}

	var deviation mat.Dense
	deviation.Mul(selScores, selBasis)

	floats.Add(out.Data, deviation.RawMatrix().Data)

	if out.Frames != frames || out.Markers != mean.Markers {
		return markers.Frame{}, fmt.Errorf("reconstruct: produced %dx%d, want %dx%d: %w",
			out.Frames, out.Markers, frames, mean.Markers, markers.ErrValidation)
	}
	return out, nil
}
