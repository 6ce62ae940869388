package legs

import (
	"fmt"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/floats"
)

// CoxaCenter expresses every keypoint relative to the last keypoint of its
// leg, the coxa by positional convention. The subtracted positions are
// returned as a (frames × legs × 3) array for Uncenter.
func CoxaCenter(s Set) (Set, markers.Frame, error) {
	if err := s.Validate(); err != nil {
		return Set{}, markers.Frame{}, fmt.Errorf("coxa center: %w", err)
	}
	out := s.Clone()
	coxa := markers.NewFrame(s.Frames, s.Legs)
	last := s.Keypoints - 1
	for f := 0; f < s.Frames; f++ {
		for l := 0; l < s.Legs; l++ {
			c := coxa.Marker(f, l)
			copy(c, s.Keypoint(f, l, last))
			for k := 0; k < s.Keypoints; k++ {
				floats.Sub(out.Keypoint(f, l, k), c)
			}
		}
	}
	return out, coxa, nil
}

// Uncenter adds the coxa positions from CoxaCenter back to every keypoint.
func Uncenter(s Set, coxa markers.Frame) (Set, error) {
	if err := s.Validate(); err != nil {
		return Set{}, fmt.Errorf("uncenter: %w", err)
	}
	if err := coxa.Validate(); err != nil {
		return Set{}, fmt.Errorf("uncenter: coxa positions: %w", err)
	}
	if coxa.Frames != s.Frames || coxa.Markers != s.Legs {
		return Set{}, fmt.Errorf("uncenter: coxa positions are %dx%d, leg set has %d frames and %d legs: %w",
			coxa.Frames, coxa.Markers, s.Frames, s.Legs, markers.ErrShape)
	}
	out := s.Clone()
	for f := 0; f < s.Frames; f++ {
		for l := 0; l < s.Legs; l++ {
			c := coxa.Marker(f, l)
			for k := 0; k < s.Keypoints; k++ {
				floats.Add(out.Keypoint(f, l, k), c)
			}
		}
	}
	return out, nil
}

// ReflectBilateral negates the lateral coordinate of every contralateral leg
// (the second member of each bilateral pair), mapping that side onto the
// other side's convention. Applying it twice restores the input.
func ReflectBilateral(s Set, a Anatomy) (Set, error) {
	if err := a.Validate(); err != nil {
		return Set{}, err
	}
	if err := s.Validate(); err != nil {
		return Set{}, fmt.Errorf("reflect: %w", err)
	}
	if s.Legs != a.NumLegs {
		return Set{}, fmt.Errorf("reflect: leg set has %d legs, anatomy %d: %w", s.Legs, a.NumLegs, markers.ErrShape)
	}
	out := s.Clone()
	for _, p := range a.BilateralPairs {
		l := p[1] - 1
		for f := 0; f < s.Frames; f++ {
			for k := 0; k < s.Keypoints; k++ {
				out.SetPoint(f, l, k, out.Point(f, l, k).Reflect(a.LateralAxis))
			}
		}
	}
	return out, nil
}

// CombineBilateral stacks the contralateral legs below the ipsilateral ones
// along the frame axis: the result has 2*frames rows and one leg per
// bilateral pair, named after the ipsilateral leg. Undo it with
// SplitBilateral, which needs the original frame count.
func CombineBilateral(s Set, a Anatomy) (Set, error) {
	if err := a.Validate(); err != nil {
		return Set{}, err
	}
	if err := s.Validate(); err != nil {
		return Set{}, fmt.Errorf("combine: %w", err)
	}
	if s.Legs != a.NumLegs {
		return Set{}, fmt.Errorf("combine: leg set has %d legs, anatomy %d: %w", s.Legs, a.NumLegs, markers.ErrShape)
	}
	if !a.coversAllLegs() {
		return Set{}, fmt.Errorf("combine: %d bilateral pairs do not cover %d legs: %w",
			len(a.BilateralPairs), a.NumLegs, markers.ErrInvalidInput)
	}

	names := make([][]string, len(a.BilateralPairs))
	for i, p := range a.BilateralPairs {
		names[i] = s.Names[p[0]-1]
	}
	out, err := NewSet(2*s.Frames, names)
	if err != nil {
		return Set{}, fmt.Errorf("combine: %w", err)
	}
	for half := 0; half < 2; half++ {
		for i, p := range a.BilateralPairs {
			src := p[half] - 1
			for f := 0; f < s.Frames; f++ {
				for k := 0; k < s.Keypoints; k++ {
					copy(out.Keypoint(half*s.Frames+f, i, k), s.Keypoint(f, src, k))
				}
			}
		}
	}
	return out, nil
}

// SplitBilateral reverses CombineBilateral. frames is the frame count of the
// set before combining and names its per-leg name table.
func SplitBilateral(combined Set, frames int, names [][]string, a Anatomy) (Set, error) {
	if err := a.Validate(); err != nil {
		return Set{}, err
	}
	if err := combined.Validate(); err != nil {
		return Set{}, fmt.Errorf("split: %w", err)
	}
	if !a.coversAllLegs() {
		return Set{}, fmt.Errorf("split: %d bilateral pairs do not cover %d legs: %w",
			len(a.BilateralPairs), a.NumLegs, markers.ErrInvalidInput)
	}
	if combined.Frames != 2*frames || combined.Legs != len(a.BilateralPairs) {
		return Set{}, fmt.Errorf("split: combined set is %d frames x %d legs, want %d x %d: %w",
			combined.Frames, combined.Legs, 2*frames, len(a.BilateralPairs), markers.ErrShape)
	}
	if len(names) != a.NumLegs {
		return Set{}, fmt.Errorf("split: %d name lists for %d legs: %w", len(names), a.NumLegs, markers.ErrShape)
	}
	out, err := NewSet(frames, names)
	if err != nil {
		return Set{}, fmt.Errorf("split: %w", err)
	}
	if out.Keypoints != combined.Keypoints {
		return Set{}, fmt.Errorf("split: names have %d keypoints, combined set %d: %w",
			out.Keypoints, combined.Keypoints, markers.ErrShape)
	}
	for half := 0; half < 2; half++ {
		for i, p := range a.BilateralPairs {
			dst := p[half] - 1
			for f := 0; f < frames; f++ {
				for k := 0; k < combined.Keypoints; k++ {
					copy(out.Keypoint(f, dst, k), combined.Keypoint(half*frames+f, i, k))
				}
			}
		}
	}
	return out, nil
}
