package legs

import (
	"fmt"

	"spider-pca/internal/markers"
)

// ExtractLeg returns the markers of one leg in canonical name order,
// together with their names.
func ExtractLeg(names []string, x markers.Frame, legID int, a Anatomy) (markers.Frame, []string, error) {
	as, err := NewAssignment(names, a)
	if err != nil {
		return markers.Frame{}, nil, err
	}
	if err := as.index.CheckFrame(x); err != nil {
		return markers.Frame{}, nil, fmt.Errorf("extract leg %d: %w", legID, err)
	}
	cols, err := as.LegMarkers(legID)
	if err != nil {
		return markers.Frame{}, nil, err
	}
	if len(cols) == 0 {
		return markers.Frame{}, nil, fmt.Errorf("extract leg %d: no markers: %w", legID, markers.ErrIndex)
	}
	leg, err := x.Select(cols)
	if err != nil {
		return markers.Frame{}, nil, err
	}
	legNames := make([]string, len(cols))
	for i, c := range cols {
		legNames[i] = names[c]
	}
	return leg, legNames, nil
}

// ExtractAllLegs stacks legs 1..NumLegs along a new leg axis. It also
// returns a copy of x in canonical order, the layout Recompose restores.
//
// Every leg must match at least one marker and all legs must have the same
// keypoint count (and equal KeypointsPerLeg when that is set).
func ExtractAllLegs(names []string, x markers.Frame, a Anatomy) (Set, markers.Frame, error) {
	as, err := NewAssignment(names, a)
	if err != nil {
		return Set{}, markers.Frame{}, err
	}
	if err := as.index.CheckFrame(x); err != nil {
		return Set{}, markers.Frame{}, fmt.Errorf("extract legs: %w", err)
	}

	legNames := make([][]string, a.NumLegs)
	for l := 0; l < a.NumLegs; l++ {
		cols := as.byLeg[l]
		if len(cols) == 0 {
			return Set{}, markers.Frame{}, fmt.Errorf("extract legs: no markers for leg %d: %w", l+1, markers.ErrIndex)
		}
		if a.KeypointsPerLeg > 0 && len(cols) != a.KeypointsPerLeg {
			return Set{}, markers.Frame{}, fmt.Errorf("extract legs: leg %d has %d keypoints, anatomy expects %d: %w",
				l+1, len(cols), a.KeypointsPerLeg, markers.ErrShape)
		}
		for _, c := range cols {
			legNames[l] = append(legNames[l], names[c])
		}
	}

	set, err := NewSet(x.Frames, legNames)
	if err != nil {
		return Set{}, markers.Frame{}, fmt.Errorf("extract legs: %w", err)
	}
	for f := 0; f < x.Frames; f++ {
		for l, cols := range as.byLeg {
			for k, c := range cols {
				copy(set.Keypoint(f, l, k), x.Marker(f, c))
			}
		}
	}
	return set, x.Clone(), nil
}

// Recompose is the inverse of ExtractAllLegs. For each canonical name:
//   - a non-coxa leg keypoint is taken from set;
//   - any other marker (body markers and every coxa) is taken from original
//     when it is given, otherwise from the single-frame reference pose
//     repeated over all frames.
//
// Coxa markers are never taken from set: they are the fixed hinge points a
// reconstruction does not predict.
func Recompose(set Set, canonical []string, reference markers.Frame, original *markers.Frame, a Anatomy) (markers.Frame, error) {
	if err := a.Validate(); err != nil {
		return markers.Frame{}, err
	}
	if err := set.Validate(); err != nil {
		return markers.Frame{}, fmt.Errorf("recompose: %w", err)
	}
	index, err := markers.NewNameIndex(canonical)
	if err != nil {
		return markers.Frame{}, fmt.Errorf("recompose: %w", err)
	}

	var fill markers.Frame
	if original != nil {
		if err := index.CheckFrame(*original); err != nil {
			return markers.Frame{}, fmt.Errorf("recompose: original markers: %w", err)
		}
		if original.Frames != set.Frames {
			return markers.Frame{}, fmt.Errorf("recompose: original has %d frames, leg set %d: %w",
				original.Frames, set.Frames, markers.ErrShape)
		}
		fill = *original
	} else {
		if err := index.CheckFrame(reference); err != nil {
			return markers.Frame{}, fmt.Errorf("recompose: reference pose: %w", err)
		}
		if reference.Frames != 1 {
			return markers.Frame{}, fmt.Errorf("recompose: reference pose has %d frames, want 1: %w",
				reference.Frames, markers.ErrShape)
		}
		if fill, err = reference.Broadcast(set.Frames); err != nil {
			return markers.Frame{}, fmt.Errorf("recompose: %w", err)
		}
	}

	type slot struct{ leg, kp int }
	fromSet := make(map[string]slot, set.Legs*set.Keypoints)
	for l, names := range set.Names {
		for k, name := range names {
			if _, dup := fromSet[name]; dup {
				return markers.Frame{}, fmt.Errorf("recompose: %q appears twice in the leg set: %w", name, markers.ErrIndex)
			}
			if _, ok := index.Index(name); !ok {
				return markers.Frame{}, fmt.Errorf("recompose: leg keypoint %q is not a canonical marker: %w", name, markers.ErrIndex)
			}
			fromSet[name] = slot{leg: l, kp: k}
		}
	}

	out := fill.Clone()
	for m, name := range canonical {
		s, ok := fromSet[name]
		if !ok || a.IsCoxa(name) {
			continue
		}
		for f := 0; f < set.Frames; f++ {
			out.SetPoint(f, m, set.Point(f, s.leg, s.kp))
		}
	}
	return out, nil
}
