package legs

import (
	"fmt"

	"spider-pca/internal/markers"
	"spider-pca/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// Set is a (frames × legs × keypoints × 3) array stored row-major, with
// Names[leg][keypoint] giving the canonical marker name of each keypoint.
type Set struct {
	Frames    int
	Legs      int
	Keypoints int
	Data      []float64
	Names     [][]string
}

// NewSet allocates a zeroed set with the given names. Every leg must list
// the same number of keypoints.
func NewSet(frames int, names [][]string) (Set, error) {
	if len(names) == 0 || len(names[0]) == 0 {
		return Set{}, fmt.Errorf("new leg set: no keypoints: %w", markers.ErrShape)
	}
	k := len(names[0])
	for l, n := range names {
		if len(n) != k {
			return Set{}, fmt.Errorf("leg %d has %d keypoints, leg 1 has %d: %w", l+1, len(n), k, markers.ErrShape)
		}
	}
	return Set{
		Frames:    frames,
		Legs:      len(names),
		Keypoints: k,
		Data:      make([]float64, frames*len(names)*k*markers.Dims),
		Names:     cloneNames(names),
	}, nil
}

func cloneNames(names [][]string) [][]string {
	out := make([][]string, len(names))
	for i, n := range names {
		out[i] = append([]string(nil), n...)
	}
	return out
}

// Validate checks dimensions, data length and the names table.
func (s Set) Validate() error {
	if s.Frames < 1 || s.Legs < 1 || s.Keypoints < 1 {
		return fmt.Errorf("leg set is %dx%dx%dx%d: %w", s.Frames, s.Legs, s.Keypoints, markers.Dims, markers.ErrShape)
	}
	if len(s.Data) != s.Frames*s.Legs*s.Keypoints*markers.Dims {
		return fmt.Errorf("leg set data has %d values, want %d: %w",
			len(s.Data), s.Frames*s.Legs*s.Keypoints*markers.Dims, markers.ErrShape)
	}
	if len(s.Names) != s.Legs {
		return fmt.Errorf("leg set has %d name lists for %d legs: %w", len(s.Names), s.Legs, markers.ErrShape)
	}
	for l, n := range s.Names {
		if len(n) != s.Keypoints {
			return fmt.Errorf("leg %d has %d names for %d keypoints: %w", l+1, len(n), s.Keypoints, markers.ErrShape)
		}
	}
	return nil
}

func (s Set) offset(frame, leg, kp int) int {
	return ((frame*s.Legs+leg)*s.Keypoints + kp) * markers.Dims
}

// Keypoint returns the (x, y, z) slice of one keypoint. The slice aliases
// the set data.
func (s Set) Keypoint(frame, leg, kp int) []float64 {
	o := s.offset(frame, leg, kp)
	return s.Data[o : o+markers.Dims]
}

// Point returns the position of one keypoint.
func (s Set) Point(frame, leg, kp int) geometry.Point3D {
	return geometry.PointFromSlice(s.Keypoint(frame, leg, kp))
}

// SetPoint writes the position of one keypoint.
func (s Set) SetPoint(frame, leg, kp int, p geometry.Point3D) {
	copy(s.Keypoint(frame, leg, kp), p.Slice())
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	out := s
	out.Data = append([]float64(nil), s.Data...)
	out.Names = cloneNames(s.Names)
	return out
}

// Equal reports whether two sets have identical shape, names and values.
func (s Set) Equal(other Set) bool {
	if s.Frames != other.Frames || s.Legs != other.Legs || s.Keypoints != other.Keypoints {
		return false
	}
	if len(s.Names) != len(other.Names) {
		return false
	}
	for l := range s.Names {
		if len(s.Names[l]) != len(other.Names[l]) {
			return false
		}
		for k := range s.Names[l] {
			if s.Names[l][k] != other.Names[l][k] {
				return false
			}
		}
	}
	return floats.Equal(s.Data, other.Data)
}

// Leg returns one leg as a (frames × keypoints × 3) frame array.
func (s Set) Leg(leg int) markers.Frame {
	out := markers.NewFrame(s.Frames, s.Keypoints)
	for f := 0; f < s.Frames; f++ {
		for k := 0; k < s.Keypoints; k++ {
			copy(out.Marker(f, k), s.Keypoint(f, leg, k))
		}
	}
	return out
}

// AsSamples views every (frame, leg) pair as one sample, giving a
// (frames*legs × keypoints × 3) array for per-leg analysis.
func (s Set) AsSamples() markers.Frame {
	return markers.Frame{
		Frames:  s.Frames * s.Legs,
		Markers: s.Keypoints,
		Data:    append([]float64(nil), s.Data...),
	}
}

// AsFrame joins the legs of each frame, giving a
// (frames × legs*keypoints × 3) array.
func (s Set) AsFrame() markers.Frame {
	return markers.Frame{
		Frames:  s.Frames,
		Markers: s.Legs * s.Keypoints,
		Data:    append([]float64(nil), s.Data...),
	}
}

// SamplesToSet is the inverse of AsSamples.
func SamplesToSet(x markers.Frame, names [][]string) (Set, error) {
	if err := x.Validate(); err != nil {
		return Set{}, err
	}
	legs := len(names)
	if legs == 0 || x.Frames%legs != 0 {
		return Set{}, fmt.Errorf("%d samples do not split into %d legs: %w", x.Frames, legs, markers.ErrShape)
	}
	return fromFrameData(x.Frames/legs, x.Markers, x.Data, names)
}

// FrameToSet is the inverse of AsFrame.
func FrameToSet(x markers.Frame, names [][]string) (Set, error) {
	if err := x.Validate(); err != nil {
		return Set{}, err
	}
	legs := len(names)
	if legs == 0 || x.Markers%legs != 0 {
		return Set{}, fmt.Errorf("%d markers do not split into %d legs: %w", x.Markers, legs, markers.ErrShape)
	}
	return fromFrameData(x.Frames, x.Markers/legs, x.Data, names)
}

func fromFrameData(frames, keypoints int, data []float64, names [][]string) (Set, error) {
	s, err := NewSet(frames, names)
	if err != nil {
		return Set{}, err
	}
	if s.Keypoints != keypoints {
		return Set{}, fmt.Errorf("data has %d keypoints per leg, names have %d: %w", keypoints, s.Keypoints, markers.ErrShape)
	}
	copy(s.Data, data)
	return s, nil
}
