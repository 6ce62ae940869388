// Package markers provides the marker-position arrays shared by the analysis
// pipeline and the reshaping between marker space and feature space.
package markers

import (
	"fmt"

	"spider-pca/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// Dims is the number of spatial coordinates per marker.
const Dims = 3

// Frame is a (frames × markers × 3) array of marker positions stored
// row-major: coordinate c of marker m in frame f lives at (f*Markers+m)*3+c.
//
// Functions in this module treat a Frame as read-only and always return
// newly allocated results.
type Frame struct {
	Frames  int
	Markers int
	Data    []float64
}

// NewFrame allocates a zeroed frame array.
func NewFrame(frames, markers int) Frame {
	return Frame{
		Frames:  frames,
		Markers: markers,
		Data:    make([]float64, frames*markers*Dims),
	}
}

// FrameFromSlices builds a Frame from nested [frame][marker][coord] slices.
func FrameFromSlices(rows [][][]float64) (Frame, error) {
	if len(rows) == 0 {
		return Frame{}, fmt.Errorf("frame from slices: no frames: %w", ErrShape)
	}
	nMarkers := len(rows[0])
	f := NewFrame(len(rows), nMarkers)
	for i, row := range rows {
		if len(row) != nMarkers {
			return Frame{}, fmt.Errorf("frame %d has %d markers, want %d: %w", i, len(row), nMarkers, ErrShape)
		}
		for m, p := range row {
			if len(p) != Dims {
				return Frame{}, fmt.Errorf("frame %d marker %d has %d coordinates, want %d: %w", i, m, len(p), Dims, ErrShape)
			}
			copy(f.Data[f.offset(i, m):], p)
		}
	}
	return f, nil
}

// Validate checks that the dimensions are positive and agree with the data length.
func (f Frame) Validate() error {
	if f.Frames < 1 || f.Markers < 1 {
		return fmt.Errorf("frame array is %dx%dx%d: %w", f.Frames, f.Markers, Dims, ErrShape)
	}
	if len(f.Data) != f.Frames*f.Markers*Dims {
		return fmt.Errorf("frame data has %d values, want %d: %w",
			len(f.Data), f.Frames*f.Markers*Dims, ErrShape)
	}
	return nil
}

func (f Frame) offset(frame, marker int) int {
	return (frame*f.Markers + marker) * Dims
}

// At returns one coordinate.
func (f Frame) At(frame, marker, coord int) float64 {
	return f.Data[f.offset(frame, marker)+coord]
}

// Set writes one coordinate.
func (f Frame) Set(frame, marker, coord int, v float64) {
	f.Data[f.offset(frame, marker)+coord] = v
}

// Point returns the position of a marker in a frame.
func (f Frame) Point(frame, marker int) geometry.Point3D {
	return geometry.PointFromSlice(f.Data[f.offset(frame, marker):])
}

// SetPoint writes the position of a marker in a frame.
func (f Frame) SetPoint(frame, marker int, p geometry.Point3D) {
	o := f.offset(frame, marker)
	f.Data[o] = p.X
	f.Data[o+1] = p.Y
	f.Data[o+2] = p.Z
}

// Points returns the position of every marker in one frame.
func (f Frame) Points(frame int) []geometry.Point3D {
	out := make([]geometry.Point3D, f.Markers)
	for m := range out {
		out[m] = f.Point(frame, m)
	}
	return out
}

// Centroid returns the average marker position of one frame.
func (f Frame) Centroid(frame int) geometry.Point3D {
	return geometry.Centroid(f.Points(frame))
}

// Extent returns the bounding box of every marker over all frames.
func (f Frame) Extent() geometry.Box3D {
	pts := make([]geometry.Point3D, 0, f.Frames*f.Markers)
	for fr := 0; fr < f.Frames; fr++ {
		pts = append(pts, f.Points(fr)...)
	}
	return geometry.BoundingBox(pts)
}

// Marker returns the (x, y, z) slice of a marker in a frame. The slice
// aliases the frame data.
func (f Frame) Marker(frame, marker int) []float64 {
	o := f.offset(frame, marker)
	return f.Data[o : o+Dims]
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	out := Frame{Frames: f.Frames, Markers: f.Markers, Data: make([]float64, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// Select returns a new frame holding only the given marker columns, in order.
func (f Frame) Select(indices []int) (Frame, error) {
	out := NewFrame(f.Frames, len(indices))
	for j, idx := range indices {
		if idx < 0 || idx >= f.Markers {
			return Frame{}, fmt.Errorf("marker index %d out of range [0,%d): %w", idx, f.Markers, ErrIndex)
		}
		for fr := 0; fr < f.Frames; fr++ {
			copy(out.Marker(fr, j), f.Marker(fr, idx))
		}
	}
	return out, nil
}

// Rows returns a new frame holding frames [from, to).
func (f Frame) Rows(from, to int) (Frame, error) {
	if from < 0 || to > f.Frames || from >= to {
		return Frame{}, fmt.Errorf("frame range [%d,%d) outside [0,%d): %w", from, to, f.Frames, ErrIndex)
	}
	out := NewFrame(to-from, f.Markers)
	copy(out.Data, f.Data[f.offset(from, 0):f.offset(to, 0)])
	return out, nil
}

// MeanPose returns the single-frame average position of every marker.
func (f Frame) MeanPose() Frame {
	mean := NewFrame(1, f.Markers)
	if f.Frames == 0 {
		return mean
	}
	stride := f.Markers * Dims
	for fr := 0; fr < f.Frames; fr++ {
		floats.Add(mean.Data, f.Data[fr*stride:(fr+1)*stride])
	}
	floats.Scale(1/float64(f.Frames), mean.Data)
	return mean
}

// Scale returns a copy with every coordinate multiplied by k.
func (f Frame) Scale(k float64) Frame {
	out := f.Clone()
	floats.Scale(k, out.Data)
	return out
}

// Broadcast repeats a single-frame pose n times.
func (f Frame) Broadcast(n int) (Frame, error) {
	if f.Frames != 1 {
		return Frame{}, fmt.Errorf("broadcast needs a single frame, got %d: %w", f.Frames, ErrShape)
	}
	out := NewFrame(n, f.Markers)
	for fr := 0; fr < n; fr++ {
		copy(out.Data[out.offset(fr, 0):], f.Data)
	}
	return out, nil
}

// Equal reports whether two frames have identical shape and values.
func (f Frame) Equal(other Frame) bool {
	return f.Frames == other.Frames && f.Markers == other.Markers && floats.Equal(f.Data, other.Data)
}

// EqualApprox reports whether two frames have identical shape and values
// within an absolute or relative tolerance.
func (f Frame) EqualApprox(other Frame, tol float64) bool {
	return f.Frames == other.Frames && f.Markers == other.Markers &&
		floats.EqualApprox(f.Data, other.Data, tol)
}
