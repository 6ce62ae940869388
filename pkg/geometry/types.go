// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"fmt"
	"math"
)

// Axis indices for the three spatial coordinates.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Point3D represents a 3D point with floating-point coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PointFromSlice builds a point from the first three values of v.
func PointFromSlice(v []float64) Point3D {
	return Point3D{X: v[0], Y: v[1], Z: v[2]}
}

// Distance returns the Euclidean distance to another point.
func (p Point3D) Distance(other Point3D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Add returns the sum of two points.
func (p Point3D) Add(other Point3D) Point3D {
	return Point3D{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Sub returns the difference of two points.
func (p Point3D) Sub(other Point3D) Point3D {
	return Point3D{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Scale returns the point scaled by a factor.
func (p Point3D) Scale(factor float64) Point3D {
	return Point3D{X: p.X * factor, Y: p.Y * factor, Z: p.Z * factor}
}

// Coord returns the coordinate along axis (AxisX, AxisY or AxisZ).
func (p Point3D) Coord(axis int) float64 {
	switch axis {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	case AxisZ:
		return p.Z
	}
	panic(fmt.Sprintf("geometry: invalid axis %d", axis))
}

// Reflect returns the point mirrored across the plane normal to axis.
func (p Point3D) Reflect(axis int) Point3D {
	switch axis {
	case AxisX:
		p.X = -p.X
	case AxisY:
		p.Y = -p.Y
	case AxisZ:
		p.Z = -p.Z
	default:
		panic(fmt.Sprintf("geometry: invalid axis %d", axis))
	}
	return p
}

// Slice returns the coordinates as a 3-element slice.
func (p Point3D) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// ValidAxis reports whether axis names one of the three coordinates.
func ValidAxis(axis int) bool {
	return axis >= AxisX && axis <= AxisZ
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point3D) Point3D {
	if len(points) == 0 {
		return Point3D{}
	}
	var sum Point3D
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// Box3D is an axis-aligned bounding box.
type Box3D struct {
	Min Point3D `json:"min"`
	Max Point3D `json:"max"`
}

// Size returns the extent of the box along each axis.
func (b Box3D) Size() Point3D {
	return b.Max.Sub(b.Min)
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point3D) Box3D {
	if len(points) == 0 {
		return Box3D{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = Point3D{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = Point3D{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return Box3D{Min: lo, Max: hi}
}
