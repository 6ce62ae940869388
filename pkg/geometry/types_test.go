package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint3DArithmetic(t *testing.T) {
	a := Point3D{X: 1, Y: 2, Z: 3}
	b := Point3D{X: 4, Y: 6, Z: 3}

	assert.Equal(t, Point3D{X: 5, Y: 8, Z: 6}, a.Add(b))
	assert.Equal(t, Point3D{X: -3, Y: -4, Z: 0}, a.Sub(b))
	assert.Equal(t, Point3D{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.InDelta(t, 5.0, a.Distance(b), 1e-12)
}

func TestReflectIsSelfInverse(t *testing.T) {
	p := Point3D{X: 0.5, Y: -1.25, Z: 3}
	for axis := AxisX; axis <= AxisZ; axis++ {
		r := p.Reflect(axis)
		assert.Equal(t, -p.Coord(axis), r.Coord(axis))
		assert.Equal(t, p, r.Reflect(axis))
	}
	assert.Panics(t, func() { p.Reflect(3) })
}

func TestCentroidAndBoundingBox(t *testing.T) {
	pts := []Point3D{{X: 0, Y: 0, Z: 0}, {X: 2, Y: -2, Z: 4}, {X: 1, Y: 5, Z: -1}}

	assert.Equal(t, Point3D{X: 1, Y: 1, Z: 1}, Centroid(pts))
	assert.Equal(t, Point3D{}, Centroid(nil))

	box := BoundingBox(pts)
	assert.Equal(t, Point3D{X: 0, Y: -2, Z: -1}, box.Min)
	assert.Equal(t, Point3D{X: 2, Y: 5, Z: 4}, box.Max)
	assert.Equal(t, Point3D{X: 2, Y: 7, Z: 5}, box.Size())
}

func TestPointFromSlice(t *testing.T) {
	p := PointFromSlice([]float64{7, 8, 9, 10})
	assert.Equal(t, []float64{7, 8, 9}, p.Slice())
	assert.True(t, ValidAxis(AxisZ))
	assert.False(t, ValidAxis(-1))
}
