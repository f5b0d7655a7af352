// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Sqrt(p.DistanceSq(other))
}

// DistanceSq returns the squared Euclidean distance to another point.
func (p Point2D) DistanceSq(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Quad is a quadrilateral given by its corners in order:
// top-left, top-right, bottom-right, bottom-left of the target rectangle.
type Quad [4]Point2D

// QuadFromPoints builds a Quad from exactly four points.
func QuadFromPoints(points []Point2D) (Quad, bool) {
	var q Quad
	if len(points) != 4 {
		return q, false
	}
	copy(q[:], points)
	return q, true
}

// RectQuad returns the corners (0,0), (w-1,0), (w-1,h-1), (0,h-1).
func RectQuad(w, h int) Quad {
	fw, fh := float64(w-1), float64(h-1)
	return Quad{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
}

// SideLengths returns the lengths of sides p0p1, p1p2, p2p3 and p3p0.
func (q Quad) SideLengths() [4]float64 {
	var s [4]float64
	for i := 0; i < 4; i++ {
		s[i] = q[i].Distance(q[(i+1)%4])
	}
	return s
}

// SignedArea returns the shoelace area; positive for clockwise corners
// in image coordinates (y down).
func (q Quad) SignedArea() float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return sum / 2
}

// Area returns the absolute polygon area.
func (q Quad) Area() float64 {
	return math.Abs(q.SignedArea())
}

// IsSimple reports whether the quad's edges do not cross each other.
// Only the two pairs of opposite edges can intersect in a quadrilateral.
func (q Quad) IsSimple() bool {
	return !segmentsIntersect(q[0], q[1], q[2], q[3]) &&
		!segmentsIntersect(q[1], q[2], q[3], q[0])
}

// Points returns the corners as a new slice.
func (q Quad) Points() []Point2D {
	out := make([]Point2D, 4)
	copy(out, q[:])
	return out
}

// Homography is a 3x3 projective transform stored row-major.
type Homography [9]float64

// Apply maps a point through the transform. ok is false when the point
// maps to infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Normalize scales the matrix so that the bottom-right element is 1.
func (h Homography) Normalize() Homography {
	if math.Abs(h[8]) < 1e-12 {
		return h
	}
	var r Homography
	for i := range h {
		r[i] = h[i] / h[8]
	}
	return r
}
