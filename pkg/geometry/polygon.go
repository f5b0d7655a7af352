package geometry

import "math"

// IsConvex reports whether a simple polygon turns the same way at every
// vertex. Collinear vertices are ignored.
func IsConvex(polygon []Point2D) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	var turn float64
	for i := range polygon {
		c := crossProduct(polygon[i], polygon[(i+1)%n], polygon[(i+2)%n])
		if c == 0 {
			continue
		}
		if turn != 0 && (c > 0) != (turn > 0) {
			return false
		}
		turn = c
	}
	return true
}

// Nearest returns the index of the point closest to p and its squared
// distance. Returns -1 for an empty slice.
func Nearest(p Point2D, points []Point2D) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, q := range points {
		if d := p.DistanceSq(q); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// segmentsIntersect reports whether segment a1-a2 properly crosses b1-b2.
// Touching endpoints of collinear segments count as an intersection.
func segmentsIntersect(a1, a2, b1, b2 Point2D) bool {
	d1 := crossProduct(b1, b2, a1)
	d2 := crossProduct(b1, b2, a2)
	d3 := crossProduct(a1, a2, b1)
	d4 := crossProduct(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}

// onSegment checks whether collinear point p lies within the bounding box of a-b.
func onSegment(a, b, p Point2D) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
