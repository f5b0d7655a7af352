// Package warp implements the geometric transform engine: perspective
// unwarp of a quadrilateral into a rectangle, preview downscaling and the
// axis-aligned orientation transforms applied to extracted textures.
package warp

import (
	"errors"
	"fmt"
	"math"

	"textractor/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when no unique projective transform exists for
// the given correspondences (collinear or coincident corners).
var ErrSingular = errors.New("singular perspective transform")

// Solve computes the homography H mapping src[i] -> dst[i] for the four
// corner correspondences, with H[8] fixed at 1.
func Solve(src, dst geometry.Quad) (geometry.Homography, error) {
	for i := 0; i < 4; i++ {
		if !src[i].IsFinite() || !dst[i].IsFinite() {
			return geometry.Homography{}, fmt.Errorf("non-finite corner %d: %w", i, ErrSingular)
		}
	}

	// Build 8x8 system A*h = b for the unknowns h00..h21
	// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
	// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		A.Set(r, 0, X)
		A.Set(r, 1, Y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -X*x)
		A.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		A.Set(r+1, 3, X)
		A.Set(r+1, 4, Y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -X*y)
		A.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var lu mat.LU
	lu.Factorize(A)
	if math.IsInf(lu.Cond(), 1) {
		return geometry.Homography{}, ErrSingular
	}

	var h mat.VecDense
	if err := lu.SolveVecTo(&h, false, b); err != nil {
		return geometry.Homography{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	H := geometry.Homography{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}
	for _, v := range H {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return geometry.Homography{}, ErrSingular
		}
	}
	return H, nil
}

// Invert returns the inverse of h, normalized so the last element is 1.
func Invert(h geometry.Homography) (geometry.Homography, error) {
	m := mat.NewDense(3, 3, h[:])

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return geometry.Homography{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var out geometry.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	return out.Normalize(), nil
}

// RectifyTransform returns the transform mapping quad onto the w x h output
// rectangle, corners in quad order.
func RectifyTransform(quad geometry.Quad, w, h int) (geometry.Homography, error) {
	return Solve(quad, geometry.RectQuad(w, h))
}
