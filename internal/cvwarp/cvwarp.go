// Package cvwarp provides the OpenCV-backed perspective warp engine.
package cvwarp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"textractor/internal/warp"
	"textractor/pkg/geometry"

	"gocv.io/x/gocv"
)

// Engine warps images through OpenCV.
type Engine struct{}

// NewEngine returns an OpenCV warp engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs and status messages.
func (e *Engine) Name() string {
	return "opencv"
}

// Available reports the linked OpenCV version. ok is false when the library
// does not respond with a version string.
func Available() (version string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			version, ok = "", false
		}
	}()
	version = gocv.OpenCVVersion()
	return version, version != ""
}

// Warp maps quad (TL, TR, BR, BL) onto a w x h raster using
// getPerspectiveTransform and warpPerspective.
func (e *Engine) Warp(ctx context.Context, src image.Image, quad geometry.Quad, w, h int) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", w, h)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := toMat(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	srcPts := gocv.NewPoint2fVectorFromPoints(toPoint2f(quad))
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints(toPoint2f(geometry.RectQuad(w, h)))
	defer dstPts.Close()

	m := gocv.GetPerspectiveTransform2f(srcPts, dstPts)
	defer m.Close()
	if m.Empty() {
		return nil, warp.ErrSingular
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspectiveWithParams(mat, &dst, m, image.Point{X: w, Y: h},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fromMat(dst)
}

// Preview downscales img so its longer side is at most maxDim using area
// interpolation. Smaller images are copied unchanged.
func (e *Engine) Preview(img *image.RGBA, maxDim int) (*image.RGBA, error) {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxDim <= 0 || longest <= maxDim {
		return warp.Clone(warp.ToRGBA(img)), nil
	}

	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	scale := float64(maxDim) / float64(longest)
	size := image.Point{
		X: max(1, int(float64(b.Dx())*scale)),
		Y: max(1, int(float64(b.Dy())*scale)),
	}
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(mat, &small, size, 0, 0, gocv.InterpolationArea)
	return fromMat(small)
}

// Orient applies opts in the fixed order vertical flip, horizontal flip,
// quarter turn clockwise.
func (e *Engine) Orient(img *image.RGBA, opts warp.Options) (*image.RGBA, error) {
	if img == nil {
		return nil, errors.New("nil texture")
	}
	if opts == (warp.Options{}) {
		return warp.Clone(img), nil
	}

	cur, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer func() { cur.Close() }()

	step := func(apply func(src gocv.Mat, dst *gocv.Mat)) {
		next := gocv.NewMat()
		apply(cur, &next)
		cur.Close()
		cur = next
	}
	if opts.FlipVertical {
		step(func(src gocv.Mat, dst *gocv.Mat) { gocv.Flip(src, dst, 0) })
	}
	if opts.FlipHorizontal {
		step(func(src gocv.Mat, dst *gocv.Mat) { gocv.Flip(src, dst, 1) })
	}
	if opts.Rotate90 {
		step(func(src gocv.Mat, dst *gocv.Mat) { gocv.Rotate(src, dst, gocv.Rotate90Clockwise) })
	}
	return fromMat(cur)
}

func toPoint2f(q geometry.Quad) []gocv.Point2f {
	pts := make([]gocv.Point2f, 4)
	for i, p := range q {
		pts[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return pts
}

// toMat wraps the RGBA bytes in a 4-channel Mat. Channel order stays RGBA;
// warp and resize are channel agnostic.
func toMat(img image.Image) (gocv.Mat, error) {
	rgba := warp.ToRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	pix := rgba.Pix
	if rgba.Stride != w*4 {
		pix = make([]byte, 0, w*h*4)
		for y := 0; y < h; y++ {
			pix = append(pix, rgba.Pix[y*rgba.Stride:y*rgba.Stride+w*4]...)
		}
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("creating mat: %w", err)
	}
	return mat, nil
}

func fromMat(m gocv.Mat) (*image.RGBA, error) {
	if m.Empty() || m.Type() != gocv.MatTypeCV8UC4 {
		return nil, errors.New("unexpected mat layout")
	}
	w, h := m.Cols(), m.Rows()
	data := m.ToBytes()
	if len(data) != w*h*4 {
		return nil, fmt.Errorf("mat holds %d bytes, want %d", len(data), w*h*4)
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, data)
	return out, nil
}
