package warp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"textractor/pkg/geometry"

	"golang.org/x/image/draw"
)

// maxSupersample bounds the per-axis sample count used when the warp minifies.
const maxSupersample = 4

// Engine is the pure Go perspective warper. The zero value is ready to use.
type Engine struct{}

// NewEngine returns a pure Go warp engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs and status messages.
func (e *Engine) Name() string {
	return "go"
}

// Warp resamples src so that quad (TL, TR, BR, BL) fills a w x h raster.
// Pixels that map outside the source are transparent black.
func (e *Engine) Warp(ctx context.Context, src image.Image, quad geometry.Quad, w, h int) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", w, h)
	}

	forward, err := RectifyTransform(quad, w, h)
	if err != nil {
		return nil, err
	}
	inverse, err := Invert(forward)
	if err != nil {
		return nil, err
	}

	rgba := ToRGBA(src)
	n := supersampleFactor(quad.Area(), w, h)
	offsets := sampleOffsets(n)
	weight := 1.0 / float64(len(offsets)*len(offsets))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			var acc [4]float64
			for _, oy := range offsets {
				for _, ox := range offsets {
					p, ok := inverse.Apply(geometry.Point2D{X: float64(x) + ox, Y: float64(y) + oy})
					if !ok {
						continue
					}
					c := sampleBilinear(rgba, p.X, p.Y)
					acc[0] += c[0]
					acc[1] += c[1]
					acc[2] += c[2]
					acc[3] += c[3]
				}
			}
			i := x * 4
			row[i+0] = clampByte(acc[0] * weight)
			row[i+1] = clampByte(acc[1] * weight)
			row[i+2] = clampByte(acc[2] * weight)
			row[i+3] = clampByte(acc[3] * weight)
		}
	}
	return dst, nil
}

// Preview returns the Catmull-Rom downscaled copy used for display.
func (e *Engine) Preview(img *image.RGBA, maxDim int) (*image.RGBA, error) {
	return Downscale(img, maxDim), nil
}

// supersampleFactor estimates how many source pixels land on one output
// pixel per axis and returns the sample count to use per axis.
func supersampleFactor(srcArea float64, w, h int) int {
	scale := math.Sqrt(srcArea / float64(w*h))
	n := int(scale + 0.5)
	if n < 1 {
		return 1
	}
	if n > maxSupersample {
		return maxSupersample
	}
	return n
}

// sampleOffsets returns n sub-pixel offsets centered on the pixel index.
func sampleOffsets(n int) []float64 {
	if n <= 1 {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i)+0.5)/float64(n) - 0.5
	}
	return out
}

// sampleBilinear interpolates the premultiplied RGBA value at (x, y),
// given in pixel-index coordinates relative to the image origin.
func sampleBilinear(img *image.RGBA, x, y float64) [4]float64 {
	var out [4]float64
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	taps := [4]struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	}
	for _, t := range taps {
		if t.w == 0 {
			continue
		}
		px, py := ix+t.dx, iy+t.dy
		if px < 0 || py < 0 || px >= w || py >= h {
			continue
		}
		i := py*img.Stride + px*4
		out[0] += float64(img.Pix[i+0]) * t.w
		out[1] += float64(img.Pix[i+1]) * t.w
		out[2] += float64(img.Pix[i+2]) * t.w
		out[3] += float64(img.Pix[i+3]) * t.w
	}
	return out
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// ToRGBA returns img as an *image.RGBA anchored at the origin. Images that
// already satisfy this are returned as-is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := &image.RGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}
