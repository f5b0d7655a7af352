package warp

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// FitScale returns the factor that fits a w x h image inside maxW x maxH
// while keeping its aspect ratio. Small images are scaled up.
func FitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 1
	}
	return math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
}

// Downscale returns a copy of img whose longer side is at most maxDim.
// Images already within the limit are copied unchanged.
func Downscale(img image.Image, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return Clone(ToRGBA(img))
	}

	scale := float64(maxDim) / float64(longest)
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return Resize(img, nw, nh, draw.CatmullRom)
}

// ScaleToFit resizes img to fit inside maxW x maxH and returns the applied
// scale. Used for display, so the cheaper bilinear kernel is enough.
func ScaleToFit(img image.Image, maxW, maxH int) (*image.RGBA, float64) {
	b := img.Bounds()
	scale := FitScale(b.Dx(), b.Dy(), maxW, maxH)
	nw := max(1, int(float64(b.Dx())*scale))
	nh := max(1, int(float64(b.Dy())*scale))
	return Resize(img, nw, nh, draw.ApproxBiLinear), scale
}

// Resize scales img to exactly w x h with the given interpolator.
func Resize(img image.Image, w, h int, interp draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
