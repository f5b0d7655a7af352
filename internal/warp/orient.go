package warp

import (
	"errors"
	"image"
)

// Options are the orientation transforms applied to an extracted texture.
type Options struct {
	FlipVertical   bool `json:"flip_vertical"`
	FlipHorizontal bool `json:"flip_horizontal"`
	Rotate90       bool `json:"rotate_90"`
}

// Orient applies the enabled transforms in fixed order: vertical flip,
// horizontal flip, then a 90 degree clockwise rotation. The input is not
// modified.
func Orient(img *image.RGBA, opts Options) *image.RGBA {
	out := Clone(ToRGBA(img))
	if opts.FlipVertical {
		out = FlipVertical(out)
	}
	if opts.FlipHorizontal {
		out = FlipHorizontal(out)
	}
	if opts.Rotate90 {
		out = Rotate90CW(out)
	}
	return out
}

// Orient implements the engine side of Orient for the pure Go warper.
func (e *Engine) Orient(img *image.RGBA, opts Options) (*image.RGBA, error) {
	if img == nil {
		return nil, errors.New("nil texture")
	}
	return Orient(img, opts), nil
}

// FlipVertical mirrors img top to bottom.
func FlipVertical(img *image.RGBA) *image.RGBA {
	src := ToRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[(h-1-y)*src.Stride:(h-1-y)*src.Stride+w*4])
	}
	return dst
}

// FlipHorizontal mirrors img left to right.
func FlipHorizontal(img *image.RGBA) *image.RGBA {
	src := ToRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		so := y * src.Stride
		do := y * dst.Stride
		for x := 0; x < w; x++ {
			si := so + (w-1-x)*4
			copy(dst.Pix[do+x*4:do+x*4+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// Rotate90CW rotates img a quarter turn clockwise. A w x h input becomes
// h x w, and the top-left source pixel ends up top-right.
func Rotate90CW(img *image.RGBA) *image.RGBA {
	src := ToRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := y*src.Stride + x*4
			di := x*dst.Stride + (h-1-y)*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
