// Package colorutil provides shared color helpers for the overlay.
package colorutil

import "image/color"

// Common overlay colors.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Amber     = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	LightGray = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// ToRGBA converts any color to premultiplied 8-bit RGBA.
func ToRGBA(c color.Color) color.RGBA {
	if c == nil {
		return color.RGBA{}
	}
	return color.RGBAModel.Convert(c).(color.RGBA)
}
