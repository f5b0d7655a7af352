package canvas

import (
	"image/color"

	"textractor/pkg/colorutil"
	"textractor/pkg/geometry"
)

// Overlay is the selection drawn over the image.
type Overlay struct {
	Points []geometry.Point2D // corners in image space, insertion order
	Active int                // index of the dragged corner, -1 for none
	Closed bool               // draw the closing edge from the last corner to the first

	// Rubber band from the last placed corner to the cursor, in display space.
	RubberFrom    geometry.Point2D
	RubberTo      geometry.Point2D
	RubberVisible bool
}

// Style holds the overlay colors.
type Style struct {
	Edge       color.RGBA
	Corner     color.RGBA
	Active     color.RGBA
	Label      color.RGBA
	RubberBand color.RGBA
}

// DefaultStyle returns the overlay colors built around accent.
func DefaultStyle(accent color.Color) Style {
	edge := colorutil.ToRGBA(accent)
	edge.A = 255
	return Style{
		Edge:       edge,
		Corner:     edge,
		Active:     colorutil.Amber,
		Label:      colorutil.White,
		RubberBand: colorutil.LightGray,
	}
}

// empty reports whether there is nothing to draw.
func (o Overlay) empty() bool {
	return len(o.Points) == 0 && !o.RubberVisible
}
