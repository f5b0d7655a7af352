package canvas

import (
	"image"
	"image/color"
	"strconv"

	"textractor/pkg/geometry"
)

const (
	edgeThickness = 2
	cornerRadius  = 6.0
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// drawOverlay draws the selection onto output. toPixel maps image space to
// output pixels and rubberScale maps display space to output pixels.
func drawOverlay(output *image.RGBA, ov Overlay, style Style, toPixel func(geometry.Point2D) geometry.Point2D, rubberScale float64, labelScale int) {
	n := len(ov.Points)
	pts := make([]geometry.Point2D, n)
	for i, p := range ov.Points {
		pts[i] = toPixel(p)
	}

	for i := 0; i+1 < n; i++ {
		drawSegment(output, pts[i], pts[i+1], style.Edge, edgeThickness)
	}
	if ov.Closed && n > 2 {
		drawSegment(output, pts[n-1], pts[0], style.Edge, edgeThickness)
	}

	if ov.RubberVisible {
		from := geometry.Point2D{X: ov.RubberFrom.X * rubberScale, Y: ov.RubberFrom.Y * rubberScale}
		to := geometry.Point2D{X: ov.RubberTo.X * rubberScale, Y: ov.RubberTo.Y * rubberScale}
		drawSegment(output, from, to, style.RubberBand, 1)
	}

	for i, p := range pts {
		col := style.Corner
		if i == ov.Active {
			col = style.Active
		}
		drawCircle(output, p.X, p.Y, cornerRadius, col, true)
		offset := cornerRadius + float64(3*labelScale)
		drawLabel(output, strconv.Itoa(i+1), int(p.X+offset), int(p.Y-offset), labelScale, style.Label)
	}
}

func drawSegment(output *image.RGBA, a, b geometry.Point2D, col color.RGBA, thickness int) {
	drawLine(output, int(a.X+0.5), int(a.Y+0.5), int(b.X+0.5), int(b.Y+0.5), col, thickness)
}

// drawCircle draws a filled or outlined circle on the output image.
func drawCircle(output *image.RGBA, cx, cy, r float64, col color.RGBA, filled bool) {
	bounds := output.Bounds()

	minX := int(cx - r - 1)
	maxX := int(cx + r + 1)
	minY := int(cy - r - 1)
	maxY := int(cy + r + 1)

	r2 := r * r
	innerR2 := (r - 2) * (r - 2) // 2 pixel outline thickness

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			dist2 := dx*dx + dy*dy
			if dist2 > r2 {
				continue
			}
			if filled || dist2 >= innerR2 {
				output.SetRGBA(x, y, col)
			}
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					output.SetRGBA(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawLabel draws a digit label centered at (centerX, centerY). Non-digit
// characters leave a gap.
func drawLabel(output *image.RGBA, label string, centerX, centerY, scale int, col color.RGBA) {
	if scale < 1 {
		scale = 1
	}
	if label == "" {
		return
	}

	charWidth := 3 * scale
	charHeight := 5 * scale
	spacing := scale
	labelWidth := len(label)*charWidth + (len(label)-1)*spacing

	startX := centerX - labelWidth/2
	startY := centerY - charHeight/2

	bounds := output.Bounds()

	for i, ch := range label {
		if ch < '0' || ch > '9' {
			continue
		}
		pattern := digitPatterns[ch-'0']
		charX := startX + i*(charWidth+spacing)

		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if pattern[row]&(1<<(2-c)) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px := charX + c*scale + dx
						py := startY + row*scale + dy
						if px >= bounds.Min.X && px < bounds.Max.X &&
							py >= bounds.Min.Y && py < bounds.Max.Y {
							output.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
	}
}
