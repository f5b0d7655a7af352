package canvas

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"textractor/internal/selection"
	"textractor/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accent = color.NRGBA{R: 0x4A, G: 0x90, B: 0xE2, A: 0xFF}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestDrawLineEndpoints(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	red := color.RGBA{R: 255, A: 255}
	drawLine(img, 2, 3, 15, 12, red, 1)

	assert.Equal(t, red, img.RGBAAt(2, 3))
	assert.Equal(t, red, img.RGBAAt(15, 12))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(19, 0))
}

func TestDrawLineClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.NotPanics(t, func() {
		drawLine(img, -5, -5, 30, 30, color.RGBA{G: 255, A: 255}, 3)
	})
	assert.Equal(t, uint8(255), img.RGBAAt(5, 5).G)
}

func TestDrawCircle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	col := color.RGBA{B: 255, A: 255}

	drawCircle(img, 15, 15, 6, col, false)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(15, 15), "outline leaves the center empty")
	assert.Equal(t, col, img.RGBAAt(21, 15))

	drawCircle(img, 15, 15, 6, col, true)
	assert.Equal(t, col, img.RGBAAt(15, 15))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
}

func TestDrawLabelDigit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 9))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	drawLabel(img, "1", 4, 4, 1, white)

	// "1" centered at (4,4) starts at (3,2); bottom row is 0b111
	for x := 3; x < 6; x++ {
		assert.Equal(t, white, img.RGBAAt(x, 6), "x=%d", x)
	}
	assert.Equal(t, white, img.RGBAAt(4, 2))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(3, 2))
}

func TestDrawOverlayClosedQuad(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	style := DefaultStyle(accent)
	ov := Overlay{
		Points: []geometry.Point2D{{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80}, {X: 20, Y: 80}},
		Active: 2,
		Closed: true,
	}
	identity := func(p geometry.Point2D) geometry.Point2D { return p }
	drawOverlay(img, ov, style, identity, 1, 1)

	assert.Equal(t, style.Edge, img.RGBAAt(50, 20), "top edge")
	assert.Equal(t, style.Edge, img.RGBAAt(20, 50), "closing edge")
	assert.Equal(t, style.Active, img.RGBAAt(80, 80), "active corner")
	assert.Equal(t, style.Corner, img.RGBAAt(20, 20))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(50, 50))
}

func TestDrawOverlayOpenWithRubberBand(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	style := DefaultStyle(accent)
	ov := Overlay{
		Points:        []geometry.Point2D{{X: 10, Y: 10}, {X: 10, Y: 60}},
		Active:        -1,
		RubberFrom:    geometry.Point2D{X: 5, Y: 30},
		RubberTo:      geometry.Point2D{X: 40, Y: 30},
		RubberVisible: true,
	}
	identity := func(p geometry.Point2D) geometry.Point2D { return p }
	drawOverlay(img, ov, style, identity, 2, 1)

	assert.Equal(t, style.Edge, img.RGBAAt(10, 35))
	// rubber band is in display units, scaled by 2 into pixels
	assert.Equal(t, style.RubberBand, img.RGBAAt(40, 60))
	assert.Equal(t, style.RubberBand, img.RGBAAt(80, 60))
}

func TestDefaultStyleUsesAccent(t *testing.T) {
	style := DefaultStyle(accent)
	assert.Equal(t, color.RGBA{R: 0x4A, G: 0x90, B: 0xE2, A: 0xFF}, style.Edge)
}

func TestImageCanvasZoomAndViewport(t *testing.T) {
	test.NewApp()
	ic := NewImageCanvas(accent)

	var got []selection.Viewport
	ic.OnViewportChange(func(v selection.Viewport) { got = append(got, v) })

	ic.SetImage(solid(200, 100, color.RGBA{R: 10, A: 255}))
	require.NotEmpty(t, got)
	assert.InDelta(t, 1.0, got[len(got)-1].Zoom, 1e-9)

	ic.ZoomIn()
	assert.InDelta(t, zoomStep, ic.Viewport().Zoom, 1e-9)
	assert.InDelta(t, zoomStep, got[len(got)-1].Zoom, 1e-9)
	assert.InDelta(t, 200*zoomStep, ic.content.MinSize().Width, 1e-3)

	ic.SetZoom(100)
	assert.Equal(t, maxZoom, ic.Viewport().Zoom)
	ic.SetZoom(0)
	assert.Equal(t, minZoom, ic.Viewport().Zoom)
}

func TestImageCanvasFitScaleNeverEnlarges(t *testing.T) {
	test.NewApp()
	ic := NewImageCanvas(accent)
	ic.CheckResize(fyne.NewSize(400, 300))

	ic.SetImage(solid(50, 50, color.RGBA{A: 255}))
	assert.Equal(t, 1.0, ic.Viewport().Scale)

	ic.SetImage(solid(4000, 3000, color.RGBA{A: 255}))
	assert.InDelta(t, 0.1, ic.Viewport().Scale, 1e-9)
}

func TestImageCanvasDrawsImageAndSelection(t *testing.T) {
	test.NewApp()
	ic := NewImageCanvas(accent)

	out := ic.draw(40, 40)
	assert.Equal(t, color.RGBA{A: 255}, out.(*image.RGBA).RGBAAt(20, 20), "empty canvas is black")

	red := color.RGBA{R: 255, A: 255}
	ic.SetImage(solid(100, 100, red))
	out = ic.draw(100, 100)
	assert.Equal(t, red, out.(*image.RGBA).RGBAAt(50, 50))

	ic.SetSelection([]geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 10}}, -1, false)
	out = ic.draw(100, 100)
	assert.Equal(t, ic.style.Edge, out.(*image.RGBA).RGBAAt(50, 10))

	// a new image drops the previous overlay
	ic.SetImage(solid(100, 100, red))
	out = ic.draw(100, 100)
	assert.Equal(t, red, out.(*image.RGBA).RGBAAt(50, 10))
}

func TestPointerCallbacks(t *testing.T) {
	test.NewApp()
	ic := NewImageCanvas(accent)
	ic.SetImage(solid(100, 100, color.RGBA{A: 255}))

	var pressed, dragged []float64
	released := 0
	ic.OnPress(func(x, y float64) { pressed = append(pressed, x, y) })
	ic.OnDrag(func(x, y float64) { dragged = append(dragged, x, y) })
	ic.OnRelease(func() { released++ })

	primary := func(x, y float32) *desktop.MouseEvent {
		return &desktop.MouseEvent{
			PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
			Button:     desktop.MouseButtonPrimary,
		}
	}

	ic.content.MouseDown(primary(30, 40))
	assert.Equal(t, []float64{30, 40}, pressed)

	ic.content.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(35, 45)}})
	assert.Equal(t, []float64{35, 45}, dragged)

	ic.content.MouseUp(primary(35, 45))
	assert.Equal(t, 1, released)

	ic.content.MouseDown(primary(500, 500))
	assert.Len(t, pressed, 2, "presses outside the image are ignored")

	secondary := primary(30, 40)
	secondary.Button = desktop.MouseButtonSecondary
	ic.content.MouseDown(secondary)
	assert.Len(t, pressed, 2)
}

func TestImageCanvasConcurrentUpdates(t *testing.T) {
	test.NewApp()
	ic := NewImageCanvas(accent)
	ic.CheckResize(fyne.NewSize(400, 300))
	ic.OnViewportChange(func(selection.Viewport) {})

	img := solid(120, 80, color.RGBA{G: 255, A: 255})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			ic.SetImage(img)
			ic.SetSelection([]geometry.Point2D{{X: 10, Y: 10}}, -1, false)
			ic.SetRubberBand(geometry.Point2D{}, geometry.Point2D{X: 5, Y: 5}, true)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			ic.ZoomIn()
			ic.ZoomOut()
			ic.CheckResize(fyne.NewSize(float32(300+i), 300))
			_ = ic.Viewport()
			_ = ic.draw(60, 40)
		}
	}()
	wg.Wait()

	v := ic.Viewport()
	assert.GreaterOrEqual(t, v.Zoom, minZoom)
	assert.LessOrEqual(t, v.Zoom, maxZoom)
}
