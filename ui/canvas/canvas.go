// Package canvas provides a zoomable image canvas that draws the quad
// selection and reports pointer input in display coordinates.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"textractor/internal/selection"
	"textractor/internal/warp"
	"textractor/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

var emptySize = fyne.NewSize(400, 300)

// ImageCanvas shows one image at fit scale times zoom with the selection
// overlay on top. Display space is the image scaled by Scale*Zoom in fyne
// units; pointer callbacks receive display coordinates.
//
// SetImage, SetSelection and SetRubberBand may be called from any
// goroutine: they update state under mu and queue a repaint. Zoom, fit and
// layout run on the UI goroutine.
type ImageCanvas struct {
	widget.BaseWidget

	style Style

	mu      sync.Mutex
	source  *image.RGBA
	overlay Overlay

	// Cached source rendition at the last raster size.
	scaled     *image.RGBA
	scaledSize image.Point

	// Display state, guarded by mu.
	zoom     float64
	fitScale float64
	imgSize  fyne.Size
	viewSize fyne.Size
	offset   fyne.Position

	raster  *fynecanvas.Raster
	scroll  *zoomScroll
	content *pointerContent

	// Callbacks
	onViewportChange func(selection.Viewport)
	onPress          func(x, y float64)
	onDrag           func(x, y float64)
	onRelease        func()
	onHover          func(x, y float64)
}

// zoomScroll is a widget that wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ImageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ImageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	scroll.OnScrolled = func(off fyne.Position) {
		canvas.mu.Lock()
		canvas.offset = off
		canvas.mu.Unlock()
		canvas.notifyViewport()
	}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// pointerContent wraps the raster to handle mouse events.
type pointerContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
	raster *fynecanvas.Raster
}

var (
	_ desktop.Mouseable = (*pointerContent)(nil)
	_ desktop.Hoverable = (*pointerContent)(nil)
	_ fyne.Draggable    = (*pointerContent)(nil)
)

func newPointerContent(ic *ImageCanvas, raster *fynecanvas.Raster) *pointerContent {
	pc := &pointerContent{canvas: ic, raster: raster}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pointerContent) CreateRenderer() fyne.WidgetRenderer {
	return &pointerContentRenderer{content: pc}
}

func (pc *pointerContent) MinSize() fyne.Size {
	return pc.canvas.displaySize()
}

// inside rejects events Fyne delivers outside the displayed image.
func (pc *pointerContent) inside(pos fyne.Position) bool {
	size := pc.canvas.displaySize()
	return pos.X >= 0 && pos.Y >= 0 && pos.X <= size.Width && pos.Y <= size.Height
}

func (pc *pointerContent) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !pc.inside(ev.Position) {
		return
	}
	if cb := pc.canvas.onPress; cb != nil {
		cb(float64(ev.Position.X), float64(ev.Position.Y))
	}
}

func (pc *pointerContent) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	if cb := pc.canvas.onRelease; cb != nil {
		cb()
	}
}

func (pc *pointerContent) Dragged(ev *fyne.DragEvent) {
	if cb := pc.canvas.onDrag; cb != nil {
		cb(float64(ev.Position.X), float64(ev.Position.Y))
	}
}

func (pc *pointerContent) DragEnd() {
	if cb := pc.canvas.onRelease; cb != nil {
		cb()
	}
}

func (pc *pointerContent) MouseIn(ev *desktop.MouseEvent) {
	pc.MouseMoved(ev)
}

func (pc *pointerContent) MouseMoved(ev *desktop.MouseEvent) {
	if cb := pc.canvas.onHover; cb != nil {
		cb(float64(ev.Position.X), float64(ev.Position.Y))
	}
}

func (pc *pointerContent) MouseOut() {}

func (pc *pointerContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		pc.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		pc.canvas.ZoomOut()
	}
}

type pointerContentRenderer struct {
	content *pointerContent
}

func (r *pointerContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *pointerContentRenderer) MinSize() fyne.Size {
	return r.content.canvas.displaySize()
}

func (r *pointerContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *pointerContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *pointerContentRenderer) Destroy() {}

// NewImageCanvas creates a new image canvas whose overlay uses accent.
func NewImageCanvas(accent color.Color) *ImageCanvas {
	ic := &ImageCanvas{
		zoom:     1.0,
		fitScale: 1.0,
		imgSize:  emptySize,
		style:    DefaultStyle(accent),
		overlay:  Overlay{Active: -1},
	}

	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels

	ic.content = newPointerContent(ic, ic.raster)
	ic.scroll = newZoomScroll(ic.content, ic)

	ic.ExtendBaseWidget(ic)
	return ic
}

// OnViewportChange sets a callback for scale, zoom and pan changes.
func (ic *ImageCanvas) OnViewportChange(callback func(selection.Viewport)) {
	ic.onViewportChange = callback
}

// OnPress sets a callback for primary button presses.
func (ic *ImageCanvas) OnPress(callback func(x, y float64)) {
	ic.onPress = callback
}

// OnDrag sets a callback for pointer drags.
func (ic *ImageCanvas) OnDrag(callback func(x, y float64)) {
	ic.onDrag = callback
}

// OnRelease sets a callback for primary button releases.
func (ic *ImageCanvas) OnRelease(callback func()) {
	ic.onRelease = callback
}

// OnHover sets a callback for pointer motion.
func (ic *ImageCanvas) OnHover(callback func(x, y float64)) {
	ic.onHover = callback
}

// SetImage replaces the displayed image, clears the overlay and fits the
// image to the visible area. img is treated as read-only. The content is
// re-laid out on the next frame, when fyne sees the new minimum size.
func (ic *ImageCanvas) SetImage(img *image.RGBA) {
	ic.mu.Lock()
	ic.source = img
	ic.scaled = nil
	ic.overlay = Overlay{Active: -1}
	ic.zoom = 1.0
	ic.fitScale = ic.fitScaleLocked()
	ic.imgSize = ic.contentSizeLocked()
	ic.mu.Unlock()

	ic.raster.Refresh()
	ic.notifyViewport()
}

// SetSelection updates the corners drawn over the image.
func (ic *ImageCanvas) SetSelection(points []geometry.Point2D, active int, closed bool) {
	ic.mu.Lock()
	ic.overlay.Points = append([]geometry.Point2D(nil), points...)
	ic.overlay.Active = active
	ic.overlay.Closed = closed
	ic.mu.Unlock()
	ic.raster.Refresh()
}

// SetRubberBand updates the guide line, given in display space.
func (ic *ImageCanvas) SetRubberBand(from, to geometry.Point2D, visible bool) {
	ic.mu.Lock()
	changed := visible || ic.overlay.RubberVisible
	ic.overlay.RubberFrom = from
	ic.overlay.RubberTo = to
	ic.overlay.RubberVisible = visible
	ic.mu.Unlock()
	if changed {
		ic.raster.Refresh()
	}
}

// Container returns the canvas container for embedding in layouts.
func (ic *ImageCanvas) Container() fyne.CanvasObject {
	return ic.scroll
}

// Viewport returns the current display mapping.
func (ic *ImageCanvas) Viewport() selection.Viewport {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.viewportLocked()
}

func (ic *ImageCanvas) viewportLocked() selection.Viewport {
	return selection.Viewport{
		Scale: ic.fitScale,
		Zoom:  ic.zoom,
		PanX:  float64(ic.offset.X),
		PanY:  float64(ic.offset.Y),
	}
}

// SetZoom sets the zoom level.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	ic.updateView(func() { ic.zoom = zoom })
}

// ZoomIn increases the zoom level.
func (ic *ImageCanvas) ZoomIn() {
	ic.updateView(func() { ic.zoom *= zoomStep })
}

// ZoomOut decreases the zoom level.
func (ic *ImageCanvas) ZoomOut() {
	ic.updateView(func() { ic.zoom /= zoomStep })
}

// FitToWindow recomputes the fit scale for the visible area and resets zoom.
func (ic *ImageCanvas) FitToWindow() {
	ic.updateView(func() {
		ic.fitScale = ic.fitScaleLocked()
		ic.zoom = 1.0
	})
}

// CheckResize refits the image when the scroll area changes size.
func (ic *ImageCanvas) CheckResize(size fyne.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	ic.mu.Lock()
	changed := size != ic.viewSize
	ic.viewSize = size
	refit := changed && ic.zoom == 1.0
	ic.mu.Unlock()

	if refit {
		ic.FitToWindow()
	}
}

// updateView applies change under the lock, clamps the zoom and lays the
// content out at the new size. UI goroutine only.
func (ic *ImageCanvas) updateView(change func()) {
	ic.mu.Lock()
	change()
	ic.zoom = min(max(ic.zoom, minZoom), maxZoom)
	ic.imgSize = ic.contentSizeLocked()
	size := ic.imgSize
	ic.mu.Unlock()

	ic.content.Resize(size)
	ic.content.Refresh()
	ic.scroll.Refresh()
	ic.notifyViewport()
}

// Refresh refreshes the canvas display.
func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

// displaySize returns the image size in display units.
func (ic *ImageCanvas) displaySize() fyne.Size {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.imgSize
}

// fitScaleLocked returns the scale that fits the image in the visible area,
// never enlarging it.
func (ic *ImageCanvas) fitScaleLocked() float64 {
	if ic.source == nil || ic.viewSize.Width <= 0 || ic.viewSize.Height <= 0 {
		return 1.0
	}
	b := ic.source.Bounds()
	return min(warp.FitScale(b.Dx(), b.Dy(), int(ic.viewSize.Width), int(ic.viewSize.Height)), 1.0)
}

// contentSizeLocked returns the image size at the current scale and zoom.
func (ic *ImageCanvas) contentSizeLocked() fyne.Size {
	if ic.source == nil {
		return emptySize
	}
	b := ic.source.Bounds()
	f := ic.fitScale * ic.zoom
	return fyne.NewSize(float32(float64(b.Dx())*f), float32(float64(b.Dy())*f))
}

func (ic *ImageCanvas) notifyViewport() {
	if ic.onViewportChange != nil {
		ic.onViewportChange(ic.Viewport())
	}
}

// draw is the raster drawing function. w and h are device pixels, which
// differ from display units on high-density screens.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{A: 255}
	draw.Draw(output, output.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.source == nil || w <= 0 || h <= 0 {
		return output
	}

	size := image.Pt(w, h)
	if ic.scaled == nil || ic.scaledSize != size {
		ic.scaled = warp.Resize(ic.source, w, h, draw.ApproxBiLinear)
		ic.scaledSize = size
	}
	draw.Draw(output, output.Bounds(), ic.scaled, image.Point{}, draw.Over)

	if ic.overlay.empty() {
		return output
	}

	// device pixels per display unit
	pixelScale := 1.0
	if ic.imgSize.Width > 0 {
		pixelScale = float64(w) / float64(ic.imgSize.Width)
	}
	view := ic.viewportLocked()
	toPixel := func(p geometry.Point2D) geometry.Point2D {
		return view.ToDisplay(p).Scale(pixelScale)
	}
	labelScale := max(int(pixelScale*2), 1)

	drawOverlay(output, ic.overlay, ic.style, toPixel, pixelScale, labelScale)
	return output
}

// CreateRenderer implements fyne.Widget.
func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{canvas: ic}
}

type imageCanvasRenderer struct {
	canvas *ImageCanvas
}

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	r.canvas.CheckResize(size)
}

func (r *imageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *imageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *imageCanvasRenderer) Destroy() {}
