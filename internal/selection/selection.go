// Package selection implements the four-corner selection state machine:
// point placement, hit testing, dragging and the display/image coordinate
// conversions they depend on.
package selection

import (
	"textractor/pkg/geometry"
)

// Corners is the number of points in a complete selection.
const Corners = 4

// State is the selection's progress toward a complete quad.
type State int

const (
	Empty State = iota
	Partial
	Complete
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Viewport relates image space to display space.
// display = image * Scale * Zoom; the pan offset only moves the rendered
// canvas and is never applied to stored points.
type Viewport struct {
	Scale float64
	Zoom  float64
	PanX  float64
	PanY  float64
}

// DefaultViewport is the unscaled, unzoomed viewport.
func DefaultViewport() Viewport {
	return Viewport{Scale: 1, Zoom: 1}
}

func (v Viewport) factor() float64 {
	f := v.Scale * v.Zoom
	if f <= 0 {
		return 1
	}
	return f
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToImage converts a display-space point to image space.
func (v Viewport) ToImage(p geometry.Point2D) geometry.Point2D {
	return p.Scale(1 / v.factor())
}

// ToDisplay converts an image-space point to display space.
func (v Viewport) ToDisplay(p geometry.Point2D) geometry.Point2D {
	return p.Scale(v.factor())
}

// Config holds the interaction thresholds, in display pixels at zoom 1.
type Config struct {
	MinDistance float64
	HitRadius   float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{MinDistance: 20, HitRadius: 10}
}

// Machine holds up to four image-space points and the drag state.
// It is not safe for concurrent use.
type Machine struct {
	cfg    Config
	view   Viewport
	points []geometry.Point2D
	active int
}

// New creates an empty selection.
func New(cfg Config) *Machine {
	if cfg.MinDistance < 0 {
		cfg.MinDistance = 0
	}
	if cfg.HitRadius <= 0 {
		cfg.HitRadius = DefaultConfig().HitRadius
	}
	return &Machine{
		cfg:    cfg,
		view:   DefaultViewport(),
		points: make([]geometry.Point2D, 0, Corners),
		active: -1,
	}
}

// SetViewport updates the display mapping used for input conversion.
func (m *Machine) SetViewport(v Viewport) {
	m.view = v
}

// Viewport returns the current display mapping.
func (m *Machine) Viewport() Viewport {
	return m.view
}

// State reports Empty, Partial or Complete.
func (m *Machine) State() State {
	switch len(m.points) {
	case 0:
		return Empty
	case Corners:
		return Complete
	}
	return Partial
}

// Len returns the number of placed points.
func (m *Machine) Len() int {
	return len(m.points)
}

// Points returns a copy of the image-space points in insertion order.
func (m *Machine) Points() []geometry.Point2D {
	out := make([]geometry.Point2D, len(m.points))
	copy(out, m.points)
	return out
}

// Quad returns the selection as a quad once complete.
func (m *Machine) Quad() (geometry.Quad, bool) {
	return geometry.QuadFromPoints(m.points)
}

// Active returns the index of the point being dragged, or -1.
func (m *Machine) Active() int {
	return m.active
}

// Dragging reports whether a point is being dragged.
func (m *Machine) Dragging() bool {
	return m.active >= 0
}

// minDistance is the placement threshold in display units.
func (m *Machine) minDistance() float64 {
	return m.cfg.MinDistance / m.view.zoom()
}

// tooClose reports whether display point p lies within the minimum distance
// of any stored point other than skip.
func (m *Machine) tooClose(p geometry.Point2D, skip int) bool {
	limit := m.minDistance()
	for i, q := range m.points {
		if i == skip {
			continue
		}
		if p.Distance(m.view.ToDisplay(q)) < limit {
			return true
		}
	}
	return false
}

// Place appends a point given in display space. It returns false, leaving
// the selection unchanged, when the quad is already complete or the point is
// too close to an existing one.
func (m *Machine) Place(display geometry.Point2D) bool {
	if len(m.points) >= Corners || !display.IsFinite() {
		return false
	}
	if m.tooClose(display, -1) {
		return false
	}
	m.points = append(m.points, m.view.ToImage(display))
	return true
}

// BeginDrag picks the point nearest to display as the active point when the
// selection is complete and the point lies within the hit radius.
func (m *Machine) BeginDrag(display geometry.Point2D) bool {
	if m.State() != Complete {
		return false
	}
	shown := make([]geometry.Point2D, len(m.points))
	for i, p := range m.points {
		shown[i] = m.view.ToDisplay(p)
	}
	idx, distSq := geometry.Nearest(display, shown)
	z := m.view.zoom()
	if idx < 0 || distSq >= m.cfg.HitRadius*m.cfg.HitRadius/(z*z) {
		return false
	}
	m.active = idx
	return true
}

// DragTo moves the active point to display. The point stays where it is
// when the move would bring it too close to another corner.
func (m *Machine) DragTo(display geometry.Point2D) bool {
	if m.active < 0 || !display.IsFinite() {
		return false
	}
	if m.tooClose(display, m.active) {
		return false
	}
	m.points[m.active] = m.view.ToImage(display)
	return true
}

// EndDrag releases the active point. It reports whether a drag was active.
func (m *Machine) EndDrag() bool {
	was := m.active >= 0
	m.active = -1
	return was
}

// Clear removes every point.
func (m *Machine) Clear() {
	m.points = m.points[:0]
	m.active = -1
}

// Restore replaces the points with a copy of pts, keeping at most four.
func (m *Machine) Restore(pts []geometry.Point2D) {
	if len(pts) > Corners {
		pts = pts[:Corners]
	}
	m.points = append(m.points[:0], pts...)
	m.active = -1
}

// RubberBand returns the display-space segment from the last placed point to
// the cursor while the selection is partial.
func (m *Machine) RubberBand(cursor geometry.Point2D) (from, to geometry.Point2D, ok bool) {
	if m.State() != Partial {
		return geometry.Point2D{}, geometry.Point2D{}, false
	}
	return m.view.ToDisplay(m.points[len(m.points)-1]), cursor, true
}
