// Package history provides the linear undo/redo stack over selection snapshots.
package history

import (
	"textractor/internal/aspect"
	"textractor/internal/warp"
	"textractor/pkg/geometry"
)

// Entry is an immutable snapshot of the selection, orientation options and
// aspect ratio state. Slices are copied in and out.
type Entry struct {
	points  []geometry.Point2D
	options warp.Options
	ratio   float64
	mode    aspect.Mode
}

// NewEntry builds a snapshot. points is copied.
func NewEntry(points []geometry.Point2D, opts warp.Options, ratio float64, mode aspect.Mode) Entry {
	cp := make([]geometry.Point2D, len(points))
	copy(cp, points)
	return Entry{points: cp, options: opts, ratio: ratio, mode: mode}
}

// Points returns a copy of the snapshot's image-space points.
func (e Entry) Points() []geometry.Point2D {
	cp := make([]geometry.Point2D, len(e.points))
	copy(cp, e.points)
	return cp
}

// Options returns the orientation options.
func (e Entry) Options() warp.Options {
	return e.options
}

// Ratio returns the aspect ratio value.
func (e Entry) Ratio() float64 {
	return e.ratio
}

// Mode returns the aspect ratio mode.
func (e Entry) Mode() aspect.Mode {
	return e.mode
}

// Equal reports whether two snapshots hold the same state.
func (e Entry) Equal(o Entry) bool {
	if len(e.points) != len(o.points) {
		return false
	}
	for i := range e.points {
		if e.points[i] != o.points[i] {
			return false
		}
	}
	return e.options == o.options && e.ratio == o.ratio && e.mode == o.mode
}

// Manager holds the undo and redo stacks. The top of the undo stack is the
// current state. It is not safe for concurrent use.
type Manager struct {
	undo []Entry
	redo []Entry
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Reset discards both stacks and records baseline as the only state.
func (m *Manager) Reset(baseline Entry) {
	m.undo = append(m.undo[:0], baseline)
	m.redo = m.redo[:0]
}

// Push records a new state and drops everything that could be redone.
// A state equal to the current one is not recorded.
func (m *Manager) Push(e Entry) bool {
	if n := len(m.undo); n > 0 && m.undo[n-1].Equal(e) {
		return false
	}
	m.undo = append(m.undo, e)
	m.redo = m.redo[:0]
	return true
}

// Undo moves the current state to the redo stack and returns the state
// below it. ok is false when only the baseline remains.
func (m *Manager) Undo() (Entry, bool) {
	if len(m.undo) <= 1 {
		return Entry{}, false
	}
	top := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, top)
	return m.undo[len(m.undo)-1], true
}

// Redo reapplies the most recently undone state.
func (m *Manager) Redo() (Entry, bool) {
	if len(m.redo) == 0 {
		return Entry{}, false
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, e)
	return e, true
}

// CanUndo reports whether Undo would change state.
func (m *Manager) CanUndo() bool {
	return len(m.undo) > 1
}

// CanRedo reports whether Redo would change state.
func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) {
	return len(m.undo), len(m.redo)
}
