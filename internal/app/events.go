package app

import (
	"image"
	"sync"

	"textractor/internal/aspect"
	"textractor/internal/extract"
	"textractor/internal/selection"
	"textractor/internal/warp"
	"textractor/pkg/geometry"
)

// EventType identifies different session events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventSelectionChanged
	EventRubberBandChanged
	EventPreviewChanged
	EventOptionsChanged
	EventRecentFilesChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// ImageInfo accompanies EventImageLoaded. Image is shared read-only.
type ImageInfo struct {
	Path   string
	Width  int
	Height int
	DPI    float64
	Image  *image.RGBA
}

// SelectionInfo accompanies EventSelectionChanged.
type SelectionInfo struct {
	Points []geometry.Point2D // image space, insertion order
	Active int                // dragged point or -1
	State  selection.State
}

// RubberBandInfo accompanies EventRubberBandChanged. From and To are in
// display space.
type RubberBandInfo struct {
	From, To geometry.Point2D
	Visible  bool
}

// PreviewInfo accompanies EventPreviewChanged. Preview is a fresh oriented
// copy, nil when there is no texture.
type PreviewInfo struct {
	Preview *image.RGBA
	Width   int // oriented full-resolution size
	Height  int
}

// OptionsInfo accompanies EventOptionsChanged.
type OptionsInfo struct {
	Options        warp.Options
	Mode           aspect.Mode
	CustomText     string
	Ratio          float64
	Estimated      float64 // 0 when the selection is incomplete or degenerate
	Resolution     extract.Resolution
	CanUndo        bool
	CanRedo        bool
	ExtractPending bool

	// Revert is set after a rejected entry and on state restores (load,
	// clear, mode change, undo, redo). Controls then drop text the user has
	// typed but not submitted.
	Revert bool
}

// emitter dispatches events to listeners.
type emitter struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (e *emitter) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *emitter) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
