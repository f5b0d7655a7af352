// Package app provides the interactive session: the controller that owns
// the selection, aspect ratio, orientation options, history and extraction
// pipeline, plus the loop goroutine that drives it.
package app

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"textractor/internal/aspect"
	"textractor/internal/extract"
	"textractor/internal/history"
	imgio "textractor/internal/image"
	"textractor/internal/recent"
	"textractor/internal/selection"
	"textractor/internal/warp"
	"textractor/pkg/geometry"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")

	// ErrNoTexture is returned by Save before any extraction succeeded.
	ErrNoTexture = errors.New("no texture extracted")
)

// Reporter receives user-facing status text and dialogs.
type Reporter interface {
	SetStatus(msg string)
	ShowError(title, msg string)
	ShowInfo(title, msg string)
}

type nopReporter struct{}

func (nopReporter) SetStatus(string)         {}
func (nopReporter) ShowError(string, string) {}
func (nopReporter) ShowInfo(string, string)  {}

// SessionConfig tunes a Session.
type SessionConfig struct {
	Selection          selection.Config
	PreviewMaxSize     int
	MaxOutputDimension int
}

// DefaultSessionConfig returns the standard settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Selection:      selection.DefaultConfig(),
		PreviewMaxSize: extract.DefaultPreviewSize,
	}
}

// Session is the single owner of the interactive state. It is not safe for
// concurrent use; every call must come from the same goroutine (see Loop).
type Session struct {
	emitter

	cfg      SessionConfig
	logger   *slog.Logger
	reporter Reporter
	recent   *recent.Store
	pipeline *extract.Pipeline

	source     *imgio.Source
	sel        *selection.Machine
	aspect     *aspect.Resolver
	opts       warp.Options
	resolution extract.Resolution
	hist       *history.Manager
	texture    *extract.Texture
}

// NewSession wires a session around the given warp engine. reporter,
// store and logger may be nil.
func NewSession(cfg SessionConfig, engine extract.Warper, reporter Reporter, store *recent.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	if cfg.PreviewMaxSize <= 0 {
		cfg.PreviewMaxSize = extract.DefaultPreviewSize
	}
	return &Session{
		cfg:      cfg,
		logger:   logger,
		reporter: reporter,
		recent:   store,
		pipeline: extract.New(engine, logger.With("component", "extract")),
		sel:      selection.New(cfg.Selection),
		aspect:   aspect.NewResolver(),
		hist:     history.NewManager(),
	}
}

// Close stops any in-flight extraction.
func (s *Session) Close() {
	s.pipeline.Close()
}

// Engine returns the warp engine name.
func (s *Session) Engine() string {
	return s.pipeline.Engine()
}

// HasImage reports whether an image is loaded.
func (s *Session) HasImage() bool {
	return s.source != nil
}

// Points returns the selection's image-space points.
func (s *Session) Points() []geometry.Point2D {
	return s.sel.Points()
}

// Options returns the orientation options.
func (s *Session) Options() warp.Options {
	return s.opts
}

// AspectMode returns the active aspect ratio mode.
func (s *Session) AspectMode() aspect.Mode {
	return s.aspect.Mode()
}

// Ratio returns the ratio recorded for the current state.
func (s *Session) Ratio() float64 {
	return s.aspect.Value()
}

// Texture returns the last delivered texture, or nil.
func (s *Session) Texture() *extract.Texture {
	return s.texture
}

// Extracting reports whether an extraction result is still outstanding.
func (s *Session) Extracting() bool {
	return s.pipeline.Pending()
}

// CanUndo reports whether Undo would change state.
func (s *Session) CanUndo() bool {
	return s.hist.CanUndo()
}

// CanRedo reports whether Redo would change state.
func (s *Session) CanRedo() bool {
	return s.hist.CanRedo()
}

// RecentFiles returns the recent image paths, most recent first.
func (s *Session) RecentFiles() []string {
	if s.recent == nil {
		return nil
	}
	return s.recent.Files()
}

// ReportError shows an error raised outside the session, such as invalid
// control input.
func (s *Session) ReportError(title, msg string) {
	s.logger.Warn(title, "detail", msg)
	s.reporter.ShowError(title, msg)
}

// LoadImage replaces the current image. On failure the previous image and
// session state are kept.
func (s *Session) LoadImage(path string) error {
	src, err := imgio.Load(path)
	if err != nil {
		s.logger.Error("image load failed", "path", path, "error", err)
		s.reporter.ShowError("Error", fmt.Sprintf("Failed to load image: %v", err))
		s.reporter.SetStatus("Failed to load image")
		return err
	}

	s.source = src
	s.sel.Clear()
	s.aspect.Reset()
	s.opts = warp.Options{}
	s.pipeline.Invalidate()
	s.texture = nil
	s.hist.Reset(s.snapshot())

	if s.recent != nil {
		if err := s.recent.Add(path); err != nil {
			s.logger.Warn("recent files not saved", "error", err)
		}
	}

	s.logger.Info("image loaded", "path", path, "width", src.Width(), "height", src.Height(), "format", src.Format)
	s.Emit(EventImageLoaded, ImageInfo{
		Path:   path,
		Width:  src.Width(),
		Height: src.Height(),
		DPI:    src.DPI,
		Image:  src.Image,
	})
	s.emitSelection()
	s.emitRubberBand(RubberBandInfo{})
	s.emitPreview()
	s.emitOptionsReverting()
	s.Emit(EventRecentFilesChanged, s.RecentFiles())
	s.reporter.SetStatus(fmt.Sprintf("Loaded image: %s (%dx%d)", src.Name(), src.Width(), src.Height()))
	return nil
}

// SetViewport updates the display mapping used for pointer input.
func (s *Session) SetViewport(v selection.Viewport) {
	s.sel.SetViewport(v)
}

// Viewport returns the current display mapping.
func (s *Session) Viewport() selection.Viewport {
	return s.sel.Viewport()
}

// Press handles a pointer press at display coordinates (x, y): it places a
// point while the selection is incomplete and starts a drag once complete.
func (s *Session) Press(x, y float64) {
	if s.source == nil {
		return
	}
	p := geometry.Point2D{X: x, Y: y}

	if s.sel.State() == selection.Complete {
		if s.sel.BeginDrag(p) {
			s.emitSelection()
		}
		return
	}

	if !s.sel.Place(p) {
		s.reporter.SetStatus("Point too close to an existing point")
		return
	}
	s.emitSelection()
	if s.sel.State() == selection.Complete {
		s.emitRubberBand(RubberBandInfo{})
		s.extract()
		s.reporter.SetStatus("Selection complete. Drag corners to adjust")
	} else {
		s.reporter.SetStatus(fmt.Sprintf("Point %d of %d placed", s.sel.Len(), selection.Corners))
	}
	s.push()
	s.emitOptions()
}

// Drag moves the active corner to display coordinates (x, y).
func (s *Session) Drag(x, y float64) {
	if !s.sel.Dragging() {
		return
	}
	if s.sel.DragTo(geometry.Point2D{X: x, Y: y}) {
		s.emitSelection()
		s.extract()
	}
}

// Release ends a drag, re-extracts and records the new state.
func (s *Session) Release() {
	if !s.sel.EndDrag() {
		return
	}
	s.emitSelection()
	s.extract()
	s.push()
	s.emitOptions()
}

// RubberBand updates the guide line from the last placed point to the
// cursor at display coordinates (x, y).
func (s *Session) RubberBand(x, y float64) {
	from, to, ok := s.sel.RubberBand(geometry.Point2D{X: x, Y: y})
	s.emitRubberBand(RubberBandInfo{From: from, To: to, Visible: ok})
}

// Clear removes the selection and resets mode and options.
func (s *Session) Clear() {
	if s.source == nil {
		return
	}
	s.sel.Clear()
	s.aspect.Reset()
	s.opts = warp.Options{}
	s.pipeline.Invalidate()
	s.texture = nil
	s.push()

	s.emitSelection()
	s.emitRubberBand(RubberBandInfo{})
	s.emitPreview()
	s.emitOptionsReverting()
	s.reporter.SetStatus("Selection cleared")
}

// SetAspectMode switches the aspect ratio policy.
func (s *Session) SetAspectMode(m aspect.Mode) {
	if m == s.aspect.Mode() {
		return
	}
	s.aspect.SetMode(m)
	s.extract()
	if s.source != nil {
		s.push()
	}
	s.emitOptionsReverting()
}

// SetCustomAspect validates and applies a custom ratio entry. Invalid input
// is reported and the previous value stays in effect.
func (s *Session) SetCustomAspect(text string) error {
	if _, err := s.aspect.SetCustom(text); err != nil {
		s.reporter.ShowError("Invalid Aspect Ratio",
			fmt.Sprintf("Please enter a number between %g and %g", aspect.MinRatio, aspect.MaxRatio))
		s.emitOptionsReverting()
		return err
	}
	if s.aspect.Mode() == aspect.Custom {
		s.extract()
		if s.source != nil {
			s.push()
		}
	}
	s.emitOptions()
	return nil
}

// SetOptions replaces the orientation options. The stored texture is
// re-oriented, no new extraction is needed.
func (s *Session) SetOptions(opts warp.Options) {
	if opts == s.opts {
		return
	}
	s.opts = opts
	if s.source != nil {
		s.push()
	}
	s.emitOptions()
	s.emitPreview()
}

// SetOutputResolution sets an explicit output size, or the derived size
// for extract.Original.
func (s *Session) SetOutputResolution(res extract.Resolution) {
	if res == s.resolution {
		return
	}
	s.resolution = res
	s.extract()
	s.emitOptions()
}

// Resolution returns the output size override.
func (s *Session) Resolution() extract.Resolution {
	return s.resolution
}

// Undo restores the previous state.
func (s *Session) Undo() bool {
	e, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.apply(e)
	s.reporter.SetStatus("Undo")
	return true
}

// Redo reapplies the most recently undone state.
func (s *Session) Redo() bool {
	e, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.apply(e)
	s.reporter.SetStatus("Redo")
	return true
}

// Poll applies the latest extraction result if one has arrived. It reports
// whether a result was consumed. Failures during a drag only reach the
// status bar; the dialog waits for the result extracted on release.
func (s *Session) Poll() bool {
	res, ok := s.pipeline.Poll()
	if !ok {
		return false
	}
	if res.Err != nil {
		s.logger.Warn("extraction failed", "id", res.ID, "error", res.Err, "dragging", s.sel.Dragging())
		s.reporter.SetStatus("Extraction failed")
		if !s.sel.Dragging() {
			s.reporter.ShowError("Extraction Failed", res.Err.Error())
		}
		s.emitOptions()
		return true
	}

	s.texture = res.Texture
	w, h := res.Texture.Size()
	s.logger.Debug("extraction complete", "id", res.ID, "width", w, "height", h, "elapsed", res.Elapsed)
	s.emitPreview()
	s.emitOptions()
	msg := fmt.Sprintf("Texture extracted (%dx%d)", w, h)
	if note := s.shapeNote(); note != "" {
		msg += "; " + note
	}
	s.reporter.SetStatus(msg)
	return true
}

// shapeNote describes a complete selection that still warps but folds or
// stretches the texture.
func (s *Session) shapeNote() string {
	q, ok := s.sel.Quad()
	switch {
	case !ok:
		return ""
	case !q.IsSimple():
		return "selection edges cross, the texture is folded"
	case !geometry.IsConvex(q.Points()):
		return "selection is concave"
	}
	return ""
}

// OrientedTexture returns a fresh copy of the full texture with the current
// options applied by the warp engine. It returns ErrNoTexture before any
// extraction succeeded.
func (s *Session) OrientedTexture() (*image.RGBA, error) {
	if s.texture == nil || s.texture.Full == nil {
		return nil, ErrNoTexture
	}
	return s.pipeline.Orient(s.texture.Full, s.opts)
}

// Save writes the oriented texture to path.
func (s *Session) Save(path string) error {
	if s.source == nil {
		s.reporter.ShowError("Error", "No image loaded. Please open an image first.")
		return ErrNoImage
	}
	full, err := s.OrientedTexture()
	if errors.Is(err, ErrNoTexture) {
		s.reporter.ShowError("Error", "No texture to save. Please extract a texture first.")
		return err
	}
	if err == nil {
		err = imgio.Save(path, full)
	}
	if err != nil {
		s.logger.Error("save failed", "path", path, "error", err)
		s.reporter.ShowError("Error", fmt.Sprintf("Failed to save texture: %v", err))
		return err
	}
	s.logger.Info("texture saved", "path", path)
	s.reporter.SetStatus(fmt.Sprintf("Texture saved to %s", path))
	s.reporter.ShowInfo("Success", "Texture saved successfully.")
	return nil
}

// extract resolves the ratio and starts a pipeline run when the selection
// is complete.
func (s *Session) extract() {
	if s.source == nil {
		return
	}
	q, ok := s.sel.Quad()
	if !ok {
		return
	}
	ratio, err := s.aspect.Resolve(q)
	if err != nil {
		s.logger.Debug("aspect ratio not resolved", "error", err)
		s.reporter.SetStatus("Selection too narrow to estimate the aspect ratio")
		return
	}

	id := s.pipeline.Start(extract.Request{
		Source:      s.source.Image,
		Quad:        q,
		Ratio:       ratio,
		Resolution:  s.resolution,
		MaxDim:      s.cfg.MaxOutputDimension,
		PreviewSize: s.cfg.PreviewMaxSize,
	})
	s.logger.Debug("extraction started", "id", id, "ratio", ratio, "mode", s.AspectMode())
}

func (s *Session) snapshot() history.Entry {
	return history.NewEntry(s.sel.Points(), s.opts, s.aspect.Value(), s.aspect.Mode())
}

func (s *Session) push() {
	if !s.hist.Push(s.snapshot()) {
		return
	}
	undo, redo := s.hist.Depth()
	s.logger.Debug("history recorded", "undo", undo, "redo", redo)
}

// apply restores a history entry without recording it.
func (s *Session) apply(e history.Entry) {
	s.sel.Restore(e.Points())
	s.opts = e.Options()
	s.aspect.Restore(e.Mode(), e.Ratio())

	if s.sel.State() == selection.Complete {
		s.extract()
	} else {
		s.pipeline.Invalidate()
		s.texture = nil
		s.emitPreview()
	}
	s.emitSelection()
	s.emitRubberBand(RubberBandInfo{})
	s.emitOptionsReverting()
}

func (s *Session) emitSelection() {
	s.Emit(EventSelectionChanged, SelectionInfo{
		Points: s.sel.Points(),
		Active: s.sel.Active(),
		State:  s.sel.State(),
	})
}

func (s *Session) emitRubberBand(info RubberBandInfo) {
	s.Emit(EventRubberBandChanged, info)
}

func (s *Session) emitPreview() {
	info := PreviewInfo{}
	if s.texture != nil && s.texture.Preview != nil {
		preview, err := s.pipeline.Orient(s.texture.Preview, s.opts)
		if err != nil {
			s.logger.Warn("preview orientation failed", "error", err)
			s.Emit(EventPreviewChanged, info)
			return
		}
		info.Preview = preview
		w, h := s.texture.Size()
		if s.opts.Rotate90 {
			w, h = h, w
		}
		info.Width, info.Height = w, h
	}
	s.Emit(EventPreviewChanged, info)
}

func (s *Session) emitOptions() {
	s.Emit(EventOptionsChanged, s.optionsInfo())
}

// emitOptionsReverting emits the options and asks the controls to drop
// unsubmitted input.
func (s *Session) emitOptionsReverting() {
	info := s.optionsInfo()
	info.Revert = true
	s.Emit(EventOptionsChanged, info)
}

func (s *Session) optionsInfo() OptionsInfo {
	info := OptionsInfo{
		Options:        s.opts,
		Mode:           s.aspect.Mode(),
		CustomText:     s.aspect.CustomText(),
		Ratio:          s.aspect.Value(),
		Resolution:     s.resolution,
		CanUndo:        s.hist.CanUndo(),
		CanRedo:        s.hist.CanRedo(),
		ExtractPending: s.pipeline.Pending(),
	}
	if q, ok := s.sel.Quad(); ok {
		if est, err := aspect.Estimate(q); err == nil {
			info.Estimated = est
		}
	}
	return info
}
