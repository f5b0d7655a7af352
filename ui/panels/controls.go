// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"sync"
	"sync/atomic"

	"textractor/internal/app"
	"textractor/internal/aspect"
	"textractor/internal/extract"
	"textractor/internal/warp"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const previewMinSize = 250

// Submit queues fn on the interaction loop. It returns false once the loop
// has stopped.
type Submit func(fn func(*app.Session)) bool

// ControlsPanel holds the aspect, orientation and resolution controls and
// the texture preview.
type ControlsPanel struct {
	submit    Submit
	container fyne.CanvasObject

	// Set while widgets are being synced from session events so their
	// change callbacks do not echo back into the session.
	syncing atomic.Bool

	imageLabel *widget.Label

	aspectSelect   *widget.Select
	customEntry    *commitEntry
	estimatedLabel *widget.Label

	// customValue is the custom ratio text last reported by the session or
	// last sent to it. Events that carry the same text leave the entry alone.
	customMu    sync.Mutex
	customValue string

	flipCheck   *widget.Check
	flopCheck   *widget.Check
	rotateCheck *widget.Check

	resolutionSelect *widget.Select
	resolutionEntry  *widget.Entry

	preview     *fynecanvas.Raster
	previewMu   sync.Mutex
	previewImg  *image.RGBA
	outputLabel *widget.Label
	busyLabel   *widget.Label
}

// commitEntry is an Entry that also commits its text when it loses focus.
type commitEntry struct {
	widget.Entry
	onCommit func(string)
}

func newCommitEntry(onCommit func(string)) *commitEntry {
	e := &commitEntry{onCommit: onCommit}
	e.ExtendBaseWidget(e)
	e.OnSubmitted = onCommit
	return e
}

// FocusLost implements fyne.Focusable.
func (e *commitEntry) FocusLost() {
	e.Entry.FocusLost()
	if e.onCommit != nil {
		e.onCommit(e.Text)
	}
}

// NewControlsPanel creates the panel. Changes are sent through submit.
func NewControlsPanel(submit Submit) *ControlsPanel {
	cp := &ControlsPanel{submit: submit}
	cp.syncing.Store(true)
	defer cp.syncing.Store(false)

	cp.imageLabel = widget.NewLabel("No image loaded")
	cp.imageLabel.Wrapping = fyne.TextWrapWord

	modes := make([]string, len(aspect.Modes))
	for i, m := range aspect.Modes {
		modes[i] = m.String()
	}
	cp.aspectSelect = widget.NewSelect(modes, cp.onAspectMode)
	cp.aspectSelect.SetSelected(aspect.Estimated.String())

	cp.customEntry = newCommitEntry(cp.onCustomAspect)
	cp.customEntry.SetText(aspect.DefaultCustomText)
	cp.customValue = aspect.DefaultCustomText
	cp.customEntry.Disable()

	cp.estimatedLabel = widget.NewLabel("Estimated ratio: -")

	cp.flipCheck = widget.NewCheck("Flip (vertical)", func(bool) { cp.onOptions() })
	cp.flopCheck = widget.NewCheck("Flop (horizontal)", func(bool) { cp.onOptions() })
	cp.rotateCheck = widget.NewCheck("Rotate 90°", func(bool) { cp.onOptions() })

	cp.resolutionSelect = widget.NewSelect(extract.Presets, cp.onResolutionPreset)
	cp.resolutionSelect.SetSelected(extract.PresetOriginal)

	cp.resolutionEntry = widget.NewEntry()
	cp.resolutionEntry.SetPlaceHolder("WIDTHxHEIGHT")
	cp.resolutionEntry.OnSubmitted = cp.onCustomResolution
	cp.resolutionEntry.Disable()

	cp.preview = fynecanvas.NewRaster(cp.drawPreview)
	cp.preview.SetMinSize(fyne.NewSize(previewMinSize, previewMinSize))

	cp.outputLabel = widget.NewLabel("No texture")
	cp.busyLabel = widget.NewLabel("")

	cp.container = container.NewVScroll(container.NewVBox(
		widget.NewCard("Image", "", cp.imageLabel),
		widget.NewCard("Aspect Ratio", "", container.NewVBox(
			cp.aspectSelect,
			container.NewBorder(nil, nil, widget.NewLabel("Custom:"), nil, cp.customEntry),
			cp.estimatedLabel,
		)),
		widget.NewCard("Transform", "", container.NewVBox(
			cp.flipCheck,
			cp.flopCheck,
			cp.rotateCheck,
		)),
		widget.NewCard("Output Resolution", "", container.NewVBox(
			cp.resolutionSelect,
			cp.resolutionEntry,
		)),
		widget.NewCard("Preview", "", container.NewVBox(
			cp.preview,
			cp.outputLabel,
			cp.busyLabel,
		)),
	))

	return cp
}

// Container returns the panel container.
func (cp *ControlsPanel) Container() fyne.CanvasObject {
	return cp.container
}

// Bind subscribes the panel to session events. Call before the loop starts.
func (cp *ControlsPanel) Bind(s *app.Session) {
	s.On(app.EventImageLoaded, func(data interface{}) {
		if info, ok := data.(app.ImageInfo); ok {
			cp.ShowImage(info)
		}
	})
	s.On(app.EventOptionsChanged, func(data interface{}) {
		if info, ok := data.(app.OptionsInfo); ok {
			cp.ShowOptions(info)
		}
	})
	s.On(app.EventPreviewChanged, func(data interface{}) {
		if info, ok := data.(app.PreviewInfo); ok {
			cp.ShowPreview(info)
		}
	})
}

// ShowImage updates the image description.
func (cp *ControlsPanel) ShowImage(info app.ImageInfo) {
	text := fmt.Sprintf("%s\n%d x %d", filepath.Base(info.Path), info.Width, info.Height)
	if info.DPI > 0 {
		text += fmt.Sprintf(" @ %.0f DPI", info.DPI)
	}
	cp.imageLabel.SetText(text)
}

// ShowOptions syncs the controls with the session state.
func (cp *ControlsPanel) ShowOptions(info app.OptionsInfo) {
	cp.syncing.Store(true)
	defer cp.syncing.Store(false)

	cp.aspectSelect.SetSelected(info.Mode.String())
	cp.customMu.Lock()
	reset := info.Revert || info.CustomText != cp.customValue
	if reset {
		cp.customValue = info.CustomText
	}
	cp.customMu.Unlock()
	if reset {
		cp.customEntry.SetText(info.CustomText)
	}
	if info.Mode == aspect.Custom {
		cp.customEntry.Enable()
	} else {
		cp.customEntry.Disable()
	}

	if info.Estimated > 0 {
		cp.estimatedLabel.SetText(fmt.Sprintf("Estimated ratio: %.3f", info.Estimated))
	} else {
		cp.estimatedLabel.SetText("Estimated ratio: -")
	}

	cp.flipCheck.SetChecked(info.Options.FlipVertical)
	cp.flopCheck.SetChecked(info.Options.FlipHorizontal)
	cp.rotateCheck.SetChecked(info.Options.Rotate90)

	switch {
	case info.Resolution.IsOriginal() && cp.resolutionSelect.Selected == extract.PresetCustom:
		// keep the custom entry open until a size is submitted
	case info.Resolution.IsOriginal():
		cp.resolutionSelect.SetSelected(extract.PresetOriginal)
		cp.resolutionEntry.Disable()
	default:
		label := info.Resolution.String()
		if isPreset(label) {
			cp.resolutionSelect.SetSelected(label)
			cp.resolutionEntry.Disable()
		} else {
			cp.resolutionSelect.SetSelected(extract.PresetCustom)
			cp.resolutionEntry.SetText(label)
			cp.resolutionEntry.Enable()
		}
	}

	if info.ExtractPending {
		cp.busyLabel.SetText("Extracting...")
	} else {
		cp.busyLabel.SetText("")
	}
}

// ShowPreview displays the oriented preview, or clears it.
func (cp *ControlsPanel) ShowPreview(info app.PreviewInfo) {
	cp.previewMu.Lock()
	cp.previewImg = info.Preview
	cp.previewMu.Unlock()

	if info.Preview == nil {
		cp.outputLabel.SetText("No texture")
	} else {
		cp.outputLabel.SetText(fmt.Sprintf("Output: %d x %d", info.Width, info.Height))
	}
	cp.preview.Refresh()
}

// drawPreview fits the preview into the raster, centered, keeping its
// aspect ratio.
func (cp *ControlsPanel) drawPreview(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	cp.previewMu.Lock()
	img := cp.previewImg
	cp.previewMu.Unlock()
	if img == nil || w <= 0 || h <= 0 {
		return out
	}

	scaled, _ := warp.ScaleToFit(img, w, h)
	b := scaled.Bounds()
	at := image.Pt((w-b.Dx())/2, (h-b.Dy())/2)
	draw.Draw(out, b.Add(at), scaled, image.Point{}, draw.Src)
	return out
}

func (cp *ControlsPanel) onAspectMode(label string) {
	if cp.syncing.Load() {
		return
	}
	m, ok := aspect.ParseMode(label)
	if !ok {
		return
	}
	cp.submit(func(s *app.Session) { s.SetAspectMode(m) })
}

func (cp *ControlsPanel) onCustomAspect(text string) {
	cp.customMu.Lock()
	unchanged := text == cp.customValue
	cp.customValue = text
	cp.customMu.Unlock()
	if unchanged {
		return
	}
	cp.submit(func(s *app.Session) { _ = s.SetCustomAspect(text) })
}

func (cp *ControlsPanel) onOptions() {
	if cp.syncing.Load() {
		return
	}
	opts := warp.Options{
		FlipVertical:   cp.flipCheck.Checked,
		FlipHorizontal: cp.flopCheck.Checked,
		Rotate90:       cp.rotateCheck.Checked,
	}
	cp.submit(func(s *app.Session) { s.SetOptions(opts) })
}

func (cp *ControlsPanel) onResolutionPreset(label string) {
	if cp.syncing.Load() {
		return
	}
	if label == extract.PresetCustom {
		cp.resolutionEntry.Enable()
		return
	}
	cp.resolutionEntry.Disable()
	res, err := extract.ParseResolution(label)
	if err != nil {
		return
	}
	cp.submit(func(s *app.Session) { s.SetOutputResolution(res) })
}

func (cp *ControlsPanel) onCustomResolution(text string) {
	res, err := extract.ParseResolution(text)
	if err != nil {
		cp.submit(func(s *app.Session) { s.ReportError("Invalid Resolution", err.Error()) })
		return
	}
	cp.submit(func(s *app.Session) { s.SetOutputResolution(res) })
}

func isPreset(label string) bool {
	for _, p := range extract.Presets {
		if p == label {
			return true
		}
	}
	return false
}
