// Package mainwindow provides the main application window.
package mainwindow

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"textractor/internal/app"
	imgio "textractor/internal/image"
	"textractor/internal/selection"
	"textractor/internal/version"
	"textractor/pkg/geometry"
	"textractor/ui/canvas"
	"textractor/ui/dialogs"
	"textractor/ui/panels"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir  = "lastDirectory"
	defaultSaveName = "texture.png"
)

// Options configures the window.
type Options struct {
	Width           float32
	Height          float32
	ShowLaunchPopup bool

	// OnLaunchNoticeClosed receives true when the user disabled the notice.
	OnLaunchNoticeClosed func(dontShowAgain bool)
}

// MainWindow is the primary application window. It implements
// app.Reporter.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	opts   Options
	logger *slog.Logger

	canvas    *canvas.ImageCanvas
	controls  *panels.ControlsPanel
	statusBar *widget.Label

	loop *app.Loop

	// Menu state. Session events arrive off the UI goroutine, so the menu
	// is rebuilt from this state and handed to SetMainMenu rather than
	// mutating items fyne may be drawing.
	menuMu      sync.Mutex
	canUndo     bool
	canRedo     bool
	recentFiles []string

	// Pointer motion and viewport changes are coalesced so a burst of
	// events queues at most one task each.
	hoverPos       atomic.Pointer[geometry.Point2D]
	hoverQueued    atomic.Bool
	viewport       atomic.Pointer[selection.Viewport]
	viewportQueued atomic.Bool

	quitOnce sync.Once
}

var _ app.Reporter = (*MainWindow)(nil)

// New creates a new main window.
func New(fyneApp fyne.App, opts Options, logger *slog.Logger) *MainWindow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	win := fyneApp.NewWindow(version.AppName)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		opts:   opts,
		logger: logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()

	if opts.Width > 0 && opts.Height > 0 {
		win.Resize(fyne.NewSize(opts.Width, opts.Height))
	}
	win.SetCloseIntercept(mw.onQuit)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewImageCanvas(app.ColorAccent)
	mw.controls = panels.NewControlsPanel(mw.submit)
	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,   // top
		nil,       // bottom
		nil,       // left
		nil,       // right
		mw.canvas, // center
	)

	split := container.NewHSplit(canvasArea, mw.controls.Container())
	split.SetOffset(0.72)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with file and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton("Load Image", mw.onOpen),
		widget.NewButton("Clear Selection", mw.onClear),
		widget.NewButton("Save Texture", mw.onSave),
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.canvas.ZoomOut),
		widget.NewButton("+", mw.canvas.ZoomIn),
		widget.NewButton("Fit", mw.canvas.FitToWindow),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.SetMainMenu(mw.buildMainMenu())
}

// buildMainMenu creates a fresh menu tree from the current menu state.
func (mw *MainWindow) buildMainMenu() *fyne.MainMenu {
	mw.menuMu.Lock()
	canUndo, canRedo := mw.canUndo, mw.canRedo
	files := slices.Clone(mw.recentFiles)
	mw.menuMu.Unlock()

	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = mw.recentMenu(files)

	openItem := fyne.NewMenuItem("Open...", mw.onOpen)
	openItem.Shortcut = shortcut(fyne.KeyO)
	saveItem := fyne.NewMenuItem("Save Texture...", mw.onSave)
	saveItem.Shortcut = shortcut(fyne.KeyS)
	quitItem := fyne.NewMenuItem("Quit", mw.onQuit)
	quitItem.IsQuit = true

	fileMenu := fyne.NewMenu("File",
		openItem,
		recentItem,
		fyne.NewMenuItemSeparator(),
		saveItem,
		fyne.NewMenuItemSeparator(),
		quitItem,
	)

	undoItem := fyne.NewMenuItem("Undo", mw.onUndo)
	undoItem.Shortcut = shortcut(fyne.KeyZ)
	undoItem.Disabled = !canUndo
	redoItem := fyne.NewMenuItem("Redo", mw.onRedo)
	redoItem.Shortcut = shortcut(fyne.KeyY)
	redoItem.Disabled = !canRedo

	editMenu := fyne.NewMenu("Edit",
		undoItem,
		redoItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Selection", mw.onClear),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.canvas.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.canvas.ZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.canvas.FitToWindow),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("User Guide", func() { dialogs.ShowUserGuide(mw.Window) }),
		fyne.NewMenuItem("About", func() { dialogs.ShowAbout(mw.Window) }),
	)

	return fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu)
}

func (mw *MainWindow) recentMenu(files []string) *fyne.Menu {
	items := make([]*fyne.MenuItem, 0, len(files))
	for _, f := range files {
		path := f
		items = append(items, fyne.NewMenuItem(path, func() { mw.openPath(path) }))
	}
	if len(items) == 0 {
		empty := fyne.NewMenuItem("No recent files", nil)
		empty.Disabled = true
		items = append(items, empty)
	}
	return fyne.NewMenu("Open Recent", items...)
}

func shortcut(key fyne.KeyName) fyne.Shortcut {
	return &desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierShortcutDefault}
}

// setupShortcuts registers the keyboard shortcuts on the window canvas.
func (mw *MainWindow) setupShortcuts() {
	bind := func(key fyne.KeyName, action func()) {
		mw.Canvas().AddShortcut(shortcut(key), func(fyne.Shortcut) { action() })
	}
	bind(fyne.KeyO, mw.onOpen)
	bind(fyne.KeyS, mw.onSave)
	bind(fyne.KeyZ, mw.onUndo)
	bind(fyne.KeyY, mw.onRedo)
	bind(fyne.KeyQ, mw.onQuit)
}

// Bind connects the window to a session and the loop that drives it. Call
// before the loop starts: it reads the session directly.
func (mw *MainWindow) Bind(s *app.Session, loop *app.Loop) {
	mw.loop = loop
	mw.controls.Bind(s)

	s.On(app.EventImageLoaded, func(data interface{}) {
		info, ok := data.(app.ImageInfo)
		if !ok {
			return
		}
		mw.canvas.SetImage(info.Image)
		mw.SetTitle(version.AppName + " - " + filepath.Base(info.Path))
	})

	s.On(app.EventSelectionChanged, func(data interface{}) {
		if info, ok := data.(app.SelectionInfo); ok {
			mw.canvas.SetSelection(info.Points, info.Active, info.State == selection.Complete)
		}
	})

	s.On(app.EventRubberBandChanged, func(data interface{}) {
		if info, ok := data.(app.RubberBandInfo); ok {
			mw.canvas.SetRubberBand(info.From, info.To, info.Visible)
		}
	})

	s.On(app.EventOptionsChanged, func(data interface{}) {
		if info, ok := data.(app.OptionsInfo); ok {
			mw.setHistoryState(info.CanUndo, info.CanRedo)
		}
	})

	s.On(app.EventRecentFilesChanged, func(data interface{}) {
		if files, ok := data.([]string); ok {
			mw.setRecentFiles(files)
		}
	})

	mw.canvas.OnViewportChange(mw.queueViewport)
	mw.canvas.OnPress(func(x, y float64) {
		mw.submit(func(s *app.Session) { s.Press(x, y) })
	})
	mw.canvas.OnDrag(func(x, y float64) {
		mw.submit(func(s *app.Session) { s.Drag(x, y) })
	})
	mw.canvas.OnRelease(func() {
		mw.submit(func(s *app.Session) { s.Release() })
	})
	mw.canvas.OnHover(mw.queueHover)

	s.SetViewport(mw.canvas.Viewport())
	mw.setRecentFiles(s.RecentFiles())
}

// ShowLaunchNotice shows the license notice when enabled.
func (mw *MainWindow) ShowLaunchNotice() {
	if !mw.opts.ShowLaunchPopup {
		return
	}
	dialogs.ShowLaunchNotice(mw.Window, mw.opts.OnLaunchNoticeClosed)
}

// SetStatus updates the status bar text.
func (mw *MainWindow) SetStatus(msg string) {
	mw.statusBar.SetText(msg)
}

// ShowError displays an error dialog.
func (mw *MainWindow) ShowError(title, msg string) {
	dialog.ShowInformation(title, msg, mw.Window)
}

// ShowInfo displays an information dialog.
func (mw *MainWindow) ShowInfo(title, msg string) {
	dialog.ShowInformation(title, msg, mw.Window)
}

func (mw *MainWindow) submit(fn func(*app.Session)) bool {
	if mw.loop == nil {
		return false
	}
	return mw.loop.Do(fn)
}

func (mw *MainWindow) queueHover(x, y float64) {
	mw.hoverPos.Store(&geometry.Point2D{X: x, Y: y})
	if !mw.hoverQueued.CompareAndSwap(false, true) {
		return
	}
	if !mw.submit(func(s *app.Session) {
		mw.hoverQueued.Store(false)
		if p := mw.hoverPos.Load(); p != nil {
			s.RubberBand(p.X, p.Y)
		}
	}) {
		mw.hoverQueued.Store(false)
	}
}

func (mw *MainWindow) queueViewport(v selection.Viewport) {
	mw.viewport.Store(&v)
	if !mw.viewportQueued.CompareAndSwap(false, true) {
		return
	}
	if !mw.submit(func(s *app.Session) {
		mw.viewportQueued.Store(false)
		if latest := mw.viewport.Load(); latest != nil {
			s.SetViewport(*latest)
		}
	}) {
		mw.viewportQueued.Store(false)
	}
}

func (mw *MainWindow) setHistoryState(canUndo, canRedo bool) {
	mw.menuMu.Lock()
	changed := mw.canUndo != canUndo || mw.canRedo != canRedo
	mw.canUndo, mw.canRedo = canUndo, canRedo
	mw.menuMu.Unlock()
	if changed {
		mw.SetMainMenu(mw.buildMainMenu())
	}
}

func (mw *MainWindow) setRecentFiles(files []string) {
	mw.menuMu.Lock()
	changed := !slices.Equal(mw.recentFiles, files)
	mw.recentFiles = slices.Clone(files)
	mw.menuMu.Unlock()
	if changed {
		mw.SetMainMenu(mw.buildMainMenu())
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// OpenPath loads an image, e.g. one named on the command line.
func (mw *MainWindow) OpenPath(path string) {
	mw.openPath(path)
}

func (mw *MainWindow) openPath(path string) {
	mw.logger.Debug("open requested", "path", path)
	mw.SetStatus("Loading image: " + filepath.Base(path))
	mw.submit(func(s *app.Session) { _ = s.LoadImage(path) })
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.openPath(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imgio.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSave() {
	var hasImage, hasTexture bool
	if mw.loop == nil || !mw.loop.Call(func(s *app.Session) {
		hasImage = s.HasImage()
		hasTexture = s.Texture() != nil
	}) {
		return
	}
	switch {
	case !hasImage:
		mw.ShowError("Error", "No image loaded. Please open an image first.")
		return
	case !hasTexture:
		mw.ShowError("Error", "No texture to save. Please extract a texture first.")
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		mw.saveTo(writer.URI().Path())
	}, mw.Window)
	fd.SetFileName(defaultSaveName)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// saveTo writes the texture for the file the save dialog created. The
// dialog leaves an empty file behind; it is removed when the texture goes
// to another path or the save fails.
func (mw *MainWindow) saveTo(placeholder string) {
	path := placeholder
	if filepath.Ext(path) == "" {
		path += ".png"
		mw.discardPlaceholder(placeholder)
	}
	mw.saveLastDir(path)
	mw.SetStatus("Saving texture: " + filepath.Base(path))
	mw.submit(func(s *app.Session) {
		if err := s.Save(path); err != nil {
			mw.discardPlaceholder(path)
		}
	})
}

// discardPlaceholder removes path if it is an empty regular file.
func (mw *MainWindow) discardPlaceholder(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() != 0 {
		return
	}
	if err := os.Remove(path); err != nil {
		mw.logger.Warn("placeholder not removed", "path", path, "error", err)
	}
}

func (mw *MainWindow) onClear() {
	mw.submit(func(s *app.Session) { s.Clear() })
}

func (mw *MainWindow) onUndo() {
	mw.submit(func(s *app.Session) { s.Undo() })
}

func (mw *MainWindow) onRedo() {
	mw.submit(func(s *app.Session) { s.Redo() })
}

func (mw *MainWindow) onQuit() {
	dialogs.ConfirmQuit(mw.Window, func() {
		mw.quitOnce.Do(func() {
			if mw.loop != nil {
				mw.loop.Stop()
			}
			mw.app.Quit()
		})
	})
}
