package mainwindow

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"textractor/internal/app"
	imgio "textractor/internal/image"
	"textractor/internal/recent"
	"textractor/internal/warp"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoundWindow(t *testing.T) (*MainWindow, *app.Loop, *recent.Store) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	mw := New(a, Options{Width: 800, Height: 600}, nil)
	store := recent.Load(filepath.Join(t.TempDir(), "recent.json"), recent.DefaultMax)
	s := app.NewSession(app.DefaultSessionConfig(), warp.NewEngine(), mw, store, nil)
	loop := app.NewLoop(s, 10*time.Millisecond, nil)
	mw.Bind(s, loop)
	loop.Start()
	t.Cleanup(loop.Stop)
	return mw, loop, store
}

// menuItem finds an item in the window's current main menu. Call it on
// the loop goroutine: session events replace the menu from there.
func menuItem(mw *MainWindow, menu, label string) *fyne.MenuItem {
	for _, m := range mw.MainMenu().Items {
		if m.Label != menu {
			continue
		}
		for _, item := range m.Items {
			if item.Label == label {
				return item
			}
		}
	}
	return nil
}

func recentLabels(mw *MainWindow) []string {
	var labels []string
	if item := menuItem(mw, "File", "Open Recent"); item != nil && item.ChildMenu != nil {
		for _, r := range item.ChildMenu.Items {
			labels = append(labels, r.Label)
		}
	}
	return labels
}

func TestBindStartsWithEmptyState(t *testing.T) {
	mw, loop, _ := newBoundWindow(t)

	var recent *fyne.Menu
	var undo, redo, guide *fyne.MenuItem
	require.True(t, loop.Call(func(*app.Session) {
		recent = menuItem(mw, "File", "Open Recent").ChildMenu
		undo = menuItem(mw, "Edit", "Undo")
		redo = menuItem(mw, "Edit", "Redo")
		guide = menuItem(mw, "Help", "User Guide")
	}))

	require.Len(t, recent.Items, 1)
	assert.Equal(t, "No recent files", recent.Items[0].Label)
	assert.True(t, recent.Items[0].Disabled)
	assert.True(t, undo.Disabled)
	assert.True(t, redo.Disabled)
	assert.NotNil(t, guide)
}

func TestOpenPathLoadsImage(t *testing.T) {
	mw, loop, store := newBoundWindow(t)

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	img.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, imgio.Save(path, img))

	mw.OpenPath(path)

	var title, status string
	require.Eventually(t, func() bool {
		loop.Call(func(*app.Session) {
			title = mw.Title()
			status = mw.statusBar.Text
		})
		return title == "Textractor - photo.png"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "Loaded image: photo.png (64x48)", status)
	assert.Equal(t, []string{path}, store.Files())
	var labels []string
	loop.Call(func(*app.Session) { labels = recentLabels(mw) })
	assert.Equal(t, []string{path}, labels)
}

func TestPlacingPointsEnablesUndo(t *testing.T) {
	mw, loop, _ := newBoundWindow(t)

	path := filepath.Join(t.TempDir(), "flat.png")
	require.NoError(t, imgio.Save(path, image.NewRGBA(image.Rect(0, 0, 100, 100))))

	var loadErr error
	var canUndo, canRedo bool
	require.True(t, loop.Call(func(s *app.Session) {
		loadErr = s.LoadImage(path)
		canUndo = !menuItem(mw, "Edit", "Undo").Disabled
	}))
	require.NoError(t, loadErr)
	assert.False(t, canUndo)

	require.True(t, loop.Call(func(s *app.Session) {
		s.Press(10, 10)
		canUndo = !menuItem(mw, "Edit", "Undo").Disabled
	}))
	assert.True(t, canUndo)

	require.True(t, loop.Call(func(s *app.Session) {
		s.Undo()
		canUndo = !menuItem(mw, "Edit", "Undo").Disabled
		canRedo = !menuItem(mw, "Edit", "Redo").Disabled
	}))
	assert.False(t, canUndo)
	assert.True(t, canRedo)
}

func TestSetStatus(t *testing.T) {
	mw, _, _ := newBoundWindow(t)
	mw.SetStatus("hello")
	assert.Equal(t, "hello", mw.statusBar.Text)
}

func TestSaveToDropsExtensionlessPlaceholder(t *testing.T) {
	mw, loop, _ := newBoundWindow(t)

	path := filepath.Join(t.TempDir(), "flat.png")
	require.NoError(t, imgio.Save(path, image.NewRGBA(image.Rect(0, 0, 100, 100))))
	var texture bool
	var loadErr error
	require.True(t, loop.Call(func(s *app.Session) {
		loadErr = s.LoadImage(path)
		s.Press(20, 20)
		s.Press(80, 20)
		s.Press(80, 80)
		s.Press(20, 80)
	}))
	require.NoError(t, loadErr)
	require.Eventually(t, func() bool {
		loop.Call(func(s *app.Session) { texture = s.Texture() != nil })
		return texture
	}, 10*time.Second, 10*time.Millisecond)

	placeholder := filepath.Join(t.TempDir(), "texture")
	require.NoError(t, os.WriteFile(placeholder, nil, 0o644))

	mw.saveTo(placeholder)
	require.True(t, loop.Call(func(*app.Session) {}))

	assert.NoFileExists(t, placeholder)
	assert.FileExists(t, placeholder+".png")
}

func TestSaveToRemovesPlaceholderOnFailure(t *testing.T) {
	mw, loop, _ := newBoundWindow(t)

	placeholder := filepath.Join(t.TempDir(), "texture.xyz")
	require.NoError(t, os.WriteFile(placeholder, nil, 0o644))

	mw.saveTo(placeholder)
	require.True(t, loop.Call(func(*app.Session) {}))
	assert.NoFileExists(t, placeholder)
}
