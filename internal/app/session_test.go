package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"textractor/internal/aspect"
	"textractor/internal/extract"
	imgio "textractor/internal/image"
	"textractor/internal/recent"
	"textractor/internal/selection"
	"textractor/internal/warp"
	"textractor/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	statuses []string
	titles   []string
	infos    []string
}

func (r *recorder) SetStatus(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *recorder) ShowError(title, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *recorder) ShowInfo(title, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, title)
}

func (r *recorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recorder) errorTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

func writeImage(t *testing.T, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, imgio.Save(path, img))
	return path
}

func newSession(t *testing.T) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	store := recent.Load(filepath.Join(t.TempDir(), "recent.json"), recent.DefaultMax)
	s := NewSession(DefaultSessionConfig(), warp.NewEngine(), rec, store, nil)
	t.Cleanup(s.Close)
	return s, rec
}

func loaded(t *testing.T, c color.RGBA) (*Session, *recorder) {
	t.Helper()
	s, rec := newSession(t)
	require.NoError(t, s.LoadImage(writeImage(t, "src.png", 100, 100, c)))
	return s, rec
}

func selectSquare(s *Session) {
	s.Press(25, 25)
	s.Press(75, 25)
	s.Press(75, 75)
	s.Press(25, 75)
}

func waitTexture(t *testing.T, s *Session) *extract.Texture {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Poll()
		return !s.Extracting() && s.Texture() != nil
	}, 10*time.Second, 5*time.Millisecond)
	return s.Texture()
}

func TestLoadImageFailureKeepsState(t *testing.T) {
	s, rec := newSession(t)

	err := s.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, imgio.ErrLoad)
	assert.False(t, s.HasImage())
	assert.Equal(t, []string{"Error"}, rec.errorTitles())

	require.NoError(t, s.LoadImage(writeImage(t, "a.png", 50, 50, color.RGBA{A: 255})))
	s.Press(10, 10)

	assert.Error(t, s.LoadImage(filepath.Join(t.TempDir(), "missing.png")))
	assert.True(t, s.HasImage())
	assert.Len(t, s.Points(), 1)
}

func TestPressWithoutImageIsIgnored(t *testing.T) {
	s, _ := newSession(t)
	s.Press(10, 10)
	assert.Empty(t, s.Points())
}

func TestUniformSquareScenario(t *testing.T) {
	fill := color.RGBA{R: 12, G: 200, B: 99, A: 255}
	s, _ := loaded(t, fill)

	selectSquare(s)
	s.SetAspectMode(aspect.Square)

	tex := waitTexture(t, s)
	w, h := tex.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, fill, tex.Full.RGBAAt(x, y))
		}
	}
}

func TestPlacementTooCloseChangesNothing(t *testing.T) {
	s, rec := loaded(t, color.RGBA{A: 255})
	s.Press(40, 40)
	require.True(t, s.CanUndo())

	before := s.Points()
	s.Press(45, 45)
	assert.Equal(t, before, s.Points())
	assert.Contains(t, rec.statuses, "Point too close to an existing point")

	// only the first placement was recorded
	require.True(t, s.Undo())
	assert.Empty(t, s.Points())
	assert.False(t, s.CanUndo())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	wantPoints := s.Points()

	s.SetOptions(warp.Options{FlipVertical: true})
	assert.True(t, s.Options().FlipVertical)

	require.True(t, s.Undo())
	assert.False(t, s.Options().FlipVertical)
	assert.Equal(t, wantPoints, s.Points())

	require.True(t, s.Redo())
	assert.True(t, s.Options().FlipVertical)
	assert.Equal(t, wantPoints, s.Points())
	assert.False(t, s.Redo())
}

func TestUndoAtBaselineIsNoOp(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Empty(t, s.Points())
}

func TestNewActionClearsRedo(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	s.Press(10, 10)
	s.Press(60, 10)
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	s.Press(80, 80)
	assert.False(t, s.CanRedo())
}

func TestDragPushesHistoryOnlyOnRelease(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	original := s.Points()

	s.Press(26, 24)
	s.Drag(20, 20)
	s.Drag(15, 18)
	assert.Equal(t, geometry.Point2D{X: 15, Y: 18}, s.Points()[0])
	s.Release()

	require.True(t, s.Undo())
	assert.Equal(t, original, s.Points())
	require.True(t, s.Redo())
	assert.Equal(t, geometry.Point2D{X: 15, Y: 18}, s.Points()[0])
}

func TestDragTooCloseFreezesPoint(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)

	s.Press(25, 25)
	s.Drag(70, 28)
	assert.Equal(t, geometry.Point2D{X: 25, Y: 25}, s.Points()[0])
	s.Release()
}

func TestClearResetsModeAndOptions(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	s.SetAspectMode(aspect.Square)
	s.SetOptions(warp.Options{Rotate90: true})

	s.Clear()
	assert.Empty(t, s.Points())
	assert.Equal(t, aspect.Estimated, s.AspectMode())
	assert.Equal(t, warp.Options{}, s.Options())
	assert.Nil(t, s.Texture())

	require.True(t, s.Undo())
	assert.Len(t, s.Points(), 4)
	assert.Equal(t, aspect.Square, s.AspectMode())
	assert.True(t, s.Options().Rotate90)
}

func TestCustomAspectRejectsText(t *testing.T) {
	s, rec := loaded(t, color.RGBA{A: 255})

	var last OptionsInfo
	s.On(EventOptionsChanged, func(data interface{}) { last = data.(OptionsInfo) })

	err := s.SetCustomAspect("abc")
	assert.ErrorIs(t, err, aspect.ErrInvalidRatio)
	assert.Equal(t, "1.0", last.CustomText)
	assert.True(t, last.Revert)
	assert.Contains(t, rec.errorTitles(), "Invalid Aspect Ratio")
}

func TestCustomAspectDrivesOutputSize(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	s.SetAspectMode(aspect.Custom)
	require.NoError(t, s.SetCustomAspect("2"))
	assert.Equal(t, 2.0, s.Ratio())

	tex := waitTexture(t, s)
	w, h := tex.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestOutputResolutionOverride(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	s.SetOutputResolution(extract.Resolution{Width: 64, Height: 32})

	tex := waitTexture(t, s)
	w, h := tex.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
}

func TestDegenerateEstimateSkipsExtraction(t *testing.T) {
	s, rec := loaded(t, color.RGBA{A: 255})
	s.SetViewport(selection.Viewport{Scale: 100, Zoom: 1})

	s.Press(0, 0)
	s.Press(2000, 0)
	s.Press(2000, 50)
	s.Press(0, 50)
	require.Len(t, s.Points(), 4)

	assert.False(t, s.Extracting())
	assert.Contains(t, rec.statuses, "Selection too narrow to estimate the aspect ratio")
}

func TestSaveOrientedTexture(t *testing.T) {
	s, rec := loaded(t, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "out.png")

	assert.ErrorIs(t, s.Save(path), ErrNoTexture)

	selectSquare(s)
	s.SetOutputResolution(extract.Resolution{Width: 40, Height: 20})
	waitTexture(t, s)
	s.SetOptions(warp.Options{FlipVertical: true, Rotate90: true})

	require.NoError(t, s.Save(path))
	assert.Equal(t, []string{"Success"}, rec.infos)
	got, err := imgio.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Width())
	assert.Equal(t, 40, got.Height())
}

func TestSaveFailureReported(t *testing.T) {
	s, rec := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	waitTexture(t, s)

	err := s.Save(filepath.Join(t.TempDir(), "out.xyz"))
	assert.ErrorIs(t, err, imgio.ErrSave)
	assert.Contains(t, rec.errorTitles(), "Error")
}

func TestEventsCarryCopies(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})

	var got SelectionInfo
	s.On(EventSelectionChanged, func(data interface{}) { got = data.(SelectionInfo) })
	s.Press(30, 30)

	require.Len(t, got.Points, 1)
	assert.Equal(t, selection.Partial, got.State)
	got.Points[0].X = 999
	assert.Equal(t, 30.0, s.Points()[0].X)
}

func TestPreviewEventIsOriented(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})

	var preview PreviewInfo
	s.On(EventPreviewChanged, func(data interface{}) { preview = data.(PreviewInfo) })

	selectSquare(s)
	s.SetOutputResolution(extract.Resolution{Width: 60, Height: 30})
	waitTexture(t, s)
	require.NotNil(t, preview.Preview)
	assert.Equal(t, 60, preview.Width)

	s.SetOptions(warp.Options{Rotate90: true})
	assert.Equal(t, 30, preview.Width)
	assert.Equal(t, 60, preview.Height)
	assert.Equal(t, image.Rect(0, 0, 30, 60), preview.Preview.Bounds())
}

func TestRubberBandEvent(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})

	var band RubberBandInfo
	s.On(EventRubberBandChanged, func(data interface{}) { band = data.(RubberBandInfo) })

	s.RubberBand(5, 5)
	assert.False(t, band.Visible)

	s.Press(10, 10)
	s.RubberBand(50, 60)
	assert.True(t, band.Visible)
	assert.Equal(t, geometry.Point2D{X: 10, Y: 10}, band.From)
	assert.Equal(t, geometry.Point2D{X: 50, Y: 60}, band.To)
}

func TestLoadImageRecordsRecentFile(t *testing.T) {
	s, _ := newSession(t)

	var files []string
	s.On(EventRecentFilesChanged, func(data interface{}) { files = data.([]string) })

	path := writeImage(t, "recent.png", 10, 10, color.RGBA{A: 255})
	require.NoError(t, s.LoadImage(path))
	assert.Equal(t, []string{path}, files)
	assert.Equal(t, []string{path}, s.RecentFiles())
}

func TestLoadImageResetsHistory(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})
	selectSquare(s)
	require.True(t, s.CanUndo())

	require.NoError(t, s.LoadImage(writeImage(t, "b.png", 30, 30, color.RGBA{A: 255})))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Empty(t, s.Points())
}

func TestReportErrorReachesReporter(t *testing.T) {
	s, rec := newSession(t)
	s.ReportError("Invalid Resolution", "bad size")
	assert.Equal(t, []string{"Invalid Resolution"}, rec.errorTitles())
}

func TestSaveWithoutImage(t *testing.T) {
	s, rec := newSession(t)
	assert.ErrorIs(t, s.Save(filepath.Join(t.TempDir(), "out.png")), ErrNoImage)
	assert.Equal(t, []string{"Error"}, rec.errorTitles())
}

// brokenWarper fails every warp.
type brokenWarper struct {
	*warp.Engine
}

func (brokenWarper) Warp(context.Context, image.Image, geometry.Quad, int, int) (*image.RGBA, error) {
	return nil, errors.New("engine unavailable")
}

func settle(t *testing.T, s *Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Poll()
		return !s.Extracting()
	}, 10*time.Second, 5*time.Millisecond)
}

func TestDragFailuresShowOneDialogAfterRelease(t *testing.T) {
	rec := &recorder{}
	s := NewSession(DefaultSessionConfig(), brokenWarper{warp.NewEngine()}, rec, nil, nil)
	t.Cleanup(s.Close)
	require.NoError(t, s.LoadImage(writeImage(t, "src.png", 100, 100, color.RGBA{A: 255})))

	selectSquare(s)
	settle(t, s)
	before := len(rec.errorTitles())

	s.Press(75, 75)
	for x := 20.0; x >= 5; x -= 5 {
		s.Drag(x, 50)
		settle(t, s)
	}
	assert.Len(t, rec.errorTitles(), before, "no dialog while dragging")
	assert.Equal(t, "Extraction failed", rec.lastStatus())

	s.Release()
	settle(t, s)
	titles := rec.errorTitles()
	require.Len(t, titles, before+1)
	assert.Equal(t, "Extraction Failed", titles[len(titles)-1])
}

func TestCrossedSelectionStillExtracts(t *testing.T) {
	s, rec := loaded(t, color.RGBA{G: 255, A: 255})
	selectSquare(s)
	waitTexture(t, s)

	s.Press(75, 75)
	s.Drag(5, 50)
	s.Release()
	require.Equal(t, geometry.Point2D{X: 5, Y: 50}, s.Points()[2])

	settle(t, s)
	assert.NotNil(t, s.Texture())
	assert.Empty(t, rec.errorTitles())
	assert.Contains(t, rec.lastStatus(), "selection edges cross")
}

func TestPollResultDoesNotRevertControls(t *testing.T) {
	s, _ := loaded(t, color.RGBA{A: 255})

	var reverts []bool
	s.On(EventOptionsChanged, func(data interface{}) { reverts = append(reverts, data.(OptionsInfo).Revert) })

	selectSquare(s)
	waitTexture(t, s)
	require.NotEmpty(t, reverts)
	assert.False(t, reverts[len(reverts)-1])

	s.Undo()
	assert.True(t, reverts[len(reverts)-1])
}
