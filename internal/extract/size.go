package extract

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"textractor/pkg/geometry"
)

// MaxResolution bounds each side of an explicit output resolution.
const MaxResolution = 16384

// ErrInvalidResolution is returned for resolution text that is not "WxH"
// with both sides in [1, MaxResolution].
var ErrInvalidResolution = errors.New("invalid resolution")

// Resolution is an explicit output size. The zero value means the size is
// derived from the selection.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Original is the derived-size resolution.
var Original = Resolution{}

// Preset labels offered by the output resolution menu.
const (
	PresetOriginal = "Original"
	PresetCustom   = "Custom"
)

// Presets lists the menu entries in order.
var Presets = []string{PresetOriginal, "512x512", "1024x1024", "2048x2048", PresetCustom}

// IsOriginal reports whether the size is derived rather than explicit.
func (r Resolution) IsOriginal() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Resolution) String() string {
	if r.IsOriginal() {
		return PresetOriginal
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "WxH" (case-insensitive separator) or "Original".
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, PresetOriginal) {
		return Original, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q, expected WIDTHxHEIGHT", ErrInvalidResolution, s)
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(ws))
	h, err2 := strconv.Atoi(strings.TrimSpace(hs))
	if err1 != nil || err2 != nil {
		return Resolution{}, fmt.Errorf("%w: %q, expected WIDTHxHEIGHT", ErrInvalidResolution, s)
	}
	if w < 1 || h < 1 || w > MaxResolution || h > MaxResolution {
		return Resolution{}, fmt.Errorf("%w: %dx%d outside 1..%d", ErrInvalidResolution, w, h, MaxResolution)
	}
	return Resolution{Width: w, Height: h}, nil
}

// OutputSize returns the output raster size for quad at the given ratio.
// An explicit resolution is used verbatim. Otherwise the longer of each pair
// of opposite sides gives the raw size, the shorter dimension grows to match
// ratio and the result is scaled so its longer side equals maxDim.
func OutputSize(q geometry.Quad, ratio float64, maxDim int, res Resolution) (int, int, error) {
	if !res.IsOriginal() {
		return res.Width, res.Height, nil
	}
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, 0, fmt.Errorf("invalid aspect ratio %v", ratio)
	}
	if maxDim <= 0 {
		return 0, 0, fmt.Errorf("invalid maximum dimension %d", maxDim)
	}

	s := q.SideLengths()
	width := math.Max(s[0], s[2])
	height := math.Max(s[1], s[3])
	if ratio > 1 {
		width = height * ratio
	} else {
		height = width / ratio
	}

	longest := math.Max(width, height)
	if longest <= 0 || math.IsNaN(longest) || math.IsInf(longest, 0) {
		return 0, 0, fmt.Errorf("zero-size selection")
	}
	scale := float64(maxDim) / longest
	// the epsilon keeps exact products like 99.99999999 from truncating to 99
	w := max(1, int(width*scale+1e-9))
	h := max(1, int(height*scale+1e-9))
	return w, h, nil
}
