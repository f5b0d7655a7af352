// Package aspect resolves the output aspect ratio for a selection.
package aspect

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"textractor/pkg/geometry"
)

// Custom ratio bounds.
const (
	MinRatio = 0.1
	MaxRatio = 10.0
)

// MinSideLength is the smallest averaged side, in image pixels, the estimate
// accepts.
const MinSideLength = 1.0

// DefaultCustomText is the custom entry's initial value.
const DefaultCustomText = "1.0"

var (
	// ErrInvalidRatio is returned for custom input that is not a number in
	// [MinRatio, MaxRatio].
	ErrInvalidRatio = errors.New("invalid aspect ratio")

	// ErrDegenerate is returned when the selection is too thin to estimate a ratio.
	ErrDegenerate = errors.New("degenerate selection")
)

// Mode selects how the ratio is derived.
type Mode int

const (
	Estimated Mode = iota
	Square
	Custom
)

// Modes lists every mode in menu order.
var Modes = []Mode{Estimated, Square, Custom}

func (m Mode) String() string {
	switch m {
	case Estimated:
		return "Estimated"
	case Square:
		return "Square"
	case Custom:
		return "Custom"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode label back to a Mode.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if strings.EqualFold(m.String(), s) {
			return m, true
		}
	}
	return Estimated, false
}

// Estimate returns the width/height ratio of q from the averages of its
// opposite sides: sides 0 and 2 give the width, sides 1 and 3 the height.
func Estimate(q geometry.Quad) (float64, error) {
	s := q.SideLengths()
	width := (s[0] + s[2]) / 2
	height := (s[1] + s[3]) / 2
	if math.IsNaN(width) || math.IsNaN(height) || width < MinSideLength || height < MinSideLength {
		return 0, fmt.Errorf("%w: averaged sides %.2f x %.2f", ErrDegenerate, width, height)
	}
	return width / height, nil
}

// ParseRatio validates user input for the custom ratio. A lone leading "."
// is read as "0.".
func ParseRatio(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidRatio)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRatio, text)
	}
	if v < MinRatio || v > MaxRatio {
		return 0, fmt.Errorf("%w: %g is outside [%g, %g]", ErrInvalidRatio, v, MinRatio, MaxRatio)
	}
	return v, nil
}

// Resolver tracks the active mode, the last valid custom value and the last
// ratio handed to the pipeline. It is not safe for concurrent use.
type Resolver struct {
	mode       Mode
	custom     float64
	customText string
	ratio      float64
}

// NewResolver returns a resolver in Estimated mode with a custom value of 1.0.
func NewResolver() *Resolver {
	r := &Resolver{}
	r.Reset()
	return r
}

// Reset returns to Estimated mode and the default custom value.
func (r *Resolver) Reset() {
	r.mode = Estimated
	r.custom = 1.0
	r.customText = DefaultCustomText
	r.ratio = 1.0
}

// Mode returns the active mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// SetMode switches the active mode.
func (r *Resolver) SetMode(m Mode) {
	r.mode = m
}

// Ratio returns the last resolved ratio.
func (r *Resolver) Ratio() float64 {
	return r.ratio
}

// Value returns the ratio the active mode stands for without looking at a
// selection: 1 for Square, the custom value for Custom and the last resolved
// ratio for Estimated.
func (r *Resolver) Value() float64 {
	switch r.mode {
	case Square:
		return 1.0
	case Custom:
		return r.custom
	}
	return r.ratio
}

// CustomText returns the last accepted custom entry, for the entry widget
// to revert to after invalid input.
func (r *Resolver) CustomText() string {
	return r.customText
}

// SetCustom validates text and, on success, stores it as the custom value.
// Invalid input leaves the previous value in place.
func (r *Resolver) SetCustom(text string) (float64, error) {
	v, err := ParseRatio(text)
	if err != nil {
		return r.custom, err
	}
	r.custom = v
	r.customText = formatRatio(text)
	return v, nil
}

// Restore sets mode and ratio from a history snapshot. In Custom mode the
// ratio also becomes the custom value.
func (r *Resolver) Restore(m Mode, ratio float64) {
	r.mode = m
	if ratio > 0 && !math.IsInf(ratio, 0) && !math.IsNaN(ratio) {
		r.ratio = ratio
	}
	if m == Custom && ratio >= MinRatio && ratio <= MaxRatio {
		r.custom = ratio
		r.customText = strconv.FormatFloat(ratio, 'g', -1, 64)
	}
}

// Resolve returns the ratio for q under the active mode and remembers it.
// An estimate on a degenerate quad fails and keeps the previous ratio.
func (r *Resolver) Resolve(q geometry.Quad) (float64, error) {
	var ratio float64
	switch r.mode {
	case Square:
		ratio = 1.0
	case Custom:
		ratio = r.custom
	default:
		est, err := Estimate(q)
		if err != nil {
			return r.ratio, err
		}
		ratio = est
	}
	r.ratio = ratio
	return ratio, nil
}

func formatRatio(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, ".") {
		return "0" + text
	}
	return text
}
