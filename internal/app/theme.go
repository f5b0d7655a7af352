package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Theme colors.
var (
	ColorBackground = color.NRGBA{R: 0x2E, G: 0x2E, B: 0x2E, A: 0xFF}
	ColorAccent     = color.NRGBA{R: 0x4A, G: 0x90, B: 0xE2, A: 0xFF}
)

// TextractorTheme is the dark theme with the blue accent.
type TextractorTheme struct{}

var _ fyne.Theme = (*TextractorTheme)(nil)

func (t *TextractorTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return ColorBackground
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return ColorAccent
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x4A, G: 0x90, B: 0xE2, A: 0x60}
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *TextractorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *TextractorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *TextractorTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 12
	case theme.SizeNameScrollBarSmall:
		return 8
	default:
		return theme.DefaultTheme().Size(name)
	}
}
