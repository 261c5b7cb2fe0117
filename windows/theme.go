package windows

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CustomTheme is the record browser's theme. Read-only fields are disabled
// entries, so the disabled colours are kept readable.
type CustomTheme struct{}

var _ fyne.Theme = (*CustomTheme)(nil)

type palette map[fyne.ThemeColorName]color.Color

var lightPalette = palette{
	theme.ColorNameBackground:          color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff},
	theme.ColorNameButton:              color.NRGBA{R: 0xe3, G: 0xe8, B: 0xef, A: 0xff},
	theme.ColorNamePrimary:             color.NRGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}, // Green
	theme.ColorNameHover:               color.NRGBA{R: 0xc8, G: 0xe6, B: 0xc9, A: 0xff},
	theme.ColorNameFocus:               color.NRGBA{R: 0x1b, G: 0x5e, B: 0x20, A: 0xff},
	theme.ColorNameForeground:          color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff},
	theme.ColorNameInputBackground:     color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	theme.ColorNameDisabled:            color.NRGBA{R: 0x5f, G: 0x63, B: 0x68, A: 0xff},
	theme.ColorNameDisabledButton:      color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff},
	theme.ColorNameSelection:           color.NRGBA{R: 0xc8, G: 0xe6, B: 0xc9, A: 0xff},
	theme.ColorNameError:               color.NRGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff},
	theme.ColorNameForegroundOnPrimary: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

var darkPalette = palette{
	theme.ColorNameBackground:          color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff},
	theme.ColorNameButton:              color.NRGBA{R: 0x33, G: 0x37, B: 0x3d, A: 0xff},
	theme.ColorNamePrimary:             color.NRGBA{R: 0x66, G: 0xbb, B: 0x6a, A: 0xff},
	theme.ColorNameHover:               color.NRGBA{R: 0x38, G: 0x4d, B: 0x39, A: 0xff},
	theme.ColorNameFocus:               color.NRGBA{R: 0xa5, G: 0xd6, B: 0xa7, A: 0xff},
	theme.ColorNameForeground:          color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
	theme.ColorNameInputBackground:     color.NRGBA{R: 0x2d, G: 0x2d, B: 0x2d, A: 0xff},
	theme.ColorNameDisabled:            color.NRGBA{R: 0xa0, G: 0xa4, B: 0xa8, A: 0xff},
	theme.ColorNameDisabledButton:      color.NRGBA{R: 0x26, G: 0x26, B: 0x26, A: 0xff},
	theme.ColorNameSelection:           color.NRGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
	theme.ColorNameError:               color.NRGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xff},
	theme.ColorNameForegroundOnPrimary: color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff},
}

func (m CustomTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	p := darkPalette
	if variant == theme.VariantLight {
		p = lightPalette
	}
	if c, ok := p[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (m CustomTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (m CustomTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (m CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameScrollBar:
		return 10
	case theme.SizeNameSeparatorThickness:
		return 1
	}
	return theme.DefaultTheme().Size(name)
}
