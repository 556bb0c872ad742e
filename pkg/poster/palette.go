package poster

import (
	"image/color"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the colour set of a theme.
type Palette struct {
	Background color.Color
	// GradientEnd is set for themes with a diagonal background gradient.
	GradientEnd color.Color
	Primary     color.Color
	Secondary   color.Color
	Text        color.Color
	Accent      color.Color
}

var palettes = map[models.Theme]Palette{
	models.ThemeDark: {
		Background: hex("#0a0a0a"),
		Primary:    hex("#f59e0b"),
		Secondary:  hex("#27272a"),
		Text:       hex("#ffffff"),
		Accent:     hex("#fbbf24"),
	},
	models.ThemeLight: {
		Background: hex("#f5f5f5"),
		Primary:    hex("#1e40af"),
		Secondary:  hex("#e5e7eb"),
		Text:       hex("#1f2937"),
		Accent:     hex("#3b82f6"),
	},
	models.ThemeVibrant: {
		Background:  hex("#667eea"),
		GradientEnd: hex("#764ba2"),
		Primary:     hex("#ff6b6b"),
		Secondary:   hex("#4ecdc4"),
		Text:        hex("#ffffff"),
		Accent:      hex("#ffe66d"),
	},
	models.ThemeMinimal: {
		Background: hex("#ffffff"),
		Primary:    hex("#000000"),
		Secondary:  hex("#e5e5e5"),
		Text:       hex("#000000"),
		Accent:     hex("#666666"),
	},
}

// PaletteFor returns the palette of theme. Unknown themes get the dark one.
func PaletteFor(theme models.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[models.ThemeDark]
}

func hex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// gradientAt blends from a to b at t in [0,1].
func gradientAt(a, b color.Color, t float64) color.Color {
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 0xff}
}
