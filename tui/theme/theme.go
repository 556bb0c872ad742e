// Package theme holds the lipgloss styles shared by the lumin CLI printers
// and the dashboard.
package theme

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/lumin/config"
	"github.com/muesli/termenv"
)

const defaultThemeName = "lumin"

// --- Lumin dark palette (night set) ---
const (
	luminDarkGreen     = "#98BB6C"
	luminDarkYellow    = "#F59E0B"
	luminDarkRed       = "#FF5D62"
	luminDarkOrange    = "#FFA066"
	luminDarkCyan      = "#7E9CD8"
	luminDarkBlue      = "#7FB4CA"
	luminDarkViolet    = "#957FB8"
	luminDarkLightText = "#DCD7BA"
	luminDarkMutedText = "#727169"
	luminDarkBorder    = "#363646"
)

// --- Lumin light palette (day set) ---
const (
	luminLightGreen     = "#4E7C5A"
	luminLightYellow    = "#A68A64"
	luminLightRed       = "#C34043"
	luminLightOrange    = "#CC6B4E"
	luminLightCyan      = "#5B8BBE"
	luminLightBlue      = "#4F7CAC"
	luminLightViolet    = "#674D7A"
	luminLightLightText = "#2B2F42"
	luminLightMutedText = "#6C7086"
	luminLightBorder    = "#B5BDC5"
)

// Colors is the palette of a theme.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Orange    lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	LightText lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// Theme holds the pre-configured styles.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Normal lipgloss.Style
	Muted  lipgloss.Style
	Italic lipgloss.Style

	Box    lipgloss.Style
	Accent lipgloss.Style

	// Live and Demo render the resilience mode badge.
	Live lipgloss.Style
	Demo lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"lumin":    newLuminColors,
	"terminal": newTerminalColors,
}

// DefaultTheme is selected from LUMIN_THEME or the "tui" extension section
// of lumin.yml.
var DefaultTheme = NewTheme()

// NewTheme creates a theme based on the configured theme selection.
func NewTheme() *Theme {
	return NewThemeWithName(getThemeName())
}

// NewThemeWithName constructs a theme from a palette name. Unknown names
// fall back to the default palette.
func NewThemeWithName(name string) *Theme {
	build, ok := themeRegistry[normalizeThemeName(name)]
	if !ok {
		build = themeRegistry[defaultThemeName]
	}
	return newThemeFromColors(build())
}

// ConfigureColorProfile makes lipgloss honour the color capabilities of w
// as well as NO_COLOR and CLICOLOR_FORCE.
func ConfigureColorProfile(w io.Writer) {
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}

// ModeBadge renders a resilience mode name.
func (t *Theme) ModeBadge(mode string) string {
	if mode == "demo" {
		return t.Demo.Render(IconDemo + " demo")
	}
	return t.Live.Render(IconLive + " " + mode)
}

func newThemeFromColors(colors Colors) *Theme {
	return &Theme{
		Colors: colors,

		Header: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Orange),

		Success: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colors.Red).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colors.Cyan).Bold(true),

		Bold:   lipgloss.NewStyle().Bold(true),
		Normal: lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Foreground(colors.MutedText),
		Italic: lipgloss.NewStyle().Italic(true),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),

		Accent: lipgloss.NewStyle().
			Foreground(colors.Violet).
			Bold(true),

		Live: lipgloss.NewStyle().Foreground(colors.Green),
		Demo: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
	}
}

func normalizeThemeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	return strings.ReplaceAll(normalized, "_", "-")
}

func getThemeName() string {
	if theme := normalizeThemeName(os.Getenv("LUMIN_THEME")); theme != "" {
		return theme
	}

	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}

	var tuiCfg struct {
		Theme string `yaml:"theme"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err == nil {
		if theme := normalizeThemeName(tuiCfg.Theme); theme != "" {
			return theme
		}
	}
	return defaultThemeName
}

func newLuminColors() Colors {
	return Colors{
		Green:     lipgloss.AdaptiveColor{Light: luminLightGreen, Dark: luminDarkGreen},
		Yellow:    lipgloss.AdaptiveColor{Light: luminLightYellow, Dark: luminDarkYellow},
		Red:       lipgloss.AdaptiveColor{Light: luminLightRed, Dark: luminDarkRed},
		Orange:    lipgloss.AdaptiveColor{Light: luminLightOrange, Dark: luminDarkOrange},
		Cyan:      lipgloss.AdaptiveColor{Light: luminLightCyan, Dark: luminDarkCyan},
		Blue:      lipgloss.AdaptiveColor{Light: luminLightBlue, Dark: luminDarkBlue},
		Violet:    lipgloss.AdaptiveColor{Light: luminLightViolet, Dark: luminDarkViolet},
		LightText: lipgloss.AdaptiveColor{Light: luminLightLightText, Dark: luminDarkLightText},
		MutedText: lipgloss.AdaptiveColor{Light: luminLightMutedText, Dark: luminDarkMutedText},
		Border:    lipgloss.AdaptiveColor{Light: luminLightBorder, Dark: luminDarkBorder},
	}
}

// newTerminalColors uses the 16 ANSI colors so the terminal's own scheme
// applies.
func newTerminalColors() Colors {
	return Colors{
		Green:     lipgloss.Color("2"),
		Yellow:    lipgloss.Color("3"),
		Red:       lipgloss.Color("1"),
		Orange:    lipgloss.Color("11"),
		Cyan:      lipgloss.Color("6"),
		Blue:      lipgloss.Color("4"),
		Violet:    lipgloss.Color("5"),
		LightText: lipgloss.Color("7"),
		MutedText: lipgloss.Color("8"),
		Border:    lipgloss.Color("8"),
	}
}
