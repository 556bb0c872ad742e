package theme

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewThemeWithNameFallsBack(t *testing.T) {
	th := NewThemeWithName("does-not-exist")
	if _, ok := th.Colors.Green.(lipgloss.AdaptiveColor); !ok {
		t.Fatalf("expected the default adaptive palette, got %T", th.Colors.Green)
	}

	term := NewThemeWithName(" Terminal ")
	if got, ok := term.Colors.Green.(lipgloss.Color); !ok || got != "2" {
		t.Fatalf("expected ANSI green, got %#v", term.Colors.Green)
	}
}

func TestModeBadge(t *testing.T) {
	th := NewThemeWithName("terminal")
	if got := th.ModeBadge("demo"); !strings.Contains(got, "demo") || !strings.Contains(got, IconDemo) {
		t.Errorf("demo badge = %q", got)
	}
	if got := th.ModeBadge("live"); !strings.Contains(got, "live") || !strings.Contains(got, IconLive) {
		t.Errorf("live badge = %q", got)
	}
}
