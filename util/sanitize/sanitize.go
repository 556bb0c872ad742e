// Package sanitize turns free text into safe identifiers.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	nonFilenameRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDashRegex   = regexp.MustCompile(`-+`)
)

// maxFilenameLen bounds names derived from titles.
const maxFilenameLen = 50

// ForFilename lowercases s and reduces it to kebab-case ASCII, e.g.
// "Night Shift: Part II" becomes "night-shift-part-ii". The result may be
// empty.
func ForFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-", ".", "-").Replace(s)
	s = nonFilenameRegex.ReplaceAllString(s, "")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxFilenameLen {
		s = strings.TrimRight(s[:maxFilenameLen], "-")
	}
	return s
}
